package dbosworkflows_test

import (
	"context"
	"testing"
	"time"

	"github.com/dbos-inc/dbos-transact-golang/dbos"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/topranks/homer/internal/domain"
	"github.com/topranks/homer/internal/infrastructure/dbosworkflows"
	"github.com/topranks/homer/internal/infrastructure/sqlite"
)

type stubTransport struct{}

func (stubTransport) ComputeDiff(_ context.Context, _ domain.Device, _ string) domain.DiffResult {
	return domain.DiffOf("+ set system host-name")
}

func (stubTransport) CommitCheck(_ context.Context, _ domain.Device, _ string) error { return nil }

func (stubTransport) Commit(_ context.Context, _ domain.Device, _ string, _ int) error { return nil }

func (stubTransport) Rollback(_ context.Context, _ domain.Device) error { return nil }

func startPostgres(t *testing.T) string {
	t.Helper()

	// Ryuk (the reaper) requires a Docker bridge network that does not
	// exist on Podman. We handle cleanup via t.Cleanup instead.
	t.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("homer_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get postgres connection string: %v", err)
	}
	return connStr
}

func TestDeviceRun_DBOS(t *testing.T) {
	connStr := startPostgres(t)

	ctx := context.Background()

	dbosCtx, err := dbos.NewDBOSContext(ctx, dbos.Config{
		AppName:     "homer-dbos-test",
		DatabaseURL: connStr,
	})
	if err != nil {
		t.Fatalf("NewDBOSContext: %v", err)
	}

	db := sqlite.OpenTestDB(t)
	recordRepo := &sqlite.RunRecordRepo{DB: db}

	wf := &domain.DeviceWorkflow{
		Transport:   stubTransport{},
		Records:     recordRepo,
		MaxAttempts: 3,
		Now:         func() time.Time { return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC) },
	}

	engine := &dbosworkflows.Engine{DBOSCtx: dbosCtx}
	runner, err := engine.DeviceRunner(wf)
	if err != nil {
		t.Fatalf("DeviceRunner: %v", err)
	}

	if err := dbos.Launch(dbosCtx); err != nil {
		t.Fatalf("dbos.Launch: %v", err)
	}
	t.Cleanup(func() { dbos.Shutdown(dbosCtx, 5*time.Second) })

	handle, err := runner.Run(ctx, domain.DeviceRunInput{
		RunID:     "r1",
		Device:    domain.Device{FQDN: "cr1-eqiad.example", Role: "cr", Site: "eqiad"},
		Candidate: "system { host-name cr1 }",
		Mode:      domain.ModeCommit,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result, err := handle.AwaitResult(ctx)
	if err != nil {
		t.Fatalf("AwaitResult: %v", err)
	}

	if result.Outcome.Kind != domain.OutcomeCommitted {
		t.Fatalf("Outcome.Kind = %q, want %q", result.Outcome.Kind, domain.OutcomeCommitted)
	}

	rec, err := recordRepo.Get(ctx, "r1", "cr1-eqiad.example")
	if err != nil {
		t.Fatalf("Get run record: %v", err)
	}
	if rec.OutcomeKind != domain.OutcomeCommitted {
		t.Errorf("record OutcomeKind = %q, want %q", rec.OutcomeKind, domain.OutcomeCommitted)
	}
}
