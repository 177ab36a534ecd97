// Package runrecordrepotest provides contract tests for
// [domain.RunRecordRepository] implementations.
package runrecordrepotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/topranks/homer/internal/domain"
)

// Factory creates a fresh [domain.RunRecordRepository] for each test.
type Factory func(t *testing.T) domain.RunRecordRepository

// Run exercises the [domain.RunRecordRepository] contract.
func Run(t *testing.T, factory Factory) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	t.Run("PutAndGet", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		rec := domain.RunRecord{
			RunID:       "r1",
			FQDN:        "a.example",
			Mode:        domain.ModeCommit,
			DiffKind:    domain.DiffFound,
			OutcomeKind: domain.OutcomeCommitted,
			Attempts:    1,
			UpdatedAt:   now,
		}

		if err := repo.Put(ctx, rec); err != nil {
			t.Fatalf("Put: %v", err)
		}

		got, err := repo.Get(ctx, "r1", "a.example")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.OutcomeKind != domain.OutcomeCommitted {
			t.Errorf("OutcomeKind = %q, want %q", got.OutcomeKind, domain.OutcomeCommitted)
		}
		if got.DiffKind != domain.DiffFound {
			t.Errorf("DiffKind = %q, want %q", got.DiffKind, domain.DiffFound)
		}
		if got.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", got.Attempts)
		}
	})

	t.Run("PutUpserts", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		rec := domain.RunRecord{
			RunID: "r1", FQDN: "a.example",
			Mode: domain.ModeCommit, DiffKind: domain.DiffFound,
			OutcomeKind: domain.OutcomeFailed, Reason: "timeout", Attempts: 3,
			UpdatedAt: now,
		}
		_ = repo.Put(ctx, rec)

		rec.OutcomeKind = domain.OutcomeCommitted
		rec.Reason = ""
		rec.UpdatedAt = now.Add(time.Minute)
		if err := repo.Put(ctx, rec); err != nil {
			t.Fatalf("second Put: %v", err)
		}

		got, _ := repo.Get(ctx, "r1", "a.example")
		if got.OutcomeKind != domain.OutcomeCommitted {
			t.Errorf("OutcomeKind after upsert = %q, want %q", got.OutcomeKind, domain.OutcomeCommitted)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		repo := factory(t)
		_, err := repo.Get(context.Background(), "r1", "a.example")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get: got %v, want ErrNotFound", err)
		}
	})

	t.Run("ListByRun", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		for _, fqdn := range []string{"a.example", "b.example"} {
			_ = repo.Put(ctx, domain.RunRecord{
				RunID: "r1", FQDN: fqdn,
				Mode: domain.ModeDiff, DiffKind: domain.DiffNone, UpdatedAt: now,
			})
		}
		_ = repo.Put(ctx, domain.RunRecord{
			RunID: "r2", FQDN: "c.example",
			Mode: domain.ModeDiff, DiffKind: domain.DiffNone, UpdatedAt: now,
		})

		got, err := repo.ListByRun(ctx, "r1")
		if err != nil {
			t.Fatalf("ListByRun: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("ListByRun: got %d, want 2", len(got))
		}
	})

	t.Run("DeleteByRun", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		_ = repo.Put(ctx, domain.RunRecord{
			RunID: "r1", FQDN: "a.example",
			Mode: domain.ModeDiff, DiffKind: domain.DiffFound, UpdatedAt: now,
		})
		_ = repo.Put(ctx, domain.RunRecord{
			RunID: "r1", FQDN: "b.example",
			Mode: domain.ModeDiff, DiffKind: domain.DiffNone, UpdatedAt: now,
		})

		if err := repo.DeleteByRun(ctx, "r1"); err != nil {
			t.Fatalf("DeleteByRun: %v", err)
		}

		got, _ := repo.ListByRun(ctx, "r1")
		if len(got) != 0 {
			t.Fatalf("after delete: got %d records, want 0", len(got))
		}
	})
}
