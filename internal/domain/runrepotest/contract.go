// Package runrepotest provides contract tests for [domain.RunRepository]
// implementations.
package runrepotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/topranks/homer/internal/domain"
)

// Factory creates a fresh [domain.RunRepository] for each test.
type Factory func(t *testing.T) domain.RunRepository

// Run exercises the [domain.RunRepository] contract.
func Run(t *testing.T, factory Factory) {
	started := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	sampleRun := func() domain.Run {
		return domain.Run{
			ID:        "r1",
			Mode:      domain.ModeCommit,
			Query:     "role:cr",
			Status:    domain.RunSuccess,
			StartedAt: started,
		}
	}

	t.Run("CreateAndGet", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		run := sampleRun()

		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := repo.Get(ctx, "r1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Mode != domain.ModeCommit {
			t.Errorf("Mode = %q, want %q", got.Mode, domain.ModeCommit)
		}
		if got.Query != "role:cr" {
			t.Errorf("Query = %q, want %q", got.Query, "role:cr")
		}
		if !got.StartedAt.Equal(started) {
			t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
		}
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		run := sampleRun()
		_ = repo.Create(ctx, run)
		err := repo.Create(ctx, run)
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("second Create: got %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		repo := factory(t)
		_, err := repo.Get(context.Background(), "nonexistent")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get: got %v, want ErrNotFound", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		run := sampleRun()
		_ = repo.Create(ctx, run)

		run.Status = domain.RunFailure
		run.FinishedAt = started.Add(2 * time.Minute)
		if err := repo.Update(ctx, run); err != nil {
			t.Fatalf("Update: %v", err)
		}

		got, _ := repo.Get(ctx, "r1")
		if got.Status != domain.RunFailure {
			t.Errorf("Status after Update = %q, want %q", got.Status, domain.RunFailure)
		}
		if !got.FinishedAt.Equal(run.FinishedAt) {
			t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, run.FinishedAt)
		}
	})

	t.Run("UpdateNotFound", func(t *testing.T) {
		repo := factory(t)
		err := repo.Update(context.Background(), domain.Run{ID: "nonexistent"})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Update: got %v, want ErrNotFound", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		r1 := sampleRun()
		r2 := sampleRun()
		r2.ID = "r2"
		_ = repo.Create(ctx, r1)
		_ = repo.Create(ctx, r2)

		got, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("List: got %d, want 2", len(got))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		_ = repo.Create(ctx, sampleRun())
		if err := repo.Delete(ctx, "r1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		_, err := repo.Get(ctx, "r1")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get after Delete: got %v, want ErrNotFound", err)
		}
	})

	t.Run("DeleteNotFound", func(t *testing.T) {
		repo := factory(t)
		err := repo.Delete(context.Background(), "nonexistent")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Delete: got %v, want ErrNotFound", err)
		}
	})
}
