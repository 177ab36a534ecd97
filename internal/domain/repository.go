package domain

import (
	"context"
	"time"
)

// Run is the persisted summary of one fleet run.
type Run struct {
	ID         string
	Mode       RunMode
	Query      string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunRecord is the persisted outcome for one device within one run.
type RunRecord struct {
	RunID       string
	FQDN        string
	Mode        RunMode
	DiffKind    DiffKind
	OutcomeKind OutcomeKind
	Reason      string
	Attempts    int
	UpdatedAt   time.Time
}

// RunRepository persists and retrieves fleet run summaries.
type RunRepository interface {
	Create(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (Run, error)
	List(ctx context.Context) ([]Run, error)
	Update(ctx context.Context, run Run) error
	Delete(ctx context.Context, id string) error
}

// RunRecordRepository persists per-device outcomes for each run-device pair.
type RunRecordRepository interface {
	Put(ctx context.Context, record RunRecord) error
	Get(ctx context.Context, runID, fqdn string) (RunRecord, error)
	ListByRun(ctx context.Context, runID string) ([]RunRecord, error)
	DeleteByRun(ctx context.Context, runID string) error
}
