package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/topranks/homer/internal/domain"
)

// RunRecordRepo implements [domain.RunRecordRepository] backed by SQLite.
type RunRecordRepo struct {
	DB *sql.DB
}

func (r *RunRecordRepo) Put(ctx context.Context, rec domain.RunRecord) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO run_records (run_id, fqdn, mode, diff_kind, outcome_kind, reason, attempts, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, fqdn) DO UPDATE SET
		   mode = excluded.mode,
		   diff_kind = excluded.diff_kind,
		   outcome_kind = excluded.outcome_kind,
		   reason = excluded.reason,
		   attempts = excluded.attempts,
		   updated_at = excluded.updated_at`,
		rec.RunID, rec.FQDN, string(rec.Mode), string(rec.DiffKind),
		string(rec.OutcomeKind), rec.Reason, rec.Attempts,
		rec.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert run record: %w", err)
	}
	return nil
}

func (r *RunRecordRepo) Get(ctx context.Context, runID, fqdn string) (domain.RunRecord, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT run_id, fqdn, mode, diff_kind, outcome_kind, reason, attempts, updated_at
		 FROM run_records WHERE run_id = ? AND fqdn = ?`,
		runID, fqdn,
	)
	return scanRunRecord(row)
}

func (r *RunRecordRepo) ListByRun(ctx context.Context, runID string) ([]domain.RunRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT run_id, fqdn, mode, diff_kind, outcome_kind, reason, attempts, updated_at
		 FROM run_records WHERE run_id = ? ORDER BY fqdn`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run records: %w", err)
	}
	defer rows.Close()

	var records []domain.RunRecord
	for rows.Next() {
		rec, err := scanRunRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *RunRecordRepo) DeleteByRun(ctx context.Context, runID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM run_records WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run records: %w", err)
	}
	return nil
}

func scanRunRecord(s scanner) (domain.RunRecord, error) {
	var rec domain.RunRecord
	var modeStr, diffStr, outcomeStr, updatedAtStr string
	if err := s.Scan(&rec.RunID, &rec.FQDN, &modeStr, &diffStr, &outcomeStr, &rec.Reason, &rec.Attempts, &updatedAtStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, fmt.Errorf("%w", domain.ErrNotFound)
		}
		return rec, fmt.Errorf("scan run record: %w", err)
	}
	rec.Mode = domain.RunMode(modeStr)
	rec.DiffKind = domain.DiffKind(diffStr)
	rec.OutcomeKind = domain.OutcomeKind(outcomeStr)

	t, err := time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return rec, fmt.Errorf("parse updated_at: %w", err)
	}
	rec.UpdatedAt = t
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}
