package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/topranks/homer/internal/domain"
)

// RunRepo implements [domain.RunRepository] backed by SQLite.
type RunRepo struct {
	DB *sql.DB
}

func (r *RunRepo) Create(ctx context.Context, run domain.Run) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO runs (id, mode, query, status, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Mode), run.Query, string(run.Status),
		run.StartedAt.UTC().Format(time.RFC3339), nullTime(run.FinishedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("run %q: %w", run.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepo) Get(ctx context.Context, id string) (domain.Run, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id, mode, query, status, started_at, finished_at FROM runs WHERE id = ?`,
		id,
	)
	return scanRun(row)
}

func (r *RunRepo) List(ctx context.Context) ([]domain.Run, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, mode, query, status, started_at, finished_at FROM runs ORDER BY started_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *RunRepo) Update(ctx context.Context, run domain.Run) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE runs SET mode = ?, query = ?, status = ?, started_at = ?, finished_at = ? WHERE id = ?`,
		string(run.Mode), run.Query, string(run.Status),
		run.StartedAt.UTC().Format(time.RFC3339), nullTime(run.FinishedAt), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run %q: %w", run.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *RunRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanRun(s scanner) (domain.Run, error) {
	var run domain.Run
	var modeStr, statusStr, startedStr string
	var finishedStr sql.NullString
	if err := s.Scan(&run.ID, &modeStr, &run.Query, &statusStr, &startedStr, &finishedStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, fmt.Errorf("%w", domain.ErrNotFound)
		}
		return run, fmt.Errorf("scan run: %w", err)
	}
	run.Mode = domain.RunMode(modeStr)
	run.Status = domain.RunStatus(statusStr)

	started, err := time.Parse(time.RFC3339, startedStr)
	if err != nil {
		return run, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = started
	if finishedStr.Valid {
		finished, err := time.Parse(time.RFC3339, finishedStr.String)
		if err != nil {
			return run, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = finished
	}
	return run, nil
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
