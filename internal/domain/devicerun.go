package domain

import (
	"context"
	"errors"
	"time"
)

// RunMode selects what a fleet run does per device.
type RunMode string

const (
	// ModeDiff computes and reports diffs without touching device state.
	ModeDiff RunMode = "diff"
	// ModeCommit applies the candidate configuration where it differs.
	ModeCommit RunMode = "commit"
)

// DeviceRunInput is the input to one device's workflow instance.
type DeviceRunInput struct {
	RunID     string
	Device    Device
	Candidate string
	Mode      RunMode
}

// DeviceResult is the single, typed result of one device's run. In diff mode
// the Outcome is left zero-valued; in commit mode both the diff and the
// commit outcome are populated.
type DeviceResult struct {
	FQDN    string
	Mode    RunMode
	Diff    DiffResult
	Outcome CommitOutcome
}

// CommitCode classifies the result of a commit-check or commit activity.
// Transport errors are classified inside the activity so the workflow body
// matches on explicit values rather than error types; durable engines
// serialize activity outputs and would not preserve error wrapping.
type CommitCode string

const (
	CommitOK      CommitCode = "ok"
	CommitTimeout CommitCode = "timeout"
	CommitAbort   CommitCode = "aborted"
	CommitError   CommitCode = "error"
)

// CommitStatus is the classified outcome of a single commit-check or commit
// RPC.
type CommitStatus struct {
	Code   CommitCode
	Reason string
}

// DiffInput is the input to the compute-diff activity.
type DiffInput struct {
	Device    Device
	Candidate string
}

// CheckInput is the input to the commit-check activity.
type CheckInput struct {
	Device    Device
	Candidate string
}

// CommitInput is the input to the commit-attempt activity.
type CommitInput struct {
	Device    Device
	Candidate string
	Attempt   int
}

// RollbackInput is the input to the rollback activity.
type RollbackInput struct {
	Device Device
}

// RollbackStatus reports whether a rollback completed. A failed rollback
// makes further retries unsafe.
type RollbackStatus struct {
	OK     bool
	Reason string
}

// DeviceWorkflow runs the diff-or-commit pipeline for a single device. The
// workflow body is the attempt controller: it owns the bounded-retry policy
// and matches exhaustively on classified activity results. Each transport
// call and the final record write run as activities so a durable engine can
// resume a crashed run without losing the committed/uncommitted answer.
type DeviceWorkflow struct {
	Transport Transport
	// Records persists the per-device outcome. Optional; a nil repository
	// disables recording.
	Records RunRecordRepository
	// MaxAttempts bounds commit retries after timeouts. Values below one are
	// treated as one.
	MaxAttempts int
	// Now is the clock used for record timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Name is the stable workflow registration name.
func (w *DeviceWorkflow) Name() string { return "device-run" }

// ComputeDiff wraps Transport.ComputeDiff. The transport already folds
// failures into the DiffFailed kind, so the activity itself never errors.
func (w *DeviceWorkflow) ComputeDiff() Activity[DiffInput, DiffResult] {
	return NewActivity("compute-diff", func(ctx context.Context, in DiffInput) (DiffResult, error) {
		return w.Transport.ComputeDiff(ctx, in.Device, in.Candidate), nil
	})
}

// CommitCheck wraps Transport.CommitCheck, classifying its error.
func (w *DeviceWorkflow) CommitCheck() Activity[CheckInput, CommitStatus] {
	return NewActivity("commit-check", func(ctx context.Context, in CheckInput) (CommitStatus, error) {
		return classifyCommitErr(w.Transport.CommitCheck(ctx, in.Device, in.Candidate)), nil
	})
}

// CommitAttempt wraps Transport.Commit, classifying its error.
func (w *DeviceWorkflow) CommitAttempt() Activity[CommitInput, CommitStatus] {
	return NewActivity("commit-attempt", func(ctx context.Context, in CommitInput) (CommitStatus, error) {
		return classifyCommitErr(w.Transport.Commit(ctx, in.Device, in.Candidate, in.Attempt)), nil
	})
}

// Rollback wraps Transport.Rollback. The activity returns only once the
// rollback has completed on the device.
func (w *DeviceWorkflow) Rollback() Activity[RollbackInput, RollbackStatus] {
	return NewActivity("rollback", func(ctx context.Context, in RollbackInput) (RollbackStatus, error) {
		if err := w.Transport.Rollback(ctx, in.Device); err != nil {
			return RollbackStatus{Reason: err.Error()}, nil
		}
		return RollbackStatus{OK: true}, nil
	})
}

// RecordResult persists the device's run record.
func (w *DeviceWorkflow) RecordResult() Activity[RunRecord, struct{}] {
	return NewActivity("record-result", func(ctx context.Context, rec RunRecord) (struct{}, error) {
		if w.Records == nil {
			return struct{}{}, nil
		}
		return struct{}{}, w.Records.Put(ctx, rec)
	})
}

// Run executes the device pipeline: diff, then in commit mode the bounded
// commit loop, then the record write. It returns an error only for engine or
// persistence failures; every transport condition terminates in a typed
// DeviceResult.
func (w *DeviceWorkflow) Run(runner DurableRunner, in DeviceRunInput) (DeviceResult, error) {
	result := DeviceResult{FQDN: in.Device.FQDN, Mode: in.Mode}

	diff, err := RunActivity(runner, w.ComputeDiff(), DiffInput{Device: in.Device, Candidate: in.Candidate})
	if err != nil {
		return result, err
	}
	result.Diff = diff

	if in.Mode == ModeCommit {
		outcome, err := w.commitLoop(runner, in, diff)
		if err != nil {
			return result, err
		}
		result.Outcome = outcome
	}

	rec := recordFor(in, result, w.now())
	if _, err := RunActivity(runner, w.RecordResult(), rec); err != nil {
		return result, err
	}
	return result, nil
}

// commitLoop is the attempt controller. Only timeouts are retried, and never
// before the prior attempt's rollback has completed.
func (w *DeviceWorkflow) commitLoop(runner DurableRunner, in DeviceRunInput, diff DiffResult) (CommitOutcome, error) {
	switch diff.Kind {
	case DiffNone:
		// A no-op diff never reaches commit-check, on any attempt.
		return SkippedNoChange(), nil
	case DiffFailed:
		return CommitFailed("diff computation failed: "+diff.Reason, 0), nil
	}

	state := NewAttemptState(w.MaxAttempts)
	for {
		check, err := RunActivity(runner, w.CommitCheck(), CheckInput{Device: in.Device, Candidate: in.Candidate})
		if err != nil {
			return CommitOutcome{}, err
		}
		switch check.Code {
		case CommitOK:
		case CommitAbort:
			return Aborted(check.Reason, state.Attempt), nil
		default:
			return CommitFailed(check.Reason, state.Attempt), nil
		}

		status, err := RunActivity(runner, w.CommitAttempt(), CommitInput{Device: in.Device, Candidate: in.Candidate, Attempt: state.Attempt})
		if err != nil {
			return CommitOutcome{}, err
		}
		switch status.Code {
		case CommitOK:
			return Committed(state.Attempt), nil
		case CommitAbort:
			return Aborted(status.Reason, state.Attempt), nil
		case CommitTimeout:
			// The commit's fate is unknown; restore the pre-commit state
			// before deciding whether to retry.
			rb, err := RunActivity(runner, w.Rollback(), RollbackInput{Device: in.Device})
			if err != nil {
				return CommitOutcome{}, err
			}
			if !rb.OK {
				return CommitFailed("rollback after timeout: "+rb.Reason, state.Attempt), nil
			}
			if state.Exhausted() {
				return CommitFailed("timeout", state.Attempt), nil
			}
			state.Next(status.Reason)
		default:
			return CommitFailed(status.Reason, state.Attempt), nil
		}
	}
}

func (w *DeviceWorkflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// classifyCommitErr converts a transport error into an explicit CommitStatus
// value matched by the workflow body.
func classifyCommitErr(err error) CommitStatus {
	switch {
	case err == nil:
		return CommitStatus{Code: CommitOK}
	case errors.Is(err, ErrCommitTimeout):
		return CommitStatus{Code: CommitTimeout, Reason: err.Error()}
	case errors.Is(err, ErrAborted):
		return CommitStatus{Code: CommitAbort, Reason: err.Error()}
	default:
		return CommitStatus{Code: CommitError, Reason: err.Error()}
	}
}

func recordFor(in DeviceRunInput, result DeviceResult, now time.Time) RunRecord {
	rec := RunRecord{
		RunID:     in.RunID,
		FQDN:      in.Device.FQDN,
		Mode:      in.Mode,
		DiffKind:  result.Diff.Kind,
		UpdatedAt: now,
	}
	if in.Mode == ModeCommit {
		rec.OutcomeKind = result.Outcome.Kind
		rec.Reason = result.Outcome.Reason
		rec.Attempts = result.Outcome.Attempts
	} else if result.Diff.Kind == DiffFailed {
		rec.Reason = result.Diff.Reason
	}
	return rec
}
