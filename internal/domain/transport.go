package domain

import "context"

// Transport is the port through which the engine talks to one device's
// control plane. Implementations own session handling and the wire protocol;
// the engine owns retry policy and outcome classification.
type Transport interface {
	// ComputeDiff computes the difference between the device's running
	// configuration and the candidate. It never returns an error: every
	// device-specific failure (auth, unreachable host, malformed response)
	// is folded into a DiffFailed result at this boundary so it can be told
	// apart from an empty diff.
	ComputeDiff(ctx context.Context, device Device, candidate string) DiffResult

	// CommitCheck runs a dry-run validation of the candidate configuration
	// without applying it.
	CommitCheck(ctx context.Context, device Device, candidate string) error

	// Commit applies the candidate configuration. The attempt number starts
	// at 1 and is passed through so the implementation may vary behavior on
	// repeat attempts. Two conditions must be surfaced distinctly by error
	// wrapping: ErrCommitTimeout (the commit's outcome is unknown) and
	// ErrAborted (operator abort or confirmation-reply budget exhausted).
	Commit(ctx context.Context, device Device, candidate string, attempt int) error

	// Rollback reverts the device to its pre-commit configuration. It returns
	// only once the rollback has completed; the engine never issues a retry
	// against a device whose rollback is still pending.
	Rollback(ctx context.Context, device Device) error
}
