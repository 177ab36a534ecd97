package domain

// OutcomeKind indicates the terminal state of one device's commit run.
type OutcomeKind string

const (
	// OutcomeSkippedNoChange means the diff was empty and no commit-check or
	// commit was ever attempted.
	OutcomeSkippedNoChange OutcomeKind = "skipped-no-change"
	// OutcomeCommitted means the candidate configuration was applied.
	OutcomeCommitted OutcomeKind = "committed"
	// OutcomeAborted means an explicit operator cancellation or exhaustion of
	// the confirmation-reply budget stopped the commit. It is deliberately a
	// different kind than OutcomeFailed: it signals "I stopped it", not
	// "it broke".
	OutcomeAborted OutcomeKind = "aborted"
	// OutcomeFailed means a transport error or retry-budget exhaustion.
	OutcomeFailed OutcomeKind = "failed"
)

// CommitOutcome is the terminal result of the commit state machine for one
// device.
type CommitOutcome struct {
	Kind   OutcomeKind
	Reason string
	// Attempts is the number of commit attempts issued before the terminal
	// state was reached. Zero for OutcomeSkippedNoChange.
	Attempts int
}

// SkippedNoChange returns the outcome for an empty diff.
func SkippedNoChange() CommitOutcome { return CommitOutcome{Kind: OutcomeSkippedNoChange} }

// Committed returns the outcome for a successful commit on the given attempt.
func Committed(attempts int) CommitOutcome {
	return CommitOutcome{Kind: OutcomeCommitted, Attempts: attempts}
}

// Aborted returns the outcome for an operator abort.
func Aborted(reason string, attempts int) CommitOutcome {
	return CommitOutcome{Kind: OutcomeAborted, Reason: reason, Attempts: attempts}
}

// CommitFailed returns the outcome for a non-retryable or budget-exhausting
// failure.
func CommitFailed(reason string, attempts int) CommitOutcome {
	return CommitOutcome{Kind: OutcomeFailed, Reason: reason, Attempts: attempts}
}

// AttemptState tracks the bounded-retry loop for a single device's commit.
// It is created at the start of a device run and discarded at its end; it is
// never shared across devices or runs.
type AttemptState struct {
	Attempt     int
	MaxAttempts int
	LastError   string
}

// NewAttemptState starts the attempt counter at 1. maxAttempts values below
// one are clamped to one so a device always gets a single attempt.
func NewAttemptState(maxAttempts int) *AttemptState {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &AttemptState{Attempt: 1, MaxAttempts: maxAttempts}
}

// Exhausted reports whether the retry budget has been used up.
func (s *AttemptState) Exhausted() bool { return s.Attempt >= s.MaxAttempts }

// Next advances to the next attempt, recording the error that triggered the
// retry.
func (s *AttemptState) Next(lastError string) {
	s.LastError = lastError
	s.Attempt++
}
