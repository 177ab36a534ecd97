package domain

import "errors"

var (
	// ErrCommitTimeout indicates that a commit RPC timed out. A timeout does
	// not tell the caller whether the commit was applied, so the engine must
	// roll the device back before any retry.
	ErrCommitTimeout = errors.New("commit timeout")

	// ErrAborted indicates an explicit operator cancellation or exhaustion of
	// the confirmation-reply budget. It is never retried.
	ErrAborted = errors.New("commit aborted")

	// ErrNotFound indicates that a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource with the same identity
	// already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidArgument indicates that a caller-provided value violates
	// a precondition.
	ErrInvalidArgument = errors.New("invalid argument")
)
