package domain

// DiffKind indicates the outcome of a diff computation for a single device.
type DiffKind string

const (
	// DiffNone means the running and candidate configuration are identical.
	DiffNone DiffKind = "no-diff"
	// DiffFound means the device would change; Text holds the diff.
	DiffFound DiffKind = "diff"
	// DiffFailed means the diff could not be computed. It is a distinct kind
	// so that an empty diff is never conflated with a failed computation.
	DiffFailed DiffKind = "failed"
)

// DiffResult is the typed result of a diff computation. Transport
// implementations fold every device-specific failure (auth, unreachable
// host, malformed response) into the DiffFailed kind at their boundary.
type DiffResult struct {
	Kind DiffKind
	// Text is the diff content, set only for DiffFound. It may be cleared
	// by report redaction while the kind is retained.
	Text string
	// Reason describes the failure, set only for DiffFailed.
	Reason string
	// Redacted is set when Text was dropped from the report.
	Redacted bool
}

// NoDiff returns a DiffResult for an empty diff.
func NoDiff() DiffResult { return DiffResult{Kind: DiffNone} }

// DiffOf returns a DiffResult carrying the given diff text.
func DiffOf(text string) DiffResult { return DiffResult{Kind: DiffFound, Text: text} }

// DiffFailure returns a DiffResult for a failed diff computation.
func DiffFailure(reason string) DiffResult { return DiffResult{Kind: DiffFailed, Reason: reason} }
