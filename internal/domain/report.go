package domain

import "sort"

// RunStatus is the aggregate status of a fleet run, used for process-level
// outcome signaling.
type RunStatus string

const (
	// RunSuccess means no device failed and nothing changed or would change.
	RunSuccess RunStatus = "success"
	// RunSuccessWithDiff means the run succeeded and at least one device has
	// a non-empty diff (diff mode) or was actually changed (commit mode).
	RunSuccessWithDiff RunStatus = "success-with-diff"
	// RunFailure means at least one device's outcome is failed. Failure takes
	// precedence over diff-found when both apply.
	RunFailure RunStatus = "failure"
)

// FleetReport is the ordered, per-device result of one fleet run. Results are
// sorted by FQDN ascending regardless of task completion order, so output is
// deterministic whether tasks ran sequentially or concurrently.
type FleetReport struct {
	RunID   string
	Mode    RunMode
	Results []DeviceResult
	Status  RunStatus
}

// AssembleReport builds a FleetReport from the collected per-device results.
// When redact is set, diff content is dropped from the report while the fact
// that a diff existed is retained.
func AssembleReport(runID string, mode RunMode, results map[string]DeviceResult, redact bool) FleetReport {
	ordered := make([]DeviceResult, 0, len(results))
	for _, res := range results {
		if redact && res.Diff.Kind == DiffFound {
			res.Diff.Text = ""
			res.Diff.Redacted = true
		}
		ordered = append(ordered, res)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].FQDN < ordered[j].FQDN })

	return FleetReport{
		RunID:   runID,
		Mode:    mode,
		Results: ordered,
		Status:  aggregateStatus(mode, ordered),
	}
}

func aggregateStatus(mode RunMode, results []DeviceResult) RunStatus {
	status := RunSuccess
	for _, res := range results {
		if res.Failed() {
			return RunFailure
		}
		if res.Changed() {
			status = RunSuccessWithDiff
		}
	}
	return status
}

// Failed reports whether this device's run ended in a failure, in either
// mode. An aborted commit is a deliberate stop, not a failure.
func (r DeviceResult) Failed() bool {
	if r.Diff.Kind == DiffFailed {
		return true
	}
	return r.Mode == ModeCommit && r.Outcome.Kind == OutcomeFailed
}

// Changed reports whether this device has a non-empty diff (diff mode) or
// actually had changes applied (commit mode).
func (r DeviceResult) Changed() bool {
	if r.Mode == ModeCommit {
		return r.Outcome.Kind == OutcomeCommitted
	}
	return r.Diff.Kind == DiffFound
}
