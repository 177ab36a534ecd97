package domain_test

import (
	"testing"

	"github.com/topranks/homer/internal/domain"
)

func TestAssembleReport_SortedByFQDN(t *testing.T) {
	results := map[string]domain.DeviceResult{
		"b.example": {FQDN: "b.example", Mode: domain.ModeCommit, Diff: domain.DiffOf("+b"), Outcome: domain.Committed(1)},
		"a.example": {FQDN: "a.example", Mode: domain.ModeCommit, Diff: domain.DiffOf("+a"), Outcome: domain.Committed(1)},
	}

	report := domain.AssembleReport("r1", domain.ModeCommit, results, false)

	if len(report.Results) != 2 {
		t.Fatalf("Results len = %d, want 2", len(report.Results))
	}
	if report.Results[0].FQDN != "a.example" || report.Results[1].FQDN != "b.example" {
		t.Errorf("order = [%s, %s], want [a.example, b.example]",
			report.Results[0].FQDN, report.Results[1].FQDN)
	}
	if report.Status != domain.RunSuccessWithDiff {
		t.Errorf("Status = %q, want %q", report.Status, domain.RunSuccessWithDiff)
	}
}

func TestAssembleReport_FailureTakesPrecedenceOverDiff(t *testing.T) {
	results := map[string]domain.DeviceResult{
		"a.example": {FQDN: "a.example", Mode: domain.ModeDiff, Diff: domain.DiffOf("+a")},
		"b.example": {FQDN: "b.example", Mode: domain.ModeDiff, Diff: domain.DiffFailure("unreachable")},
	}

	report := domain.AssembleReport("r1", domain.ModeDiff, results, false)

	if report.Status != domain.RunFailure {
		t.Errorf("Status = %q, want %q", report.Status, domain.RunFailure)
	}
}

func TestAssembleReport_CommitFailureFlagsFailure(t *testing.T) {
	results := map[string]domain.DeviceResult{
		"a.example": {FQDN: "a.example", Mode: domain.ModeCommit, Diff: domain.DiffOf("+a"), Outcome: domain.Committed(1)},
		"b.example": {FQDN: "b.example", Mode: domain.ModeCommit, Diff: domain.DiffOf("+b"), Outcome: domain.CommitFailed("timeout", 3)},
	}

	report := domain.AssembleReport("r1", domain.ModeCommit, results, false)

	if report.Status != domain.RunFailure {
		t.Errorf("Status = %q, want %q", report.Status, domain.RunFailure)
	}
}

func TestAssembleReport_AllSkippedIsPlainSuccess(t *testing.T) {
	results := map[string]domain.DeviceResult{
		"a.example": {FQDN: "a.example", Mode: domain.ModeCommit, Diff: domain.NoDiff(), Outcome: domain.SkippedNoChange()},
	}

	report := domain.AssembleReport("r1", domain.ModeCommit, results, false)

	if report.Status != domain.RunSuccess {
		t.Errorf("Status = %q, want %q", report.Status, domain.RunSuccess)
	}
}

func TestAssembleReport_NoDiffInDiffModeIsPlainSuccess(t *testing.T) {
	results := map[string]domain.DeviceResult{
		"a.example": {FQDN: "a.example", Mode: domain.ModeDiff, Diff: domain.NoDiff()},
	}

	report := domain.AssembleReport("r1", domain.ModeDiff, results, false)

	if report.Status != domain.RunSuccess {
		t.Errorf("Status = %q, want %q", report.Status, domain.RunSuccess)
	}
}

func TestAssembleReport_RedactionDropsContentKeepsExistence(t *testing.T) {
	results := map[string]domain.DeviceResult{
		"a.example": {FQDN: "a.example", Mode: domain.ModeDiff, Diff: domain.DiffOf("secret-as-path 10.0.0.1")},
	}

	report := domain.AssembleReport("r1", domain.ModeDiff, results, true)

	res := report.Results[0]
	if res.Diff.Text != "" {
		t.Errorf("Diff.Text = %q, want empty after redaction", res.Diff.Text)
	}
	if !res.Diff.Redacted {
		t.Error("Diff.Redacted = false, want true")
	}
	if res.Diff.Kind != domain.DiffFound {
		t.Errorf("Diff.Kind = %q, want %q (existence must be retained)", res.Diff.Kind, domain.DiffFound)
	}
	if report.Status != domain.RunSuccessWithDiff {
		t.Errorf("Status = %q, want %q", report.Status, domain.RunSuccessWithDiff)
	}
}

func TestAssembleReport_AbortedIsNotFailure(t *testing.T) {
	results := map[string]domain.DeviceResult{
		"a.example": {FQDN: "a.example", Mode: domain.ModeCommit, Diff: domain.DiffOf("+a"), Outcome: domain.Aborted("operator declined", 1)},
	}

	report := domain.AssembleReport("r1", domain.ModeCommit, results, false)

	if report.Status != domain.RunSuccess {
		t.Errorf("Status = %q, want %q (abort is a deliberate stop, not a failure)", report.Status, domain.RunSuccess)
	}
}
