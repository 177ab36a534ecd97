package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/topranks/homer/internal/domain"
)

// DeviceCandidate pairs a device with its fully rendered candidate
// configuration. Both come from the inventory and rendering collaborators and
// are treated as already validated.
type DeviceCandidate struct {
	Device    domain.Device
	Candidate string
}

// RunService fans a fleet run out across devices and assembles the report.
// Every device runs to completion independently: one device's failure,
// timeout or abort never cancels or blocks another's task, and no error from
// a device run ever propagates out of Execute as anything but a typed result.
type RunService struct {
	Runner domain.DeviceRunner
	// Runs persists run summaries. Optional; nil disables run history.
	Runs domain.RunRepository
	// Concurrency is the number of device tasks allowed in flight at once.
	// Values below one mean sequential execution. It is a policy choice, not
	// a correctness requirement: device tasks share no mutable state.
	Concurrency int
	// RedactDiff drops diff content from the report while keeping the fact
	// that a diff existed.
	RedactDiff bool
	Logger     zerolog.Logger
	// Now is the clock used for run timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Execute runs mode against every given device and returns the fleet report.
// The returned error covers engine setup and persistence only; per-device
// conditions are always reported through the result model.
func (s *RunService) Execute(ctx context.Context, mode domain.RunMode, query string, targets []DeviceCandidate) (domain.FleetReport, error) {
	if mode != domain.ModeDiff && mode != domain.ModeCommit {
		return domain.FleetReport{}, fmt.Errorf("%w: unsupported run mode %q", domain.ErrInvalidArgument, mode)
	}

	runID := uuid.NewString()
	run := domain.Run{ID: runID, Mode: mode, Query: query, StartedAt: s.now()}
	if s.Runs != nil {
		if err := s.Runs.Create(ctx, run); err != nil {
			return domain.FleetReport{}, fmt.Errorf("create run: %w", err)
		}
	}

	s.Logger.Info().
		Str("run", runID).
		Str("mode", string(mode)).
		Int("devices", len(targets)).
		Msg("starting fleet run")

	results := s.fanOut(ctx, runID, mode, targets)
	report := domain.AssembleReport(runID, mode, results, s.RedactDiff)

	if s.Runs != nil {
		run.Status = report.Status
		run.FinishedAt = s.now()
		if err := s.Runs.Update(ctx, run); err != nil {
			return report, fmt.Errorf("update run: %w", err)
		}
	}
	return report, nil
}

// fanOut dispatches one device workflow per target, bounded by the configured
// concurrency degree, and collects results keyed by FQDN. The map is the only
// shared structure; a single collector owns it while workers report over a
// channel.
func (s *RunService) fanOut(ctx context.Context, runID string, mode domain.RunMode, targets []DeviceCandidate) map[string]domain.DeviceResult {
	degree := s.Concurrency
	if degree < 1 {
		degree = 1
	}

	sem := make(chan struct{}, degree)
	out := make(chan domain.DeviceResult)

	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(target DeviceCandidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out <- s.runDevice(ctx, runID, mode, target)
		}(target)
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	results := make(map[string]domain.DeviceResult, len(targets))
	for res := range out {
		results[res.FQDN] = res
	}
	return results
}

// runDevice executes one device task and classifies any error escaping the
// workflow engine into a failed result, so the fleet run always completes
// with an entry for every device.
func (s *RunService) runDevice(ctx context.Context, runID string, mode domain.RunMode, target DeviceCandidate) domain.DeviceResult {
	in := domain.DeviceRunInput{
		RunID:     runID,
		Device:    target.Device,
		Candidate: target.Candidate,
		Mode:      mode,
	}

	result, err := s.await(ctx, in)
	if err != nil {
		s.Logger.Error().Str("device", target.Device.FQDN).Err(err).Msg("device run failed")
		return failedResult(target.Device.FQDN, mode, err)
	}

	s.logResult(result)
	return result
}

func (s *RunService) await(ctx context.Context, in domain.DeviceRunInput) (domain.DeviceResult, error) {
	handle, err := s.Runner.Run(ctx, in)
	if err != nil {
		return domain.DeviceResult{}, fmt.Errorf("start device workflow: %w", err)
	}
	result, err := handle.AwaitResult(ctx)
	if err != nil {
		return domain.DeviceResult{}, fmt.Errorf("await device workflow: %w", err)
	}
	return result, nil
}

// logResult distinguishes expected failure modes (timeout, abort) from
// unexpected ones. Diff content and failure detail are logged at debug level
// only, to keep device configuration out of default logs.
func (s *RunService) logResult(result domain.DeviceResult) {
	log := s.Logger.With().Str("device", result.FQDN).Logger()

	if result.Mode == domain.ModeDiff {
		switch result.Diff.Kind {
		case domain.DiffFailed:
			log.Error().Msg("diff computation failed")
			log.Debug().Str("reason", result.Diff.Reason).Msg("diff failure detail")
		case domain.DiffFound:
			log.Info().Msg("configuration differs")
			log.Debug().Str("diff", result.Diff.Text).Msg("diff content")
		default:
			log.Info().Msg("no configuration change")
		}
		return
	}

	switch result.Outcome.Kind {
	case domain.OutcomeCommitted:
		log.Info().Int("attempts", result.Outcome.Attempts).Msg("committed")
	case domain.OutcomeSkippedNoChange:
		log.Info().Msg("no change needed, commit skipped")
	case domain.OutcomeAborted:
		log.Warn().Msg("commit aborted")
		log.Debug().Str("reason", result.Outcome.Reason).Msg("abort detail")
	default:
		log.Error().Int("attempts", result.Outcome.Attempts).Msg("commit failed")
		log.Debug().Str("reason", result.Outcome.Reason).Msg("failure detail")
	}
}

func (s *RunService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func failedResult(fqdn string, mode domain.RunMode, err error) domain.DeviceResult {
	result := domain.DeviceResult{FQDN: fqdn, Mode: mode}
	if mode == domain.ModeCommit {
		result.Diff = domain.DiffFailure(err.Error())
		result.Outcome = domain.CommitFailed(err.Error(), 0)
	} else {
		result.Diff = domain.DiffFailure(err.Error())
	}
	return result
}
