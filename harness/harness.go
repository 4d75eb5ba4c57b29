// Package harness runs a scenario against a target and judges the outcome:
// it decodes what the target reported, puts every stream on the scenario
// clock, derives firings and validates them.
package harness

import (
	"context"
	"fmt"
	"log"

	"github.com/rs/xid"

	"github.com/viaems/ecuharness/align"
	"github.com/viaems/ecuharness/enrich"
	"github.com/viaems/ecuharness/outputs"
	"github.com/viaems/ecuharness/recording"
	"github.com/viaems/ecuharness/scenario"
	"github.com/viaems/ecuharness/target"
	"github.com/viaems/ecuharness/timing"
	"github.com/viaems/ecuharness/trace"
	"github.com/viaems/ecuharness/validate"
)

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Scenario string

	// Log is the merged, enriched log on the scenario time base.
	Log trace.Log

	// Mappings are the clock mappings of the target and, if present, the
	// capture.
	Mappings []align.Mapping

	Verdict validate.Verdict
}

// Harness runs scenarios. It can be reused for any number of runs.
type Harness struct {
	config       *outputs.Config
	tolerances   validate.Tolerances
	outputDomain timing.Domain
	recorder     recording.Recorder
	logger       *log.Logger
}

// Run executes the scenario through the session and validates the outcome.
// A scenario that has not ended is ended with the default trailing delay.
//
// Errors mean the trace could not be built: the session failed, the target
// reported out of sequence, the clocks could not be reconciled, or an output
// changed before any trigger. A misbehaving target is reported through the
// verdict instead.
func (h *Harness) Run(
	ctx context.Context,
	s *scenario.Scenario,
	session target.Session,
) (*Result, error) {
	if !s.Ended() {
		s.End(0)
	}

	res := &Result{
		RunID:    xid.New().String(),
		Scenario: s.Name(),
	}

	observed, err := session.Execute(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("harness: executing %s: %w", s.Name(), err)
	}

	merged, mappings, err := h.reconcile(s, observed)
	if err != nil {
		return nil, err
	}
	res.Mappings = mappings

	enriched, err := enrich.New(h.config, enrich.WithOutputDomain(h.outputDomain)).
		Enrich(merged)
	if err != nil {
		return nil, fmt.Errorf("harness: enriching %s: %w", s.Name(), err)
	}
	res.Log = enriched

	verdict, err := validate.NewValidator(h.config).
		WithTolerances(h.tolerances).
		Validate(enriched)
	if err != nil {
		return nil, fmt.Errorf("harness: validating %s: %w", s.Name(), err)
	}
	res.Verdict = verdict

	h.logf("run %s of %s: %s", res.RunID, res.Scenario, verdict)
	h.record(res)

	return res, nil
}

// reconcile decodes the target messages and aligns the target and capture
// streams to the scenario, returning one merged log. Stimulus comes first
// among records with equal times.
func (h *Harness) reconcile(
	s *scenario.Scenario,
	observed *target.Result,
) (trace.Log, []align.Mapping, error) {
	stimulus := s.Events()

	targetEvents, err := target.Decode(observed.Messages)
	if err != nil {
		return nil, nil, fmt.Errorf("harness: decoding target: %w", err)
	}

	targetLog, targetMapping, err := align.AlignTriggers(stimulus, targetEvents)
	if err != nil {
		return nil, nil, fmt.Errorf("harness: aligning target: %w", err)
	}

	h.logf("target clock offset %d ticks, drift %.2f ppm",
		targetMapping.Offset, targetMapping.DriftPPM)

	logs := []trace.Log{s.Log(), targetLog}
	mappings := []align.Mapping{targetMapping}

	if len(observed.Capture) > 0 {
		captureLog, captureMapping, err := align.AlignTriggers(stimulus, observed.Capture)
		if err != nil {
			return nil, nil, fmt.Errorf("harness: aligning capture: %w", err)
		}

		logs = append(logs, captureLog)
		mappings = append(mappings, captureMapping)
	}

	return trace.Merge(logs...), mappings, nil
}

func (h *Harness) record(res *Result) {
	if h.recorder == nil {
		return
	}

	recording.WriteRun(h.recorder, recording.Run{
		ID:       res.RunID,
		Scenario: res.Scenario,
		Log:      res.Log,
		Verdict:  res.Verdict,
		Mappings: res.Mappings,
	})
	h.recorder.Flush()
}

func (h *Harness) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}
