// Package enrich derives output firings from raw output bitmask transitions,
// using the scenario's trigger pulses for crank angle context.
package enrich

import (
	"errors"
	"fmt"

	"github.com/viaems/ecuharness/outputs"
	"github.com/viaems/ecuharness/timing"
	"github.com/viaems/ecuharness/trace"
)

// Enrichment errors. They mean the trace itself is unusable.
var (
	ErrOutputBeforeTrigger = errors.New("enrich: output transition before any trigger")
	ErrUnordered           = errors.New("enrich: log is not in time order")
	ErrAlreadyEnriched     = errors.New("enrich: log already holds firings")
)

// Enricher turns output bitmask snapshots into firing events.
type Enricher struct {
	config       *outputs.Config
	outputDomain timing.Domain
}

// Option customizes an Enricher.
type Option func(*Enricher)

// WithOutputDomain selects whose output snapshots are enriched, the target's
// own reports or the hardware capture. Snapshots of the other domain are
// passed through untouched so that a pulse is never counted twice.
func WithOutputDomain(d timing.Domain) Option {
	return func(e *Enricher) { e.outputDomain = d }
}

// New creates an Enricher that resolves firings against the given schedule.
func New(config *outputs.Config, opts ...Option) *Enricher {
	e := &Enricher{
		config:       config,
		outputDomain: timing.TargetDomain,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type pinState struct {
	high     bool
	riseTime timing.ScenarioTime
}

// Enrich walks a merged, time-ordered log and returns it with a firing
// inserted after every output snapshot in which a pin fell. The input log is
// not modified.
func (e *Enricher) Enrich(l trace.Log) (trace.Log, error) {
	if !l.IsSorted() {
		return nil, ErrUnordered
	}

	var (
		lastTooth *trace.ToothEvent
		pins      [trace.NumPins]pinState
	)

	result := make(trace.Log, 0, len(l))
	for _, r := range l {
		result = append(result, r)

		switch evt := r.Event.(type) {
		case trace.ToothEvent:
			tooth := evt
			lastTooth = &tooth
			continue
		case trace.FiringEvent:
			return nil, fmt.Errorf("%w: firing at %d", ErrAlreadyEnriched, r.Time)
		}

		mask, ok := trace.OutputMask(r.Event)
		if !ok || r.Event.Domain() != e.outputDomain {
			continue
		}

		for pin := 0; pin < trace.NumPins; pin++ {
			high := mask&(1<<pin) != 0
			state := &pins[pin]

			if high == state.high {
				continue
			}

			if lastTooth == nil {
				return nil, fmt.Errorf("%w: pin %d at %d", ErrOutputBeforeTrigger, pin, r.Time)
			}

			if high {
				state.high = true
				state.riseTime = r.Time
				continue
			}

			// Pins start low, so a fall always has a recorded rise.
			state.high = false

			result = append(result, trace.Record{
				Time:  r.Time,
				Event: e.firing(pin, state.riseTime, r.Time, lastTooth),
			})
		}
	}

	return result, nil
}

func (e *Enricher) firing(
	pin int,
	rise, fall timing.ScenarioTime,
	tooth *trace.ToothEvent,
) trace.FiringEvent {
	sinceTooth := int64(fall - tooth.Time)
	angle := timing.ClampAngle(
		tooth.Angle + timing.DegreesForTicks(sinceTooth, tooth.RPM))

	f := trace.FiringEvent{
		Time:       fall,
		Pin:        pin,
		RiseTime:   rise,
		DurationUS: timing.Microseconds(int64(fall - rise)),
		EndAngle:   angle,
		Cycle:      tooth.Cycle,
	}

	if entry, ok := e.config.Lookup(pin, angle); ok {
		f.Config = entry
		f.Advance = entry.Advance(angle)
	}

	return f
}
