// Package align reconciles event streams recorded on independent clocks onto
// the scenario time base, using trigger pulses as shared landmarks.
package align

import (
	"errors"
	"fmt"
	"math"

	"github.com/viaems/ecuharness/timing"
	"github.com/viaems/ecuharness/trace"
)

// MaxDriftPPM is the largest clock-rate difference accepted between the
// scenario and another stream. Independent crystals differ by a few parts
// per million; anything beyond this means the streams do not match.
const MaxDriftPPM = 150.0

// Alignment errors. They are fatal to a run.
var (
	ErrNotEnoughTriggers    = errors.New("align: not enough triggers to align")
	ErrTriggerCountMismatch = errors.New("align: trigger counts differ")
	ErrClockDrift           = errors.New("align: clock rates drift beyond tolerance")
	ErrMixedDomains         = errors.New("align: stream mixes clock domains")
)

// Mapping is the affine transform from one stream's clock onto scenario time.
type Mapping struct {
	Domain   timing.Domain
	Ratio    float64
	Offset   int64
	DriftPPM float64
}

// Identity returns the mapping that leaves scenario timestamps unchanged.
func Identity() Mapping {
	return Mapping{Domain: timing.ScenarioDomain, Ratio: 1}
}

// Apply converts a native timestamp to scenario time. Target timestamps are
// corrected for offset and rate; capture timestamps are already rate-correct
// and only get the offset removed.
func (m Mapping) Apply(ticks int64) timing.ScenarioTime {
	switch m.Domain {
	case timing.TargetDomain:
		return timing.ScenarioTime(math.Round(float64(ticks-m.Offset) * m.Ratio))
	default:
		return timing.ScenarioTime(ticks - m.Offset)
	}
}

// AlignTriggers computes the mapping of the other stream onto the scenario
// clock from the first and last trigger pulses of each, and returns the other
// stream as a log on scenario time. The stream must come from a single
// target or capture clock and carry exactly as many triggers as the
// scenario, at least two.
func AlignTriggers(sim []trace.Event, other []trace.Event) (trace.Log, Mapping, error) {
	domain, err := streamDomain(other)
	if err != nil {
		return nil, Mapping{}, err
	}

	simTriggers := triggerTimes(sim, timing.ScenarioDomain)
	otherTriggers := triggerTimes(other, domain)

	if len(simTriggers) < 2 || len(otherTriggers) < 2 {
		return nil, Mapping{}, fmt.Errorf(
			"%w: %d from scenario, %d from %s",
			ErrNotEnoughTriggers, len(simTriggers), len(otherTriggers), domain)
	}

	if len(simTriggers) != len(otherTriggers) {
		return nil, Mapping{}, fmt.Errorf(
			"%w: %d from scenario, %d from %s",
			ErrTriggerCountMismatch, len(simTriggers), len(otherTriggers), domain)
	}

	simSpan := simTriggers[len(simTriggers)-1] - simTriggers[0]
	otherSpan := otherTriggers[len(otherTriggers)-1] - otherTriggers[0]
	if simSpan <= 0 || otherSpan <= 0 {
		return nil, Mapping{}, fmt.Errorf(
			"%w: triggers span no time", ErrNotEnoughTriggers)
	}

	ratio := float64(otherSpan) / float64(simSpan)
	ppm := (1.0 - ratio) * 1e6
	if math.Abs(ppm) > MaxDriftPPM {
		return nil, Mapping{}, fmt.Errorf(
			"%w: %s clock differs by %.1f ppm", ErrClockDrift, domain, ppm)
	}

	m := Mapping{
		Domain:   domain,
		Ratio:    ratio,
		Offset:   otherTriggers[0] - simTriggers[0],
		DriftPPM: ppm,
	}

	aligned := make(trace.Log, 0, len(other))
	for _, e := range other {
		aligned = append(aligned, trace.Record{
			Time:  m.Apply(e.Ticks()),
			Event: e,
		})
	}

	return aligned, m, nil
}

func streamDomain(events []trace.Event) (timing.Domain, error) {
	if len(events) == 0 {
		return timing.TargetDomain, nil
	}

	domain := events[0].Domain()
	if domain == timing.ScenarioDomain {
		return 0, fmt.Errorf("%w: stream is already on the scenario clock",
			ErrMixedDomains)
	}

	for _, e := range events {
		if e.Domain() != domain {
			return 0, fmt.Errorf("%w: %s event in a %s stream",
				ErrMixedDomains, trace.Kind(e), domain)
		}
	}

	return domain, nil
}

func triggerTimes(events []trace.Event, domain timing.Domain) []int64 {
	var times []int64
	for _, e := range events {
		if trace.IsTrigger(e) && e.Domain() == domain {
			times = append(times, e.Ticks())
		}
	}

	return times
}
