// Package validate checks enriched firings against the output schedule and
// the values the target reported it was commanding.
package validate

import (
	"errors"
	"fmt"
	"math"

	"github.com/viaems/ecuharness/outputs"
	"github.com/viaems/ecuharness/trace"
)

// Feed keys of the commanded values.
const (
	FuelPulseWidthKey = "fuel_pulsewidth_us"
	DwellKey          = "dwell"
	AdvanceKey        = "advance"
)

// Malformed input errors. A failing device is not an error; see Verdict.
var (
	ErrNoConfig         = errors.New("validate: no output configuration")
	ErrUnordered        = errors.New("validate: log is not in time order")
	ErrMissingFeedValue = errors.New("validate: feed lacks a commanded value")
	ErrCycleOutOfOrder  = errors.New("validate: firing cycles go backwards")
)

// Verdict is the outcome of a validation. Reason explains a failure and is
// empty on success.
type Verdict struct {
	Passed bool
	Reason string
}

// Pass returns a passing verdict.
func Pass() Verdict {
	return Verdict{Passed: true}
}

// Fail returns a failing verdict with a formatted reason.
func Fail(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

func (v Verdict) String() string {
	if v.Passed {
		return "pass"
	}

	return "fail: " + v.Reason
}

// Tolerances bound how far measurements may stray from commanded values.
type Tolerances struct {
	FuelPulseWidthUS float64
	DwellUS          float64
	AdvanceDegrees   float64

	// MinCycles is the least number of cycles with firings a log must hold.
	// The partial first and last cycles count. Values below 2 mean 2.
	MinCycles int
}

// DefaultTolerances are the bounds used unless told otherwise. Three cycles
// including the partial edges leave at least one complete cycle between them.
var DefaultTolerances = Tolerances{
	FuelPulseWidthUS: 5,
	DwellUS:          500,
	AdvanceDegrees:   2,
	MinCycles:        3,
}

// ValidateOutputs checks an enriched log with the default tolerances.
func ValidateOutputs(l trace.Log, config *outputs.Config) (Verdict, error) {
	return NewValidator(config).Validate(l)
}

// Validator checks enriched logs.
type Validator struct {
	config     *outputs.Config
	tolerances Tolerances
}

// NewValidator creates a Validator for the given schedule.
func NewValidator(config *outputs.Config) *Validator {
	return &Validator{config: config, tolerances: DefaultTolerances}
}

// WithTolerances replaces the tolerances.
func (v *Validator) WithTolerances(t Tolerances) *Validator {
	v.tolerances = t
	return v
}

type commanded struct {
	valid          bool
	fuelPulseWidth float64
	dwell          float64
	advance        float64
}

type cycleCount struct {
	cycle   uint64
	firings int
}

// Validate makes a single pass over the log. Every firing must be resolved
// to a configured output and match the most recently commanded values; every
// cycle between the first and the last must contain the full schedule.
func (v *Validator) Validate(l trace.Log) (Verdict, error) {
	if v.config == nil {
		return Verdict{}, ErrNoConfig
	}

	if !l.IsSorted() {
		return Verdict{}, ErrUnordered
	}

	var (
		cmd    commanded
		cycles []cycleCount
	)

	for _, r := range l {
		switch e := r.Event.(type) {
		case trace.TargetFeedEvent:
			next, err := readCommanded(e)
			if err != nil {
				return Verdict{}, fmt.Errorf("%w at %d", err, r.Time)
			}
			cmd = next
		case trace.FiringEvent:
			if !e.Resolved() {
				return Fail("output on pin %d at time %d (angle %.1f) not associated with configuration",
					e.Pin, r.Time, e.EndAngle), nil
			}

			if len(cycles) > 0 {
				current := cycles[len(cycles)-1].cycle
				if e.Cycle < current {
					return Verdict{}, fmt.Errorf("%w: cycle %d after cycle %d at %d",
						ErrCycleOutOfOrder, e.Cycle, current, r.Time)
				}

				if e.Cycle > current+1 {
					return Fail("full cycle occurred without outputs between cycles %d and %d",
						current, e.Cycle), nil
				}
			}

			if len(cycles) == 0 || cycles[len(cycles)-1].cycle != e.Cycle {
				cycles = append(cycles, cycleCount{cycle: e.Cycle})
			}

			if verdict := v.checkCommanded(r, e, cmd); !verdict.Passed {
				return verdict, nil
			}

			cycles[len(cycles)-1].firings++
		}
	}

	return v.checkCycles(cycles), nil
}

func readCommanded(e trace.TargetFeedEvent) (commanded, error) {
	cmd := commanded{valid: true}

	for key, dst := range map[string]*float64{
		FuelPulseWidthKey: &cmd.fuelPulseWidth,
		DwellKey:          &cmd.dwell,
		AdvanceKey:        &cmd.advance,
	} {
		value, ok := e.Values[key]
		if !ok {
			return commanded{}, fmt.Errorf("%w: %q", ErrMissingFeedValue, key)
		}

		*dst = value
	}

	return cmd, nil
}

func (v *Validator) checkCommanded(r trace.Record, e trace.FiringEvent, cmd commanded) Verdict {
	if !cmd.valid {
		return Pass()
	}

	switch e.Config.Kind {
	case outputs.Fuel:
		if math.Abs(e.DurationUS-cmd.fuelPulseWidth) > v.tolerances.FuelPulseWidthUS {
			return Fail("fuel output on pin %d at time %d is duration %.1f us, expected %.1f us",
				e.Pin, r.Time, e.DurationUS, cmd.fuelPulseWidth)
		}
	case outputs.Ignition:
		if math.Abs(e.DurationUS-cmd.dwell) > v.tolerances.DwellUS {
			return Fail("ignition output on pin %d at time %d is duration %.1f us, expected %.1f us",
				e.Pin, r.Time, e.DurationUS, cmd.dwell)
		}

		if math.Abs(e.Advance-cmd.advance) > v.tolerances.AdvanceDegrees {
			return Fail("ignition output on pin %d at time %d is at advance %.2f, expected %.2f",
				e.Pin, r.Time, e.Advance, cmd.advance)
		}
	}

	return Pass()
}

func (v *Validator) checkCycles(cycles []cycleCount) Verdict {
	expected := v.config.Len()
	minCycles := max(v.tolerances.MinCycles, 2)

	if len(cycles) < minCycles {
		return Fail("fewer than %d cycles of outputs to validate, got %d",
			minCycles, len(cycles))
	}

	for _, c := range []cycleCount{cycles[0], cycles[len(cycles)-1]} {
		if c.firings == 0 || c.firings > expected {
			return Fail("cycle %d bad event count: %d of %d", c.cycle, c.firings, expected)
		}
	}

	for _, c := range cycles[1 : len(cycles)-1] {
		if c.firings < expected {
			return Fail("cycle %d missing outputs: %d of %d", c.cycle, c.firings, expected)
		}

		if c.firings > expected {
			return Fail("cycle %d has extra outputs: %d of %d", c.cycle, c.firings, expected)
		}
	}

	return Pass()
}
