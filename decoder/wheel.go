// Package decoder models the crank and cam trigger wheels that produce the
// sensor pulses of a scenario.
package decoder

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/viaems/ecuharness/timing"
)

// Trigger channels of an N-minus-1 plus cam wheel.
const (
	CrankChannel = 0
	CamChannel   = 1
)

// Wheel geometry errors.
var (
	ErrTooFewTeeth = errors.New("decoder: a missing-tooth wheel needs at least 3 teeth")
	ErrCamOnTooth  = errors.New("decoder: cam pulse coincides with a crank tooth")
)

// camTolerance is how close, in degrees, a cam pulse may come to a crank
// tooth before the two count as one position.
const camTolerance = 1e-6

// Position is one pulse of the wheel within an engine cycle.
type Position struct {
	Channel int
	Angle   float64
}

// A Wheel is a crank wheel with N evenly spaced teeth per revolution, one of
// which is missing on each revolution, plus a single cam pulse per engine
// cycle. The cursor only moves forward and wraps at the end of the cycle.
type Wheel struct {
	toothCount int
	offset     float64
	positions  []Position

	index int
	cycle uint64
}

// ToothCount returns the number of teeth per revolution, counting the
// missing one.
func (w *Wheel) ToothCount() int {
	return w.toothCount
}

// Positions returns a copy of the wheel geometry sorted by angle.
func (w *Wheel) Positions() []Position {
	return append([]Position(nil), w.positions...)
}

// Cycle returns the number of times the cursor has crossed angle 0.
func (w *Wheel) Cycle() uint64 {
	return w.cycle
}

// Current returns the position under the cursor.
func (w *Wheel) Current() Position {
	return w.positions[w.index]
}

func (w *Wheel) nextIndex() int {
	return (w.index + 1) % len(w.positions)
}

// TimeToNextTrigger returns the number of ticks between the position under
// the cursor and the next position, at the given engine speed. The speed must
// be positive. The result is at least one tick.
func (w *Wheel) TimeToNextTrigger(rpm float64) timing.ScenarioTime {
	if rpm <= 0 {
		log.Panicf("decoder: no next trigger at %f rpm", rpm)
	}

	current := w.positions[w.index].Angle
	next := w.positions[w.nextIndex()].Angle
	diff := timing.ClampAngle(next - current)

	return max(timing.TicksForDegrees(rpm, diff), 1)
}

// Next moves the cursor to the next position and returns its channel and
// angle, shifted by the configured offset. The cycle counter increments when
// the cursor lands on angle 0.
func (w *Wheel) Next(_ float64) (int, float64) {
	w.index = w.nextIndex()

	if w.index == 0 {
		w.cycle++
	}

	pos := w.positions[w.index]

	return pos.Channel, timing.ClampAngle(pos.Angle - w.offset)
}

// Builder can build wheels.
type Builder struct {
	toothCount int
	camAngle   float64
	offset     float64
}

// MakeBuilder returns a Builder for a 36-1 crank wheel with a cam pulse at
// 45 degrees.
func MakeBuilder() Builder {
	return Builder{
		toothCount: 36,
		camAngle:   45,
	}
}

// WithToothCount sets the number of teeth per revolution, counting the
// missing one.
func (b Builder) WithToothCount(n int) Builder {
	b.toothCount = n
	return b
}

// WithCamAngle sets the angle of the cam pulse within the engine cycle.
func (b Builder) WithCamAngle(angle float64) Builder {
	b.camAngle = angle
	return b
}

// WithOffset sets the angle subtracted from every reported position.
func (b Builder) WithOffset(offset float64) Builder {
	b.offset = offset
	return b
}

func isMissingTooth(x, n int) bool {
	return x == n-1 || x == 2*n-1
}

// Validate reports geometry that cannot be built: too few teeth, or a cam
// pulse at the angle of a crank tooth, which would give two triggers at once.
func (b Builder) Validate() error {
	if b.toothCount < 3 {
		return fmt.Errorf("%w, got %d", ErrTooFewTeeth, b.toothCount)
	}

	n := b.toothCount
	degreesPerTooth := 360.0 / float64(n)
	cam := timing.ClampAngle(b.camAngle)

	nearest := math.Round(cam / degreesPerTooth)
	if math.Abs(cam-nearest*degreesPerTooth) > camTolerance {
		return nil
	}

	tooth := int(nearest) % (2 * n)
	if isMissingTooth(tooth, n) {
		return nil
	}

	return fmt.Errorf("%w: cam at %g degrees, tooth %d of a %d-tooth wheel",
		ErrCamOnTooth, b.camAngle, tooth, n)
}

// Build creates the wheel. The last tooth of each revolution is removed so
// that the first tooth after the gap sits at angle 0. Build panics on
// geometry Validate rejects.
func (b Builder) Build() *Wheel {
	if err := b.Validate(); err != nil {
		log.Panic(err)
	}

	n := b.toothCount
	degreesPerTooth := 360.0 / float64(n)

	positions := make([]Position, 0, 2*n-1)
	for x := 0; x < 2*n; x++ {
		if isMissingTooth(x, n) {
			continue
		}

		positions = append(positions, Position{
			Channel: CrankChannel,
			Angle:   float64(x) * degreesPerTooth,
		})
	}

	positions = append(positions, Position{
		Channel: CamChannel,
		Angle:   timing.ClampAngle(b.camAngle),
	})

	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].Angle < positions[j].Angle
	})

	return &Wheel{
		toothCount: n,
		offset:     b.offset,
		positions:  positions,
	}
}
