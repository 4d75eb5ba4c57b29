// Package trace defines the events exchanged between a scenario, a target
// and the analysis stages, and the time-ordered logs that hold them.
package trace

import (
	"fmt"

	"github.com/viaems/ecuharness/outputs"
	"github.com/viaems/ecuharness/timing"
)

// NumPins is the width of the output and GPIO bitmasks.
const NumPins = 16

// NumADCChannels is the number of analog inputs a scenario drives.
const NumADCChannels = 16

// An Event is immutable once created and carries a timestamp on the clock of
// the domain that produced it. The set of events is closed; consumers switch
// on the concrete type.
type Event interface {
	// Domain returns the clock the event was timestamped on.
	Domain() timing.Domain

	// Ticks returns the native timestamp of the event.
	Ticks() int64

	sealed()
}

// ToothEvent is a trigger pulse emitted by the scenario.
type ToothEvent struct {
	Time    timing.ScenarioTime
	Trigger int
	Angle   float64
	RPM     float64
	Cycle   uint64
}

// ADCEvent is a snapshot of all analog inputs.
type ADCEvent struct {
	Time   timing.ScenarioTime
	Values [NumADCChannels]float64
}

// MarkEvent is a named reference point in the scenario.
type MarkEvent struct {
	Time  timing.ScenarioTime
	Label string
}

// EndEvent terminates a scenario.
type EndEvent struct {
	Time timing.ScenarioTime
}

// TargetFeedEvent is a periodic telemetry snapshot reported by the target.
type TargetFeedEvent struct {
	Time   timing.TargetTime
	Values map[string]float64
}

// TargetTriggerEvent is a trigger pulse as seen by the target.
type TargetTriggerEvent struct {
	Time    timing.TargetTime
	Seq     uint64
	Trigger int
}

// TargetOutputEvent is the output bitmask reported by the target after a
// change.
type TargetOutputEvent struct {
	Time    timing.TargetTime
	Seq     uint64
	Outputs uint16
}

// TargetGPIOEvent is the GPIO bitmask reported by the target after a change.
type TargetGPIOEvent struct {
	Time   timing.TargetTime
	Seq    uint64
	Values uint16
}

// Pin tells if the given GPIO was high.
func (e TargetGPIOEvent) Pin(pin int) bool {
	return e.Values&(1<<pin) != 0
}

// CaptureTriggerEvent is a trigger pulse recorded by a hardware capture.
type CaptureTriggerEvent struct {
	Time    timing.CaptureTime
	Trigger int
}

// CaptureOutputEvent is an output bitmask recorded by a hardware capture.
type CaptureOutputEvent struct {
	Time    timing.CaptureTime
	Outputs uint16
}

// CaptureGPIOEvent is a GPIO bitmask recorded by a hardware capture.
type CaptureGPIOEvent struct {
	Time   timing.CaptureTime
	Values uint16
}

// Pin tells if the given GPIO was high.
func (e CaptureGPIOEvent) Pin(pin int) bool {
	return e.Values&(1<<pin) != 0
}

// FiringEvent is an output pulse derived from a rise and a fall of one pin.
// Config is nil when no configured output explains the pulse, in which case
// Advance is meaningless.
type FiringEvent struct {
	Time       timing.ScenarioTime
	Pin        int
	RiseTime   timing.ScenarioTime
	DurationUS float64
	EndAngle   float64
	Advance    float64
	Cycle      uint64
	Config     *outputs.Entry
}

// Resolved tells if the firing was matched to a configured output.
func (e FiringEvent) Resolved() bool {
	return e.Config != nil
}

func (e ToothEvent) Domain() timing.Domain          { return timing.ScenarioDomain }
func (e ADCEvent) Domain() timing.Domain            { return timing.ScenarioDomain }
func (e MarkEvent) Domain() timing.Domain           { return timing.ScenarioDomain }
func (e EndEvent) Domain() timing.Domain            { return timing.ScenarioDomain }
func (e TargetFeedEvent) Domain() timing.Domain     { return timing.TargetDomain }
func (e TargetTriggerEvent) Domain() timing.Domain  { return timing.TargetDomain }
func (e TargetOutputEvent) Domain() timing.Domain   { return timing.TargetDomain }
func (e TargetGPIOEvent) Domain() timing.Domain     { return timing.TargetDomain }
func (e CaptureTriggerEvent) Domain() timing.Domain { return timing.CaptureDomain }
func (e CaptureOutputEvent) Domain() timing.Domain  { return timing.CaptureDomain }
func (e CaptureGPIOEvent) Domain() timing.Domain    { return timing.CaptureDomain }
func (e FiringEvent) Domain() timing.Domain         { return timing.ScenarioDomain }

func (e ToothEvent) Ticks() int64          { return int64(e.Time) }
func (e ADCEvent) Ticks() int64            { return int64(e.Time) }
func (e MarkEvent) Ticks() int64           { return int64(e.Time) }
func (e EndEvent) Ticks() int64            { return int64(e.Time) }
func (e TargetFeedEvent) Ticks() int64     { return int64(e.Time) }
func (e TargetTriggerEvent) Ticks() int64  { return int64(e.Time) }
func (e TargetOutputEvent) Ticks() int64   { return int64(e.Time) }
func (e TargetGPIOEvent) Ticks() int64     { return int64(e.Time) }
func (e CaptureTriggerEvent) Ticks() int64 { return int64(e.Time) }
func (e CaptureOutputEvent) Ticks() int64  { return int64(e.Time) }
func (e CaptureGPIOEvent) Ticks() int64    { return int64(e.Time) }
func (e FiringEvent) Ticks() int64         { return int64(e.Time) }

func (ToothEvent) sealed()          {}
func (ADCEvent) sealed()            {}
func (MarkEvent) sealed()           {}
func (EndEvent) sealed()            {}
func (TargetFeedEvent) sealed()     {}
func (TargetTriggerEvent) sealed()  {}
func (TargetOutputEvent) sealed()   {}
func (TargetGPIOEvent) sealed()     {}
func (CaptureTriggerEvent) sealed() {}
func (CaptureOutputEvent) sealed()  {}
func (CaptureGPIOEvent) sealed()    {}
func (FiringEvent) sealed()         {}

// Kind returns a short, stable name of the event variant.
func Kind(e Event) string {
	switch e.(type) {
	case ToothEvent:
		return "tooth"
	case ADCEvent:
		return "adc"
	case MarkEvent:
		return "mark"
	case EndEvent:
		return "end"
	case TargetFeedEvent:
		return "target_feed"
	case TargetTriggerEvent:
		return "target_trigger"
	case TargetOutputEvent:
		return "target_output"
	case TargetGPIOEvent:
		return "target_gpio"
	case CaptureTriggerEvent:
		return "capture_trigger"
	case CaptureOutputEvent:
		return "capture_output"
	case CaptureGPIOEvent:
		return "capture_gpio"
	case FiringEvent:
		return "firing"
	default:
		panic(fmt.Sprintf("trace: unknown event type %T", e))
	}
}

// IsTrigger tells if the event is a trigger pulse of any domain.
func IsTrigger(e Event) bool {
	switch e.(type) {
	case ToothEvent, TargetTriggerEvent, CaptureTriggerEvent:
		return true
	default:
		return false
	}
}

// OutputMask returns the output bitmask carried by target and capture output
// events.
func OutputMask(e Event) (uint16, bool) {
	switch e := e.(type) {
	case TargetOutputEvent:
		return e.Outputs, true
	case CaptureOutputEvent:
		return e.Outputs, true
	default:
		return 0, false
	}
}
