package timing

import (
	"errors"
	"log"
)

// FreqInHz is a clock rate expressed in ticks per second.
type FreqInHz uint64

// Defines the unit of frequency.
const (
	Hz  FreqInHz = 1
	KHz FreqInHz = 1e3
	MHz FreqInHz = 1e6
	GHz FreqInHz = 1e9
)

// TickRate is the rate of the scenario clock and the reference rate of the
// target clock.
const TickRate = 4 * MHz

// ErrZeroFrequency is returned when a clock domain is declared with a zero
// rate.
var ErrZeroFrequency = errors.New("timing: frequency cannot be zero")

// TicksPerMillisecond returns the number of ticks in one millisecond.
func (f FreqInHz) TicksPerMillisecond() float64 {
	if f == 0 {
		log.Panic(ErrZeroFrequency)
	}

	return float64(f) / 1000
}

// TicksPerMicrosecond returns the number of ticks in one microsecond.
func (f FreqInHz) TicksPerMicrosecond() float64 {
	if f == 0 {
		log.Panic(ErrZeroFrequency)
	}

	return float64(f) / 1e6
}

// Milliseconds converts a duration in milliseconds to scenario ticks.
func Milliseconds(ms float64) ScenarioTime {
	return ScenarioTime(ms * TickRate.TicksPerMillisecond())
}

// Seconds converts a duration in seconds to scenario ticks.
func Seconds(s float64) ScenarioTime {
	return ScenarioTime(s * float64(TickRate))
}

// Microseconds converts a tick count on the reference clock to microseconds.
func Microseconds(ticks int64) float64 {
	return float64(ticks) / TickRate.TicksPerMicrosecond()
}
