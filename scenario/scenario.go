// Package scenario builds the stimulus of a verification run. A Scenario is a
// single-threaded discrete-event simulator: test code sets the engine state
// and waits, and the scenario advances its clock from one trigger pulse to
// the next, recording what a target should see.
package scenario

import (
	"errors"
	"log"

	"github.com/viaems/ecuharness/decoder"
	"github.com/viaems/ecuharness/timing"
	"github.com/viaems/ecuharness/trace"
)

// Analog channels driven by the sensor helpers.
const (
	BRVChannel = 2
	MAPChannel = 3
)

// DefaultEndDelay is how long a scenario keeps running after End.
var DefaultEndDelay = timing.Seconds(1)

// farFuture bounds a single advance when the caller gives no limit.
var farFuture = timing.Seconds(3600)

// ErrStalled is returned when waiting for engine rotation at zero speed.
var ErrStalled = errors.New("scenario: engine is not rotating")

// Scenario records the stimulus of one run.
type Scenario struct {
	name  string
	wheel *decoder.Wheel

	rpm float64
	adc [trace.NumADCChannels]float64

	time            timing.ScenarioTime
	lastTriggerTime timing.ScenarioTime
	adcPeriod       timing.ScenarioTime
	lastADCTime     timing.ScenarioTime

	events []trace.Event
	ended  bool
}

// Option customizes a Scenario.
type Option func(*Scenario)

// WithADCSampleRate makes the scenario emit an analog snapshot at the given
// rate in addition to the snapshots emitted by the setters.
func WithADCSampleRate(rate timing.FreqInHz) Option {
	return func(s *Scenario) {
		if rate == 0 {
			s.adcPeriod = 0
			return
		}

		s.adcPeriod = timing.ScenarioTime(uint64(timing.TickRate) / uint64(rate))
	}
}

// New creates a scenario driven by the given wheel.
func New(name string, wheel *decoder.Wheel, opts ...Option) *Scenario {
	s := &Scenario{
		name:  name,
		wheel: wheel,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the name of the scenario.
func (s *Scenario) Name() string {
	return s.name
}

// Now returns the current scenario time.
func (s *Scenario) Now() timing.ScenarioTime {
	return s.time
}

// RPM returns the current engine speed.
func (s *Scenario) RPM() float64 {
	return s.rpm
}

// Ended tells if End has been called.
func (s *Scenario) Ended() bool {
	return s.ended
}

func (s *Scenario) mustBeRunning() {
	if s.ended {
		log.Panicf("scenario %s: already ended at %d", s.name, s.time)
	}
}

// SetRPM sets the engine speed. It takes effect from the next trigger.
func (s *Scenario) SetRPM(rpm float64) {
	s.mustBeRunning()

	if rpm < 0 {
		log.Panicf("scenario %s: negative rpm %f", s.name, rpm)
	}

	s.rpm = rpm
}

// SetADC sets one analog input, in volts, and records a snapshot of all
// inputs at the current time.
func (s *Scenario) SetADC(channel int, volts float64) {
	s.mustBeRunning()

	if channel < 0 || channel >= trace.NumADCChannels {
		log.Panicf("scenario %s: no analog channel %d", s.name, channel)
	}

	s.adc[channel] = volts
	s.emitADC(s.time)
}

// SetBRV sets the battery voltage.
func (s *Scenario) SetBRV(volts float64) {
	s.SetADC(BRVChannel, volts/24.5*5.0)
}

// SetMAP sets the manifold pressure, in kPa.
func (s *Scenario) SetMAP(kpa float64) {
	s.SetADC(MAPChannel, (kpa-12)/(420-12)*5.0)
}

// Mark records a named reference point at the current time and returns that
// time.
func (s *Scenario) Mark(label string) timing.ScenarioTime {
	s.mustBeRunning()

	s.events = append(s.events, trace.MarkEvent{Time: s.time, Label: label})

	return s.time
}

// WaitMilliseconds advances the scenario by the given duration, emitting
// every trigger pulse that falls within it.
func (s *Scenario) WaitMilliseconds(ms float64) {
	s.mustBeRunning()

	target := s.time + timing.Milliseconds(ms)
	for s.time < target {
		s.advance(target - s.time)
	}
}

// WaitUntilCycle advances the scenario until the wheel has started the given
// engine cycle.
func (s *Scenario) WaitUntilCycle(cycle uint64) error {
	s.mustBeRunning()

	for s.wheel.Cycle() < cycle {
		if s.rpm == 0 {
			return ErrStalled
		}

		s.advance(farFuture)
	}

	return nil
}

// End advances the clock by the trailing delay and terminates the scenario.
// A zero delay selects DefaultEndDelay.
func (s *Scenario) End(delay timing.ScenarioTime) {
	s.mustBeRunning()

	if delay == 0 {
		delay = DefaultEndDelay
	}

	s.time += delay
	s.events = append(s.events, trace.EndEvent{Time: s.time})
	s.ended = true
}

// advance moves the clock to the next event or by maxDelay, whichever comes
// first.
func (s *Scenario) advance(maxDelay timing.ScenarioTime) {
	maxTime := s.time + maxDelay

	nextTrigger, hasTrigger := s.nextTriggerTime()
	nextADC, hasADC := s.nextADCTime()

	switch {
	case hasTrigger && nextTrigger <= maxTime && (!hasADC || nextTrigger < nextADC):
		s.emitTrigger(nextTrigger)
	case hasADC && nextADC <= maxTime:
		s.emitADC(nextADC)
		s.lastADCTime = nextADC
		s.time = nextADC
	default:
		s.time = maxTime
	}
}

func (s *Scenario) nextTriggerTime() (timing.ScenarioTime, bool) {
	if s.rpm == 0 {
		return 0, false
	}

	next := s.lastTriggerTime + s.wheel.TimeToNextTrigger(s.rpm)
	if next < s.time {
		// The engine has just started turning again.
		next = s.time
	}

	return next, true
}

func (s *Scenario) nextADCTime() (timing.ScenarioTime, bool) {
	if s.adcPeriod == 0 {
		return 0, false
	}

	next := s.lastADCTime + s.adcPeriod
	if next < s.time {
		next = s.time
	}

	return next, true
}

func (s *Scenario) emitTrigger(t timing.ScenarioTime) {
	channel, angle := s.wheel.Next(s.rpm)

	s.events = append(s.events, trace.ToothEvent{
		Time:    t,
		Trigger: channel,
		Angle:   angle,
		RPM:     s.rpm,
		Cycle:   s.wheel.Cycle(),
	})
	s.time = t
	s.lastTriggerTime = t
}

func (s *Scenario) emitADC(t timing.ScenarioTime) {
	s.events = append(s.events, trace.ADCEvent{Time: t, Values: s.adc})
}

// Events returns a copy of the recorded stimulus in chronological order.
func (s *Scenario) Events() []trace.Event {
	return append([]trace.Event(nil), s.events...)
}

// Triggers returns the trigger pulses of the scenario.
func (s *Scenario) Triggers() []trace.ToothEvent {
	var triggers []trace.ToothEvent
	for _, e := range s.events {
		if t, ok := e.(trace.ToothEvent); ok {
			triggers = append(triggers, t)
		}
	}

	return triggers
}

// Log returns the stimulus as a log on the scenario time base.
func (s *Scenario) Log() trace.Log {
	l, err := trace.FromScenario(s.events)
	if err != nil {
		log.Panic(err)
	}

	return l
}
