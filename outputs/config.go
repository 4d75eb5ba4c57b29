// Package outputs describes the static fuel and ignition output schedule that
// enriched firings are matched against.
package outputs

import (
	"errors"
	"fmt"
	"math"

	"github.com/viaems/ecuharness/timing"
)

// Kind is the function of an output pin.
type Kind int

// The kinds of outputs.
const (
	Fuel Kind = iota + 1
	Ignition
)

func (k Kind) String() string {
	switch k {
	case Fuel:
		return "fuel"
	case Ignition:
		return "ignition"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Entry is one scheduled output event within the engine cycle.
type Entry struct {
	Pin   int
	Kind  Kind
	Angle float64
}

// Offset returns how far the given angle is past the nominal angle,
// normalized into (-360, 360).
func (e Entry) Offset(angle float64) float64 {
	off := angle - e.Angle
	if off >= 360 {
		off -= timing.CycleDegrees
	}

	if off <= -360 {
		off += timing.CycleDegrees
	}

	return off
}

// Advance returns how many degrees before the nominal angle the given angle
// is. The result is folded to the nearest equivalent within one revolution,
// so a firing 10 degrees before a nominal angle of 0 reports +10 whether it
// ended at 350 or 710.
func (e Entry) Advance(angle float64) float64 {
	return Advance(e.Angle, angle)
}

// Advance returns how many degrees the end angle is ahead of the nominal
// angle, folded into [-180, 180).
func Advance(nominal, end float64) float64 {
	adv := math.Mod(nominal-end, 360)
	if adv >= 180 {
		adv -= 360
	}

	if adv < -180 {
		adv += 360
	}

	return adv
}

// Window is the range of offsets, in degrees from nominal, within which a
// firing is attributed to an entry.
type Window struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// Contains tells if the offset is within the window, bounds included.
func (w Window) Contains(offset float64) bool {
	return offset >= w.Lower && offset <= w.Upper
}

// Default matching windows.
var (
	DefaultIgnitionWindow = Window{Lower: -50, Upper: 10}
	DefaultFuelWindow     = Window{Lower: -10, Upper: 10}
)

// ErrInvalidEntry is returned for an entry that cannot be part of a
// configuration.
var ErrInvalidEntry = errors.New("outputs: invalid entry")

// Config is the output schedule of one validation run. It is built once and
// never changes afterwards, so it can be shared freely.
type Config struct {
	entries        []Entry
	ignitionWindow Window
	fuelWindow     Window
}

// Option customizes a Config.
type Option func(*Config)

// WithIgnitionWindow overrides the ignition matching window.
func WithIgnitionWindow(w Window) Option {
	return func(c *Config) { c.ignitionWindow = w }
}

// WithFuelWindow overrides the fuel matching window.
func WithFuelWindow(w Window) Option {
	return func(c *Config) { c.fuelWindow = w }
}

// NewConfig validates the entries and creates a Config.
func NewConfig(entries []Entry, opts ...Option) (*Config, error) {
	c := &Config{
		entries:        append([]Entry(nil), entries...),
		ignitionWindow: DefaultIgnitionWindow,
		fuelWindow:     DefaultFuelWindow,
	}

	for _, opt := range opts {
		opt(c)
	}

	for i, e := range c.entries {
		if e.Pin < 0 || e.Pin >= 16 {
			return nil, fmt.Errorf("%w: entry %d has pin %d", ErrInvalidEntry, i, e.Pin)
		}

		if e.Kind != Fuel && e.Kind != Ignition {
			return nil, fmt.Errorf("%w: entry %d has kind %s", ErrInvalidEntry, i, e.Kind)
		}

		if e.Angle < 0 || e.Angle >= timing.CycleDegrees {
			return nil, fmt.Errorf("%w: entry %d has angle %f outside [0, 720)",
				ErrInvalidEntry, i, e.Angle)
		}
	}

	for _, w := range []Window{c.ignitionWindow, c.fuelWindow} {
		if w.Lower > w.Upper || w.Lower <= -360 || w.Upper >= 360 {
			return nil, fmt.Errorf("%w: window [%f, %f]", ErrInvalidEntry, w.Lower, w.Upper)
		}
	}

	return c, nil
}

// MustNewConfig is NewConfig that panics on invalid input.
func MustNewConfig(entries []Entry, opts ...Option) *Config {
	c, err := NewConfig(entries, opts...)
	if err != nil {
		panic(err)
	}

	return c
}

// Default returns the schedule of a three-cylinder wasted-spark engine with
// three sequential injectors.
func Default() *Config {
	return MustNewConfig([]Entry{
		{Pin: 0, Kind: Ignition, Angle: 0},
		{Pin: 1, Kind: Ignition, Angle: 120},
		{Pin: 2, Kind: Ignition, Angle: 240},
		{Pin: 0, Kind: Ignition, Angle: 360},
		{Pin: 1, Kind: Ignition, Angle: 480},
		{Pin: 2, Kind: Ignition, Angle: 600},
		{Pin: 8, Kind: Fuel, Angle: 700},
		{Pin: 9, Kind: Fuel, Angle: 460},
		{Pin: 10, Kind: Fuel, Angle: 220},
	})
}

// Entries returns a copy of the entries.
func (c *Config) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Len returns the number of outputs expected in each full engine cycle.
func (c *Config) Len() int {
	return len(c.entries)
}

// Window returns the matching window of the given kind.
func (c *Config) Window(k Kind) Window {
	if k == Fuel {
		return c.fuelWindow
	}

	return c.ignitionWindow
}

// Lookup finds the first entry on the pin whose window contains the angle.
func (c *Config) Lookup(pin int, angle float64) (*Entry, bool) {
	for i := range c.entries {
		e := &c.entries[i]
		if e.Pin != pin {
			continue
		}

		if c.Window(e.Kind).Contains(e.Offset(angle)) {
			entry := *e
			return &entry, true
		}
	}

	return nil, false
}
