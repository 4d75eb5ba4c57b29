package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/viaems/ecuharness/decoder"
	"github.com/viaems/ecuharness/timing"
	"github.com/viaems/ecuharness/trace"
)

// ErrInvalidScript is returned for scripts that cannot be played.
var ErrInvalidScript = errors.New("scenario: invalid script")

// WheelSpec describes the trigger wheel of a script. Zero values select the
// decoder defaults.
type WheelSpec struct {
	Teeth  int      `yaml:"teeth"`
	Cam    *float64 `yaml:"cam"`
	Offset float64  `yaml:"offset"`
}

// ADCStep sets one analog input.
type ADCStep struct {
	Channel int     `yaml:"channel"`
	Volts   float64 `yaml:"volts"`
}

// Step is one action of a script. Exactly one field is set.
type Step struct {
	RPM       *float64 `yaml:"rpm"`
	BRV       *float64 `yaml:"brv"`
	MAP       *float64 `yaml:"map"`
	ADC       *ADCStep `yaml:"adc"`
	Mark      *string  `yaml:"mark"`
	WaitMS    *float64 `yaml:"wait_ms"`
	WaitCycle *uint64  `yaml:"wait_cycle"`
}

// Script is a scenario written down as data:
//
//	name: cruise
//	wheel: {teeth: 36}
//	steps:
//	  - rpm: 3000
//	  - brv: 14
//	  - mark: steady
//	  - wait_cycle: 4
//	end_ms: 1000
type Script struct {
	Name            string    `yaml:"name"`
	Wheel           WheelSpec `yaml:"wheel"`
	ADCSampleRateHz uint64    `yaml:"adc_sample_rate_hz"`
	Steps           []Step    `yaml:"steps"`
	EndMS           float64   `yaml:"end_ms"`
}

// LoadScript parses a YAML script.
func LoadScript(r io.Reader) (*Script, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}

	for i, step := range s.Steps {
		if n := step.actions(); n != 1 {
			return nil, fmt.Errorf("%w: step %d has %d actions", ErrInvalidScript, i, n)
		}
	}

	return &s, nil
}

// LoadScriptFile reads a script from a file. An unnamed script is named
// after the file.
func LoadScriptFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := LoadScript(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return s, nil
}

func (st Step) actions() int {
	n := 0
	for _, set := range []bool{
		st.RPM != nil,
		st.BRV != nil,
		st.MAP != nil,
		st.ADC != nil,
		st.Mark != nil,
		st.WaitMS != nil,
		st.WaitCycle != nil,
	} {
		if set {
			n++
		}
	}

	return n
}

// Build plays the script into a new, ended scenario.
func (s *Script) Build() (*Scenario, error) {
	b := decoder.MakeBuilder()
	if s.Wheel.Teeth != 0 {
		b = b.WithToothCount(s.Wheel.Teeth)
	}

	if s.Wheel.Cam != nil {
		b = b.WithCamAngle(*s.Wheel.Cam)
	}

	b = b.WithOffset(s.Wheel.Offset)
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}

	var opts []Option
	if s.ADCSampleRateHz != 0 {
		opts = append(opts, WithADCSampleRate(timing.FreqInHz(s.ADCSampleRateHz)))
	}

	sc := New(s.Name, b.Build(), opts...)

	for i, step := range s.Steps {
		if err := sc.play(step); err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrInvalidScript, i, err)
		}
	}

	if s.EndMS < 0 {
		return nil, fmt.Errorf("%w: negative end delay", ErrInvalidScript)
	}

	sc.End(timing.Milliseconds(s.EndMS))

	return sc, nil
}

func (s *Scenario) play(step Step) error {
	switch {
	case step.RPM != nil:
		if *step.RPM < 0 {
			return fmt.Errorf("negative rpm %v", *step.RPM)
		}
		s.SetRPM(*step.RPM)
	case step.BRV != nil:
		s.SetBRV(*step.BRV)
	case step.MAP != nil:
		s.SetMAP(*step.MAP)
	case step.ADC != nil:
		if step.ADC.Channel < 0 || step.ADC.Channel >= trace.NumADCChannels {
			return fmt.Errorf("no analog channel %d", step.ADC.Channel)
		}
		s.SetADC(step.ADC.Channel, step.ADC.Volts)
	case step.Mark != nil:
		s.Mark(*step.Mark)
	case step.WaitMS != nil:
		if *step.WaitMS < 0 {
			return fmt.Errorf("negative wait %v", *step.WaitMS)
		}
		s.WaitMilliseconds(*step.WaitMS)
	case step.WaitCycle != nil:
		return s.WaitUntilCycle(*step.WaitCycle)
	}

	return nil
}
