package outputs

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type document struct {
	Windows struct {
		Ignition *Window `yaml:"ignition"`
		Fuel     *Window `yaml:"fuel"`
	} `yaml:"windows"`
	Outputs []struct {
		Pin   int     `yaml:"pin"`
		Kind  string  `yaml:"kind"`
		Angle float64 `yaml:"angle"`
	} `yaml:"outputs"`
}

// Load reads a YAML output schedule:
//
//	windows:
//	  ignition: {lower: -50, upper: 10}
//	outputs:
//	  - {pin: 0, kind: ignition, angle: 0}
//	  - {pin: 8, kind: fuel, angle: 700}
//
// Windows that are not given keep their defaults.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var doc document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("outputs: parsing schedule: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Outputs))
	for i, o := range doc.Outputs {
		kind, err := parseKind(o.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: output %d: %v", ErrInvalidEntry, i, err)
		}

		entries = append(entries, Entry{Pin: o.Pin, Kind: kind, Angle: o.Angle})
	}

	var opts []Option
	if doc.Windows.Ignition != nil {
		opts = append(opts, WithIgnitionWindow(*doc.Windows.Ignition))
	}

	if doc.Windows.Fuel != nil {
		opts = append(opts, WithFuelWindow(*doc.Windows.Fuel))
	}

	return NewConfig(entries, opts...)
}

// LoadFile reads a YAML output schedule from a file.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "fuel":
		return Fuel, nil
	case "ignition", "ign":
		return Ignition, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}
