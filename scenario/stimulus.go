package scenario

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/viaems/ecuharness/timing"
	"github.com/viaems/ecuharness/trace"
)

// WriteStimulus renders the scenario in the line format replayed by targets.
// Each command carries the delay, in ticks, since the previous command:
//
//	t <delay> <channel>
//	a <delay> <v0> ... <v15>
//	e <delay>
//
// Marks are not commands and are left out.
func (s *Scenario) WriteStimulus(w io.Writer) error {
	bw := bufio.NewWriter(w)
	last := timing.ScenarioTime(0)

	for _, e := range s.events {
		var err error

		switch e := e.(type) {
		case trace.ToothEvent:
			_, err = fmt.Fprintf(bw, "t %d %d\n", e.Time-last, e.Trigger)
			last = e.Time
		case trace.ADCEvent:
			_, err = fmt.Fprintf(bw, "a %d", e.Time-last)
			for _, v := range e.Values {
				if err == nil {
					_, err = bw.WriteString(" " + strconv.FormatFloat(v, 'f', -1, 64))
				}
			}
			if err == nil {
				err = bw.WriteByte('\n')
			}
			last = e.Time
		case trace.EndEvent:
			_, err = fmt.Fprintf(bw, "e %d\n", e.Time-last)
			last = e.Time
		case trace.MarkEvent:
		}

		if err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteStimulusFile renders the scenario into the named file.
func (s *Scenario) WriteStimulusFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := s.WriteStimulus(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
