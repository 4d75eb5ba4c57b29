package recording

import (
	"github.com/viaems/ecuharness/align"
	"github.com/viaems/ecuharness/trace"
	"github.com/viaems/ecuharness/validate"
)

// Table names.
const (
	RunTable       = "runs"
	FiringTable    = "firings"
	MarkTable      = "marks"
	AlignmentTable = "alignments"
)

// Run is everything worth keeping about one harness run.
type Run struct {
	ID       string
	Scenario string
	Log      trace.Log
	Verdict  validate.Verdict
	Mappings []align.Mapping
}

// RunRow is the verdict of a run.
type RunRow struct {
	RunID    string
	Scenario string
	Passed   bool
	Reason   string
	Firings  int
}

// FiringRow is one enriched firing.
type FiringRow struct {
	RunID        string
	Time         int64
	Pin          int
	RiseTime     int64
	DurationUS   float64
	EndAngle     float64
	Advance      float64
	Cycle        uint64
	Kind         string
	NominalAngle float64
}

// MarkRow is a labelled scenario reference point.
type MarkRow struct {
	RunID string
	Time  int64
	Label string
}

// AlignmentRow is the clock mapping of one reconciled stream.
type AlignmentRow struct {
	RunID    string
	Domain   string
	Ratio    float64
	Offset   int64
	DriftPPM float64
}

// CreateTables prepares a recorder to receive runs.
func CreateTables(r Recorder) {
	r.CreateTable(RunTable, RunRow{})
	r.CreateTable(FiringTable, FiringRow{})
	r.CreateTable(MarkTable, MarkRow{})
	r.CreateTable(AlignmentTable, AlignmentRow{})
}

// WriteRun buffers the rows of a run. The tables must exist.
func WriteRun(r Recorder, run Run) {
	firings := 0

	for _, rec := range run.Log {
		switch e := rec.Event.(type) {
		case trace.FiringEvent:
			firings++
			r.InsertData(FiringTable, firingRow(run.ID, rec, e))
		case trace.MarkEvent:
			r.InsertData(MarkTable, MarkRow{
				RunID: run.ID,
				Time:  int64(rec.Time),
				Label: e.Label,
			})
		}
	}

	for _, m := range run.Mappings {
		r.InsertData(AlignmentTable, AlignmentRow{
			RunID:    run.ID,
			Domain:   m.Domain.String(),
			Ratio:    m.Ratio,
			Offset:   m.Offset,
			DriftPPM: m.DriftPPM,
		})
	}

	r.InsertData(RunTable, RunRow{
		RunID:    run.ID,
		Scenario: run.Scenario,
		Passed:   run.Verdict.Passed,
		Reason:   run.Verdict.Reason,
		Firings:  firings,
	})
}

func firingRow(runID string, rec trace.Record, e trace.FiringEvent) FiringRow {
	row := FiringRow{
		RunID:      runID,
		Time:       int64(rec.Time),
		Pin:        e.Pin,
		RiseTime:   int64(e.RiseTime),
		DurationUS: e.DurationUS,
		EndAngle:   e.EndAngle,
		Advance:    e.Advance,
		Cycle:      e.Cycle,
		Kind:       "unresolved",
	}

	if e.Resolved() {
		row.Kind = e.Config.Kind.String()
		row.NominalAngle = e.Config.Angle
	}

	return row
}
