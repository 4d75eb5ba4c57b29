package trace

import (
	"fmt"
	"iter"
	"sort"

	"github.com/viaems/ecuharness/timing"
)

// A Record is an event placed on the scenario time base. For scenario events
// Time equals the native timestamp; for target and capture events it is the
// reconciled one.
type Record struct {
	Time  timing.ScenarioTime
	Event Event
}

// A Log is a materialized, time-ordered sequence of records. Every query
// returns a new Log and leaves the receiver untouched, so a Log can be
// iterated any number of times.
type Log []Record

// FromScenario places scenario events on the log using their own timestamps.
func FromScenario(events []Event) (Log, error) {
	l := make(Log, 0, len(events))
	for _, e := range events {
		if e.Domain() != timing.ScenarioDomain {
			return nil, fmt.Errorf(
				"trace: %s event is on the %s clock, not the scenario clock",
				Kind(e), e.Domain())
		}

		l = append(l, Record{Time: timing.ScenarioTime(e.Ticks()), Event: e})
	}

	return l, nil
}

// Merge combines logs into one ordered by time. Records with the same time
// keep the order of the arguments, so stimulus passed first stays ahead of
// the target's reaction to it.
func Merge(logs ...Log) Log {
	total := 0
	for _, l := range logs {
		total += len(l)
	}

	merged := make(Log, 0, total)
	for _, l := range logs {
		merged = append(merged, l...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Time < merged[j].Time
	})

	return merged
}

// All iterates over the records.
func (l Log) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range l {
			if !yield(r) {
				return
			}
		}
	}
}

// IsSorted tells if the records are in non-decreasing time order.
func (l Log) IsSorted() bool {
	return sort.SliceIsSorted(l, func(i, j int) bool {
		return l[i].Time < l[j].Time
	})
}

// Filter returns the records that satisfy the predicate.
func (l Log) Filter(keep func(Record) bool) Log {
	result := Log{}
	for _, r := range l {
		if keep(r) {
			result = append(result, r)
		}
	}

	return result
}

// After returns the records at or after the given time.
func (l Log) After(t timing.ScenarioTime) Log {
	return l.Filter(func(r Record) bool { return r.Time >= t })
}

// Between returns the records within [start, end].
func (l Log) Between(start, end timing.ScenarioTime) Log {
	return l.Filter(func(r Record) bool {
		return r.Time >= start && r.Time <= end
	})
}

// Feeds returns the telemetry snapshots.
func (l Log) Feeds() Log {
	return l.Filter(func(r Record) bool {
		_, ok := r.Event.(TargetFeedEvent)
		return ok
	})
}

// Firings returns the derived output firings.
func (l Log) Firings() Log {
	return l.Filter(func(r Record) bool {
		_, ok := r.Event.(FiringEvent)
		return ok
	})
}

// Outputs returns the raw output bitmask snapshots of every domain.
func (l Log) Outputs() Log {
	return l.Filter(func(r Record) bool {
		_, ok := OutputMask(r.Event)
		return ok
	})
}

// GPIOs returns the GPIO bitmask snapshots of every domain.
func (l Log) GPIOs() Log {
	return l.Filter(func(r Record) bool {
		switch r.Event.(type) {
		case TargetGPIOEvent, CaptureGPIOEvent:
			return true
		default:
			return false
		}
	})
}

// Triggers returns the trigger pulses of every domain.
func (l Log) Triggers() Log {
	return l.Filter(func(r Record) bool { return IsTrigger(r.Event) })
}

// LatestGPIOAt returns the last GPIO snapshot at or before the given time.
func (l Log) LatestGPIOAt(t timing.ScenarioTime) (Record, bool) {
	gpios := l.Between(0, t).GPIOs()
	if len(gpios) == 0 {
		return Record{}, false
	}

	return gpios[len(gpios)-1], true
}

// MarkTime returns the time of the first mark with the given label.
func (l Log) MarkTime(label string) (timing.ScenarioTime, bool) {
	for _, r := range l {
		if m, ok := r.Event.(MarkEvent); ok && m.Label == label {
			return r.Time, true
		}
	}

	return 0, false
}

// Events returns the events of type T in log order.
func Events[T Event](l Log) []T {
	var result []T
	for _, r := range l {
		if e, ok := r.Event.(T); ok {
			result = append(result, e)
		}
	}

	return result
}
