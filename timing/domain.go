// Package timing defines the clock domains of a verification run and the
// discrete-event engine used to drive in-process targets.
package timing

import "fmt"

// ScenarioTime is a tick count on the scenario's own clock. It is the
// authoritative time base that every other domain is reconciled onto.
type ScenarioTime int64

// TargetTime is a tick count reported by the device under test.
type TargetTime int64

// CaptureTime is a tick count recorded by an independent hardware capture.
type CaptureTime int64

// Domain identifies which clock a timestamp was taken on.
type Domain int

// The clock domains a verification run deals with.
const (
	ScenarioDomain Domain = iota
	TargetDomain
	CaptureDomain
)

func (d Domain) String() string {
	switch d {
	case ScenarioDomain:
		return "scenario"
	case TargetDomain:
		return "target"
	case CaptureDomain:
		return "capture"
	default:
		return fmt.Sprintf("domain(%d)", int(d))
	}
}
