package timing

import (
	"log"
	"math"
)

// CycleDegrees is the crank angle covered by one four-stroke engine cycle.
const CycleDegrees = 720.0

// TicksPerDegree returns how many reference ticks one crank degree takes at
// the given engine speed. One degree lasts 60/(360*rpm) seconds.
func TicksPerDegree(rpm float64) float64 {
	if rpm <= 0 {
		log.Panicf("timing: rpm must be positive, got %f", rpm)
	}

	return (float64(TickRate) / 6.0) / rpm
}

// TicksForDegrees returns the whole number of ticks the crank needs to turn
// the given angle at the given speed. Partial ticks are truncated.
func TicksForDegrees(rpm, degrees float64) ScenarioTime {
	return ScenarioTime(degrees * TicksPerDegree(rpm))
}

// DegreesForTicks returns the crank angle covered in the given number of
// ticks at the given speed.
func DegreesForTicks(ticks int64, rpm float64) float64 {
	return float64(ticks) / TicksPerDegree(rpm)
}

// ClampAngle wraps an angle into [0, 720).
func ClampAngle(angle float64) float64 {
	angle = math.Mod(angle, CycleDegrees)
	if angle < 0 {
		angle += CycleDegrees
	}

	if angle >= CycleDegrees {
		angle = 0
	}

	return angle
}
