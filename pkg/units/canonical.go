// Package units provides escort-unit weighting and trip quantity conversions.
package units

import "math"

// Unit is the quantity a rate is charged per.
type Unit string

const (
	UnitMile Unit = "mile"
	UnitDay  Unit = "day"
	UnitHour Unit = "hour"
	UnitFlat Unit = "flat"
)

// Position weights relative to a standard lead or chase escort.
const (
	StandardWeight = 1.0
	HighPoleWeight = 1.25
	SteerWeight    = 1.15
)

// Positions counts escorts by position.
type Positions struct {
	Lead     int `json:"lead" yaml:"lead"`
	Chase    int `json:"chase" yaml:"chase"`
	HighPole int `json:"highPole" yaml:"highPole"`
	Steer    int `json:"steer" yaml:"steer"`
}

// Total returns the raw number of vehicles, ignoring weights.
func (p Positions) Total() int {
	return nonNegative(p.Lead) + nonNegative(p.Chase) + nonNegative(p.HighPole) + nonNegative(p.Steer)
}

// EscortUnits returns the normalized escort effort for a set of positions.
// Negative counts are treated as zero.
func EscortUnits(p Positions) float64 {
	return float64(nonNegative(p.Lead))*StandardWeight +
		float64(nonNegative(p.Chase))*StandardWeight +
		float64(nonNegative(p.HighPole))*HighPoleWeight +
		float64(nonNegative(p.Steer))*SteerWeight
}

// DaysForMiles converts a trip length into billable days of dayLength miles.
// A trip always bills at least one day.
func DaysForMiles(miles, dayLength float64) int {
	if dayLength <= 0 {
		return 1
	}
	days := int(math.Ceil(math.Max(miles, 0) / dayLength))
	if days < 1 {
		return 1
	}
	return days
}

// BillableHours applies a minimum call-out to a provided hour count.
func BillableHours(hours, minimum float64) float64 {
	return math.Max(math.Max(hours, 0), minimum)
}

// MileBucket returns the index of the first upper bound that miles does not
// exceed. Miles beyond the last bound land in len(bounds).
func MileBucket(miles float64, bounds []float64) int {
	for i, b := range bounds {
		if miles <= b {
			return i
		}
	}
	return len(bounds)
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
