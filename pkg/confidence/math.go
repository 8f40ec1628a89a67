// Package confidence provides confidence score math utilities.
package confidence

// Level is the three-tier label attached to a completeness score.
type Level string

const (
	LevelHigh   Level = "High"
	LevelMedium Level = "Medium"
	LevelLow    Level = "Low"
)

// Score bounds and label thresholds for request completeness.
const (
	MaxScore        = 100
	MinScore        = 15
	HighThreshold   = 85
	MediumThreshold = 65
)

// Clamp ensures a score lies within [lo, hi].
func Clamp(score, lo, hi float64) float64 {
	if score < lo {
		return lo
	}
	if score > hi {
		return hi
	}
	return score
}

// Clamp01 ensures a ratio-style confidence is in valid range [0, 1].
func Clamp01(score float64) float64 {
	return Clamp(score, 0, 1)
}

// ClampScore bounds an integer completeness score to [MinScore, MaxScore].
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Label maps a completeness score to its tier.
func Label(score int) Level {
	switch {
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// AboveThreshold checks if confidence meets minimum requirement.
func AboveThreshold(score, threshold float64) bool {
	return score >= threshold
}
