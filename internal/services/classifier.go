package services

import (
	"github.com/glocktrack/glocktrack/internal/database"
)

// Status is the qualitative classification of a reading against the
// profile's target range
type Status string

const (
	StatusLow    Status = "low"
	StatusNormal Status = "normal"
	StatusHigh   Status = "high"
)

// Classify compares a glucose value against the profile's target range for
// the reading type. It reports ok=false when no classification applies:
// random readings have no target range, and without a profile there is
// nothing to compare against. Values equal to the range bounds are normal.
func Classify(value float64, readingType database.ReadingType, profile *database.UserProfile) (Status, bool) {
	if profile == nil {
		return "", false
	}

	var min, max float64
	switch readingType {
	case database.ReadingFasting:
		min = float64(profile.TargetFastingMin)
		max = float64(profile.TargetFastingMax)
	case database.ReadingPostPrandial:
		min = float64(profile.TargetPostPrandialMin)
		max = float64(profile.TargetPostPrandialMax)
	default:
		return "", false
	}

	switch {
	case value < min:
		return StatusLow, true
	case value > max:
		return StatusHigh, true
	default:
		return StatusNormal, true
	}
}
