// Package learn turns historical expense reports and user feedback into
// per-vendor expense patterns, and applies those patterns to new
// transactions as predictions.
package learn

import (
	"math"
	"time"
)

// minDecayWeight floors the weight so very old reports still register
// instead of vanishing entirely.
const minDecayWeight = 0.01

// daysPerMonth converts elapsed days to fractional months for the decay
// curve.
const daysPerMonth = 30.44

// DecayWeight returns the observation weight for a report that is monthsAgo
// months old, under an exponential curve with the given half-life. A report
// from exactly one half-life ago carries half weight. Future-dated reports
// clamp to full weight rather than letting the exponential grow unbounded.
func DecayWeight(monthsAgo, halfLifeMonths float64) float64 {
	if monthsAgo <= 0 {
		return 1.0
	}

	w := math.Exp2(-monthsAgo / halfLifeMonths)
	if w < minDecayWeight {
		return minDecayWeight
	}
	return w
}

// MonthsSince returns the fractional months elapsed from t to now.
// Negative when t is in the future.
func MonthsSince(t, now time.Time) float64 {
	return now.Sub(t).Hours() / 24 / daysPerMonth
}
