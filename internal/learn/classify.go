package learn

import (
	"math"

	"github.com/matchflow/matchflow/internal/config"
	"github.com/matchflow/matchflow/internal/model"
)

// frequencySaturation is the occurrence count at which the frequency signal
// of the prediction confidence reaches its ceiling.
const frequencySaturation = 10.0

// Classify derives the business/personal classification from feedback
// counts alone: true for business, false for personal, nil when the
// evidence is insufficient either way. The business check runs first, so a
// tie at the boundary resolves to business. The result is a pure function
// of the two counts, so recomputing is idempotent and order-independent.
func Classify(confirmCount, rejectCount int, cfg config.Engine) *bool {
	total := confirmCount + rejectCount
	if total == 0 {
		return nil
	}

	confirmRate := float64(confirmCount) / float64(total)
	if confirmRate >= cfg.BusinessThreshold && total >= cfg.BusinessMinTotal {
		business := true
		return &business
	}

	rejectRate := float64(rejectCount) / float64(total)
	if rejectRate >= cfg.PersonalThreshold && total >= cfg.PersonalMinTotal {
		business := false
		return &business
	}

	return nil
}

// ShouldSuppress reports whether a pattern has accumulated enough rejection
// to stop generating predictions. Evaluated after each reject; the flag
// itself is one-way and is never cleared by later confirms.
func ShouldSuppress(confirmCount, rejectCount int, cfg config.Engine) bool {
	if rejectCount < cfg.SuppressionRejectCount {
		return false
	}

	total := confirmCount + rejectCount
	confirmRate := float64(confirmCount) / float64(total)
	return confirmRate < cfg.SuppressionConfirmRate
}

// PredictionConfidence blends three signals in [0,1] each (observation
// frequency, amount fit against the learned average, and user feedback)
// into a single confidence score. Monotonic in each signal.
func PredictionConfidence(pattern model.ExpensePattern, txnAmount float64) float64 {
	frequency := float64(pattern.OccurrenceCount) / frequencySaturation
	if frequency > 1 {
		frequency = 1
	}

	avg := pattern.DecayedAverageAmount
	if avg == 0 {
		avg = pattern.AverageAmount
	}

	var amountFit float64
	switch {
	case avg > 0:
		deviation := math.Abs(txnAmount-avg) / avg
		amountFit = 1 - deviation
		if amountFit < 0 {
			amountFit = 0
		}
	default:
		// No amount history yet; neutral signal.
		amountFit = 0.5
	}

	feedback := 0.5
	if pattern.FeedbackTotal() > 0 {
		feedback = pattern.ConfirmRate()
	}

	return (frequency + amountFit + feedback) / 3
}
