package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Engine holds the tunable thresholds for matching, learning, and
// prediction. The zero value is not usable; start from DefaultEngine.
type Engine struct {
	// MinConfidence is the minimum total score (0-100) required before a
	// match proposal is created.
	MinConfidence int
	// AmbiguityMargin flags a proposal as ambiguous when the runner-up
	// candidate scores within this many points of the winner (inclusive).
	AmbiguityMargin int
	// DecayHalfLifeMonths controls how quickly old report lines stop
	// influencing the decayed average amount.
	DecayHalfLifeMonths float64
	// SuppressionRejectCount and SuppressionConfirmRate gate the one-way
	// suppression flag: after a reject, a pattern with at least this many
	// rejects and a confirm rate below the rate threshold stops generating
	// predictions.
	SuppressionRejectCount int
	SuppressionConfirmRate float64
	// BusinessThreshold/BusinessMinTotal and PersonalThreshold/
	// PersonalMinTotal drive the derived business/personal classification.
	// Business is checked first, so a tie at the boundary resolves to
	// business.
	BusinessThreshold float64
	BusinessMinTotal  int
	PersonalThreshold float64
	PersonalMinTotal  int
	// PredictionAcceptThreshold is the minimum confidence (0-1) below which
	// no prediction record is created at all.
	PredictionAcceptThreshold float64
	// FlagPersonalPredictions generates predictions for personal patterns
	// with the personal flag set instead of skipping them.
	FlagPersonalPredictions bool
}

// DefaultEngine returns the production defaults. The personal
// classification thresholds drifted over this product's history (75%/4 in
// older deployments); the current values are 60%/3 with personal
// predictions generated flagged rather than skipped.
func DefaultEngine() Engine {
	return Engine{
		MinConfidence:             70,
		AmbiguityMargin:           5,
		DecayHalfLifeMonths:       6,
		SuppressionRejectCount:    4,
		SuppressionConfirmRate:    0.30,
		BusinessThreshold:         0.50,
		BusinessMinTotal:          1,
		PersonalThreshold:         0.60,
		PersonalMinTotal:          3,
		PredictionAcceptThreshold: 0.40,
		FlagPersonalPredictions:   true,
	}
}

// EngineFromViper reads engine thresholds from the loaded configuration,
// falling back to defaults for unset keys.
func EngineFromViper() (Engine, error) {
	cfg := DefaultEngine()

	v := viper.Sub("engine")
	if v == nil {
		return cfg, nil
	}

	if v.IsSet("min_confidence") {
		cfg.MinConfidence = v.GetInt("min_confidence")
	}
	if v.IsSet("ambiguity_margin") {
		cfg.AmbiguityMargin = v.GetInt("ambiguity_margin")
	}
	if v.IsSet("decay_half_life_months") {
		cfg.DecayHalfLifeMonths = v.GetFloat64("decay_half_life_months")
	}
	if v.IsSet("suppression_reject_count") {
		cfg.SuppressionRejectCount = v.GetInt("suppression_reject_count")
	}
	if v.IsSet("suppression_confirm_rate") {
		cfg.SuppressionConfirmRate = v.GetFloat64("suppression_confirm_rate")
	}
	if v.IsSet("business_threshold") {
		cfg.BusinessThreshold = v.GetFloat64("business_threshold")
	}
	if v.IsSet("business_min_total") {
		cfg.BusinessMinTotal = v.GetInt("business_min_total")
	}
	if v.IsSet("personal_threshold") {
		cfg.PersonalThreshold = v.GetFloat64("personal_threshold")
	}
	if v.IsSet("personal_min_total") {
		cfg.PersonalMinTotal = v.GetInt("personal_min_total")
	}
	if v.IsSet("prediction_accept_threshold") {
		cfg.PredictionAcceptThreshold = v.GetFloat64("prediction_accept_threshold")
	}
	if v.IsSet("flag_personal_predictions") {
		cfg.FlagPersonalPredictions = v.GetBool("flag_personal_predictions")
	}

	return cfg, cfg.Validate()
}

// Validate checks threshold sanity.
func (e Engine) Validate() error {
	if e.MinConfidence < 0 || e.MinConfidence > 100 {
		return fmt.Errorf("min_confidence must be in [0,100], got %d", e.MinConfidence)
	}
	if e.AmbiguityMargin < 0 {
		return fmt.Errorf("ambiguity_margin must be non-negative, got %d", e.AmbiguityMargin)
	}
	if e.DecayHalfLifeMonths <= 0 {
		return fmt.Errorf("decay_half_life_months must be positive, got %g", e.DecayHalfLifeMonths)
	}
	for name, rate := range map[string]float64{
		"suppression_confirm_rate":    e.SuppressionConfirmRate,
		"business_threshold":          e.BusinessThreshold,
		"personal_threshold":          e.PersonalThreshold,
		"prediction_accept_threshold": e.PredictionAcceptThreshold,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s must be in [0,1], got %g", name, rate)
		}
	}
	return nil
}
