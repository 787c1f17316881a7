package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEngineIsValid(t *testing.T) {
	assert.NoError(t, DefaultEngine().Validate())
}

func TestEngineValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Engine)
	}{
		{name: "negative confidence", mutate: func(e *Engine) { e.MinConfidence = -1 }},
		{name: "confidence over 100", mutate: func(e *Engine) { e.MinConfidence = 101 }},
		{name: "negative margin", mutate: func(e *Engine) { e.AmbiguityMargin = -1 }},
		{name: "zero half-life", mutate: func(e *Engine) { e.DecayHalfLifeMonths = 0 }},
		{name: "rate over one", mutate: func(e *Engine) { e.BusinessThreshold = 1.5 }},
		{name: "negative rate", mutate: func(e *Engine) { e.SuppressionConfirmRate = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEngine()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEngineFromViper(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("unset config yields defaults", func(t *testing.T) {
		viper.Reset()

		cfg, err := EngineFromViper()
		require.NoError(t, err)
		assert.Equal(t, DefaultEngine(), cfg)
	})

	t.Run("overrides apply", func(t *testing.T) {
		viper.Reset()
		viper.Set("engine.min_confidence", 80)
		viper.Set("engine.flag_personal_predictions", false)

		cfg, err := EngineFromViper()
		require.NoError(t, err)
		assert.Equal(t, 80, cfg.MinConfidence)
		assert.False(t, cfg.FlagPersonalPredictions)
		// Untouched keys keep their defaults.
		assert.Equal(t, DefaultEngine().AmbiguityMargin, cfg.AmbiguityMargin)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		viper.Reset()
		viper.Set("engine.min_confidence", 400)

		_, err := EngineFromViper()
		assert.Error(t, err)
	})
}
