package learn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchflow/matchflow/internal/config"
	"github.com/matchflow/matchflow/internal/model"
)

func TestClassify(t *testing.T) {
	cfg := config.DefaultEngine()

	business := true
	personal := false

	tests := []struct {
		name     string
		confirms int
		rejects  int
		want     *bool
	}{
		{name: "no feedback", confirms: 0, rejects: 0, want: nil},
		{name: "single confirm is business", confirms: 1, rejects: 0, want: &business},
		{name: "even split resolves to business", confirms: 1, rejects: 1, want: &business},
		{name: "mostly confirmed", confirms: 7, rejects: 3, want: &business},
		{name: "two rejects lack the volume for personal", confirms: 0, rejects: 2, want: nil},
		{name: "three rejects is personal", confirms: 0, rejects: 3, want: &personal},
		{name: "one confirm two rejects is personal", confirms: 1, rejects: 2, want: &personal},
		{name: "reject rate at exactly sixty percent", confirms: 2, rejects: 3, want: &personal},
		{name: "reject rate just under sixty percent", confirms: 3, rejects: 4, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.confirms, tt.rejects, cfg)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestClassifyIsOrderIndependent(t *testing.T) {
	// Classification derives from the counts alone, so it cannot depend on
	// the order decisions arrived in.
	cfg := config.DefaultEngine()

	a := Classify(4, 6, cfg)
	b := Classify(4, 6, cfg)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, *a, *b)
}

func TestShouldSuppress(t *testing.T) {
	cfg := config.DefaultEngine()

	tests := []struct {
		name     string
		confirms int
		rejects  int
		want     bool
	}{
		{name: "too few rejects", confirms: 0, rejects: 3, want: false},
		{name: "four rejects no confirms", confirms: 0, rejects: 4, want: true},
		{name: "low confirm rate", confirms: 1, rejects: 4, want: true},
		{name: "confirm rate at the threshold stays active", confirms: 3, rejects: 7, want: false},
		{name: "healthy pattern with many rejects", confirms: 10, rejects: 5, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldSuppress(tt.confirms, tt.rejects, cfg))
		})
	}
}

func TestPredictionConfidence(t *testing.T) {
	t.Run("strong pattern with matching amount", func(t *testing.T) {
		pattern := model.ExpensePattern{
			OccurrenceCount:      10,
			ConfirmCount:         8,
			RejectCount:          2,
			DecayedAverageAmount: 50.00,
		}

		got := PredictionConfidence(pattern, 50.00)
		// frequency 1.0, amount fit 1.0, feedback 0.8
		assert.InDelta(t, (1.0+1.0+0.8)/3, got, 1e-9)
	})

	t.Run("no feedback defaults to neutral", func(t *testing.T) {
		pattern := model.ExpensePattern{
			OccurrenceCount:      5,
			DecayedAverageAmount: 20.00,
		}

		got := PredictionConfidence(pattern, 20.00)
		// frequency 0.5, amount fit 1.0, feedback 0.5
		assert.InDelta(t, (0.5+1.0+0.5)/3, got, 1e-9)
	})

	t.Run("no amount history is a neutral fit", func(t *testing.T) {
		pattern := model.ExpensePattern{OccurrenceCount: 10}

		got := PredictionConfidence(pattern, 42.00)
		// frequency 1.0, amount fit 0.5, feedback 0.5
		assert.InDelta(t, (1.0+0.5+0.5)/3, got, 1e-9)
	})

	t.Run("large deviation floors the amount fit", func(t *testing.T) {
		pattern := model.ExpensePattern{
			OccurrenceCount:      10,
			DecayedAverageAmount: 10.00,
		}

		got := PredictionConfidence(pattern, 30.00)
		// deviation 200%: fit clamps at zero.
		assert.InDelta(t, (1.0+0.0+0.5)/3, got, 1e-9)
	})

	t.Run("falls back to the plain average", func(t *testing.T) {
		pattern := model.ExpensePattern{
			OccurrenceCount: 10,
			AverageAmount:   80.00,
		}

		got := PredictionConfidence(pattern, 80.00)
		assert.InDelta(t, (1.0+1.0+0.5)/3, got, 1e-9)
	})

	t.Run("frequency saturates at ten occurrences", func(t *testing.T) {
		a := model.ExpensePattern{OccurrenceCount: 10, DecayedAverageAmount: 5}
		b := model.ExpensePattern{OccurrenceCount: 200, DecayedAverageAmount: 5}

		assert.InDelta(t, PredictionConfidence(a, 5), PredictionConfidence(b, 5), 1e-9)
	})
}

func TestPredictionConfidenceRange(t *testing.T) {
	patterns := []model.ExpensePattern{
		{},
		{OccurrenceCount: 3, ConfirmCount: 1, RejectCount: 9, DecayedAverageAmount: 12},
		{OccurrenceCount: 50, ConfirmCount: 20, DecayedAverageAmount: 100},
	}

	for _, p := range patterns {
		for _, amount := range []float64{0, 1, 100, 10000} {
			got := PredictionConfidence(p, amount)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	}
}
