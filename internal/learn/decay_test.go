package learn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecayWeight(t *testing.T) {
	tests := []struct {
		name      string
		monthsAgo float64
		halfLife  float64
		want      float64
	}{
		{name: "current month carries full weight", monthsAgo: 0, halfLife: 6, want: 1.0},
		{name: "future dates clamp to full weight", monthsAgo: -3, halfLife: 6, want: 1.0},
		{name: "one half-life halves the weight", monthsAgo: 6, halfLife: 6, want: 0.5},
		{name: "two half-lives quarter it", monthsAgo: 12, halfLife: 6, want: 0.25},
		{name: "three half-lives", monthsAgo: 18, halfLife: 6, want: 0.125},
		{name: "very old reports floor at the minimum", monthsAgo: 60, halfLife: 6, want: 0.01},
		{name: "different half-life", monthsAgo: 3, halfLife: 3, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DecayWeight(tt.monthsAgo, tt.halfLife), 1e-9)
		})
	}
}

func TestDecayWeightMonotonic(t *testing.T) {
	prev := DecayWeight(0, 6)
	for months := 1.0; months <= 48; months++ {
		w := DecayWeight(months, 6)
		assert.LessOrEqual(t, w, prev, "weight must never grow with age")
		assert.GreaterOrEqual(t, w, 0.01)
		prev = w
	}
}

func TestMonthsSince(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	assert.InDelta(t, 0, MonthsSince(now, now), 1e-9)

	sixMonths := now.AddDate(0, 0, -183)
	assert.InDelta(t, 6.01, MonthsSince(sixMonths, now), 0.05)

	future := now.AddDate(0, 0, 30)
	assert.Less(t, MonthsSince(future, now), 0.0)
}
