package model

import "time"

// ExpensePattern is a per-user, per-vendor learned statistical profile used
// for prediction and auto-categorization. The business/personal
// classification is derived from the confirm/reject counts and is never
// stored independently of them.
type ExpensePattern struct {
	FirstSeen            time.Time
	LastSeen             time.Time
	ID                   string
	UserID               string
	VendorKey            string
	OccurrenceCount      int
	ConfirmCount         int
	RejectCount          int
	AverageAmount        float64
	DecayedAverageAmount float64
	MinAmount            float64
	MaxAmount            float64
	IsSuppressed         bool
}

// FeedbackTotal returns the number of explicit user decisions recorded
// against this pattern.
func (p *ExpensePattern) FeedbackTotal() int {
	return p.ConfirmCount + p.RejectCount
}

// ConfirmRate returns the fraction of feedback that confirmed the pattern,
// or 0 when no feedback exists.
func (p *ExpensePattern) ConfirmRate() float64 {
	total := p.FeedbackTotal()
	if total == 0 {
		return 0
	}
	return float64(p.ConfirmCount) / float64(total)
}
