package model

import "time"

// ReportStatus tracks an expense report through its lifecycle.
type ReportStatus string

// Report status constants. All statuses are eligible for pattern learning;
// only the soft-delete flag excludes a report.
const (
	ReportDraft     ReportStatus = "DRAFT"
	ReportGenerated ReportStatus = "GENERATED"
	ReportSubmitted ReportStatus = "SUBMITTED"
)

// ExpenseReport is a historical expense report whose lines feed the pattern
// learner.
type ExpenseReport struct {
	ReportDate time.Time
	CreatedAt  time.Time
	ID         string
	UserID     string
	Status     ReportStatus
	Lines      []ReportLine
	IsDeleted  bool
}

// ReportLine is a single vendor/amount entry on an expense report.
type ReportLine struct {
	Date   time.Time
	Vendor string
	Amount float64
}
