// Package model defines the core domain models used throughout the application.
package model

import "time"

// ReceiptStatus tracks a receipt through its processing pipeline.
type ReceiptStatus string

// Receipt processing status constants.
const (
	ReceiptUploaded       ReceiptStatus = "UPLOADED"
	ReceiptProcessing     ReceiptStatus = "PROCESSING"
	ReceiptReady          ReceiptStatus = "READY"
	ReceiptReviewRequired ReceiptStatus = "REVIEW_REQUIRED"
	ReceiptError          ReceiptStatus = "ERROR"
	ReceiptMatched        ReceiptStatus = "MATCHED"
)

// MatchStatus tracks whether an entity has been paired with its counterpart.
type MatchStatus string

// Match status constants, shared by receipts and transactions.
const (
	MatchUnmatched MatchStatus = "UNMATCHED"
	MatchProposed  MatchStatus = "PROPOSED"
	MatchMatched   MatchStatus = "MATCHED"
)

// Receipt represents an uploaded purchase receipt with extracted fields.
// Vendor is nil when extraction could not identify a merchant.
type Receipt struct {
	Date                 time.Time
	CreatedAt            time.Time
	Vendor               *string
	MatchedTransactionID *string
	ID                   string
	UserID               string
	Status               ReceiptStatus
	MatchStatus          MatchStatus
	Amount               float64
}

// VendorText returns the extracted vendor name, or empty when none exists.
func (r *Receipt) VendorText() string {
	if r.Vendor == nil {
		return ""
	}
	return *r.Vendor
}

// CanBeMatched reports whether the matcher is allowed to move this receipt
// to Matched. Error receipts are never touched by the matcher.
func (r *Receipt) CanBeMatched() bool {
	return r.Status == ReceiptReady || r.Status == ReceiptReviewRequired
}
