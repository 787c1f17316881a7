package model

import "time"

// Transaction represents a single bank or card transaction from any source.
// Transactions are immutable after import except for match linkage and
// prediction fields.
type Transaction struct {
	Date                  time.Time
	CreatedAt             time.Time
	MatchedReceiptID      *string
	ID                    string
	UserID                string
	Description           string // Raw statement description
	NormalizedDescription string // Vendor key derived from Description
	MatchStatus           MatchStatus
	Amount                float64
}
