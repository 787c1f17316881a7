package model

import "time"

// MatchProposalStatus tracks the lifecycle of a match proposal.
type MatchProposalStatus string

// Match proposal status constants.
const (
	ProposalProposed  MatchProposalStatus = "PROPOSED"
	ProposalConfirmed MatchProposalStatus = "CONFIRMED"
	ProposalRejected  MatchProposalStatus = "REJECTED"
)

// ReceiptTransactionMatch is a scored candidate pairing of one receipt and
// one transaction. Proposals are created by the scorer, mutated only by
// confirm/reject, and never deleted so the audit trail survives.
type ReceiptTransactionMatch struct {
	CreatedAt       time.Time
	ResolvedAt      *time.Time
	ID              string
	UserID          string
	ReceiptID       string
	TransactionID   string
	Status          MatchProposalStatus
	AmountScore     int
	DateScore       int
	VendorScore     int
	ConfidenceScore int
	IsAmbiguous     bool
}
