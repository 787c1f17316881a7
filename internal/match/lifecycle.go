package match

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
	"github.com/matchflow/matchflow/internal/service"
)

// Pure transition functions. Each mutates the passed entities according to
// the lifecycle rules and returns ErrInvalidTransition when the move is not
// legal from the current state. Persistence is the caller's job.

// ApplyConfirm moves a proposed match to Confirmed. The transaction is
// linked either way; the receipt is only touched when its processing status
// allows matching (Ready or ReviewRequired). An Error receipt keeps both of
// its status fields untouched.
func ApplyConfirm(m *model.ReceiptTransactionMatch, receipt *model.Receipt, txn *model.Transaction, now time.Time) error {
	if m.Status != model.ProposalProposed {
		return fmt.Errorf("%w: confirm from %s", common.ErrInvalidTransition, m.Status)
	}

	m.Status = model.ProposalConfirmed
	m.ResolvedAt = &now

	txn.MatchStatus = model.MatchMatched
	txn.MatchedReceiptID = &receipt.ID

	if receipt.CanBeMatched() {
		receipt.Status = model.ReceiptMatched
		receipt.MatchStatus = model.MatchMatched
		receipt.MatchedTransactionID = &txn.ID
	}

	return nil
}

// ApplyReject moves a proposed match to Rejected and returns both entities
// to the unmatched pool. The receipt reverts to Ready unless it sits in
// Error, which the matcher never overwrites.
func ApplyReject(m *model.ReceiptTransactionMatch, receipt *model.Receipt, txn *model.Transaction, now time.Time) error {
	if m.Status != model.ProposalProposed {
		return fmt.Errorf("%w: reject from %s", common.ErrInvalidTransition, m.Status)
	}

	m.Status = model.ProposalRejected
	m.ResolvedAt = &now

	receipt.MatchStatus = model.MatchUnmatched
	receipt.MatchedTransactionID = nil
	if receipt.Status != model.ReceiptError {
		receipt.Status = model.ReceiptReady
	}

	txn.MatchStatus = model.MatchUnmatched
	txn.MatchedReceiptID = nil

	return nil
}

// ApplyUnmatch undoes a confirmed match: linkage is cleared on both sides
// and the receipt reverts to Ready. The match record survives as audit
// trail, marked rejected so it no longer represents an active pairing.
func ApplyUnmatch(m *model.ReceiptTransactionMatch, receipt *model.Receipt, txn *model.Transaction, now time.Time) error {
	if m.Status != model.ProposalConfirmed {
		return fmt.Errorf("%w: unmatch from %s", common.ErrInvalidTransition, m.Status)
	}

	m.Status = model.ProposalRejected
	m.ResolvedAt = &now

	receipt.MatchStatus = model.MatchUnmatched
	receipt.MatchedTransactionID = nil
	if receipt.Status != model.ReceiptError {
		receipt.Status = model.ReceiptReady
	}

	txn.MatchStatus = model.MatchUnmatched
	txn.MatchedReceiptID = nil

	return nil
}

// NewManualMatch builds a directly-confirmed match, bypassing scoring. The
// component breakdown is still recorded for the audit trail but no
// threshold applies.
func NewManualMatch(receipt *model.Receipt, txn *model.Transaction, now time.Time) (*model.ReceiptTransactionMatch, error) {
	if receipt.MatchStatus == model.MatchMatched {
		return nil, fmt.Errorf("%w: receipt already matched", common.ErrInvalidTransition)
	}
	if txn.MatchStatus == model.MatchMatched {
		return nil, fmt.Errorf("%w: transaction already matched", common.ErrInvalidTransition)
	}

	scores := ScoreCandidate(*receipt, *txn, false)
	m := &model.ReceiptTransactionMatch{
		ID:              uuid.NewString(),
		UserID:          receipt.UserID,
		ReceiptID:       receipt.ID,
		TransactionID:   txn.ID,
		AmountScore:     scores.Amount,
		DateScore:       scores.Date,
		VendorScore:     scores.Vendor,
		ConfidenceScore: scores.Total,
		Status:          model.ProposalProposed,
		CreatedAt:       now,
	}

	if err := ApplyConfirm(m, receipt, txn, now); err != nil {
		return nil, err
	}
	return m, nil
}

// Lifecycle drives match proposals through confirm/reject/unmatch and keeps
// receipt and transaction status fields synchronized. User decisions are
// forwarded to the pattern learner as feedback.
type Lifecycle struct {
	store    service.Storage
	feedback service.FeedbackRecorder
}

// NewLifecycle creates a lifecycle service. The feedback recorder may be
// nil when learning is disabled.
func NewLifecycle(store service.Storage, feedback service.FeedbackRecorder) *Lifecycle {
	return &Lifecycle{store: store, feedback: feedback}
}

// Confirm accepts a proposed match.
func (l *Lifecycle) Confirm(ctx context.Context, userID, matchID string) error {
	m, receipt, txn, err := l.load(ctx, userID, matchID)
	if err != nil {
		return err
	}

	if err := ApplyConfirm(m, receipt, txn, time.Now()); err != nil {
		return err
	}

	if err := l.persist(ctx, m, receipt, txn); err != nil {
		return fmt.Errorf("failed to persist confirm: %w", err)
	}

	l.recordFeedback(ctx, userID, txn, true)
	return nil
}

// Reject declines a proposed match and returns both sides to the unmatched
// pool.
func (l *Lifecycle) Reject(ctx context.Context, userID, matchID string) error {
	m, receipt, txn, err := l.load(ctx, userID, matchID)
	if err != nil {
		return err
	}

	if err := ApplyReject(m, receipt, txn, time.Now()); err != nil {
		return err
	}

	if err := l.persist(ctx, m, receipt, txn); err != nil {
		return fmt.Errorf("failed to persist reject: %w", err)
	}

	l.recordFeedback(ctx, userID, txn, false)
	return nil
}

// Unmatch undoes a previously confirmed match.
func (l *Lifecycle) Unmatch(ctx context.Context, userID, matchID string) error {
	m, receipt, txn, err := l.load(ctx, userID, matchID)
	if err != nil {
		return err
	}

	if err := ApplyUnmatch(m, receipt, txn, time.Now()); err != nil {
		return err
	}

	if err := l.persist(ctx, m, receipt, txn); err != nil {
		return fmt.Errorf("failed to persist unmatch: %w", err)
	}
	return nil
}

// ManualMatch pairs a receipt and transaction directly, skipping the
// scorer's confidence threshold.
func (l *Lifecycle) ManualMatch(ctx context.Context, userID, receiptID, transactionID string) (*model.ReceiptTransactionMatch, error) {
	receipt, err := l.store.GetReceiptByID(ctx, userID, receiptID)
	if err != nil {
		return nil, err
	}
	txn, err := l.store.GetTransactionByID(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	m, err := NewManualMatch(receipt, txn, time.Now())
	if err != nil {
		return nil, err
	}

	if err := l.persist(ctx, m, receipt, txn); err != nil {
		return nil, fmt.Errorf("failed to persist manual match: %w", err)
	}

	l.recordFeedback(ctx, userID, txn, true)
	return m, nil
}

// BatchApprove confirms a set of proposals. Items are transitioned
// independently: a failure on one never blocks the rest, and every eligible
// item ends Matched.
func (l *Lifecycle) BatchApprove(ctx context.Context, userID string, matchIDs []string) service.BatchResult {
	result := service.BatchResult{Errors: make(map[string]error)}

	for _, id := range matchIDs {
		if err := l.Confirm(ctx, userID, id); err != nil {
			result.Errors[id] = err
			continue
		}
		result.Succeeded++
	}

	return result
}

// persist writes the resolved state, retrying through transient SQLite
// contention.
func (l *Lifecycle) persist(ctx context.Context, m *model.ReceiptTransactionMatch, receipt *model.Receipt, txn *model.Transaction) error {
	return common.WithRetry(ctx, func() error {
		return l.store.SaveMatchState(ctx, m, receipt, txn)
	}, common.RetryOptions{MaxAttempts: 3})
}

func (l *Lifecycle) load(ctx context.Context, userID, matchID string) (*model.ReceiptTransactionMatch, *model.Receipt, *model.Transaction, error) {
	m, err := l.store.GetMatchByID(ctx, userID, matchID)
	if err != nil {
		return nil, nil, nil, err
	}
	receipt, err := l.store.GetReceiptByID(ctx, userID, m.ReceiptID)
	if err != nil {
		return nil, nil, nil, err
	}
	txn, err := l.store.GetTransactionByID(ctx, userID, m.TransactionID)
	if err != nil {
		return nil, nil, nil, err
	}
	return m, receipt, txn, nil
}

// recordFeedback forwards the decision to the learner. Feedback is
// best-effort: a learner failure never rolls back a resolved match.
func (l *Lifecycle) recordFeedback(ctx context.Context, userID string, txn *model.Transaction, confirmed bool) {
	if l.feedback == nil {
		return
	}

	vendorKey := txn.NormalizedDescription
	if vendorKey == "" {
		vendorKey = ExtractVendorKey(txn.Description)
	}
	if vendorKey == "" {
		return
	}

	var err error
	if confirmed {
		err = l.feedback.RecordConfirm(ctx, userID, vendorKey)
	} else {
		err = l.feedback.RecordReject(ctx, userID, vendorKey)
	}
	if err != nil {
		slog.Warn("failed to record match feedback",
			"user_id", userID,
			"vendor_key", vendorKey,
			"confirmed", confirmed,
			"error", err)
	}
}
