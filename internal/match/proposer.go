package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/config"
	"github.com/matchflow/matchflow/internal/model"
	"github.com/matchflow/matchflow/internal/service"
)

// candidateWindowDays bounds the transaction search around the receipt
// date. Past seven days the date score is zero and the remaining components
// cannot reach the default threshold.
const candidateWindowDays = 7

// Proposer scores unmatched receipts against candidate transactions and
// persists qualifying proposals.
type Proposer struct {
	store service.Storage
	cfg   config.Engine
}

// NewProposer creates a proposer with the given thresholds.
func NewProposer(store service.Storage, cfg config.Engine) *Proposer {
	return &Proposer{store: store, cfg: cfg}
}

// ProposeForReceipt scores one receipt against its candidate transactions
// and persists the winning proposal, if any. Returns nil when no candidate
// clears the confidence threshold.
func (p *Proposer) ProposeForReceipt(ctx context.Context, userID, receiptID string) (*model.ReceiptTransactionMatch, error) {
	receipt, err := p.store.GetReceiptByID(ctx, userID, receiptID)
	if err != nil {
		return nil, err
	}

	if receipt.MatchStatus != model.MatchUnmatched {
		return nil, fmt.Errorf("%w: receipt is %s", common.ErrInvalidTransition, receipt.MatchStatus)
	}
	if !receipt.CanBeMatched() {
		return nil, fmt.Errorf("%w: receipt status is %s", common.ErrInvalidTransition, receipt.Status)
	}

	return p.propose(ctx, receipt)
}

// ProposeMatches runs proposal generation for every eligible unmatched
// receipt of the user. Receipts fail independently; the count of created
// proposals is returned.
func (p *Proposer) ProposeMatches(ctx context.Context, userID string) (int, error) {
	receipts, err := p.store.GetUnmatchedReceipts(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load unmatched receipts: %w", err)
	}

	created := 0
	for i := range receipts {
		receipt := &receipts[i]
		if !receipt.CanBeMatched() {
			continue
		}

		m, err := p.propose(ctx, receipt)
		if err != nil {
			common.LogError(err, "proposal generation failed for receipt", common.Fields{
				"user_id":    userID,
				"receipt_id": receipt.ID,
			})
			continue
		}
		if m != nil {
			created++
		}
	}

	return created, nil
}

func (p *Proposer) propose(ctx context.Context, receipt *model.Receipt) (*model.ReceiptTransactionMatch, error) {
	start := receipt.Date.AddDate(0, 0, -candidateWindowDays)
	end := receipt.Date.AddDate(0, 0, candidateWindowDays)

	txns, err := p.store.GetUnmatchedTransactions(ctx, receipt.UserID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate transactions: %w", err)
	}
	if len(txns) == 0 {
		return nil, nil
	}

	candidates := make([]ScoredCandidate, 0, len(txns))
	for _, txn := range txns {
		aliasMatched := p.aliasMatches(ctx, receipt, txn)
		candidates = append(candidates, ScoredCandidate{
			Transaction: txn,
			Scores:      ScoreCandidate(*receipt, txn, aliasMatched),
		})
	}

	best, ambiguous := SelectProposal(candidates, p.cfg)
	if best == nil {
		return nil, nil
	}

	now := time.Now()
	m := &model.ReceiptTransactionMatch{
		ID:              uuid.NewString(),
		UserID:          receipt.UserID,
		ReceiptID:       receipt.ID,
		TransactionID:   best.Transaction.ID,
		AmountScore:     best.Scores.Amount,
		DateScore:       best.Scores.Date,
		VendorScore:     best.Scores.Vendor,
		ConfidenceScore: best.Scores.Total,
		Status:          model.ProposalProposed,
		IsAmbiguous:     ambiguous,
		CreatedAt:       now,
	}

	txn := best.Transaction
	receipt.MatchStatus = model.MatchProposed
	txn.MatchStatus = model.MatchProposed

	if err := p.store.SaveMatchState(ctx, m, receipt, &txn); err != nil {
		return nil, fmt.Errorf("failed to persist proposal: %w", err)
	}

	slog.Debug("created match proposal",
		"user_id", receipt.UserID,
		"receipt_id", receipt.ID,
		"transaction_id", txn.ID,
		"confidence", m.ConfidenceScore,
		"ambiguous", m.IsAmbiguous)

	return m, nil
}

// aliasMatches checks the vendor alias table for an exact hit linking the
// transaction's vendor key to the receipt's vendor. Lookup failures degrade
// to fuzzy scoring instead of failing the whole batch.
func (p *Proposer) aliasMatches(ctx context.Context, receipt *model.Receipt, txn model.Transaction) bool {
	vendor := receipt.VendorText()
	if vendor == "" {
		return false
	}

	key := txn.NormalizedDescription
	if key == "" {
		key = ExtractVendorKey(txn.Description)
	}
	if key == "" {
		return false
	}

	alias, err := p.store.GetVendorAlias(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			slog.Warn("vendor alias lookup failed, falling back to fuzzy scoring",
				"vendor_key", key, "error", err)
		}
		return false
	}

	return strings.EqualFold(alias.CanonicalName, vendor) ||
		alias.Pattern == ExtractVendorKey(vendor)
}
