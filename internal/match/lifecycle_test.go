package match

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
	"github.com/matchflow/matchflow/internal/service"
	"github.com/matchflow/matchflow/internal/testutil"
)

func TestApplyConfirm(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("links both sides", func(t *testing.T) {
		m := proposedMatch()
		receipt := readyReceipt()
		txn := unmatchedTransaction()

		err := ApplyConfirm(m, receipt, txn, now)
		require.NoError(t, err)

		assert.Equal(t, model.ProposalConfirmed, m.Status)
		require.NotNil(t, m.ResolvedAt)
		assert.Equal(t, now, *m.ResolvedAt)

		assert.Equal(t, model.ReceiptMatched, receipt.Status)
		assert.Equal(t, model.MatchMatched, receipt.MatchStatus)
		require.NotNil(t, receipt.MatchedTransactionID)
		assert.Equal(t, txn.ID, *receipt.MatchedTransactionID)

		assert.Equal(t, model.MatchMatched, txn.MatchStatus)
		require.NotNil(t, txn.MatchedReceiptID)
		assert.Equal(t, receipt.ID, *txn.MatchedReceiptID)
	})

	t.Run("error receipt is left untouched", func(t *testing.T) {
		m := proposedMatch()
		receipt := readyReceipt()
		receipt.Status = model.ReceiptError
		receipt.MatchStatus = model.MatchProposed
		txn := unmatchedTransaction()

		err := ApplyConfirm(m, receipt, txn, now)
		require.NoError(t, err)

		// The match and transaction still transition; the receipt keeps both
		// status fields exactly as they were.
		assert.Equal(t, model.ProposalConfirmed, m.Status)
		assert.Equal(t, model.MatchMatched, txn.MatchStatus)
		assert.Equal(t, model.ReceiptError, receipt.Status)
		assert.Equal(t, model.MatchProposed, receipt.MatchStatus)
		assert.Nil(t, receipt.MatchedTransactionID)
	})

	t.Run("only proposed matches can be confirmed", func(t *testing.T) {
		for _, status := range []model.MatchProposalStatus{model.ProposalConfirmed, model.ProposalRejected} {
			m := proposedMatch()
			m.Status = status

			err := ApplyConfirm(m, readyReceipt(), unmatchedTransaction(), now)
			assert.ErrorIs(t, err, common.ErrInvalidTransition, "from %s", status)
		}
	})
}

func TestApplyReject(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("returns both sides to the unmatched pool", func(t *testing.T) {
		m := proposedMatch()
		receipt := readyReceipt()
		receipt.MatchStatus = model.MatchProposed
		txn := unmatchedTransaction()
		txn.MatchStatus = model.MatchProposed

		err := ApplyReject(m, receipt, txn, now)
		require.NoError(t, err)

		assert.Equal(t, model.ProposalRejected, m.Status)
		assert.Equal(t, model.ReceiptReady, receipt.Status)
		assert.Equal(t, model.MatchUnmatched, receipt.MatchStatus)
		assert.Nil(t, receipt.MatchedTransactionID)
		assert.Equal(t, model.MatchUnmatched, txn.MatchStatus)
		assert.Nil(t, txn.MatchedReceiptID)
	})

	t.Run("error receipt keeps its processing status", func(t *testing.T) {
		m := proposedMatch()
		receipt := readyReceipt()
		receipt.Status = model.ReceiptError
		txn := unmatchedTransaction()

		err := ApplyReject(m, receipt, txn, now)
		require.NoError(t, err)

		assert.Equal(t, model.ReceiptError, receipt.Status)
		assert.Equal(t, model.MatchUnmatched, receipt.MatchStatus)
	})

	t.Run("only proposed matches can be rejected", func(t *testing.T) {
		m := proposedMatch()
		m.Status = model.ProposalConfirmed

		err := ApplyReject(m, readyReceipt(), unmatchedTransaction(), now)
		assert.ErrorIs(t, err, common.ErrInvalidTransition)
	})
}

func TestApplyUnmatch(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("undoes a confirmed match", func(t *testing.T) {
		m := proposedMatch()
		receipt := readyReceipt()
		txn := unmatchedTransaction()
		require.NoError(t, ApplyConfirm(m, receipt, txn, now))

		err := ApplyUnmatch(m, receipt, txn, now.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, model.ProposalRejected, m.Status)
		assert.Equal(t, model.ReceiptReady, receipt.Status)
		assert.Equal(t, model.MatchUnmatched, receipt.MatchStatus)
		assert.Nil(t, receipt.MatchedTransactionID)
		assert.Equal(t, model.MatchUnmatched, txn.MatchStatus)
		assert.Nil(t, txn.MatchedReceiptID)
	})

	t.Run("only confirmed matches can be unmatched", func(t *testing.T) {
		m := proposedMatch()

		err := ApplyUnmatch(m, readyReceipt(), unmatchedTransaction(), now)
		assert.ErrorIs(t, err, common.ErrInvalidTransition)
	})
}

func TestNewManualMatch(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("confirms directly without a threshold", func(t *testing.T) {
		receipt := readyReceipt()
		receipt.Amount = 10.00
		txn := unmatchedTransaction()
		txn.Amount = 99.00
		txn.Date = receipt.Date.AddDate(0, 0, 30)

		m, err := NewManualMatch(receipt, txn, now)
		require.NoError(t, err)

		// Score would never clear the proposal threshold; manual matching
		// records it anyway.
		assert.Equal(t, model.ProposalConfirmed, m.Status)
		assert.Less(t, m.ConfidenceScore, 70)
		assert.Equal(t, model.ReceiptMatched, receipt.Status)
		assert.Equal(t, model.MatchMatched, txn.MatchStatus)
	})

	t.Run("rejects already matched sides", func(t *testing.T) {
		receipt := readyReceipt()
		receipt.MatchStatus = model.MatchMatched
		_, err := NewManualMatch(receipt, unmatchedTransaction(), now)
		assert.ErrorIs(t, err, common.ErrInvalidTransition)

		txn := unmatchedTransaction()
		txn.MatchStatus = model.MatchMatched
		_, err = NewManualMatch(readyReceipt(), txn, now)
		assert.ErrorIs(t, err, common.ErrInvalidTransition)
	})
}

// fakeFeedback records forwarded decisions without a real learner.
type fakeFeedback struct {
	confirms map[string]int
	rejects  map[string]int
}

func newFakeFeedback() *fakeFeedback {
	return &fakeFeedback{confirms: make(map[string]int), rejects: make(map[string]int)}
}

func (f *fakeFeedback) RecordConfirm(_ context.Context, _, vendorKey string) error {
	f.confirms[vendorKey]++
	return nil
}

func (f *fakeFeedback) RecordReject(_ context.Context, _, vendorKey string) error {
	f.rejects[vendorKey]++
	return nil
}

func TestLifecycleConfirm(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStorage(t)
	feedback := newFakeFeedback()
	lifecycle := NewLifecycle(store, feedback)

	receipt, txn, m := seedProposal(ctx, t, store)

	err := lifecycle.Confirm(ctx, receipt.UserID, m.ID)
	require.NoError(t, err)

	saved, err := store.GetMatchByID(ctx, receipt.UserID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalConfirmed, saved.Status)
	assert.NotNil(t, saved.ResolvedAt)

	savedReceipt, err := store.GetReceiptByID(ctx, receipt.UserID, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptMatched, savedReceipt.Status)
	assert.Equal(t, model.MatchMatched, savedReceipt.MatchStatus)

	savedTxn, err := store.GetTransactionByID(ctx, receipt.UserID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchMatched, savedTxn.MatchStatus)

	assert.Equal(t, 1, feedback.confirms["STARBUCKS STORE"])
}

func TestLifecycleReject(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStorage(t)
	feedback := newFakeFeedback()
	lifecycle := NewLifecycle(store, feedback)

	receipt, txn, m := seedProposal(ctx, t, store)

	err := lifecycle.Reject(ctx, receipt.UserID, m.ID)
	require.NoError(t, err)

	savedReceipt, err := store.GetReceiptByID(ctx, receipt.UserID, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptReady, savedReceipt.Status)
	assert.Equal(t, model.MatchUnmatched, savedReceipt.MatchStatus)

	savedTxn, err := store.GetTransactionByID(ctx, receipt.UserID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchUnmatched, savedTxn.MatchStatus)
	assert.Nil(t, savedTxn.MatchedReceiptID)

	assert.Equal(t, 1, feedback.rejects["STARBUCKS STORE"])
}

func TestLifecycleUnmatch(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStorage(t)
	lifecycle := NewLifecycle(store, nil)

	receipt, txn, m := seedProposal(ctx, t, store)

	require.NoError(t, lifecycle.Confirm(ctx, receipt.UserID, m.ID))
	require.NoError(t, lifecycle.Unmatch(ctx, receipt.UserID, m.ID))

	saved, err := store.GetMatchByID(ctx, receipt.UserID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalRejected, saved.Status)

	savedReceipt, err := store.GetReceiptByID(ctx, receipt.UserID, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptReady, savedReceipt.Status)
	assert.Equal(t, model.MatchUnmatched, savedReceipt.MatchStatus)

	savedTxn, err := store.GetTransactionByID(ctx, receipt.UserID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchUnmatched, savedTxn.MatchStatus)
}

func TestLifecycleManualMatch(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStorage(t)
	feedback := newFakeFeedback()
	lifecycle := NewLifecycle(store, feedback)

	receipt := readyReceipt()
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	txn := unmatchedTransaction()
	txn.Amount = 500.00 // nowhere near the receipt amount
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{*txn}))

	m, err := lifecycle.ManualMatch(ctx, receipt.UserID, receipt.ID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalConfirmed, m.Status)

	savedReceipt, err := store.GetReceiptByID(ctx, receipt.UserID, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptMatched, savedReceipt.Status)

	assert.Equal(t, 1, feedback.confirms["STARBUCKS STORE"])
}

func TestLifecycleBatchApprove(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStorage(t)
	lifecycle := NewLifecycle(store, nil)

	receipt, _, m := seedProposal(ctx, t, store)

	result := lifecycle.BatchApprove(ctx, receipt.UserID, []string{m.ID, "no-such-match"})

	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors["no-such-match"], common.ErrNotFound)

	saved, err := store.GetMatchByID(ctx, receipt.UserID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalConfirmed, saved.Status)
}

// proposedMatch, readyReceipt, and unmatchedTransaction build consistent
// fixtures for a single user.
func proposedMatch() *model.ReceiptTransactionMatch {
	return &model.ReceiptTransactionMatch{
		ID:              uuid.NewString(),
		UserID:          "user1",
		ReceiptID:       "r1",
		TransactionID:   "t1",
		AmountScore:     40,
		DateScore:       35,
		VendorScore:     15,
		ConfidenceScore: 90,
		Status:          model.ProposalProposed,
		CreatedAt:       time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC),
	}
}

func readyReceipt() *model.Receipt {
	vendor := "Starbucks Store"
	return &model.Receipt{
		ID:          "r1",
		UserID:      "user1",
		Vendor:      &vendor,
		Date:        time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount:      24.99,
		Status:      model.ReceiptReady,
		MatchStatus: model.MatchUnmatched,
	}
}

func unmatchedTransaction() *model.Transaction {
	return &model.Transaction{
		ID:          "t1",
		UserID:      "user1",
		Date:        time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount:      24.99,
		Description: "STARBUCKS STORE #123",
		MatchStatus: model.MatchUnmatched,
	}
}

// seedProposal persists a receipt, transaction, and proposed match linking
// them.
func seedProposal(ctx context.Context, t *testing.T, store service.Storage) (*model.Receipt, *model.Transaction, *model.ReceiptTransactionMatch) {
	t.Helper()

	receipt := readyReceipt()
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	txn := unmatchedTransaction()
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{*txn}))

	m := proposedMatch()
	receipt.MatchStatus = model.MatchProposed
	txn.MatchStatus = model.MatchProposed
	require.NoError(t, store.SaveMatchState(ctx, m, receipt, txn))

	return receipt, txn, m
}
