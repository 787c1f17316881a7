package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/config"
	"github.com/matchflow/matchflow/internal/model"
	"github.com/matchflow/matchflow/internal/testutil"
)

func TestProposeForReceipt(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStorage(t)
	proposer := NewProposer(store, config.DefaultEngine())

	receipt := readyReceipt()
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	matching := unmatchedTransaction()
	farAway := &model.Transaction{
		ID:          "t2",
		UserID:      "user1",
		Date:        receipt.Date.AddDate(0, 0, 30),
		Amount:      24.99,
		Description: "STARBUCKS STORE #123",
		MatchStatus: model.MatchUnmatched,
	}
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{*matching, *farAway}))

	m, err := proposer.ProposeForReceipt(ctx, "user1", receipt.ID)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, matching.ID, m.TransactionID)
	assert.Equal(t, 40, m.AmountScore)
	assert.Equal(t, 35, m.DateScore)
	assert.Equal(t, 15, m.VendorScore)
	assert.Equal(t, 90, m.ConfidenceScore)
	assert.Equal(t, model.ProposalProposed, m.Status)
	assert.False(t, m.IsAmbiguous)

	savedReceipt, err := store.GetReceiptByID(ctx, "user1", receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchProposed, savedReceipt.MatchStatus)

	savedTxn, err := store.GetTransactionByID(ctx, "user1", matching.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchProposed, savedTxn.MatchStatus)

	// The transaction a month away stays untouched.
	savedFar, err := store.GetTransactionByID(ctx, "user1", farAway.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchUnmatched, savedFar.MatchStatus)
}

func TestProposeForReceiptNoQualifyingCandidate(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStorage(t)
	proposer := NewProposer(store, config.DefaultEngine())

	receipt := readyReceipt()
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	// Amount far off, vendor unrelated: date alone cannot reach the
	// threshold.
	weak := &model.Transaction{
		ID:          "t9",
		UserID:      "user1",
		Date:        receipt.Date,
		Amount:      999.00,
		Description: "CHEVRON 00441",
		MatchStatus: model.MatchUnmatched,
	}
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{*weak}))

	m, err := proposer.ProposeForReceipt(ctx, "user1", receipt.ID)
	require.NoError(t, err)
	assert.Nil(t, m)

	savedReceipt, err := store.GetReceiptByID(ctx, "user1", receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchUnmatched, savedReceipt.MatchStatus)
}

func TestProposeForReceiptAmbiguousPair(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStorage(t)
	proposer := NewProposer(store, config.DefaultEngine())

	receipt := readyReceipt()
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	a := unmatchedTransaction()
	b := *unmatchedTransaction()
	b.ID = "t2"
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{*a, b}))

	m, err := proposer.ProposeForReceipt(ctx, "user1", receipt.ID)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.True(t, m.IsAmbiguous)
}

func TestProposeForReceiptIneligibleStates(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStorage(t)
	proposer := NewProposer(store, config.DefaultEngine())

	t.Run("error receipt", func(t *testing.T) {
		receipt := readyReceipt()
		receipt.ID = "r-error"
		receipt.Status = model.ReceiptError
		require.NoError(t, store.SaveReceipt(ctx, receipt))

		_, err := proposer.ProposeForReceipt(ctx, "user1", receipt.ID)
		assert.ErrorIs(t, err, common.ErrInvalidTransition)
	})

	t.Run("already proposed receipt", func(t *testing.T) {
		receipt := readyReceipt()
		receipt.ID = "r-proposed"
		receipt.MatchStatus = model.MatchProposed
		require.NoError(t, store.SaveReceipt(ctx, receipt))

		_, err := proposer.ProposeForReceipt(ctx, "user1", receipt.ID)
		assert.ErrorIs(t, err, common.ErrInvalidTransition)
	})

	t.Run("unknown receipt", func(t *testing.T) {
		_, err := proposer.ProposeForReceipt(ctx, "user1", "missing")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestProposeForReceiptAliasHit(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStorage(t)
	proposer := NewProposer(store, config.DefaultEngine())

	require.NoError(t, store.SaveVendorAlias(ctx, &model.VendorAlias{
		Pattern:       "SQ BLUE BOTTLE",
		CanonicalName: "Blue Bottle Coffee",
		Category:      "Coffee",
	}))

	vendor := "Blue Bottle Coffee"
	receipt := &model.Receipt{
		ID:          "r1",
		UserID:      "user1",
		Vendor:      &vendor,
		Date:        time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Amount:      6.50,
		Status:      model.ReceiptReady,
		MatchStatus: model.MatchUnmatched,
	}
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	txn := model.Transaction{
		ID:          "t1",
		UserID:      "user1",
		Date:        receipt.Date,
		Amount:      6.50,
		Description: "SQ *BLUE BOTTLE 993",
		MatchStatus: model.MatchUnmatched,
	}
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{txn}))

	m, err := proposer.ProposeForReceipt(ctx, "user1", receipt.ID)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, 25, m.VendorScore, "alias hit earns the full vendor score")
	assert.Equal(t, 100, m.ConfidenceScore)
}

func TestProposeMatches(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStorage(t)
	proposer := NewProposer(store, config.DefaultEngine())

	// Two matchable receipts, one in Error that must be skipped.
	for _, r := range []*model.Receipt{
		{ID: "r1", UserID: "user1", Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), Amount: 24.99, Status: model.ReceiptReady, MatchStatus: model.MatchUnmatched},
		{ID: "r2", UserID: "user1", Date: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), Amount: 12.00, Status: model.ReceiptReviewRequired, MatchStatus: model.MatchUnmatched},
		{ID: "r3", UserID: "user1", Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), Amount: 8.00, Status: model.ReceiptError, MatchStatus: model.MatchUnmatched},
	} {
		require.NoError(t, store.SaveReceipt(ctx, r))
	}

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		{ID: "t1", UserID: "user1", Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), Amount: 24.99, Description: "MERCHANT ONE", MatchStatus: model.MatchUnmatched},
		{ID: "t2", UserID: "user1", Date: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), Amount: 12.00, Description: "MERCHANT TWO", MatchStatus: model.MatchUnmatched},
		{ID: "t3", UserID: "user1", Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), Amount: 8.00, Description: "MERCHANT THREE", MatchStatus: model.MatchUnmatched},
	}))

	created, err := proposer.ProposeMatches(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// The error receipt and its candidate stay unmatched.
	savedReceipt, err := store.GetReceiptByID(ctx, "user1", "r3")
	require.NoError(t, err)
	assert.Equal(t, model.MatchUnmatched, savedReceipt.MatchStatus)

	savedTxn, err := store.GetTransactionByID(ctx, "user1", "t3")
	require.NoError(t, err)
	assert.Equal(t, model.MatchUnmatched, savedTxn.MatchStatus)
}
