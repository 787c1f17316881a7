package learn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/config"
	"github.com/matchflow/matchflow/internal/match"
	"github.com/matchflow/matchflow/internal/model"
	"github.com/matchflow/matchflow/internal/service"
)

// Predictor applies learned expense patterns to new transactions and emits
// prediction candidates.
type Predictor struct {
	store service.Storage
	cfg   config.Engine
}

// NewPredictor creates a prediction generator with the given thresholds.
func NewPredictor(store service.Storage, cfg config.Engine) *Predictor {
	return &Predictor{store: store, cfg: cfg}
}

// GeneratePredictions evaluates the given transactions against the user's
// active patterns and returns the number of predictions created. A
// transaction that already holds a prediction is skipped, so re-running is
// safe. Low-confidence candidates yield no record at all.
func (p *Predictor) GeneratePredictions(ctx context.Context, userID string, transactionIDs []string) (int, error) {
	txns, err := p.store.GetTransactionsByIDs(ctx, userID, transactionIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to load transactions: %w", err)
	}

	created := 0
	for _, txn := range txns {
		ok, err := p.predictOne(ctx, userID, txn)
		if err != nil {
			common.LogError(err, "prediction generation failed for transaction", common.Fields{
				"user_id":        userID,
				"transaction_id": txn.ID,
			})
			continue
		}
		if ok {
			created++
		}
	}

	return created, nil
}

func (p *Predictor) predictOne(ctx context.Context, userID string, txn model.Transaction) (bool, error) {
	if _, err := p.store.GetPredictionByTransaction(ctx, userID, txn.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return false, err
	}

	key := txn.NormalizedDescription
	if key == "" {
		key = match.ExtractVendorKey(txn.Description)
	}
	if key == "" {
		return false, nil
	}

	pattern, err := p.store.GetPattern(ctx, userID, key)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if pattern.IsSuppressed {
		return false, nil
	}

	isPersonal := false
	if cls := Classify(pattern.ConfirmCount, pattern.RejectCount, p.cfg); cls != nil && !*cls {
		if !p.cfg.FlagPersonalPredictions {
			return false, nil
		}
		isPersonal = true
	}

	confidence := PredictionConfidence(*pattern, txn.Amount)
	if confidence < p.cfg.PredictionAcceptThreshold {
		return false, nil
	}

	prediction := &model.TransactionPrediction{
		ID:                   uuid.NewString(),
		UserID:               userID,
		TransactionID:        txn.ID,
		PatternID:            &pattern.ID,
		Confidence:           confidence,
		Status:               model.PredictionPending,
		IsPersonalPrediction: isPersonal,
		CreatedAt:            time.Now(),
	}

	if err := p.store.CreatePrediction(ctx, prediction); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			// Another caller predicted this transaction first.
			return false, nil
		}
		return false, err
	}

	slog.Debug("created transaction prediction",
		"user_id", userID,
		"transaction_id", txn.ID,
		"vendor_key", key,
		"confidence", confidence,
		"personal", isPersonal)

	return true, nil
}
