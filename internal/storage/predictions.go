package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
)

const predictionColumns = `id, user_id, transaction_id, pattern_id, confidence, status, is_personal_prediction, created_at`

// CreatePrediction inserts a new prediction. The unique constraint on
// transaction_id enforces at most one prediction per transaction; a
// duplicate insert surfaces as common.ErrAlreadyExists.
func (s *SQLiteStorage) CreatePrediction(ctx context.Context, prediction *model.TransactionPrediction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if prediction == nil {
		return fmt.Errorf("%w: prediction", ErrNilParameter)
	}
	if err := validateString(prediction.ID, "id"); err != nil {
		return err
	}
	if err := validateString(prediction.UserID, "userID"); err != nil {
		return err
	}
	if err := validateString(prediction.TransactionID, "transactionID"); err != nil {
		return err
	}
	if prediction.Confidence < 0 || prediction.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidPattern)
	}

	if prediction.CreatedAt.IsZero() {
		prediction.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transaction_predictions (`+predictionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, prediction.ID, prediction.UserID, prediction.TransactionID, prediction.PatternID,
		prediction.Confidence, prediction.Status, prediction.IsPersonalPrediction, prediction.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prediction: %w", mapConstraintError(err))
	}

	return nil
}

// GetPredictionByTransaction retrieves the prediction for a transaction,
// if one exists.
func (s *SQLiteStorage) GetPredictionByTransaction(ctx context.Context, userID, transactionID string) (*model.TransactionPrediction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	var prediction model.TransactionPrediction
	err := s.db.QueryRowContext(ctx, `
		SELECT `+predictionColumns+`
		FROM transaction_predictions
		WHERE user_id = ? AND transaction_id = ?
	`, userID, transactionID).Scan(
		&prediction.ID,
		&prediction.UserID,
		&prediction.TransactionID,
		&prediction.PatternID,
		&prediction.Confidence,
		&prediction.Status,
		&prediction.IsPersonalPrediction,
		&prediction.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: prediction for transaction %s", common.ErrNotFound, transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return &prediction, nil
}

// ListPredictions returns all of the user's predictions, newest first.
func (s *SQLiteStorage) ListPredictions(ctx context.Context, userID string) ([]model.TransactionPrediction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+predictionColumns+`
		FROM transaction_predictions
		WHERE user_id = ?
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var predictions []model.TransactionPrediction
	for rows.Next() {
		var prediction model.TransactionPrediction
		err := rows.Scan(
			&prediction.ID,
			&prediction.UserID,
			&prediction.TransactionID,
			&prediction.PatternID,
			&prediction.Confidence,
			&prediction.Status,
			&prediction.IsPersonalPrediction,
			&prediction.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, prediction)
	}

	return predictions, rows.Err()
}
