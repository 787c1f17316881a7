package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
)

// SaveReceipt inserts or updates a receipt.
func (s *SQLiteStorage) SaveReceipt(ctx context.Context, receipt *model.Receipt) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReceipt(receipt); err != nil {
		return err
	}

	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (id, user_id, vendor, date, amount, status, match_status, matched_transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			vendor = excluded.vendor,
			date = excluded.date,
			amount = excluded.amount,
			status = excluded.status,
			match_status = excluded.match_status,
			matched_transaction_id = excluded.matched_transaction_id
	`, receipt.ID, receipt.UserID, receipt.Vendor, receipt.Date, receipt.Amount,
		receipt.Status, receipt.MatchStatus, receipt.MatchedTransactionID, receipt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save receipt: %w", mapConstraintError(err))
	}

	return nil
}

// GetReceiptByID retrieves a receipt scoped to the given user.
func (s *SQLiteStorage) GetReceiptByID(ctx context.Context, userID, id string) (*model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	return s.getReceiptTx(ctx, s.db, userID, id)
}

type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStorage) getReceiptTx(ctx context.Context, q queryable, userID, id string) (*model.Receipt, error) {
	var receipt model.Receipt

	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, vendor, date, amount, status, match_status, matched_transaction_id, created_at
		FROM receipts
		WHERE id = ? AND user_id = ?
	`, id, userID).Scan(
		&receipt.ID,
		&receipt.UserID,
		&receipt.Vendor,
		&receipt.Date,
		&receipt.Amount,
		&receipt.Status,
		&receipt.MatchStatus,
		&receipt.MatchedTransactionID,
		&receipt.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: receipt %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	return &receipt, nil
}

// GetUnmatchedReceipts returns the user's receipts still awaiting a match.
func (s *SQLiteStorage) GetUnmatchedReceipts(ctx context.Context, userID string) ([]model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, vendor, date, amount, status, match_status, matched_transaction_id, created_at
		FROM receipts
		WHERE user_id = ? AND match_status = ?
		ORDER BY date, id
	`, userID, model.MatchUnmatched)
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched receipts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var receipts []model.Receipt
	for rows.Next() {
		var receipt model.Receipt
		err := rows.Scan(
			&receipt.ID,
			&receipt.UserID,
			&receipt.Vendor,
			&receipt.Date,
			&receipt.Amount,
			&receipt.Status,
			&receipt.MatchStatus,
			&receipt.MatchedTransactionID,
			&receipt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}

	return receipts, rows.Err()
}

// updateReceiptTx persists match-related receipt fields within a transaction.
func (s *SQLiteStorage) updateReceiptTx(ctx context.Context, tx *sql.Tx, receipt *model.Receipt) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE receipts
		SET status = ?, match_status = ?, matched_transaction_id = ?
		WHERE id = ? AND user_id = ?
	`, receipt.Status, receipt.MatchStatus, receipt.MatchedTransactionID, receipt.ID, receipt.UserID)
	if err != nil {
		return fmt.Errorf("failed to update receipt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: receipt %s", common.ErrNotFound, receipt.ID)
	}

	return nil
}
