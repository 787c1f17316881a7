package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
)

const transactionColumns = `id, user_id, date, amount, description, normalized_description, match_status, matched_receipt_id, created_at`

// SaveTransactions inserts or updates a batch of transactions.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range transactions {
		txn := &transactions[i]
		if txn.CreatedAt.IsZero() {
			txn.CreatedAt = time.Now()
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (`+transactionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				normalized_description = excluded.normalized_description,
				match_status = excluded.match_status,
				matched_receipt_id = excluded.matched_receipt_id
		`, txn.ID, txn.UserID, txn.Date, txn.Amount, txn.Description,
			txn.NormalizedDescription, txn.MatchStatus, txn.MatchedReceiptID, txn.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, mapConstraintError(err))
		}
	}

	return tx.Commit()
}

// GetTransactionByID retrieves a transaction scoped to the given user.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, userID, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	return s.getTransactionTx(ctx, s.db, userID, id)
}

func (s *SQLiteStorage) getTransactionTx(ctx context.Context, q queryable, userID, id string) (*model.Transaction, error) {
	var txn model.Transaction

	err := q.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = ? AND user_id = ?
	`, id, userID).Scan(
		&txn.ID,
		&txn.UserID,
		&txn.Date,
		&txn.Amount,
		&txn.Description,
		&txn.NormalizedDescription,
		&txn.MatchStatus,
		&txn.MatchedReceiptID,
		&txn.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &txn, nil
}

// GetUnmatchedTransactions returns the user's unmatched transactions within
// the date window.
func (s *SQLiteStorage) GetUnmatchedTransactions(ctx context.Context, userID string, start, end time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %v is before start %v", ErrInvalidDateRange, end, start)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ? AND match_status = ? AND date >= ? AND date <= ?
		ORDER BY date, id
	`, userID, model.MatchUnmatched, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// GetTransactionsByIDs retrieves the given transactions, skipping unknown
// ids. All results are scoped to the user.
func (s *SQLiteStorage) GetTransactionsByIDs(ctx context.Context, userID string, ids []string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ? AND id IN (`+placeholders+`)
		ORDER BY date, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.Date,
			&txn.Amount,
			&txn.Description,
			&txn.NormalizedDescription,
			&txn.MatchStatus,
			&txn.MatchedReceiptID,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// updateTransactionTx persists match-related transaction fields within a
// transaction.
func (s *SQLiteStorage) updateTransactionTx(ctx context.Context, tx *sql.Tx, txn *model.Transaction) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET match_status = ?, matched_receipt_id = ?, normalized_description = ?
		WHERE id = ? AND user_id = ?
	`, txn.MatchStatus, txn.MatchedReceiptID, txn.NormalizedDescription, txn.ID, txn.UserID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, txn.ID)
	}

	return nil
}
