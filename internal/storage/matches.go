package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
)

const matchColumns = `id, user_id, receipt_id, transaction_id, amount_score, date_score, vendor_score, confidence_score, status, is_ambiguous, created_at, resolved_at`

// GetMatchByID retrieves a match proposal scoped to the given user.
func (s *SQLiteStorage) GetMatchByID(ctx context.Context, userID, id string) (*model.ReceiptTransactionMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var m model.ReceiptTransactionMatch
	err := s.db.QueryRowContext(ctx, `
		SELECT `+matchColumns+`
		FROM receipt_transaction_matches
		WHERE id = ? AND user_id = ?
	`, id, userID).Scan(
		&m.ID,
		&m.UserID,
		&m.ReceiptID,
		&m.TransactionID,
		&m.AmountScore,
		&m.DateScore,
		&m.VendorScore,
		&m.ConfidenceScore,
		&m.Status,
		&m.IsAmbiguous,
		&m.CreatedAt,
		&m.ResolvedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: match %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	return &m, nil
}

// GetMatchesByStatus returns the user's match proposals in the given state.
func (s *SQLiteStorage) GetMatchesByStatus(ctx context.Context, userID string, status model.MatchProposalStatus) ([]model.ReceiptTransactionMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+matchColumns+`
		FROM receipt_transaction_matches
		WHERE user_id = ? AND status = ?
		ORDER BY created_at, id
	`, userID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []model.ReceiptTransactionMatch
	for rows.Next() {
		var m model.ReceiptTransactionMatch
		err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.ReceiptID,
			&m.TransactionID,
			&m.AmountScore,
			&m.DateScore,
			&m.VendorScore,
			&m.ConfidenceScore,
			&m.Status,
			&m.IsAmbiguous,
			&m.CreatedAt,
			&m.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// SaveMatchState persists a match proposal together with its receipt and
// transaction in one storage transaction, so the three status fields can
// never drift apart. Match rows are upserted, never deleted: resolved
// proposals stay behind as the audit trail.
func (s *SQLiteStorage) SaveMatchState(ctx context.Context, m *model.ReceiptTransactionMatch, receipt *model.Receipt, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMatch(m); err != nil {
		return err
	}
	if err := validateReceipt(receipt); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipt_transaction_matches (`+matchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			is_ambiguous = excluded.is_ambiguous,
			resolved_at = excluded.resolved_at
	`, m.ID, m.UserID, m.ReceiptID, m.TransactionID,
		m.AmountScore, m.DateScore, m.VendorScore, m.ConfidenceScore,
		m.Status, m.IsAmbiguous, m.CreatedAt, m.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to save match: %w", mapConstraintError(err))
	}

	if err := s.updateReceiptTx(ctx, tx, receipt); err != nil {
		return err
	}
	if err := s.updateTransactionTx(ctx, tx, txn); err != nil {
		return err
	}

	return tx.Commit()
}
