package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
)

const patternColumns = `id, user_id, vendor_key, occurrence_count, confirm_count, reject_count, average_amount, decayed_average_amount, min_amount, max_amount, first_seen, last_seen, is_suppressed`

// GetPattern retrieves the user's pattern for a vendor key.
func (s *SQLiteStorage) GetPattern(ctx context.Context, userID, vendorKey string) (*model.ExpensePattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(vendorKey, "vendorKey"); err != nil {
		return nil, err
	}

	var pattern model.ExpensePattern
	err := s.db.QueryRowContext(ctx, `
		SELECT `+patternColumns+`
		FROM expense_patterns
		WHERE user_id = ? AND vendor_key = ?
	`, userID, vendorKey).Scan(
		&pattern.ID,
		&pattern.UserID,
		&pattern.VendorKey,
		&pattern.OccurrenceCount,
		&pattern.ConfirmCount,
		&pattern.RejectCount,
		&pattern.AverageAmount,
		&pattern.DecayedAverageAmount,
		&pattern.MinAmount,
		&pattern.MaxAmount,
		&pattern.FirstSeen,
		&pattern.LastSeen,
		&pattern.IsSuppressed,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: pattern for vendor %q", common.ErrNotFound, vendorKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}

	return &pattern, nil
}

// ListPatterns returns all of the user's patterns ordered by vendor key.
func (s *SQLiteStorage) ListPatterns(ctx context.Context, userID string) ([]model.ExpensePattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+patternColumns+`
		FROM expense_patterns
		WHERE user_id = ?
		ORDER BY vendor_key
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.ExpensePattern
	for rows.Next() {
		var pattern model.ExpensePattern
		err := rows.Scan(
			&pattern.ID,
			&pattern.UserID,
			&pattern.VendorKey,
			&pattern.OccurrenceCount,
			&pattern.ConfirmCount,
			&pattern.RejectCount,
			&pattern.AverageAmount,
			&pattern.DecayedAverageAmount,
			&pattern.MinAmount,
			&pattern.MaxAmount,
			&pattern.FirstSeen,
			&pattern.LastSeen,
			&pattern.IsSuppressed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		patterns = append(patterns, pattern)
	}

	return patterns, rows.Err()
}

// CreatePattern inserts a new pattern. A concurrent insert for the same
// user and vendor key surfaces as common.ErrAlreadyExists via the unique
// constraint, not as a raw driver error.
func (s *SQLiteStorage) CreatePattern(ctx context.Context, pattern *model.ExpensePattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expense_patterns (`+patternColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, pattern.ID, pattern.UserID, pattern.VendorKey,
		pattern.OccurrenceCount, pattern.ConfirmCount, pattern.RejectCount,
		pattern.AverageAmount, pattern.DecayedAverageAmount,
		pattern.MinAmount, pattern.MaxAmount,
		pattern.FirstSeen, pattern.LastSeen, pattern.IsSuppressed)
	if err != nil {
		return fmt.Errorf("failed to create pattern: %w", mapConstraintError(err))
	}

	return nil
}

// UpdatePattern updates an existing pattern's statistics.
func (s *SQLiteStorage) UpdatePattern(ctx context.Context, pattern *model.ExpensePattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE expense_patterns SET
			occurrence_count = ?, confirm_count = ?, reject_count = ?,
			average_amount = ?, decayed_average_amount = ?,
			min_amount = ?, max_amount = ?,
			last_seen = ?, is_suppressed = ?
		WHERE id = ? AND user_id = ?
	`, pattern.OccurrenceCount, pattern.ConfirmCount, pattern.RejectCount,
		pattern.AverageAmount, pattern.DecayedAverageAmount,
		pattern.MinAmount, pattern.MaxAmount,
		pattern.LastSeen, pattern.IsSuppressed,
		pattern.ID, pattern.UserID)
	if err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: pattern %s", common.ErrNotFound, pattern.ID)
	}

	return nil
}

// DeletePatternsForUser removes every pattern of the user. Only the full
// rebuild path uses this.
func (s *SQLiteStorage) DeletePatternsForUser(ctx context.Context, userID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM expense_patterns WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete patterns: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}
