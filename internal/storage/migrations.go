package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: receipts, transactions, matches, reports, vendor aliases",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS receipts (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					vendor TEXT,
					date DATETIME NOT NULL,
					amount REAL NOT NULL,
					status TEXT NOT NULL DEFAULT 'UPLOADED',
					match_status TEXT NOT NULL DEFAULT 'UNMATCHED',
					matched_transaction_id TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_receipts_user ON receipts(user_id)`,
				`CREATE INDEX idx_receipts_match_status ON receipts(user_id, match_status)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					date DATETIME NOT NULL,
					amount REAL NOT NULL,
					description TEXT NOT NULL,
					normalized_description TEXT,
					match_status TEXT NOT NULL DEFAULT 'UNMATCHED',
					matched_receipt_id TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_user_date ON transactions(user_id, date)`,
				`CREATE INDEX idx_transactions_match_status ON transactions(user_id, match_status)`,

				`CREATE TABLE IF NOT EXISTS receipt_transaction_matches (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					receipt_id TEXT NOT NULL,
					transaction_id TEXT NOT NULL,
					amount_score INTEGER NOT NULL DEFAULT 0,
					date_score INTEGER NOT NULL DEFAULT 0,
					vendor_score INTEGER NOT NULL DEFAULT 0,
					confidence_score INTEGER NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'PROPOSED',
					is_ambiguous BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					resolved_at DATETIME,
					FOREIGN KEY (receipt_id) REFERENCES receipts(id),
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,
				`CREATE INDEX idx_matches_user_status ON receipt_transaction_matches(user_id, status)`,
				`CREATE INDEX idx_matches_receipt ON receipt_transaction_matches(receipt_id)`,

				`CREATE TABLE IF NOT EXISTS expense_reports (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'DRAFT',
					report_date DATETIME NOT NULL,
					is_deleted BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_reports_user ON expense_reports(user_id, is_deleted)`,

				`CREATE TABLE IF NOT EXISTS expense_report_lines (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					report_id TEXT NOT NULL,
					vendor TEXT NOT NULL,
					amount REAL NOT NULL,
					date DATETIME NOT NULL,
					FOREIGN KEY (report_id) REFERENCES expense_reports(id)
				)`,
				`CREATE INDEX idx_report_lines_report ON expense_report_lines(report_id)`,

				`CREATE TABLE IF NOT EXISTS vendor_aliases (
					pattern TEXT PRIMARY KEY,
					canonical_name TEXT NOT NULL,
					category TEXT NOT NULL DEFAULT ''
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add expense patterns and transaction predictions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS expense_patterns (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					vendor_key TEXT NOT NULL,
					occurrence_count INTEGER NOT NULL DEFAULT 0,
					confirm_count INTEGER NOT NULL DEFAULT 0,
					reject_count INTEGER NOT NULL DEFAULT 0,
					average_amount REAL NOT NULL DEFAULT 0,
					decayed_average_amount REAL NOT NULL DEFAULT 0,
					min_amount REAL NOT NULL DEFAULT 0,
					max_amount REAL NOT NULL DEFAULT 0,
					first_seen DATETIME NOT NULL,
					last_seen DATETIME NOT NULL,
					UNIQUE(user_id, vendor_key)
				)`,
				`CREATE INDEX idx_patterns_user ON expense_patterns(user_id)`,

				`CREATE TABLE IF NOT EXISTS transaction_predictions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					transaction_id TEXT NOT NULL UNIQUE,
					pattern_id TEXT,
					confidence REAL NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'PENDING',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,
				`CREATE INDEX idx_predictions_user ON transaction_predictions(user_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add pattern suppression and personal prediction flags",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE expense_patterns ADD COLUMN is_suppressed BOOLEAN NOT NULL DEFAULT 0`,
				`ALTER TABLE transaction_predictions ADD COLUMN is_personal_prediction BOOLEAN NOT NULL DEFAULT 0`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
