package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
	"github.com/matchflow/matchflow/internal/service"
)

// SaveReport inserts or updates an expense report together with its lines.
// Lines are replaced wholesale; they have no identity outside their report.
func (s *SQLiteStorage) SaveReport(ctx context.Context, report *model.ExpenseReport) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("%w: report", ErrNilParameter)
	}
	if err := validateString(report.ID, "id"); err != nil {
		return err
	}
	if err := validateString(report.UserID, "userID"); err != nil {
		return err
	}

	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expense_reports (id, user_id, report_date, status, is_deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			report_date = excluded.report_date,
			status = excluded.status,
			is_deleted = excluded.is_deleted
	`, report.ID, report.UserID, report.ReportDate, report.Status, report.IsDeleted, report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", mapConstraintError(err))
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM expense_report_lines WHERE report_id = ?`, report.ID)
	if err != nil {
		return fmt.Errorf("failed to clear report lines: %w", err)
	}

	for i := range report.Lines {
		line := &report.Lines[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO expense_report_lines (report_id, date, vendor, amount)
			VALUES (?, ?, ?, ?)
		`, report.ID, line.Date, line.Vendor, line.Amount)
		if err != nil {
			return fmt.Errorf("failed to save report line: %w", err)
		}
	}

	return tx.Commit()
}

// GetReportByID retrieves a report with its lines, scoped to the given user.
func (s *SQLiteStorage) GetReportByID(ctx context.Context, userID, id string) (*model.ExpenseReport, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var report model.ExpenseReport
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, report_date, status, is_deleted, created_at
		FROM expense_reports
		WHERE id = ? AND user_id = ?
	`, id, userID).Scan(
		&report.ID,
		&report.UserID,
		&report.ReportDate,
		&report.Status,
		&report.IsDeleted,
		&report.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: report %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	report.Lines, err = s.getReportLines(ctx, report.ID)
	if err != nil {
		return nil, err
	}

	return &report, nil
}

// GetReports returns the user's reports matching the filter, oldest first so
// the learner replays history in order. Lines are loaded for every report.
func (s *SQLiteStorage) GetReports(ctx context.Context, userID string, filter service.ReportFilter) ([]model.ExpenseReport, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, report_date, status, is_deleted, created_at
		FROM expense_reports
		WHERE user_id = ?
		ORDER BY report_date, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []model.ExpenseReport
	for rows.Next() {
		var report model.ExpenseReport
		err := rows.Scan(
			&report.ID,
			&report.UserID,
			&report.ReportDate,
			&report.Status,
			&report.IsDeleted,
			&report.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		if !filter.Matches(&report) {
			continue
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range reports {
		reports[i].Lines, err = s.getReportLines(ctx, reports[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return reports, nil
}

func (s *SQLiteStorage) getReportLines(ctx context.Context, reportID string) ([]model.ReportLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, vendor, amount
		FROM expense_report_lines
		WHERE report_id = ?
		ORDER BY id
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query report lines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lines []model.ReportLine
	for rows.Next() {
		var line model.ReportLine
		if err := rows.Scan(&line.Date, &line.Vendor, &line.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan report line: %w", err)
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}
