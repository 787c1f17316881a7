// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/matchflow/matchflow/internal/model"
)

// ReportFilter selects which expense reports feed the pattern learner.
// Soft-deleted reports are excluded unless IncludeDeleted is set; an empty
// status list admits every lifecycle status.
type ReportFilter struct {
	Statuses       []model.ReportStatus
	IncludeDeleted bool
}

// Matches reports whether a report passes the filter.
func (f ReportFilter) Matches(report *model.ExpenseReport) bool {
	if report.IsDeleted && !f.IncludeDeleted {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if report.Status == s {
			return true
		}
	}
	return false
}

// Storage defines the contract for our persistence layer. Every read is
// scoped to a single user id; cross-user visibility is forbidden.
type Storage interface {
	// Receipt operations
	SaveReceipt(ctx context.Context, receipt *model.Receipt) error
	GetReceiptByID(ctx context.Context, userID, id string) (*model.Receipt, error)
	GetUnmatchedReceipts(ctx context.Context, userID string) ([]model.Receipt, error)

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionByID(ctx context.Context, userID, id string) (*model.Transaction, error)
	GetUnmatchedTransactions(ctx context.Context, userID string, start, end time.Time) ([]model.Transaction, error)
	GetTransactionsByIDs(ctx context.Context, userID string, ids []string) ([]model.Transaction, error)

	// Match proposal operations
	GetMatchByID(ctx context.Context, userID, id string) (*model.ReceiptTransactionMatch, error)
	GetMatchesByStatus(ctx context.Context, userID string, status model.MatchProposalStatus) ([]model.ReceiptTransactionMatch, error)
	// SaveMatchState persists a match proposal together with the updated
	// receipt and transaction in a single storage transaction, keeping the
	// three status fields synchronized.
	SaveMatchState(ctx context.Context, m *model.ReceiptTransactionMatch, receipt *model.Receipt, txn *model.Transaction) error

	// Expense pattern operations
	GetPattern(ctx context.Context, userID, vendorKey string) (*model.ExpensePattern, error)
	ListPatterns(ctx context.Context, userID string) ([]model.ExpensePattern, error)
	CreatePattern(ctx context.Context, pattern *model.ExpensePattern) error
	UpdatePattern(ctx context.Context, pattern *model.ExpensePattern) error
	DeletePatternsForUser(ctx context.Context, userID string) (int, error)

	// Prediction operations
	CreatePrediction(ctx context.Context, prediction *model.TransactionPrediction) error
	GetPredictionByTransaction(ctx context.Context, userID, transactionID string) (*model.TransactionPrediction, error)
	ListPredictions(ctx context.Context, userID string) ([]model.TransactionPrediction, error)

	// Expense report operations
	SaveReport(ctx context.Context, report *model.ExpenseReport) error
	GetReportByID(ctx context.Context, userID, id string) (*model.ExpenseReport, error)
	GetReports(ctx context.Context, userID string, filter ReportFilter) ([]model.ExpenseReport, error)

	// Vendor alias lookups (read-only dependency)
	GetVendorAlias(ctx context.Context, pattern string) (*model.VendorAlias, error)
	SaveVendorAlias(ctx context.Context, alias *model.VendorAlias) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// FeedbackRecorder receives user confirm/reject decisions so the pattern
// learner can fold them into per-vendor statistics.
type FeedbackRecorder interface {
	RecordConfirm(ctx context.Context, userID, vendorKey string) error
	RecordReject(ctx context.Context, userID, vendorKey string) error
}

// BatchResult reports the outcome of a batch operation. Items fail
// independently; one bad record never aborts the rest.
type BatchResult struct {
	Errors    map[string]error
	Succeeded int
}
