// Package storage provides the data persistence layer for the matchflow engine.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matchflow/matchflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrEmptySlice       = errors.New("slice cannot be empty")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidReceipt   = errors.New("invalid receipt")
	ErrInvalidTxn       = errors.New("invalid transaction")
	ErrInvalidMatch     = errors.New("invalid match proposal")
	ErrInvalidPattern   = errors.New("invalid expense pattern")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateReceipt validates a receipt.
func validateReceipt(receipt *model.Receipt) error {
	if receipt == nil {
		return fmt.Errorf("%w: receipt", ErrNilParameter)
	}
	if receipt.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidReceipt)
	}
	if receipt.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidReceipt)
	}
	if receipt.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidReceipt)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTxn)
	}
	if txn.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidTxn)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTxn)
	}
	if txn.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTxn)
	}
	return nil
}

// validateMatch validates a match proposal.
func validateMatch(m *model.ReceiptTransactionMatch) error {
	if m == nil {
		return fmt.Errorf("%w: match", ErrNilParameter)
	}
	if m.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidMatch)
	}
	if m.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidMatch)
	}
	if m.ReceiptID == "" || m.TransactionID == "" {
		return fmt.Errorf("%w: missing receipt or transaction reference", ErrInvalidMatch)
	}
	if m.ConfidenceScore < 0 || m.ConfidenceScore > 100 {
		return fmt.Errorf("%w: confidence score must be between 0 and 100", ErrInvalidMatch)
	}
	return nil
}

// validatePattern validates an expense pattern.
func validatePattern(pattern *model.ExpensePattern) error {
	if pattern == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if pattern.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidPattern)
	}
	if pattern.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidPattern)
	}
	if pattern.VendorKey == "" {
		return fmt.Errorf("%w: missing vendor key", ErrInvalidPattern)
	}
	if pattern.OccurrenceCount < 0 || pattern.ConfirmCount < 0 || pattern.RejectCount < 0 {
		return fmt.Errorf("%w: counts cannot be negative", ErrInvalidPattern)
	}
	return nil
}
