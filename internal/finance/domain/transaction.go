package domain

import (
	"context"
	"time"

	financeErrors "github.com/cashlytics/server/internal/finance/errors"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeCredit TransactionType = "credit"
	TypeDebit  TransactionType = "debit"
)

func (t TransactionType) IsValid() bool {
	return t == TypeCredit || t == TypeDebit
}

func IsValidTransactionType(transactionType string) bool {
	return TransactionType(transactionType).IsValid()
}

type TransactionRepository interface {
	Save(ctx context.Context, transaction Transaction) (*Transaction, error)
	FindByUser(ctx context.Context, userID string, offset, limit int) ([]Transaction, error)
	FindByID(ctx context.Context, userID, transactionID string) (*Transaction, error)
	Update(ctx context.Context, userID, transactionID string, changes TransactionUpdate) (*Transaction, error)
	Delete(ctx context.Context, userID, transactionID string) (bool, error)
	FindByUserInDateRange(ctx context.Context, userID string, startDate, endDate time.Time) ([]Transaction, error)
}

type Transaction struct {
	ID          string
	UserID      string // user UUID
	Amount      decimal.Decimal
	Type        TransactionType
	Category    string
	Description string
	Date        time.Time // calendar date, time component always midnight UTC
	CreatedAt   time.Time
}

func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return financeErrors.NewValidationError("Amount must be greater than zero")
	}
	if !t.Type.IsValid() {
		return financeErrors.NewValidationError("Type must be 'credit' or 'debit'")
	}
	if t.Category == "" {
		return financeErrors.NewValidationError("Category must not be empty")
	}
	if len(t.Category) > 100 {
		return financeErrors.NewValidationError("Category must be of length less than 100")
	}
	if len(t.Description) > 500 {
		return financeErrors.NewValidationError("Description must be of length less than 500")
	}
	if t.Date.IsZero() {
		return financeErrors.NewValidationError("Date must be provided")
	}
	return nil
}

// TransactionUpdate carries a partial update. A nil field means "not supplied"
// and leaves the stored value untouched; there is no way to clear a field.
type TransactionUpdate struct {
	Amount      *decimal.Decimal
	Type        *TransactionType
	Category    *string
	Description *string
	Date        *time.Time
}

func (u TransactionUpdate) IsEmpty() bool {
	return u.Amount == nil && u.Type == nil && u.Category == nil && u.Description == nil && u.Date == nil
}

func (u TransactionUpdate) Validate() error {
	if u.Amount != nil && !u.Amount.IsPositive() {
		return financeErrors.NewValidationError("Amount must be greater than zero")
	}
	if u.Type != nil && !u.Type.IsValid() {
		return financeErrors.NewValidationError("Type must be 'credit' or 'debit'")
	}
	if u.Category != nil {
		if *u.Category == "" {
			return financeErrors.NewValidationError("Category must not be empty")
		}
		if len(*u.Category) > 100 {
			return financeErrors.NewValidationError("Category must be of length less than 100")
		}
	}
	if u.Description != nil && len(*u.Description) > 500 {
		return financeErrors.NewValidationError("Description must be of length less than 500")
	}
	return nil
}

// NormalizeDate strips any time component so the transaction date is a pure
// calendar date regardless of what the caller supplied.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
