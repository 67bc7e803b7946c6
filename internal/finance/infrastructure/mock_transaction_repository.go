package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cashlytics/server/internal/finance/domain"
	financeErrors "github.com/cashlytics/server/internal/finance/errors"
)

// MockTransactionRepository is an in-memory TransactionRepository with the same
// filtering semantics as the Postgres implementation. Used by service tests.
type MockTransactionRepository struct {
	mu           sync.Mutex
	Transactions []domain.Transaction
	Err          error // when set, every operation fails with it
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{}
}

func (m *MockTransactionRepository) Save(_ context.Context, transaction domain.Transaction) (*domain.Transaction, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	transaction.CreatedAt = time.Now().UTC()
	m.Transactions = append(m.Transactions, transaction)
	saved := transaction
	return &saved, nil
}

func (m *MockTransactionRepository) FindByUser(_ context.Context, userID string, offset, limit int) ([]domain.Transaction, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []domain.Transaction
	for _, transaction := range m.Transactions {
		if transaction.UserID == userID {
			matched = append(matched, transaction)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Date.After(matched[j].Date)
	})
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MockTransactionRepository) FindByID(_ context.Context, userID, transactionID string) (*domain.Transaction, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, transaction := range m.Transactions {
		if transaction.ID == transactionID && transaction.UserID == userID {
			found := transaction
			return &found, nil
		}
	}
	return nil, financeErrors.ErrTransactionNotFound
}

func (m *MockTransactionRepository) Update(ctx context.Context, userID, transactionID string, changes domain.TransactionUpdate) (*domain.Transaction, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if changes.IsEmpty() {
		return m.FindByID(ctx, userID, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, transaction := range m.Transactions {
		if transaction.ID != transactionID || transaction.UserID != userID {
			continue
		}
		if changes.Amount != nil {
			transaction.Amount = *changes.Amount
		}
		if changes.Type != nil {
			transaction.Type = *changes.Type
		}
		if changes.Category != nil {
			transaction.Category = *changes.Category
		}
		if changes.Description != nil {
			transaction.Description = *changes.Description
		}
		if changes.Date != nil {
			transaction.Date = *changes.Date
		}
		m.Transactions[i] = transaction
		updated := transaction
		return &updated, nil
	}
	return nil, financeErrors.ErrTransactionNotFound
}

func (m *MockTransactionRepository) Delete(_ context.Context, userID, transactionID string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, transaction := range m.Transactions {
		if transaction.ID == transactionID && transaction.UserID == userID {
			m.Transactions = append(m.Transactions[:i], m.Transactions[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MockTransactionRepository) FindByUserInDateRange(_ context.Context, userID string, startDate, endDate time.Time) ([]domain.Transaction, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []domain.Transaction
	for _, transaction := range m.Transactions {
		if transaction.UserID != userID {
			continue
		}
		if transaction.Date.Before(startDate) || transaction.Date.After(endDate) {
			continue
		}
		matched = append(matched, transaction)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Date.Before(matched[j].Date)
	})
	return matched, nil
}
