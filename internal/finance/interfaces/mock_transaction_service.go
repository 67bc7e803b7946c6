package interfaces

import (
	"context"
	"time"

	"github.com/cashlytics/server/internal/finance/application"
	"github.com/cashlytics/server/internal/finance/domain"
)

type MockTransactionService struct {
	CreateFunc func(ctx context.Context, transaction *domain.Transaction) error
	ListFunc   func(ctx context.Context, userID string, skip, limit int) ([]domain.Transaction, error)
	GetFunc    func(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)
	UpdateFunc func(ctx context.Context, userID, transactionID string, changes domain.TransactionUpdate) (*domain.Transaction, error)
	DeleteFunc func(ctx context.Context, userID, transactionID string) (bool, error)
}

func (m *MockTransactionService) CreateTransaction(ctx context.Context, transaction *domain.Transaction) error {
	return m.CreateFunc(ctx, transaction)
}

func (m *MockTransactionService) GetUserTransactions(ctx context.Context, userID string, skip, limit int) ([]domain.Transaction, error) {
	return m.ListFunc(ctx, userID, skip, limit)
}

func (m *MockTransactionService) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	return m.GetFunc(ctx, userID, transactionID)
}

func (m *MockTransactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, changes domain.TransactionUpdate) (*domain.Transaction, error) {
	return m.UpdateFunc(ctx, userID, transactionID, changes)
}

func (m *MockTransactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) (bool, error) {
	return m.DeleteFunc(ctx, userID, transactionID)
}

type MockReportService struct {
	WeeklyReportFunc func(ctx context.Context, userID string, referenceDate *time.Time) (*application.WeeklyReport, error)
}

func (m *MockReportService) WeeklyReport(ctx context.Context, userID string, referenceDate *time.Time) (*application.WeeklyReport, error) {
	return m.WeeklyReportFunc(ctx, userID, referenceDate)
}
