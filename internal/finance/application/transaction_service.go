package application

import (
	"context"

	"github.com/cashlytics/server/internal/finance/domain"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// TransactionService is the transaction access layer: every operation is scoped
// to the requesting user's identifier, so a row owned by someone else behaves
// exactly like a row that does not exist.
type TransactionService struct {
	repo domain.TransactionRepository
}

func NewTransactionService(repo domain.TransactionRepository) *TransactionService {
	return &TransactionService{repo: repo}
}

func (s *TransactionService) CreateTransaction(ctx context.Context, transaction *domain.Transaction) error {
	transaction.ID = uuid.NewString()
	transaction.Date = domain.NormalizeDate(transaction.Date)
	if err := transaction.Validate(); err != nil {
		return err
	}
	saved, err := s.repo.Save(ctx, *transaction)
	if err != nil {
		return err
	}
	*transaction = *saved
	return nil
}

func (s *TransactionService) GetUserTransactions(ctx context.Context, userID string, skip, limit int) ([]domain.Transaction, error) {
	transactions, err := s.repo.FindByUser(ctx, userID, skip, limit)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		return []domain.Transaction{}, nil
	}
	return transactions, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	return s.repo.FindByID(ctx, userID, transactionID)
}

// UpdateTransaction applies the supplied fields only. An empty change set
// degenerates to a read of the current record.
func (s *TransactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, changes domain.TransactionUpdate) (*domain.Transaction, error) {
	if err := changes.Validate(); err != nil {
		return nil, err
	}
	if changes.IsEmpty() {
		return s.repo.FindByID(ctx, userID, transactionID)
	}
	if changes.Date != nil {
		normalized := domain.NormalizeDate(*changes.Date)
		changes.Date = &normalized
	}
	return s.repo.Update(ctx, userID, transactionID, changes)
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) (bool, error) {
	return s.repo.Delete(ctx, userID, transactionID)
}
