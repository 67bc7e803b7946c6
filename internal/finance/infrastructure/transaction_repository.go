package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cashlytics/server/internal/finance/domain"
	financeErrors "github.com/cashlytics/server/internal/finance/errors"
)

const transactionColumns = "id, user_id, amount, type, category, description, date, created_at"

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row interface{ Scan(dest ...any) error }) (*domain.Transaction, error) {
	var transaction domain.Transaction
	var description sql.NullString
	if err := row.Scan(&transaction.ID, &transaction.UserID, &transaction.Amount, &transaction.Type,
		&transaction.Category, &description, &transaction.Date, &transaction.CreatedAt); err != nil {
		return nil, err
	}
	transaction.Description = description.String
	transaction.Date = domain.NormalizeDate(transaction.Date)
	return &transaction, nil
}

func nullableDescription(description string) sql.NullString {
	return sql.NullString{String: description, Valid: description != ""}
}

func (r *TransactionRepository) Save(ctx context.Context, transaction domain.Transaction) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO transactions (id, user_id, amount, type, category, description, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+transactionColumns,
		transaction.ID, transaction.UserID, transaction.Amount, transaction.Type,
		transaction.Category, nullableDescription(transaction.Description), transaction.Date,
	)
	return scanTransaction(row)
}

func (r *TransactionRepository) FindByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = $1
		 ORDER BY date DESC, created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *TransactionRepository) FindByID(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2`,
		transactionID, userID,
	)
	transaction, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.ErrTransactionNotFound
	}
	return transaction, err
}

func (r *TransactionRepository) Update(ctx context.Context, userID, transactionID string, changes domain.TransactionUpdate) (*domain.Transaction, error) {
	var assignments []string
	var args []any

	addAssignment := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if changes.Amount != nil {
		addAssignment("amount", *changes.Amount)
	}
	if changes.Type != nil {
		addAssignment("type", *changes.Type)
	}
	if changes.Category != nil {
		addAssignment("category", *changes.Category)
	}
	if changes.Description != nil {
		addAssignment("description", *changes.Description)
	}
	if changes.Date != nil {
		addAssignment("date", *changes.Date)
	}
	if len(assignments) == 0 {
		return r.FindByID(ctx, userID, transactionID)
	}

	args = append(args, transactionID, userID)
	query := fmt.Sprintf(
		"UPDATE transactions SET %s WHERE id = $%d AND user_id = $%d RETURNING %s",
		strings.Join(assignments, ", "), len(args)-1, len(args), transactionColumns,
	)

	transaction, err := scanTransaction(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.ErrTransactionNotFound
	}
	return transaction, err
}

func (r *TransactionRepository) Delete(ctx context.Context, userID, transactionID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = $1 AND user_id = $2`,
		transactionID, userID,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *TransactionRepository) FindByUserInDateRange(ctx context.Context, userID string, startDate, endDate time.Time) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = $1 AND date >= $2 AND date <= $3
		 ORDER BY date`,
		userID, startDate, endDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *transaction)
	}
	return transactions, rows.Err()
}
