package infrastructure

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	database "github.com/cashlytics/server/internal/db"
	"github.com/cashlytics/server/internal/finance/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func setupTestDatabase(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("cashlytics_test"),
		postgres.WithUsername("cashlytics"),
		postgres.WithPassword("cashlytics"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", connString)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(db))
	return db
}

func createTestUser(t *testing.T, db *sql.DB) string {
	t.Helper()
	userID := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO users (id, email, password_hash, email_confirmed) VALUES ($1, $2, $3, true)`,
		userID, userID+"@example.com", "not-a-real-hash",
	)
	require.NoError(t, err)
	return userID
}

func newTestTransaction(userID string, date time.Time) domain.Transaction {
	return domain.Transaction{
		UserID:   userID,
		Amount:   decimal.RequireFromString("100.50"),
		Type:     domain.TypeCredit,
		Category: "salary",
		Date:     date,
	}
}

func TestTransactionRepository_SaveAndFindByID(t *testing.T) {
	db := setupTestDatabase(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()
	userID := createTestUser(t, db)

	transaction := newTestTransaction(userID, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
	transaction.ID = uuid.NewString()
	transaction.Description = "June salary"

	saved, err := repo.Save(ctx, transaction)
	require.NoError(t, err)
	assert.Equal(t, transaction.ID, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	found, err := repo.FindByID(ctx, userID, transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, found.UserID)
	assert.True(t, found.Amount.Equal(decimal.RequireFromString("100.50")))
	assert.Equal(t, domain.TypeCredit, found.Type)
	assert.Equal(t, "June salary", found.Description)
	assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), found.Date)
}

func TestTransactionRepository_NullDescription(t *testing.T) {
	db := setupTestDatabase(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()
	userID := createTestUser(t, db)

	transaction := newTestTransaction(userID, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
	transaction.ID = uuid.NewString()

	_, err := repo.Save(ctx, transaction)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, userID, transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, "", found.Description)
}

func TestTransactionRepository_FindByUserOrderingAndPagination(t *testing.T) {
	db := setupTestDatabase(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()
	userID := createTestUser(t, db)

	dates := []time.Time{
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
	}
	for _, date := range dates {
		transaction := newTestTransaction(userID, date)
		transaction.ID = uuid.NewString()
		_, err := repo.Save(ctx, transaction)
		require.NoError(t, err)
	}

	transactions, err := repo.FindByUser(ctx, userID, 0, 10)
	require.NoError(t, err)
	require.Len(t, transactions, 3)
	assert.Equal(t, time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC), transactions[0].Date)
	assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), transactions[1].Date)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), transactions[2].Date)

	page, err := repo.FindByUser(ctx, userID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), page[0].Date)
}

func TestTransactionRepository_UpdatePartial(t *testing.T) {
	db := setupTestDatabase(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()
	userID := createTestUser(t, db)

	transaction := newTestTransaction(userID, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
	transaction.ID = uuid.NewString()
	transaction.Description = "before"
	_, err := repo.Save(ctx, transaction)
	require.NoError(t, err)

	newAmount := decimal.RequireFromString("75.25")
	updated, err := repo.Update(ctx, userID, transaction.ID, domain.TransactionUpdate{Amount: &newAmount})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(newAmount))
	assert.Equal(t, "before", updated.Description)
	assert.Equal(t, domain.TypeCredit, updated.Type)

	empty, err := repo.Update(ctx, userID, transaction.ID, domain.TransactionUpdate{})
	require.NoError(t, err)
	assert.True(t, empty.Amount.Equal(newAmount))
}

func TestTransactionRepository_DeleteAndOwnership(t *testing.T) {
	db := setupTestDatabase(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()
	owner := createTestUser(t, db)
	other := createTestUser(t, db)

	transaction := newTestTransaction(owner, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
	transaction.ID = uuid.NewString()
	_, err := repo.Save(ctx, transaction)
	require.NoError(t, err)

	_, err = repo.FindByID(ctx, other, transaction.ID)
	assert.Error(t, err)

	deleted, err := repo.Delete(ctx, other, transaction.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.Delete(ctx, owner, transaction.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, owner, transaction.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTransactionRepository_FindByUserInDateRange(t *testing.T) {
	db := setupTestDatabase(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()
	userID := createTestUser(t, db)

	for _, date := range []time.Time{
		time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC),  // before window
		time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),  // Monday
		time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC),  // Sunday
		time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), // after window
	} {
		transaction := newTestTransaction(userID, date)
		transaction.ID = uuid.NewString()
		_, err := repo.Save(ctx, transaction)
		require.NoError(t, err)
	}

	transactions, err := repo.FindByUserInDateRange(ctx, userID,
		time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), transactions[0].Date)
	assert.Equal(t, time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC), transactions[1].Date)
}
