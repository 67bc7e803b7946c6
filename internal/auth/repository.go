package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type User struct {
	ID             string
	Email          string
	PasswordHash   string
	EmailConfirmed bool
	CreatedAt      time.Time
}

type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, userID string) (*User, error)
	ConfirmEmail(ctx context.Context, userID string) error
	SaveConfirmationCode(ctx context.Context, userID, code string, expiresAt time.Time) error
	GetConfirmationCode(ctx context.Context, userID string) (string, time.Time, error)
	DeleteConfirmationCode(ctx context.Context, userID string) error
	DeleteExpiredConfirmationCodes(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, email_confirmed) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Email, user.PasswordHash, user.EmailConfirmed,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrEmailAlreadyRegistered
	}
	return err
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, email_confirmed, created_at FROM users WHERE email = $1`,
		email,
	))
}

func (r *userRepository) GetUserByID(ctx context.Context, userID string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, email_confirmed, created_at FROM users WHERE id = $1`,
		userID,
	))
}

func (r *userRepository) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.EmailConfirmed, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ConfirmEmail(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_confirmed = TRUE WHERE id = $1`,
		userID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SaveConfirmationCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_confirmation_codes (user_id, code, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at, created_at = now()`,
		userID, code, expiresAt,
	)
	return err
}

func (r *userRepository) GetConfirmationCode(ctx context.Context, userID string) (string, time.Time, error) {
	var code string
	var expiresAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT code, expires_at FROM email_confirmation_codes WHERE user_id = $1`,
		userID,
	).Scan(&code, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, ErrInvalidVerificationCode
	}
	if err != nil {
		return "", time.Time{}, err
	}
	return code, expiresAt, nil
}

func (r *userRepository) DeleteConfirmationCode(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM email_confirmation_codes WHERE user_id = $1`,
		userID,
	)
	return err
}

func (r *userRepository) DeleteExpiredConfirmationCodes(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM email_confirmation_codes WHERE expires_at < now()`,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
