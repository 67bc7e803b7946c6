package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/badoux/checkmail"
	emailService "github.com/cashlytics/server/internal/email"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength       = 8
	confirmationCodeTimeout = 15 * time.Minute
)

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrEmailAlreadyRegistered  = errors.New("email already registered")
	ErrInvalidEmail            = errors.New("invalid email address")
	ErrPasswordTooShort        = errors.New("password must be at least 8 characters long")
	ErrUserNotConfirmed        = errors.New("user has not confirmed their email")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrVerificationCodeExpired = errors.New("verification code expired")
	ErrInternalError           = errors.New("internal server error")
)

// UserIdentity is what the gate hands to protected handlers: the caller's
// identifier and email, nothing more.
type UserIdentity struct {
	ID    string
	Email string
}

// Credentials is the outcome of signup, login, and email verification. Pending
// means the account exists but a confirmation email must be answered before a
// token is issued.
type Credentials struct {
	AccessToken string
	UserID      string
	Email       string
	Pending     bool
}

type Service interface {
	SignUp(ctx context.Context, email, password string) (*Credentials, error)
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
	SignOut(token string)
	VerifyEmail(ctx context.Context, email, code string) (*Credentials, error)
	VerifyToken(ctx context.Context, token string) (*UserIdentity, error)
	JWTAccessTokenMiddleware() func(http.Handler) http.Handler
	PurgeExpired(ctx context.Context)
}

type service struct {
	repo                 UserRepository
	jwtManager           JWTManagerInterface
	revoked              *RevocationList
	emailService         emailService.EmailSender
	confirmationRequired bool
}

func NewAuthService(repo UserRepository, jwtManager JWTManagerInterface, revoked *RevocationList, sender emailService.EmailSender, confirmationRequired bool) Service {
	return &service{
		repo:                 repo,
		jwtManager:           jwtManager,
		revoked:              revoked,
		emailService:         sender,
		confirmationRequired: confirmationRequired,
	}
}

func GenerateVerificationCode() (string, error) {
	code := make([]byte, 6)
	_, err := rand.Read(code)
	if err != nil {
		return "", fmt.Errorf("could not generate verification code: %v", err)
	}
	for i := range code {
		code[i] = '0' + (code[i] % 10)
	}

	return string(code), nil
}

func (s *service) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	if err := checkmail.ValidateFormat(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	user := User{
		ID:             uuid.NewString(),
		Email:          email,
		PasswordHash:   string(passwordHash),
		EmailConfirmed: !s.confirmationRequired,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if s.confirmationRequired {
		code, err := GenerateVerificationCode()
		if err != nil {
			return nil, err
		}
		if err := s.repo.SaveConfirmationCode(ctx, user.ID, code, time.Now().UTC().Add(confirmationCodeTimeout)); err != nil {
			return nil, err
		}
		s.emailService.QueueEmail(user.Email, emailService.RegistrationConfirmationData{
			Email: user.Email,
			Code:  code,
		})
		return &Credentials{UserID: user.ID, Email: user.Email, Pending: true}, nil
	}

	return s.issueCredentials(user)
}

func (s *service) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.EmailConfirmed {
		return nil, ErrUserNotConfirmed
	}

	return s.issueCredentials(*user)
}

// SignOut blacklists the presented token until it would have expired anyway.
// A token that does not parse has nothing to revoke, so sign-out never fails.
func (s *service) SignOut(token string) {
	claims, err := s.jwtManager.ParseAccessToken(token)
	if err != nil {
		return
	}
	s.revoked.Revoke(token, time.Unix(claims.ExpiresAt, 0))
}

func (s *service) VerifyEmail(ctx context.Context, email, code string) (*Credentials, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidVerificationCode
		}
		return nil, err
	}

	storedCode, expiresAt, err := s.repo.GetConfirmationCode(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if storedCode != code {
		return nil, ErrInvalidVerificationCode
	}
	if time.Now().After(expiresAt) {
		return nil, ErrVerificationCodeExpired
	}

	if err := s.repo.ConfirmEmail(ctx, user.ID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteConfirmationCode(ctx, user.ID); err != nil {
		return nil, err
	}

	return s.issueCredentials(*user)
}

// VerifyToken is the gate's core: bearer token in, identity out. Every failure
// mode (malformed, bad signature, expired, revoked, unknown user, store error)
// is equivalent to the caller.
func (s *service) VerifyToken(ctx context.Context, token string) (*UserIdentity, error) {
	if s.revoked.IsRevoked(token) {
		return nil, ErrInvalidCredentials
	}
	userID, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return &UserIdentity{ID: user.ID, Email: user.Email}, nil
}

// PurgeExpired drops expired confirmation codes and revocation entries.
// Wired to the process scheduler.
func (s *service) PurgeExpired(ctx context.Context) {
	purgedTokens := s.revoked.PurgeExpired()
	purgedCodes, err := s.repo.DeleteExpiredConfirmationCodes(ctx)
	if err != nil {
		log.Printf("Error purging expired confirmation codes: %v", err)
		return
	}
	if purgedTokens > 0 || purgedCodes > 0 {
		log.Printf("Purged %d revoked tokens and %d confirmation codes", purgedTokens, purgedCodes)
	}
}

func (s *service) issueCredentials(user User) (*Credentials, error) {
	accessToken, err := s.jwtManager.GenerateAccessJWT(user.ID, defaultJWTDuration)
	if err != nil {
		return nil, ErrInternalError
	}
	return &Credentials{
		AccessToken: accessToken,
		UserID:      user.ID,
		Email:       user.Email,
	}, nil
}
