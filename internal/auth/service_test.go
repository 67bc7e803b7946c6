package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	emailService "github.com/cashlytics/server/internal/email"
)

type confirmationCode struct {
	code      string
	expiresAt time.Time
}

type mockUserRepository struct {
	usersByID    map[string]User
	usersByEmail map[string]string // email -> userID
	codes        map[string]confirmationCode
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		usersByID:    make(map[string]User),
		usersByEmail: make(map[string]string),
		codes:        make(map[string]confirmationCode),
	}
}

func (m *mockUserRepository) CreateUser(_ context.Context, user User) error {
	if _, exists := m.usersByEmail[user.Email]; exists {
		return ErrEmailAlreadyRegistered
	}
	user.CreatedAt = time.Now()
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	userID, exists := m.usersByEmail[email]
	if !exists {
		return nil, ErrUserNotFound
	}
	user := m.usersByID[userID]
	return &user, nil
}

func (m *mockUserRepository) GetUserByID(_ context.Context, userID string) (*User, error) {
	user, exists := m.usersByID[userID]
	if !exists {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (m *mockUserRepository) ConfirmEmail(_ context.Context, userID string) error {
	user, exists := m.usersByID[userID]
	if !exists {
		return ErrUserNotFound
	}
	user.EmailConfirmed = true
	m.usersByID[userID] = user
	return nil
}

func (m *mockUserRepository) SaveConfirmationCode(_ context.Context, userID, code string, expiresAt time.Time) error {
	m.codes[userID] = confirmationCode{code: code, expiresAt: expiresAt}
	return nil
}

func (m *mockUserRepository) GetConfirmationCode(_ context.Context, userID string) (string, time.Time, error) {
	stored, exists := m.codes[userID]
	if !exists {
		return "", time.Time{}, ErrInvalidVerificationCode
	}
	return stored.code, stored.expiresAt, nil
}

func (m *mockUserRepository) DeleteConfirmationCode(_ context.Context, userID string) error {
	delete(m.codes, userID)
	return nil
}

func (m *mockUserRepository) DeleteExpiredConfirmationCodes(_ context.Context) (int64, error) {
	var purged int64
	for userID, stored := range m.codes {
		if time.Now().After(stored.expiresAt) {
			delete(m.codes, userID)
			purged++
		}
	}
	return purged, nil
}

type capturingEmailSender struct {
	recipients []string
	payloads   []emailService.EmailData
}

func (c *capturingEmailSender) QueueEmail(to string, data emailService.EmailData) {
	c.recipients = append(c.recipients, to)
	c.payloads = append(c.payloads, data)
}

func newTestService(t *testing.T, repo UserRepository, sender emailService.EmailSender, confirmationRequired bool) Service {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	if sender == nil {
		sender = &capturingEmailSender{}
	}
	return NewAuthService(repo, NewJWTManager(), NewRevocationList(), sender, confirmationRequired)
}

func TestSignUp_RejectsInvalidInput(t *testing.T) {
	service := newTestService(t, newMockUserRepository(), nil, false)
	ctx := context.Background()

	_, err := service.SignUp(ctx, "not-an-email", "longenoughpassword")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = service.SignUp(ctx, "user@example.com", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestSignUp_IssuesTokenWhenConfirmationDisabled(t *testing.T) {
	repo := newMockUserRepository()
	service := newTestService(t, repo, nil, false)
	ctx := context.Background()

	credentials, err := service.SignUp(ctx, "user@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.False(t, credentials.Pending)
	assert.NotEmpty(t, credentials.AccessToken)
	assert.Equal(t, "user@example.com", credentials.Email)

	user, err := repo.GetUserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, user.EmailConfirmed)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse battery")))
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)

	identity, err := service.VerifyToken(ctx, credentials.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, credentials.UserID, identity.ID)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	service := newTestService(t, newMockUserRepository(), nil, false)
	ctx := context.Background()

	_, err := service.SignUp(ctx, "user@example.com", "longenoughpassword")
	require.NoError(t, err)

	_, err = service.SignUp(ctx, "user@example.com", "anotherpassword")
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
}

func TestSignIn(t *testing.T) {
	service := newTestService(t, newMockUserRepository(), nil, false)
	ctx := context.Background()

	_, err := service.SignUp(ctx, "user@example.com", "longenoughpassword")
	require.NoError(t, err)

	credentials, err := service.SignIn(ctx, "user@example.com", "longenoughpassword")
	require.NoError(t, err)
	assert.NotEmpty(t, credentials.AccessToken)

	_, err = service.SignIn(ctx, "user@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.SignIn(ctx, "nobody@example.com", "longenoughpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOut_RevokesToken(t *testing.T) {
	service := newTestService(t, newMockUserRepository(), nil, false)
	ctx := context.Background()

	first, err := service.SignUp(ctx, "user@example.com", "longenoughpassword")
	require.NoError(t, err)
	second, err := service.SignUp(ctx, "other@example.com", "longenoughpassword")
	require.NoError(t, err)

	service.SignOut(first.AccessToken)

	_, err = service.VerifyToken(ctx, first.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Tokens belonging to other sessions stay valid.
	_, err = service.VerifyToken(ctx, second.AccessToken)
	assert.NoError(t, err)

	// A token that never parsed is a no-op.
	service.SignOut("garbage")
}

func TestGenerateVerificationCode(t *testing.T) {
	code, err := GenerateVerificationCode()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), code)
}

func TestEmailConfirmationFlow(t *testing.T) {
	repo := newMockUserRepository()
	sender := &capturingEmailSender{}
	service := newTestService(t, repo, sender, true)
	ctx := context.Background()

	credentials, err := service.SignUp(ctx, "user@example.com", "longenoughpassword")
	require.NoError(t, err)
	assert.True(t, credentials.Pending)
	assert.Empty(t, credentials.AccessToken)

	require.Len(t, sender.recipients, 1)
	assert.Equal(t, "user@example.com", sender.recipients[0])
	data, ok := sender.payloads[0].(emailService.RegistrationConfirmationData)
	require.True(t, ok)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), data.Code)

	_, err = service.SignIn(ctx, "user@example.com", "longenoughpassword")
	assert.ErrorIs(t, err, ErrUserNotConfirmed)

	_, err = service.VerifyEmail(ctx, "user@example.com", "000000x")
	assert.ErrorIs(t, err, ErrInvalidVerificationCode)

	confirmed, err := service.VerifyEmail(ctx, "user@example.com", data.Code)
	require.NoError(t, err)
	assert.NotEmpty(t, confirmed.AccessToken)

	// The code is single use.
	_, err = service.VerifyEmail(ctx, "user@example.com", data.Code)
	assert.ErrorIs(t, err, ErrInvalidVerificationCode)

	_, err = service.SignIn(ctx, "user@example.com", "longenoughpassword")
	assert.NoError(t, err)
}

func TestVerifyEmail_ExpiredCode(t *testing.T) {
	repo := newMockUserRepository()
	sender := &capturingEmailSender{}
	service := newTestService(t, repo, sender, true)
	ctx := context.Background()

	credentials, err := service.SignUp(ctx, "user@example.com", "longenoughpassword")
	require.NoError(t, err)

	stored := repo.codes[credentials.UserID]
	stored.expiresAt = time.Now().Add(-time.Minute)
	repo.codes[credentials.UserID] = stored

	_, err = service.VerifyEmail(ctx, "user@example.com", stored.code)
	assert.ErrorIs(t, err, ErrVerificationCodeExpired)
}

func TestVerifyEmail_UnknownUser(t *testing.T) {
	service := newTestService(t, newMockUserRepository(), nil, true)

	_, err := service.VerifyEmail(context.Background(), "nobody@example.com", "123456")
	assert.ErrorIs(t, err, ErrInvalidVerificationCode)
}

func TestJWTAccessTokenMiddleware(t *testing.T) {
	service := newTestService(t, newMockUserRepository(), nil, false)
	ctx := context.Background()

	credentials, err := service.SignUp(ctx, "user@example.com", "longenoughpassword")
	require.NoError(t, err)

	var gotUserID, gotEmail string
	protected := service.JWTAccessTokenMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = r.Context().Value("userID").(string)
		gotEmail, _ = r.Context().Value("userEmail").(string)
		w.WriteHeader(http.StatusOK)
	}))

	request := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		return w
	}

	w := request("Bearer " + credentials.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, credentials.UserID, gotUserID)
	assert.Equal(t, "user@example.com", gotEmail)

	// Every failure mode produces the same response.
	revoked := credentials.AccessToken
	service.SignOut(revoked)

	for name, authorization := range map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic " + revoked,
		"garbage token":  "Bearer garbage",
		"revoked token":  "Bearer " + revoked,
	} {
		w := request(authorization)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)

		var response ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response), name)
		assert.Equal(t, "error", response.Status, name)
		assert.Equal(t, "Invalid or expired token", response.Message, name)
		assert.Equal(t, http.StatusUnauthorized, response.Code, name)
	}
}

func TestPurgeExpired(t *testing.T) {
	repo := newMockUserRepository()
	service := newTestService(t, repo, &capturingEmailSender{}, true)
	ctx := context.Background()

	credentials, err := service.SignUp(ctx, "user@example.com", "longenoughpassword")
	require.NoError(t, err)

	stored := repo.codes[credentials.UserID]
	stored.expiresAt = time.Now().Add(-time.Minute)
	repo.codes[credentials.UserID] = stored

	service.PurgeExpired(ctx)
	assert.Empty(t, repo.codes)
}
