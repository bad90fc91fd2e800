package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01Justinnguyen/chirper-api/internal/logging"
	"github.com/01Justinnguyen/chirper-api/internal/user"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*user.User)}
}

func (s *fakeUserStore) Create(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return user.ErrDuplicateEmail
		}
		if existing.Username == u.Username {
			return user.ErrDuplicateUsername
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.Verify = user.Verified
	u.EmailVerifyToken = ""
	return nil
}

func (s *fakeUserStore) SetEmailVerifyToken(ctx context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.EmailVerifyToken = token
	return nil
}

func (s *fakeUserStore) SetForgotPasswordToken(ctx context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.ForgotPasswordToken = token
	return nil
}

func (s *fakeUserStore) ResetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ForgotPasswordToken = ""
	return nil
}

func (s *fakeUserStore) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// fakeTokenRepo is an in-memory RefreshTokenRepository.
type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]uuid.UUID)}
}

func (r *fakeTokenRepo) Store(ctx context.Context, userID uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = userID
	return nil
}

func (r *fakeTokenRepo) Exists(ctx context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tokens[token]
	return ok, nil
}

func (r *fakeTokenRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token]; !ok {
		return ErrRefreshTokenNotFound
	}
	delete(r.tokens, token)
	return nil
}

func (r *fakeTokenRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, owner := range r.tokens {
		if owner == userID {
			delete(r.tokens, token)
		}
	}
	return nil
}

func (r *fakeTokenRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// fakeEmailService records sends; the service dispatches them from goroutines.
type fakeEmailService struct {
	mu            sync.Mutex
	verifications []string
	resets        []string
}

func (f *fakeEmailService) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifications = append(f.verifications, toEmail)
	return nil
}

func (f *fakeEmailService) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, toEmail)
	return nil
}

func (f *fakeEmailService) verificationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.verifications)
}

func (f *fakeEmailService) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resets)
}

type serviceFixture struct {
	service *Service
	users   *fakeUserStore
	tokens  *fakeTokenRepo
	email   *fakeEmailService
	codec   TokenCodec
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	users := newFakeUserStore()
	tokens := newFakeTokenRepo()
	email := &fakeEmailService{}
	codec := testJWTCodec(t)
	svc := NewService(users, tokens, codec, email, logging.NewLogger(true))
	return &serviceFixture{service: svc, users: users, tokens: tokens, email: email, codec: codec}
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		Email:           email,
		Password:        "password123",
		ConfirmPassword: "password123",
		Name:            "Test User",
	}
}

func TestService_Register(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	pair, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	// Both tokens carry the unverified snapshot
	claims, err := f.codec.Verify(pair.AccessToken, PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.Unverified, claims.Verify)

	// The refresh token is on record
	exists, err := f.tokens.Exists(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, exists)

	// The account exists with a default username and a stored verify token
	u, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.Unverified, u.Verify)
	assert.Equal(t, user.DefaultUsername(u.ID), u.Username)
	assert.NotEmpty(t, u.EmailVerifyToken)
	assert.NotEqual(t, "password123", u.PasswordHash)

	// The verification email is dispatched asynchronously
	assert.Eventually(t, func() bool { return f.email.verificationCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)

	_, err = f.service.Register(ctx, registerInput("alice@example.com"))
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestService_Register_Validation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"missing email", RegisterInput{Password: "password123", ConfirmPassword: "password123"}, ErrEmailRequired},
		{"bad email", RegisterInput{Email: "not-an-email", Password: "password123", ConfirmPassword: "password123"}, ErrInvalidEmailFormat},
		{"missing password", RegisterInput{Email: "a@b.com"}, ErrPasswordRequired},
		{"short password", RegisterInput{Email: "a@b.com", Password: "short", ConfirmPassword: "short"}, ErrPasswordTooShort},
		{"mismatched confirm", RegisterInput{Email: "a@b.com", Password: "password123", ConfirmPassword: "password124"}, ErrPasswordMismatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Register(ctx, tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestService_Login(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)

	// Unverified users may log in
	pair, err := f.service.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	claims, err := f.codec.Verify(pair.AccessToken, PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.Unverified, claims.Verify)

	exists, err := f.tokens.Exists(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = f.service.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.service.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Login_Banned(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)

	u, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	f.users.mu.Lock()
	f.users.users[u.ID].Verify = user.Banned
	f.users.mu.Unlock()

	_, err = f.service.Login(ctx, "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrUserBanned)
}

func TestService_RefreshTokens_RotationOnce(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	pair, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)

	claims, err := f.codec.Verify(pair.RefreshToken, PurposeRefresh)
	require.NoError(t, err)

	// Let the clock tick so the replacement token is a distinct string
	time.Sleep(1100 * time.Millisecond)

	// First rotation wins
	next, err := f.service.RefreshTokens(ctx, pair.RefreshToken, claims)
	require.NoError(t, err)
	require.NotEmpty(t, next.RefreshToken)

	// Second rotation with the same string fails
	_, err = f.service.RefreshTokens(ctx, pair.RefreshToken, claims)
	assert.ErrorIs(t, err, ErrRefreshTokenReused)

	// The replacement token still works
	nextClaims, err := f.codec.Verify(next.RefreshToken, PurposeRefresh)
	require.NoError(t, err)
	_, err = f.service.RefreshTokens(ctx, next.RefreshToken, nextClaims)
	assert.NoError(t, err)
}

func TestService_RefreshTokens_CarriesStaleVerifyStatus(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	pair, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)

	// Verify the account out of band; the old refresh token still carries
	// the unverified snapshot
	u, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, f.users.MarkEmailVerified(ctx, u.ID))

	claims, err := f.codec.Verify(pair.RefreshToken, PurposeRefresh)
	require.NoError(t, err)

	next, err := f.service.RefreshTokens(ctx, pair.RefreshToken, claims)
	require.NoError(t, err)

	nextClaims, err := f.codec.Verify(next.AccessToken, PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.Unverified, nextClaims.Verify,
		"rotation must carry the snapshot from the presented token, not re-read the store")
}

func TestService_Logout_Idempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	pair, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, pair.RefreshToken))
	require.NoError(t, f.service.Logout(ctx, pair.RefreshToken))

	exists, err := f.tokens.Exists(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestService_VerifyEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)

	u, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	pair, outcome, err := f.service.VerifyEmail(ctx, u.EmailVerifyToken)
	require.NoError(t, err)
	assert.Equal(t, EmailVerified, outcome)

	// The fresh pair carries the verified snapshot
	claims, err := f.codec.Verify(pair.AccessToken, PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.Verified, claims.Verify)

	// The account is verified and the stored token consumed
	u, err = f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.Verified, u.Verify)
	assert.Empty(t, u.EmailVerifyToken)
}

func TestService_VerifyEmail_RepeatIsPlainOutcome(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)

	u, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	token := u.EmailVerifyToken

	_, outcome, err := f.service.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, EmailVerified, outcome)

	// Repeating the call short-circuits: no error, no fresh tokens
	pair, outcome, err := f.service.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, EmailAlreadyVerified, outcome)
	assert.Nil(t, pair)
}

func TestService_VerifyEmail_SupersededToken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)

	u, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	oldToken := u.EmailVerifyToken

	// Requesting a new link invalidates the old one
	outcome, err := f.service.ResendVerificationEmail(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, VerificationResent, outcome)

	_, _, err = f.service.VerifyEmail(ctx, oldToken)
	assert.ErrorIs(t, err, ErrInvalidVerificationToken)

	u, err = f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	_, _, err = f.service.VerifyEmail(ctx, u.EmailVerifyToken)
	assert.NoError(t, err)
}

func TestService_VerifyEmail_GarbageToken(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.service.VerifyEmail(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidVerificationToken)
}

func TestService_ResendVerificationEmail_AlreadyVerified(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return f.email.verificationCount() == 1 }, time.Second, 10*time.Millisecond)

	u, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	_, _, err = f.service.VerifyEmail(ctx, u.EmailVerifyToken)
	require.NoError(t, err)

	// Plain outcome, and no new email goes out
	outcome, err := f.service.ResendVerificationEmail(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, EmailAlreadyVerified, outcome)
	assert.Equal(t, 1, f.email.verificationCount())
}

func TestService_ForgotPasswordFlow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)

	// Unknown email is a plain not-found
	err = f.service.ForgotPassword(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)

	require.NoError(t, f.service.ForgotPassword(ctx, "alice@example.com"))
	assert.Eventually(t, func() bool { return f.email.resetCount() == 1 }, time.Second, 10*time.Millisecond)

	u, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	resetToken := u.ForgotPasswordToken
	require.NotEmpty(t, resetToken)

	// Pre-flight check consumes nothing
	require.NoError(t, f.service.VerifyForgotPasswordToken(ctx, resetToken))
	require.NoError(t, f.service.VerifyForgotPasswordToken(ctx, resetToken))

	// Open a second session so we can observe revocation
	_, err = f.service.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	require.Greater(t, f.tokens.count(), 0)

	require.NoError(t, f.service.ResetPassword(ctx, resetToken, "new-password-456"))

	// All sessions revoked, token consumed, new password live
	assert.Equal(t, 0, f.tokens.count())
	_, err = f.service.Login(ctx, "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.service.Login(ctx, "alice@example.com", "new-password-456")
	assert.NoError(t, err)

	// The consumed token can no longer be used
	err = f.service.ResetPassword(ctx, resetToken, "another-password")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestService_ForgotPassword_TokenSuperseded(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)

	require.NoError(t, f.service.ForgotPassword(ctx, "alice@example.com"))
	u, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	firstToken := u.ForgotPasswordToken

	// time.Sleep so the second token's iat differs and the strings diverge
	time.Sleep(1100 * time.Millisecond)
	require.NoError(t, f.service.ForgotPassword(ctx, "alice@example.com"))

	err = f.service.VerifyForgotPasswordToken(ctx, firstToken)
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestService_ChangePassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, registerInput("alice@example.com"))
	require.NoError(t, err)
	u, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	err = f.service.ChangePassword(ctx, u.ID, "wrong-old", "new-password-456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.service.ChangePassword(ctx, u.ID, "password123", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	require.NoError(t, f.service.ChangePassword(ctx, u.ID, "password123", "new-password-456"))

	_, err = f.service.Login(ctx, "alice@example.com", "new-password-456")
	assert.NoError(t, err)
}
