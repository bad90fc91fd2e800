package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/01Justinnguyen/chirper-api/internal/logging"
	"github.com/01Justinnguyen/chirper-api/internal/user"
)

var (
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrUserBanned               = errors.New("account is banned")
	ErrEmailRequired            = errors.New("email is required")
	ErrPasswordRequired         = errors.New("password is required")
	ErrPasswordTooShort         = errors.New("password must be at least 8 characters")
	ErrPasswordMismatch         = errors.New("passwords do not match")
	ErrInvalidEmailFormat       = errors.New("invalid email format")
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	ErrInvalidResetToken        = errors.New("invalid password reset token")
	ErrRefreshTokenReused       = errors.New("refresh token already used or revoked")
)

// VerifyOutcome is what an email-verification operation reports. Hitting an
// account that is already verified is an ordinary outcome, not an error.
type VerifyOutcome string

const (
	EmailVerified        VerifyOutcome = "email verified successfully"
	EmailAlreadyVerified VerifyOutcome = "email already verified before"
	VerificationResent   VerifyOutcome = "a new verification link has been sent to your email"
)

// TokenPair is what every session-creating operation hands back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterInput carries the fields accepted at signup.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	Name            string
	DateOfBirth     time.Time
}

// Service handles the account lifecycle: registration, login, token
// rotation, email verification and password recovery.
type Service struct {
	users        UserStore
	tokens       RefreshTokenRepository
	codec        TokenCodec
	emailService EmailService
	logger       *logging.Logger
}

func NewService(
	users UserStore,
	tokens RefreshTokenRepository,
	codec TokenCodec,
	emailService EmailService,
	logger *logging.Logger,
) *Service {
	return &Service{
		users:        users,
		tokens:       tokens,
		codec:        codec,
		emailService: emailService,
		logger:       logger,
	}
}

// Register creates a new user account, sends the verification email and
// opens a session. The new account starts unverified; both issued tokens
// carry that status until the next issuance after verification.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*TokenPair, error) {
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if input.ConfirmPassword != input.Password {
		return nil, ErrPasswordMismatch
	}

	// Pre-check so the common case fails cleanly; the unique constraint
	// still backstops concurrent signups.
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, user.ErrDuplicateEmail
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	// The id is generated up front so the verification token can name the
	// account before the row exists.
	userID := uuid.New()

	verifyToken, err := s.codec.Sign(PurposeEmailVerify, userID.String(), user.Unverified)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification token: %w", err)
	}

	passwordHash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := &user.User{
		ID:               userID,
		Email:            input.Email,
		Name:             input.Name,
		Username:         user.DefaultUsername(userID),
		PasswordHash:     passwordHash,
		DateOfBirth:      input.DateOfBirth,
		Verify:           user.Unverified,
		EmailVerifyToken: verifyToken,
	}

	if err := s.users.Create(ctx, newUser); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) || errors.Is(err, user.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	pair, err := s.issueTokens(ctx, userID, user.Unverified)
	if err != nil {
		return nil, err
	}

	// Send verification email in a goroutine (non-blocking)
	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendVerificationEmail(emailCtx, input.Email, verifyToken); err != nil {
			// User can request a new verification email later
			s.logger.Warn("failed to send verification email", "email", input.Email, "error", err)
		}
	}()

	return pair, nil
}

// Login authenticates a user and opens a session. Unverified users may log
// in; banned users may not.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if existingUser.Verify == user.Banned {
		return nil, ErrUserBanned
	}

	return s.issueTokens(ctx, existingUser.ID, existingUser.Verify)
}

// RefreshTokens rotates a session: the presented refresh token is retired
// and a fresh pair is issued. The claims must already be verified by the
// access gate; the delete outcome decides races, so of two concurrent calls
// with the same token exactly one succeeds and the other gets
// ErrRefreshTokenReused.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string, claims *TokenClaims) (*TokenPair, error) {
	if err := s.tokens.Delete(ctx, refreshToken); err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil, ErrRefreshTokenReused
		}
		return nil, fmt.Errorf("failed to retire refresh token: %w", err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// The verify status is carried over from the presented token, not
	// re-read from the store. A status change only reaches tokens at the
	// next issuance that consults the user record.
	return s.issueTokens(ctx, userID, claims.Verify)
}

// Logout retires the refresh token. Logging out an already-retired session
// is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	err := s.tokens.Delete(ctx, refreshToken)
	if err != nil && !errors.Is(err, ErrRefreshTokenNotFound) {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// VerifyEmail consumes an email verification token, flips the account to
// verified and opens a fresh session carrying the new status. An account
// that is already verified short-circuits with EmailAlreadyVerified and no
// tokens; repeating the call is not an error.
func (s *Service) VerifyEmail(ctx context.Context, tokenStr string) (*TokenPair, VerifyOutcome, error) {
	claims, err := s.codec.Verify(tokenStr, PurposeEmailVerify)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, "", ErrExpiredToken
		}
		return nil, "", ErrInvalidVerificationToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, "", ErrInvalidVerificationToken
	}

	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", ErrInvalidVerificationToken
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	if existingUser.Verify == user.Verified {
		return nil, EmailAlreadyVerified, nil
	}
	if existingUser.Verify == user.Banned {
		return nil, "", ErrUserBanned
	}

	// Only the most recently issued token is live; a well-signed but
	// superseded one must not verify the account.
	if existingUser.EmailVerifyToken == "" || existingUser.EmailVerifyToken != tokenStr {
		return nil, "", ErrInvalidVerificationToken
	}

	if err := s.users.MarkEmailVerified(ctx, userID); err != nil {
		return nil, "", fmt.Errorf("failed to verify email: %w", err)
	}

	pair, err := s.issueTokens(ctx, userID, user.Verified)
	if err != nil {
		return nil, "", err
	}

	return pair, EmailVerified, nil
}

// ResendVerificationEmail mints a new verification token for the
// authenticated user, superseding any previous one. An already-verified
// account short-circuits with EmailAlreadyVerified and sends nothing.
func (s *Service) ResendVerificationEmail(ctx context.Context, userID uuid.UUID) (VerifyOutcome, error) {
	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", user.ErrNotFound
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if existingUser.Verify == user.Verified {
		return EmailAlreadyVerified, nil
	}
	if existingUser.Verify == user.Banned {
		return "", ErrUserBanned
	}

	verifyToken, err := s.codec.Sign(PurposeEmailVerify, userID.String(), existingUser.Verify)
	if err != nil {
		return "", fmt.Errorf("failed to create verification token: %w", err)
	}

	if err := s.users.SetEmailVerifyToken(ctx, userID, verifyToken); err != nil {
		return "", fmt.Errorf("failed to update verification token: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendVerificationEmail(emailCtx, existingUser.Email, verifyToken); err != nil {
			s.logger.Warn("failed to resend verification email", "email", existingUser.Email, "error", err)
		}
	}()

	return VerificationResent, nil
}

// ForgotPassword starts password recovery for the account behind the email.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	resetToken, err := s.codec.Sign(PurposeForgotPassword, existingUser.ID.String(), existingUser.Verify)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	if err := s.users.SetForgotPasswordToken(ctx, existingUser.ID, resetToken); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendPasswordResetEmail(emailCtx, email, resetToken); err != nil {
			s.logger.Warn("failed to send password reset email", "email", email, "error", err)
		}
	}()

	return nil
}

// VerifyForgotPasswordToken checks a reset token without consuming it, so a
// client can validate the link before showing the new-password form.
func (s *Service) VerifyForgotPasswordToken(ctx context.Context, tokenStr string) error {
	_, err := s.resolveResetToken(ctx, tokenStr)
	return err
}

// ResetPassword consumes a reset token, replaces the password and revokes
// every open session for the account.
func (s *Service) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	existingUser, err := s.resolveResetToken(ctx, tokenStr)
	if err != nil {
		return err
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// Clears the stored reset token in the same statement, so the token is
	// single-use.
	if err := s.users.ResetPassword(ctx, existingUser.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	if err := s.tokens.DeleteAllForUser(ctx, existingUser.ID); err != nil {
		s.logger.Warn("failed to revoke sessions after password reset", "user_id", existingUser.ID, "error", err)
	}

	return nil
}

// ChangePassword replaces the password of an authenticated user after
// checking the old one. Open sessions stay valid.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existingUser.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// resolveResetToken verifies signature, expiry and the stored-token match,
// returning the account it names.
func (s *Service) resolveResetToken(ctx context.Context, tokenStr string) (*user.User, error) {
	claims, err := s.codec.Verify(tokenStr, PurposeForgotPassword)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidResetToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidResetToken
	}

	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if existingUser.ForgotPasswordToken == "" || existingUser.ForgotPasswordToken != tokenStr {
		return nil, ErrInvalidResetToken
	}

	return existingUser, nil
}

// issueTokens mints an access/refresh pair with the given verify snapshot
// and records the refresh token.
func (s *Service) issueTokens(ctx context.Context, userID uuid.UUID, verify user.VerifyStatus) (*TokenPair, error) {
	accessToken, err := s.codec.Sign(PurposeAccess, userID.String(), verify)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.codec.Sign(PurposeRefresh, userID.String(), verify)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	if err := s.tokens.Store(ctx, userID, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func validateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > 254 {
		return ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmailFormat
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}
