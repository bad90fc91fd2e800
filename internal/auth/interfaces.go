package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/01Justinnguyen/chirper-api/internal/user"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// UserStore is what the account lifecycle needs from the user repository.
// *user.Repository implements it; tests substitute an in-memory fake.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	MarkEmailVerified(ctx context.Context, userID uuid.UUID) error
	SetEmailVerifyToken(ctx context.Context, userID uuid.UUID, token string) error
	SetForgotPasswordToken(ctx context.Context, userID uuid.UUID, token string) error
	ResetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// RefreshTokenRepository is the single authoritative store of live refresh
// tokens. A refresh token with a valid signature but no record here is dead:
// record deletion is what makes logout and rotation stick.
// Implementations: Repository (postgres) and RedisRepository.
type RefreshTokenRepository interface {
	Store(ctx context.Context, userID uuid.UUID, token string) error

	// Exists reports whether the token string is on record.
	Exists(ctx context.Context, token string) (bool, error)

	// Delete removes the record for the token, returning
	// ErrRefreshTokenNotFound when there is none. The delete outcome is the
	// rotation guard: of two concurrent rotations of the same token, exactly
	// one observes the record and wins.
	Delete(ctx context.Context, token string) error

	// DeleteAllForUser drops every session the user holds.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}
