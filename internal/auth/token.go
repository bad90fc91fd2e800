package auth

import (
	"errors"
	"time"

	"github.com/01Justinnguyen/chirper-api/internal/user"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrMissingSecret = errors.New("token secret not configured")
)

// TokenPurpose is the closed set of token classes. The numeric values are the
// wire contract for the "token_type" claim and must not be reordered.
type TokenPurpose int

const (
	PurposeAccess         TokenPurpose = 0
	PurposeRefresh        TokenPurpose = 1
	PurposeEmailVerify    TokenPurpose = 2
	PurposeForgotPassword TokenPurpose = 3
)

func (p TokenPurpose) String() string {
	switch p {
	case PurposeAccess:
		return "access"
	case PurposeRefresh:
		return "refresh"
	case PurposeEmailVerify:
		return "email_verify"
	case PurposeForgotPassword:
		return "forgot_password"
	default:
		return "unknown"
	}
}

// TokenClaims is the decoded payload of a verified token. It is rebuilt per
// request from the signature and never persisted on its own; the verify field
// is a snapshot taken at issuance, not a live read of the user record.
type TokenClaims struct {
	UserID    string
	TokenType TokenPurpose
	Verify    user.VerifyStatus
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenConfig is the per-purpose secret and lifetime.
type TokenConfig struct {
	Secret   string
	Lifetime time.Duration
}

// TokenCodec signs and verifies the four token classes, each under its own
// secret and lifetime. Implementations are pure: no store access, so access
// tokens stay valid until natural expiry even after logout. Revocation is the
// refresh-token store's job, not the codec's.
type TokenCodec interface {
	// Sign mints a token of the given purpose. It fails only on
	// misconfiguration (missing secret).
	Sign(purpose TokenPurpose, userID string, verify user.VerifyStatus) (string, error)

	// Verify checks the signature, expiry and purpose of a token. It returns
	// ErrExpiredToken past expiry and ErrInvalidToken for anything malformed,
	// tampered with, or signed for a different purpose, so callers can tell
	// the two apart.
	Verify(tokenStr string, purpose TokenPurpose) (*TokenClaims, error)
}
