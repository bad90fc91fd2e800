package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/01Justinnguyen/chirper-api/internal/user"
)

// PasetoCodec implements TokenCodec with PASETO v4.local (symmetric
// encryption with XChaCha20-Poly1305), one 32-byte key per purpose.
// Selected with TOKEN_BACKEND=paseto.
type PasetoCodec struct {
	keys      map[TokenPurpose]paseto.V4SymmetricKey
	lifetimes map[TokenPurpose]time.Duration
}

func NewPasetoCodec(purposes map[TokenPurpose]TokenConfig) (*PasetoCodec, error) {
	keys := make(map[TokenPurpose]paseto.V4SymmetricKey, len(purposes))
	lifetimes := make(map[TokenPurpose]time.Duration, len(purposes))

	for purpose, cfg := range purposes {
		if len(cfg.Secret) != 32 {
			return nil, fmt.Errorf("%s key must be exactly 32 bytes, got %d", purpose, len(cfg.Secret))
		}
		key, err := paseto.V4SymmetricKeyFromBytes([]byte(cfg.Secret))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s symmetric key: %w", purpose, err)
		}
		keys[purpose] = key
		lifetimes[purpose] = cfg.Lifetime
	}

	return &PasetoCodec{keys: keys, lifetimes: lifetimes}, nil
}

// Sign mints a v4.local token carrying the same claim set as the JWT backend.
func (c *PasetoCodec) Sign(purpose TokenPurpose, userID string, verify user.VerifyStatus) (string, error) {
	key, ok := c.keys[purpose]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingSecret, purpose)
	}

	now := time.Now()
	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(c.lifetimes[purpose]))
	token.SetString("user_id", userID)
	if err := token.Set("token_type", int(purpose)); err != nil {
		return "", fmt.Errorf("failed to set token_type claim: %w", err)
	}
	if err := token.Set("verify", int16(verify)); err != nil {
		return "", fmt.Errorf("failed to set verify claim: %w", err)
	}

	return token.V4Encrypt(key, nil), nil
}

// Verify decrypts and validates a v4.local token.
func (c *PasetoCodec) Verify(tokenStr string, purpose TokenPurpose) (*TokenClaims, error) {
	key, ok := c.keys[purpose]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSecret, purpose)
	}

	parser := paseto.NewParser()
	token, err := parser.ParseV4Local(key, tokenStr, nil)
	if err != nil {
		// The parser checks expiration by default; distinguish expired from invalid
		var ruleErr *paseto.RuleError
		if errors.As(err, &ruleErr) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	userID, err := token.GetString("user_id")
	if err != nil {
		return nil, ErrInvalidToken
	}

	var tokenType int
	if err := token.Get("token_type", &tokenType); err != nil {
		return nil, ErrInvalidToken
	}
	if TokenPurpose(tokenType) != purpose {
		return nil, ErrInvalidToken
	}

	var verify int16
	if err := token.Get("verify", &verify); err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}
	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		UserID:    userID,
		TokenType: TokenPurpose(tokenType),
		Verify:    user.VerifyStatus(verify),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
