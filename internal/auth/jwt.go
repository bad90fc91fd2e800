package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/01Justinnguyen/chirper-api/internal/user"
)

// jwtClaims is the signed payload. Field names are the wire contract:
// { user_id, token_type, verify, iat, exp }.
type jwtClaims struct {
	UserID    string `json:"user_id"`
	TokenType int    `json:"token_type"`
	Verify    int16  `json:"verify"`
	jwt.RegisteredClaims
}

// JWTCodec implements TokenCodec with HS256 symmetric signing, one secret and
// lifetime per purpose. This is the default backend.
type JWTCodec struct {
	purposes map[TokenPurpose]TokenConfig
}

func NewJWTCodec(purposes map[TokenPurpose]TokenConfig) *JWTCodec {
	return &JWTCodec{purposes: purposes}
}

// Sign mints a token of the given purpose with claims snapshotted now.
func (c *JWTCodec) Sign(purpose TokenPurpose, userID string, verify user.VerifyStatus) (string, error) {
	cfg, ok := c.purposes[purpose]
	if !ok || cfg.Secret == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingSecret, purpose)
	}

	now := time.Now()
	claims := jwtClaims{
		UserID:    userID,
		TokenType: int(purpose),
		Verify:    int16(verify),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}

	return signed, nil
}

// Verify parses and validates a token against the purpose's secret.
func (c *JWTCodec) Verify(tokenStr string, purpose TokenPurpose) (*TokenClaims, error) {
	cfg, ok := c.purposes[purpose]
	if !ok || cfg.Secret == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingSecret, purpose)
	}

	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		// Locking the algorithm down prevents alg-confusion attacks
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	// A well-signed token presented for the wrong class must not pass
	if TokenPurpose(claims.TokenType) != purpose {
		return nil, ErrInvalidToken
	}

	out := &TokenClaims{
		UserID:    claims.UserID,
		TokenType: TokenPurpose(claims.TokenType),
		Verify:    user.VerifyStatus(claims.Verify),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}

	return out, nil
}
