package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/01Justinnguyen/chirper-api/internal/httputil"
	"github.com/01Justinnguyen/chirper-api/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const TokenClaimsContextKey ContextKey = "token_claims"

// Middleware is the access gate for protected routes. Access tokens are
// checked cryptographically only; refresh tokens additionally require a live
// store record.
type Middleware struct {
	codec  TokenCodec
	tokens RefreshTokenRepository
}

func NewMiddleware(codec TokenCodec, tokens RefreshTokenRepository) *Middleware {
	return &Middleware{codec: codec, tokens: tokens}
}

// RequireAuth validates the access token and stashes the claims in the
// request context. The store is never consulted here: an access token stays
// valid until natural expiry even after logout.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string

		// Priority 1: Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			} else {
				httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
				return
			}
		}

		// Priority 2: Cookie (fallback)
		if token == "" {
			cookieToken, err := GetAccessTokenFromCookie(r)
			if err != nil {
				httputil.RespondErrorWithCode(w, "access token is required", httputil.CodeAccessTokenRequired, http.StatusUnauthorized)
				return
			}
			token = cookieToken
		}

		claims, err := m.codec.Verify(token, PurposeAccess)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				httputil.RespondErrorWithCode(w, "token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
				return
			}
			httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}

		ctx := httputil.WithUserID(r.Context(), userID)
		ctx = context.WithValue(ctx, TokenClaimsContextKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireVerified gates operations on the verify snapshot inside the token.
// A user verified after their token was minted stays gated until they hold a
// newer token. Must run after RequireAuth.
func (m *Middleware) RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaimsFromContext(r.Context())
		if !ok {
			httputil.RespondErrorWithCode(w, "access token is required", httputil.CodeAccessTokenRequired, http.StatusUnauthorized)
			return
		}

		if claims.Verify != user.Verified {
			httputil.RespondErrorWithCode(w, "user not verified", httputil.CodeUserNotVerified, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AuthenticateRefresh is the two-layer refresh check: the signature must
// verify AND a matching record must exist in the store. A leaked but revoked
// refresh token fails the second check even though its signature is fine.
func (m *Middleware) AuthenticateRefresh(ctx context.Context, tokenStr string) (*TokenClaims, error) {
	claims, err := m.codec.Verify(tokenStr, PurposeRefresh)
	if err != nil {
		return nil, err
	}

	exists, err := m.tokens.Exists(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRefreshTokenReused
	}

	return claims, nil
}

// GetClaimsFromContext extracts the verified token claims from the request context
func GetClaimsFromContext(ctx context.Context) (*TokenClaims, bool) {
	claims, ok := ctx.Value(TokenClaimsContextKey).(*TokenClaims)
	return claims, ok
}
