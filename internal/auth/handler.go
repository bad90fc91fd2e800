package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/01Justinnguyen/chirper-api/internal/httputil"
	"github.com/01Justinnguyen/chirper-api/internal/logging"
	"github.com/01Justinnguyen/chirper-api/internal/ratelimit"
	"github.com/01Justinnguyen/chirper-api/internal/user"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service         *Service
	gate            *Middleware
	rateLimiter     *ratelimit.Limiter
	logger          *logging.Logger
	isProduction    bool
	accessDuration  time.Duration
	refreshDuration time.Duration
}

func NewHandler(service *Service, gate *Middleware, rateLimiter *ratelimit.Limiter, logger *logging.Logger, isProduction bool, accessDuration, refreshDuration time.Duration) *Handler {
	return &Handler{
		service:         service,
		gate:            gate,
		rateLimiter:     rateLimiter,
		logger:          logger,
		isProduction:    isProduction,
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Name            string `json:"name"`
	DateOfBirth     string `json:"date_of_birth"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// VerifyEmailRequest represents the email verification request
type VerifyEmailRequest struct {
	EmailVerifyToken string `json:"email_verify_token"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// VerifyForgotPasswordRequest represents the reset-token pre-flight check
type VerifyForgotPasswordRequest struct {
	ForgotPasswordToken string `json:"forgot_password_token"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	ForgotPasswordToken string `json:"forgot_password_token"`
	Password            string `json:"password"`
	ConfirmPassword     string `json:"confirm_password"`
}

// ChangePasswordRequest represents the authenticated password change
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a new account. A verification email is sent and a session is opened immediately; the account stays unverified until the link is followed.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration details"
// @Success      201 {object} TokenPair
// @Failure      400 {object} ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} ErrorResponse "Email or username already exists"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	// Rate limit by IP
	ip := getClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "register")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded for register", "ip", ip)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "register"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	input := RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Name:            req.Name,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(time.RFC3339, req.DateOfBirth)
		if err != nil {
			logger.Warn("registration failed: invalid date of birth", "error", err.Error())
			respondError(w, "date_of_birth must be an ISO8601 timestamp", httputil.CodeValidationFailed, http.StatusBadRequest)
			return
		}
		input.DateOfBirth = dob
	}

	tokens, err := h.service.Register(r.Context(), input)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			logger.Warn("registration failed: email already exists")
			respondError(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
			return
		}
		if errors.Is(err, user.ErrDuplicateUsername) {
			logger.Warn("registration failed: username already exists")
			respondError(w, "username already exists", httputil.CodeUsernameAlreadyExists, http.StatusConflict)
			return
		}
		if errors.Is(err, ErrPasswordRequired) || errors.Is(err, ErrPasswordTooShort) {
			logger.Warn("registration failed: validation error", "error", err.Error())
			respondError(w, err.Error(), passwordErrorCode(err), http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrEmailRequired) || errors.Is(err, ErrInvalidEmailFormat) || errors.Is(err, ErrPasswordMismatch) {
			logger.Warn("registration failed: validation error", "error", err.Error())
			respondError(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
			return
		}
		logger.Error("registration failed: internal error", "error", err.Error())
		respondError(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user registered successfully")

	h.respondWithTokens(w, r, tokens, http.StatusCreated, "registration successful, please check your email")
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password and receive access and refresh tokens. Unverified accounts may log in; banned accounts may not.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} TokenPair
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Invalid credentials"
// @Failure      403 {object} ErrorResponse "Account banned"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	// Rate limit by IP
	ip := getClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "login")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded for login", "ip", ip)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "login"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	tokens, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			respondError(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		if errors.Is(err, ErrUserBanned) {
			logger.Warn("login failed: account banned")
			respondError(w, "account is banned", httputil.CodeUserBanned, http.StatusForbidden)
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		respondError(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in successfully")

	h.respondWithTokens(w, r, tokens, http.StatusOK, "logged in successfully")
}

// Refresh handles token rotation
// @Summary      Rotate refresh token
// @Description  Exchange a valid refresh token for a new access and refresh pair. The presented token is retired; a second use of the same string fails.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest true "Refresh token"
// @Success      200 {object} TokenPair
// @Failure      400 {object} ErrorResponse "Refresh token missing"
// @Failure      401 {object} ErrorResponse "Invalid, expired, or reused refresh token"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	refreshToken := refreshTokenFromRequest(r)
	if refreshToken == "" {
		logger.Warn("refresh token missing from both body and cookie")
		respondError(w, "refresh token required", httputil.CodeRefreshTokenRequired, http.StatusBadRequest)
		return
	}

	claims, err := h.gate.AuthenticateRefresh(r.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			logger.Warn("token refresh failed: refresh token expired")
			respondError(w, "refresh token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
			return
		}
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrRefreshTokenReused) {
			logger.Warn("token refresh failed: invalid or unknown token", "error", err.Error())
			respondError(w, "refresh token reused or unknown", httputil.CodeInvalidRefreshToken, http.StatusUnauthorized)
			return
		}
		logger.Error("token refresh failed: internal error", "error", err.Error())
		respondError(w, "failed to refresh token", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	tokens, err := h.service.RefreshTokens(r.Context(), refreshToken, claims)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenReused) || errors.Is(err, ErrInvalidToken) {
			logger.Warn("token refresh failed: token already rotated")
			respondError(w, "refresh token reused or unknown", httputil.CodeInvalidRefreshToken, http.StatusUnauthorized)
			return
		}
		logger.Error("token refresh failed: internal error", "error", err.Error())
		respondError(w, "failed to refresh token", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("tokens rotated successfully")

	h.respondWithTokens(w, r, tokens, http.StatusOK, "token refreshed successfully")
}

// Logout handles user logout
// @Summary      User logout
// @Description  Retire the refresh token and clear cookies. Logging out twice with the same token succeeds both times.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Optional refresh token"
// @Success      200 {object} map[string]string
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	refreshToken := refreshTokenFromRequest(r)

	if refreshToken != "" {
		if err := h.service.Logout(r.Context(), refreshToken); err != nil {
			logger.Warn("failed to retire refresh token", "error", err)
			// Continue - still clear cookies
		}
	}

	ClearAuthCookies(w)

	logger.Info("user logged out successfully")

	respondJSON(w, map[string]string{"message": "logged out"}, http.StatusOK)
}

// VerifyEmail handles email verification
// @Summary      Verify email address
// @Description  Consume the verification token sent via email. On success the account is marked verified and a fresh token pair carrying the new status is returned.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body VerifyEmailRequest true "Verification token"
// @Success      200 {object} TokenPair "Fresh pair, or a plain message when the email was already verified"
// @Failure      400 {object} ErrorResponse "Invalid or expired token"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/verify-email [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid verify email request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	token := strings.TrimSpace(req.EmailVerifyToken)
	if token == "" {
		logger.Warn("email verification failed: token missing")
		respondError(w, "verification token required", httputil.CodeVerificationTokenRequired, http.StatusBadRequest)
		return
	}

	tokens, outcome, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			logger.Warn("email verification failed: token expired")
			respondError(w, "verification link has expired, please request a new one", httputil.CodeTokenExpired, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrUserBanned) {
			logger.Warn("email verification failed: account banned")
			respondError(w, "account is banned", httputil.CodeUserBanned, http.StatusForbidden)
			return
		}
		if errors.Is(err, ErrInvalidVerificationToken) {
			logger.Warn("email verification failed: invalid token")
			respondError(w, "invalid verification token", httputil.CodeVerificationFailed, http.StatusBadRequest)
			return
		}
		logger.Error("email verification failed: internal error", "error", err.Error())
		respondError(w, "failed to verify email", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	// Repeating the call on a verified account is an ordinary outcome
	if outcome == EmailAlreadyVerified {
		logger.Info("email already verified")
		respondJSON(w, map[string]string{"message": string(outcome)}, http.StatusOK)
		return
	}

	logger.Info("email verified successfully")

	h.respondWithTokens(w, r, tokens, http.StatusOK, string(outcome))
}

// ResendVerificationEmail handles resending verification email
// @Summary      Resend verification email
// @Description  Mint a new verification token for the authenticated user and send it, invalidating any earlier unconsumed link. Already-verified accounts get a plain message and no email.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200 {object} map[string]string
// @Failure      401 {object} ErrorResponse "Missing or invalid access token"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Security     BearerAuth
// @Router       /auth/resend-verification [post]
func (h *Handler) ResendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := httputil.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "access token is required", httputil.CodeAccessTokenRequired, http.StatusUnauthorized)
		return
	}

	logger = logger.WithFields(map[string]any{"user_id": userID})

	// Per-user cooldown so a client cannot hammer the mail provider
	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), userID.String())
	if err != nil {
		logger.Error("failed to check cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("resend verification on cooldown")
		respondError(w, "please wait before requesting another email", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return
	}

	if err := h.rateLimiter.SetEmailCooldown(r.Context(), userID.String()); err != nil {
		logger.Error("failed to set cooldown", "error", err.Error())
	}

	outcome, err := h.service.ResendVerificationEmail(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserBanned) {
			logger.Warn("resend verification failed: account banned")
			respondError(w, "account is banned", httputil.CodeUserBanned, http.StatusForbidden)
			return
		}
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("resend verification failed: user not found")
			respondError(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("resend verification failed: internal error", "error", err.Error())
		respondError(w, "failed to resend verification email", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if outcome == EmailAlreadyVerified {
		logger.Info("resend verification skipped: already verified")
	} else {
		logger.Info("verification email resent")
	}

	respondJSON(w, map[string]string{"message": string(outcome)}, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Send a password reset link to the account's email. Each call replaces any earlier outstanding reset token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      404 {object} ErrorResponse "No account with that email"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	ip := getClientIP(r)

	// Check IP rate limit (10 req/15 min)
	exceeded, err := h.rateLimiter.CheckIPRateLimit(r.Context(), ip)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
		// Continue despite error to avoid blocking legitimate requests
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	// Check email cooldown (2 min)
	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), req.Email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
		// Continue despite error
	} else if onCooldown {
		logger.Warn("email on cooldown", "email", req.Email)
		respondError(w, "please wait before requesting another reset", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return
	}

	if err := h.rateLimiter.RecordIPRequest(r.Context(), ip); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("forgot password failed: user not found")
			respondError(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrEmailRequired) || errors.Is(err, ErrInvalidEmailFormat) {
			logger.Warn("forgot password failed: validation error", "error", err.Error())
			respondError(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
			return
		}
		logger.Error("forgot password failed: internal error", "error", err.Error())
		respondError(w, "failed to process request", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if err := h.rateLimiter.SetEmailCooldown(r.Context(), req.Email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	logger.Info("password reset email sent", "email", req.Email)

	respondJSON(w, map[string]string{
		"message": "a password reset link has been sent to your email",
	}, http.StatusOK)
}

// VerifyForgotPassword handles the reset-token pre-flight check
// @Summary      Verify password reset token
// @Description  Check a reset token without consuming it, so a client can validate the link before showing the reset form.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body VerifyForgotPasswordRequest true "Reset token"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid or expired token"
// @Router       /auth/verify-forgot-password [post]
func (h *Handler) VerifyForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req VerifyForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid verify forgot password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.VerifyForgotPasswordToken(r.Context(), strings.TrimSpace(req.ForgotPasswordToken)); err != nil {
		if errors.Is(err, ErrExpiredToken) {
			logger.Warn("reset token check failed: token expired")
			respondError(w, "reset link has expired, please request a new one", httputil.CodeTokenExpired, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrInvalidResetToken) {
			logger.Warn("reset token check failed: invalid token")
			respondError(w, "invalid or expired reset token", httputil.CodeInvalidResetToken, http.StatusBadRequest)
			return
		}
		logger.Error("reset token check failed: internal error", "error", err.Error())
		respondError(w, "failed to verify reset token", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]string{"message": "reset token is valid"}, http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Consume a valid reset token and set a new password. All open sessions for the account are revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid request or token"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if req.Password != req.ConfirmPassword {
		logger.Warn("password reset failed: passwords do not match")
		respondError(w, ErrPasswordMismatch.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	err := h.service.ResetPassword(r.Context(), strings.TrimSpace(req.ForgotPasswordToken), req.Password)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) || errors.Is(err, ErrInvalidResetToken) {
			logger.Warn("password reset failed: invalid or expired token")
			respondError(w, "invalid or expired reset token", httputil.CodeInvalidResetToken, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrPasswordRequired) || errors.Is(err, ErrPasswordTooShort) {
			logger.Warn("password reset failed: validation error", "error", err.Error())
			respondError(w, err.Error(), passwordErrorCode(err), http.StatusBadRequest)
			return
		}
		logger.Error("password reset failed: internal error", "error", err.Error())
		respondError(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("password reset successfully")

	respondJSON(w, map[string]string{
		"message": "password reset successfully, you can now login with your new password",
	}, http.StatusOK)
}

// ChangePassword handles authenticated password change
// @Summary      Change password
// @Description  Replace the password of the authenticated user after checking the old one. Open sessions stay valid.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ChangePasswordRequest true "Old and new password"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Validation error"
// @Failure      401 {object} ErrorResponse "Old password wrong or token missing"
// @Security     BearerAuth
// @Router       /auth/change-password [put]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := httputil.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "access token is required", httputil.CodeAccessTokenRequired, http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid change password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if req.Password != req.ConfirmPassword {
		logger.Warn("password change failed: passwords do not match")
		respondError(w, ErrPasswordMismatch.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.Password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("password change failed: old password wrong")
			respondError(w, "old password is incorrect", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		if errors.Is(err, ErrPasswordRequired) || errors.Is(err, ErrPasswordTooShort) {
			logger.Warn("password change failed: validation error", "error", err.Error())
			respondError(w, err.Error(), passwordErrorCode(err), http.StatusBadRequest)
			return
		}
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("password change failed: user not found")
			respondError(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("password change failed: internal error", "error", err.Error())
		respondError(w, "failed to change password", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("password changed successfully")

	respondJSON(w, map[string]string{"message": "password changed successfully"}, http.StatusOK)
}

// respondWithTokens delivers a token pair either as cookies (browser
// clients) or in the response body.
func (h *Handler) respondWithTokens(w http.ResponseWriter, r *http.Request, tokens *TokenPair, status int, message string) {
	if ShouldUseCookies(r) {
		SetAuthCookies(w, tokens.AccessToken, tokens.RefreshToken, h.isProduction, h.accessDuration, h.refreshDuration)
		respondJSON(w, map[string]string{"message": message}, status)
		return
	}
	respondJSON(w, tokens, status)
}

// refreshTokenFromRequest reads the refresh token from the JSON body with
// cookie fallback.
func refreshTokenFromRequest(r *http.Request) string {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		if token := strings.TrimSpace(req.RefreshToken); token != "" {
			return token
		}
	}

	cookieToken, err := GetRefreshTokenFromCookie(r)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookieToken)
}

func passwordErrorCode(err error) string {
	if errors.Is(err, ErrPasswordTooShort) {
		return httputil.CodePasswordTooShort
	}
	return httputil.CodePasswordRequired
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr format is "IP:port", extract just the IP
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
