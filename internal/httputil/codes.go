package httputil

// Machine-readable error codes. Clients and tests key off these (and the HTTP
// status), never off the human-readable message text.
const (
	CodeInvalidRequestBody = "invalid_request_body"
	CodeInternalError      = "internal_error"
	CodeTooManyRequests    = "too_many_requests"
	CodeCooldownActive     = "cooldown_active"

	// Registration / credentials
	CodeEmailAlreadyExists    = "email_already_exists"
	CodeUsernameAlreadyExists = "username_already_exists"
	CodeInvalidCredentials    = "invalid_credentials"
	CodeUserBanned            = "user_banned"
	CodeValidationFailed      = "validation_failed"

	// Bearer tokens
	CodeAccessTokenRequired = "access_token_required"
	CodeInvalidAuthHeader   = "invalid_auth_header"
	CodeTokenExpired        = "token_expired"
	CodeInvalidToken        = "invalid_token"
	CodeUserNotVerified     = "user_not_verified"

	// Refresh flow
	CodeRefreshTokenRequired = "refresh_token_required"
	CodeInvalidRefreshToken  = "invalid_refresh_token"

	// Email verification / password reset
	CodeVerificationTokenRequired = "verification_token_required"
	CodeVerificationFailed        = "verification_failed"
	CodeInvalidResetToken         = "invalid_reset_token"
	CodePasswordTooShort          = "password_too_short"
	CodePasswordRequired          = "password_required"

	// Users / social graph
	CodeUserNotFound     = "user_not_found"
	CodeCannotFollowSelf = "cannot_follow_self"
)
