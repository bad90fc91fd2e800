package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/01Justinnguyen/chirper-api/internal/httputil"
	"github.com/01Justinnguyen/chirper-api/internal/logging"
)

// Handler contains HTTP handlers for profile endpoints
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// UpdateProfileRequest represents the PATCH /users/me request body. Absent
// fields are left unchanged; unknown fields are rejected.
type UpdateProfileRequest struct {
	Name        *string `json:"name"`
	DateOfBirth *string `json:"date_of_birth"`
	Bio         *string `json:"bio"`
	Location    *string `json:"location"`
	Website     *string `json:"website"`
	Username    *string `json:"username"`
	Avatar      *string `json:"avatar"`
	CoverPhoto  *string `json:"cover_photo"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// GetMe returns the authenticated user's own profile
// @Summary      Get own profile
// @Description  Return the full profile of the authenticated user, including email and verify status.
// @Tags         users
// @Produce      json
// @Success      200 {object} Profile
// @Failure      401 {object} ErrorResponse "Missing or invalid access token"
// @Failure      404 {object} ErrorResponse "User not found"
// @Security     BearerAuth
// @Router       /users/me [get]
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := httputil.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "access token is required", httputil.CodeAccessTokenRequired, http.StatusUnauthorized)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Warn("profile lookup failed: user not found", "user_id", userID)
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("profile lookup failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get profile", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, profile, http.StatusOK)
}

// UpdateMe updates the authenticated user's profile
// @Summary      Update own profile
// @Description  Apply partial changes to the whitelisted profile fields. Unknown fields are rejected, not ignored. Requires a verified account.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Fields to change"
// @Success      200 {object} Profile
// @Failure      400 {object} ErrorResponse "Invalid body or unknown field"
// @Failure      401 {object} ErrorResponse "Missing or invalid access token"
// @Failure      403 {object} ErrorResponse "Account not verified"
// @Failure      409 {object} ErrorResponse "Username already taken"
// @Security     BearerAuth
// @Router       /users/me [patch]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := httputil.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "access token is required", httputil.CodeAccessTokenRequired, http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		logger.Warn("invalid update profile request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	update := ProfileUpdate{
		Name:       req.Name,
		Bio:        req.Bio,
		Location:   req.Location,
		Website:    req.Website,
		Username:   req.Username,
		Avatar:     req.Avatar,
		CoverPhoto: req.CoverPhoto,
	}
	if req.DateOfBirth != nil {
		dob, err := parseDateOfBirth(*req.DateOfBirth)
		if err != nil {
			logger.Warn("invalid date of birth", "error", err.Error())
			httputil.RespondErrorWithCode(w, "date_of_birth must be an ISO8601 timestamp", httputil.CodeValidationFailed, http.StatusBadRequest)
			return
		}
		update.DateOfBirth = &dob
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			logger.Warn("profile update failed: username taken")
			httputil.RespondErrorWithCode(w, "username already exists", httputil.CodeUsernameAlreadyExists, http.StatusConflict)
			return
		}
		if errors.Is(err, ErrInvalidUsername) || errors.Is(err, ErrInvalidWebsite) || errors.Is(err, ErrFieldTooLong) {
			logger.Warn("profile update failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrNotFound) {
			logger.Warn("profile update failed: user not found", "user_id", userID)
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("profile update failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update profile", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("profile updated", "user_id", userID)

	httputil.RespondJSON(w, profile, http.StatusOK)
}

// GetByUsername returns a user's public profile
// @Summary      Get public profile
// @Description  Look up another user by username. Email and verify status are never exposed here.
// @Tags         users
// @Produce      json
// @Param        username path string true "Username"
// @Success      200 {object} PublicProfile
// @Failure      404 {object} ErrorResponse "User not found"
// @Router       /users/{username} [get]
func (h *Handler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	username := chi.URLParam(r, "username")

	profile, err := h.service.GetUserInfo(r.Context(), username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("user lookup failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, profile, http.StatusOK)
}
