package social

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/01Justinnguyen/chirper-api/internal/httputil"
	"github.com/01Justinnguyen/chirper-api/internal/logging"
)

// Handler contains HTTP handlers for the follow graph
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// FollowRequest represents the follow request body
type FollowRequest struct {
	FollowedUserID string `json:"followed_user_id"`
}

// OutcomeResponse reports what a follow or unfollow actually did
type OutcomeResponse struct {
	Message Outcome `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Follow creates a follow edge
// @Summary      Follow a user
// @Description  Create a follow edge to another user. Following someone you already follow reports "already following" and changes nothing. Requires a verified account.
// @Tags         social
// @Accept       json
// @Produce      json
// @Param        request body FollowRequest true "User to follow"
// @Success      200 {object} OutcomeResponse
// @Failure      400 {object} ErrorResponse "Invalid body or self-follow"
// @Failure      401 {object} ErrorResponse "Missing or invalid access token"
// @Failure      403 {object} ErrorResponse "Account not verified"
// @Failure      404 {object} ErrorResponse "Followed user not found"
// @Security     BearerAuth
// @Router       /users/follow [post]
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	follower, ok := httputil.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "access token is required", httputil.CodeAccessTokenRequired, http.StatusUnauthorized)
		return
	}

	var req FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid follow request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	followed, err := uuid.Parse(req.FollowedUserID)
	if err != nil {
		logger.Warn("invalid followed user id", "error", err.Error())
		httputil.RespondErrorWithCode(w, "followed_user_id must be a UUID", httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	outcome, err := h.service.Follow(r.Context(), follower, followed)
	if err != nil {
		h.respondGraphError(w, logger, err)
		return
	}

	logger.Info("follow processed", "follower", follower, "followed", followed, "outcome", outcome)

	httputil.RespondJSON(w, OutcomeResponse{Message: outcome}, http.StatusOK)
}

// Unfollow removes a follow edge
// @Summary      Unfollow a user
// @Description  Remove the follow edge to another user. Unfollowing someone you do not follow reports "already not following" and deletes nothing. Requires a verified account.
// @Tags         social
// @Produce      json
// @Param        user_id path string true "User to unfollow"
// @Success      200 {object} OutcomeResponse
// @Failure      400 {object} ErrorResponse "Invalid user id or self-unfollow"
// @Failure      401 {object} ErrorResponse "Missing or invalid access token"
// @Failure      403 {object} ErrorResponse "Account not verified"
// @Security     BearerAuth
// @Router       /users/follow/{user_id} [delete]
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	follower, ok := httputil.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "access token is required", httputil.CodeAccessTokenRequired, http.StatusUnauthorized)
		return
	}

	followed, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		logger.Warn("invalid unfollow user id", "error", err.Error())
		httputil.RespondErrorWithCode(w, "user_id must be a UUID", httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	outcome, err := h.service.Unfollow(r.Context(), follower, followed)
	if err != nil {
		h.respondGraphError(w, logger, err)
		return
	}

	logger.Info("unfollow processed", "follower", follower, "followed", followed, "outcome", outcome)

	httputil.RespondJSON(w, OutcomeResponse{Message: outcome}, http.StatusOK)
}

func (h *Handler) respondGraphError(w http.ResponseWriter, logger *logging.Logger, err error) {
	if errors.Is(err, ErrSelfFollow) {
		logger.Warn("follow graph operation rejected: self edge")
		httputil.RespondErrorWithCode(w, "cannot follow yourself", httputil.CodeCannotFollowSelf, http.StatusBadRequest)
		return
	}
	if errors.Is(err, ErrUserNotFound) {
		logger.Warn("follow graph operation rejected: user not found")
		httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
		return
	}
	logger.Error("follow graph operation failed: internal error", "error", err.Error())
	httputil.RespondErrorWithCode(w, "failed to update follow graph", httputil.CodeInternalError, http.StatusInternalServerError)
}
