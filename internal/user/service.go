package user

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidUsername = errors.New("username must be 4-50 characters: letters, digits and underscores, not all digits")
	ErrInvalidWebsite  = errors.New("website must be a valid http or https URL")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
)

// Store is what the profile service needs from the repository.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*User, error)
}

// Service handles profile reads and the whitelisted profile mutation.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetProfile returns the owner-facing view of the account.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u.Profile(), nil
}

// GetUserInfo returns the public view of another user, looked up by username.
func (s *Service) GetUserInfo(ctx context.Context, username string) (*PublicProfile, error) {
	u, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u.PublicProfile(), nil
}

// UpdateProfile applies the whitelisted field changes and returns the fresh
// owner-facing profile. Nil fields are left untouched.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*Profile, error) {
	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	u, err := s.store.UpdateProfile(ctx, userID, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return u.Profile(), nil
}

func validateUpdate(update ProfileUpdate) error {
	if update.Username != nil {
		if !validUsername(*update.Username) {
			return ErrInvalidUsername
		}
	}
	if update.Website != nil && *update.Website != "" {
		parsed, err := url.Parse(*update.Website)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return ErrInvalidWebsite
		}
	}
	for _, field := range []*string{update.Name, update.Bio, update.Location, update.Website, update.Avatar, update.CoverPhoto} {
		if field != nil && len(*field) > 400 {
			return ErrFieldTooLong
		}
	}
	return nil
}

// validUsername mirrors the registration default shape: word characters
// only, 4 to 50 long, and not purely numeric.
func validUsername(username string) bool {
	if len(username) < 4 || len(username) > 50 {
		return false
	}
	allDigits := true
	for _, r := range username {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			allDigits = false
		default:
			return false
		}
	}
	return !allDigits
}

// parseDateOfBirth is shared by the transport layer for ISO8601 inputs.
func parseDateOfBirth(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(value))
}
