package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/01Justinnguyen/chirper-api/internal/user"
)

var (
	ErrEdgeExists   = errors.New("follow edge already exists")
	ErrSelfFollow   = errors.New("cannot follow yourself")
	ErrUserNotFound = errors.New("followed user not found")
)

// Outcome is what a follow or unfollow reports. Both operations are
// idempotent: the no-op variants are ordinary results, not errors.
type Outcome string

const (
	Followed            Outcome = "followed"
	AlreadyFollowing    Outcome = "already following"
	Unfollowed          Outcome = "unfollowed"
	AlreadyNotFollowing Outcome = "already not following"
)

// EdgeStore is what the social graph needs from persistence.
type EdgeStore interface {
	Exists(ctx context.Context, follower, followed uuid.UUID) (bool, error)
	Create(ctx context.Context, follower, followed uuid.UUID) error
	Delete(ctx context.Context, follower, followed uuid.UUID) (bool, error)
}

// UserStore resolves followed user ids to confirm they exist.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Service maintains the directed follow graph.
type Service struct {
	edges EdgeStore
	users UserStore
}

func NewService(edges EdgeStore, users UserStore) *Service {
	return &Service{edges: edges, users: users}
}

// Follow creates the follower -> followed edge. Repeating the call reports
// AlreadyFollowing and leaves exactly one edge.
func (s *Service) Follow(ctx context.Context, follower, followed uuid.UUID) (Outcome, error) {
	if follower == followed {
		return "", ErrSelfFollow
	}

	if _, err := s.users.GetByID(ctx, followed); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to resolve followed user: %w", err)
	}

	exists, err := s.edges.Exists(ctx, follower, followed)
	if err != nil {
		return "", err
	}
	if exists {
		return AlreadyFollowing, nil
	}

	if err := s.edges.Create(ctx, follower, followed); err != nil {
		// A concurrent follow won the insert race; same outcome.
		if errors.Is(err, ErrEdgeExists) {
			return AlreadyFollowing, nil
		}
		return "", err
	}

	return Followed, nil
}

// Unfollow removes the follower -> followed edge. Removing a missing edge
// reports AlreadyNotFollowing and deletes nothing.
func (s *Service) Unfollow(ctx context.Context, follower, followed uuid.UUID) (Outcome, error) {
	if follower == followed {
		return "", ErrSelfFollow
	}

	removed, err := s.edges.Delete(ctx, follower, followed)
	if err != nil {
		return "", err
	}
	if !removed {
		return AlreadyNotFollowing, nil
	}

	return Unfollowed, nil
}
