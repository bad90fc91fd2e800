package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/01Justinnguyen/chirper-api/internal/database"
)

// Repository persists follow edges in postgres. The unique constraint on
// (user_id, followed_user_id) backstops the service-level idempotency checks
// under concurrency.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Exists reports whether follower already follows followed.
func (r *Repository) Exists(ctx context.Context, follower, followed uuid.UUID) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*database.FollowEdge)(nil)).
		Where("user_id = ?", follower).
		Where("followed_user_id = ?", followed).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to look up follow edge: %w", err)
	}

	return count > 0, nil
}

// Create inserts the edge, returning ErrEdgeExists when it is already there.
func (r *Repository) Create(ctx context.Context, follower, followed uuid.UUID) error {
	edge := &database.FollowEdge{
		UserID:         follower,
		FollowedUserID: followed,
		CreatedAt:      time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(edge).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEdgeExists
		}
		return fmt.Errorf("failed to create follow edge: %w", err)
	}

	return nil
}

// Delete removes the edge and reports whether one was there to remove.
func (r *Repository) Delete(ctx context.Context, follower, followed uuid.UUID) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*database.FollowEdge)(nil)).
		Where("user_id = ?", follower).
		Where("followed_user_id = ?", followed).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow edge: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
