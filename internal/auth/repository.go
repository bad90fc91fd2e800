package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/01Justinnguyen/chirper-api/internal/database"
)

// Repository persists refresh tokens in postgres. This is the default store.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Store records a freshly issued refresh token for the user.
func (r *Repository) Store(ctx context.Context, userID uuid.UUID, token string) error {
	dbToken := &database.RefreshToken{
		UserID:    userID,
		Token:     token,
		CreatedAt: time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(dbToken).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

// Exists reports whether the token string is on record.
func (r *Repository) Exists(ctx context.Context, token string) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*database.RefreshToken)(nil)).
		Where("token = ?", token).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	return count > 0, nil
}

// Delete removes the record for the token. The rows-affected count is the
// rotation guard: a concurrent rotation that lost the race sees zero rows and
// gets ErrRefreshTokenNotFound.
func (r *Repository) Delete(ctx context.Context, token string) error {
	result, err := r.db.NewDelete().
		Model((*database.RefreshToken)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRefreshTokenNotFound
	}

	return nil
}

// DeleteAllForUser drops every refresh token the user holds.
func (r *Repository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*database.RefreshToken)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user refresh tokens: %w", err)
	}

	return nil
}
