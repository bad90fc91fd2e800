package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/01Justinnguyen/chirper-api/internal/database"
)

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. The caller has already assigned the id and
// minted the email-verification token that embeds it.
func (r *Repository) Create(ctx context.Context, u *User) error {
	dbUser := mapModelToDBUser(u)
	now := time.Now()
	dbUser.CreatedAt = now
	dbUser.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		// The unique constraints are the actual guarantee; the service-level
		// pre-check only exists for a friendlier error message.
		if isUniqueViolation(err, "users_username_key") {
			return ErrDuplicateUsername
		}
		if isUniqueViolation(err, "users_email_key") || isUniqueViolation(err, "") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	*u = *mapDBUserToModel(dbUser)
	return nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "email = ?", email)
}

// GetByUsername retrieves a user by username
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "username = ?", username)
}

func (r *Repository) getOne(ctx context.Context, where string, arg any) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where(where, arg).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// MarkEmailVerified sets verify=Verified and consumes the verification token
// in a single statement.
func (r *Repository) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	return r.update(ctx, userID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("verify = ?", int16(Verified)).
			Set("email_verify_token = ''")
	})
}

// SetEmailVerifyToken overwrites the stored verification token, invalidating
// any previously issued link.
func (r *Repository) SetEmailVerifyToken(ctx context.Context, userID uuid.UUID, token string) error {
	return r.update(ctx, userID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("email_verify_token = ?", token)
	})
}

// SetForgotPasswordToken overwrites the stored forgot-password token; only the
// latest one is ever valid.
func (r *Repository) SetForgotPasswordToken(ctx context.Context, userID uuid.UUID, token string) error {
	return r.update(ctx, userID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("forgot_password_token = ?", token)
	})
}

// ResetPassword stores a new password hash and consumes the forgot-password
// token in a single statement.
func (r *Repository) ResetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	return r.update(ctx, userID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("password_hash = ?", passwordHash).
			Set("forgot_password_token = ''")
	})
}

// UpdatePassword stores a new password hash (change-password flow; no token
// involved).
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	return r.update(ctx, userID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("password_hash = ?", passwordHash)
	})
}

// UpdateProfile applies the whitelisted partial fields and returns the
// updated user.
func (r *Repository) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*User, error) {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("updated_at = NOW()").
		Where("id = ?", userID)

	if update.Name != nil {
		q = q.Set("name = ?", *update.Name)
	}
	if update.DateOfBirth != nil {
		q = q.Set("date_of_birth = ?", *update.DateOfBirth)
	}
	if update.Bio != nil {
		q = q.Set("bio = ?", *update.Bio)
	}
	if update.Location != nil {
		q = q.Set("location = ?", *update.Location)
	}
	if update.Website != nil {
		q = q.Set("website = ?", *update.Website)
	}
	if update.Username != nil {
		q = q.Set("username = ?", *update.Username)
	}
	if update.Avatar != nil {
		q = q.Set("avatar = ?", *update.Avatar)
	}
	if update.CoverPhoto != nil {
		q = q.Set("cover_photo = ?", *update.CoverPhoto)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, userID)
}

// update runs a single-row update against the user, bumping updated_at.
func (r *Repository) update(ctx context.Context, userID uuid.UUID, build func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("updated_at = NOW()").
		Where("id = ?", userID)

	result, err := build(q).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// isUniqueViolation reports whether err is a postgres unique-constraint
// violation, optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value violates unique constraint") {
		return false
	}
	return constraint == "" || strings.Contains(msg, constraint)
}

func mapModelToDBUser(u *User) *database.User {
	return &database.User{
		ID:                  u.ID,
		Email:               u.Email,
		Name:                u.Name,
		Username:            u.Username,
		PasswordHash:        u.PasswordHash,
		DateOfBirth:         u.DateOfBirth,
		Bio:                 u.Bio,
		Location:            u.Location,
		Website:             u.Website,
		Avatar:              u.Avatar,
		CoverPhoto:          u.CoverPhoto,
		Verify:              int16(u.Verify),
		EmailVerifyToken:    u.EmailVerifyToken,
		ForgotPasswordToken: u.ForgotPasswordToken,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                  dbu.ID,
		Email:               dbu.Email,
		Name:                dbu.Name,
		Username:            dbu.Username,
		PasswordHash:        dbu.PasswordHash,
		DateOfBirth:         dbu.DateOfBirth,
		Bio:                 dbu.Bio,
		Location:            dbu.Location,
		Website:             dbu.Website,
		Avatar:              dbu.Avatar,
		CoverPhoto:          dbu.CoverPhoto,
		Verify:              VerifyStatus(dbu.Verify),
		EmailVerifyToken:    dbu.EmailVerifyToken,
		ForgotPasswordToken: dbu.ForgotPasswordToken,
		CreatedAt:           dbu.CreatedAt,
		UpdatedAt:           dbu.UpdatedAt,
	}
}
