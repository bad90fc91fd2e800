package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

// VerifyStatus is the tri-state account trust level. It is embedded in every
// signed token as the numeric "verify" claim, snapshotted at issuance time.
type VerifyStatus int16

const (
	Unverified VerifyStatus = iota
	Verified
	Banned
)

func (s VerifyStatus) String() string {
	switch s {
	case Unverified:
		return "unverified"
	case Verified:
		return "verified"
	case Banned:
		return "banned"
	default:
		return "unknown"
	}
}

// User is the identity record. Users are never hard-deleted.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	Username     string
	PasswordHash string
	DateOfBirth  time.Time

	Bio        string
	Location   string
	Website    string
	Avatar     string
	CoverPhoto string

	Verify VerifyStatus

	// Empty string once consumed
	EmailVerifyToken    string
	ForgotPasswordToken string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultUsername derives the server-generated username from a fresh user id,
// so a user has a unique handle before ever choosing one.
func DefaultUsername(id uuid.UUID) string {
	return "user_" + strings.ReplaceAll(id.String(), "-", "")[:12]
}

// ProfileUpdate carries the whitelisted mutable profile fields. Nil means
// "leave unchanged". Unknown fields are rejected at the transport layer,
// never silently dropped here.
type ProfileUpdate struct {
	Name        *string
	DateOfBirth *time.Time
	Bio         *string
	Location    *string
	Website     *string
	Username    *string
	Avatar      *string
	CoverPhoto  *string
}

// Profile is the owner-facing projection: no password hash, no token secrets.
type Profile struct {
	ID          uuid.UUID    `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Username    string       `json:"username"`
	DateOfBirth time.Time    `json:"date_of_birth"`
	Bio         string       `json:"bio"`
	Location    string       `json:"location"`
	Website     string       `json:"website"`
	Avatar      string       `json:"avatar"`
	CoverPhoto  string       `json:"cover_photo"`
	Verify      VerifyStatus `json:"verify"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// PublicProfile is the anyone-facing projection: additionally hides the
// verify status.
type PublicProfile struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Username   string    `json:"username"`
	Bio        string    `json:"bio"`
	Location   string    `json:"location"`
	Website    string    `json:"website"`
	Avatar     string    `json:"avatar"`
	CoverPhoto string    `json:"cover_photo"`
	CreatedAt  time.Time `json:"created_at"`
}

// Profile returns the owner-facing view of the user.
func (u *User) Profile() *Profile {
	return &Profile{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Username:    u.Username,
		DateOfBirth: u.DateOfBirth,
		Bio:         u.Bio,
		Location:    u.Location,
		Website:     u.Website,
		Avatar:      u.Avatar,
		CoverPhoto:  u.CoverPhoto,
		Verify:      u.Verify,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// PublicProfile returns the view served to other users.
func (u *User) PublicProfile() *PublicProfile {
	return &PublicProfile{
		ID:         u.ID,
		Name:       u.Name,
		Username:   u.Username,
		Bio:        u.Bio,
		Location:   u.Location,
		Website:    u.Website,
		Avatar:     u.Avatar,
		CoverPhoto: u.CoverPhoto,
		CreatedAt:  u.CreatedAt,
	}
}
