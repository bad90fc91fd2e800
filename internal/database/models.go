package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the bun model for the users table. Domain code works with
// user.User; repositories map between the two.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	Email        string    `bun:"email,notnull,unique"`
	Name         string    `bun:"name,notnull"`
	Username     string    `bun:"username,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	DateOfBirth  time.Time `bun:"date_of_birth"`

	Bio        string `bun:"bio,default:''"`
	Location   string `bun:"location,default:''"`
	Website    string `bun:"website,default:''"`
	Avatar     string `bun:"avatar,default:''"`
	CoverPhoto string `bun:"cover_photo,default:''"`

	// 0 = unverified, 1 = verified, 2 = banned
	Verify int16 `bun:"verify,notnull,default:0"`

	// Empty string once consumed
	EmailVerifyToken    string `bun:"email_verify_token,default:''"`
	ForgotPasswordToken string `bun:"forgot_password_token,default:''"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// RefreshToken is the bun model for the refresh_tokens table. A refresh
// token without a row here is dead no matter what its signature says.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	Token     string    `bun:"token,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// FollowEdge is the bun model for the follow_edges table. The unique
// constraint on (user_id, followed_user_id) is the real idempotency guarantee.
type FollowEdge struct {
	bun.BaseModel `bun:"table:follow_edges,alias:fe"`

	ID             int64     `bun:"id,pk,autoincrement"`
	UserID         uuid.UUID `bun:"user_id,notnull,type:uuid"`
	FollowedUserID uuid.UUID `bun:"followed_user_id,notnull,type:uuid"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
