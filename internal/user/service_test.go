package user

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store keyed by id and username.
type fakeStore struct {
	users map[uuid.UUID]*User
}

func newFakeStore(users ...*User) *fakeStore {
	s := &fakeStore{users: make(map[uuid.UUID]*User)}
	for _, u := range users {
		cp := *u
		s.users[u.ID] = &cp
	}
	return s
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *fakeStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Username != nil {
		for id, other := range s.users {
			if id != userID && other.Username == *update.Username {
				return nil, ErrDuplicateUsername
			}
		}
		u.Username = *update.Username
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Bio != nil {
		u.Bio = *update.Bio
	}
	if update.Location != nil {
		u.Location = *update.Location
	}
	if update.Website != nil {
		u.Website = *update.Website
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	if update.CoverPhoto != nil {
		u.CoverPhoto = *update.CoverPhoto
	}
	if update.DateOfBirth != nil {
		u.DateOfBirth = *update.DateOfBirth
	}
	cp := *u
	return &cp, nil
}

func strPtr(s string) *string { return &s }

func testUser() *User {
	id := uuid.New()
	return &User{
		ID:       id,
		Email:    "alice@example.com",
		Name:     "Alice",
		Username: DefaultUsername(id),
		Verify:   Verified,
	}
}

func TestService_GetProfile(t *testing.T) {
	u := testUser()
	svc := NewService(newFakeStore(u))

	profile, err := svc.GetProfile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, profile.Email)
	assert.Equal(t, u.Username, profile.Username)
	assert.Equal(t, Verified, profile.Verify)

	_, err = svc.GetProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_GetUserInfo(t *testing.T) {
	u := testUser()
	svc := NewService(newFakeStore(u))

	info, err := svc.GetUserInfo(context.Background(), u.Username)
	require.NoError(t, err)
	assert.Equal(t, u.Username, info.Username)
	assert.Equal(t, u.Name, info.Name)

	_, err = svc.GetUserInfo(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_UpdateProfile(t *testing.T) {
	u := testUser()
	svc := NewService(newFakeStore(u))
	ctx := context.Background()

	profile, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{
		Username: strPtr("alice_w"),
		Bio:      strPtr("hello"),
		Website:  strPtr("https://example.com/alice"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice_w", profile.Username)
	assert.Equal(t, "hello", profile.Bio)
	assert.Equal(t, "https://example.com/alice", profile.Website)

	// Untouched fields survive
	assert.Equal(t, "Alice", profile.Name)
}

func TestService_UpdateProfile_DuplicateUsername(t *testing.T) {
	a, b := testUser(), testUser()
	b.Email = "bob@example.com"
	b.Username = "bob_w"
	svc := NewService(newFakeStore(a, b))

	_, err := svc.UpdateProfile(context.Background(), a.ID, ProfileUpdate{Username: strPtr("bob_w")})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestService_UpdateProfile_Validation(t *testing.T) {
	u := testUser()
	svc := NewService(newFakeStore(u))
	ctx := context.Background()

	cases := []struct {
		name   string
		update ProfileUpdate
		want   error
	}{
		{"username too short", ProfileUpdate{Username: strPtr("abc")}, ErrInvalidUsername},
		{"username all digits", ProfileUpdate{Username: strPtr("12345")}, ErrInvalidUsername},
		{"username bad chars", ProfileUpdate{Username: strPtr("alice w!")}, ErrInvalidUsername},
		{"username too long", ProfileUpdate{Username: strPtr(strings.Repeat("a", 51))}, ErrInvalidUsername},
		{"website no scheme", ProfileUpdate{Website: strPtr("example.com")}, ErrInvalidWebsite},
		{"website bad scheme", ProfileUpdate{Website: strPtr("ftp://example.com")}, ErrInvalidWebsite},
		{"bio too long", ProfileUpdate{Bio: strPtr(strings.Repeat("x", 401))}, ErrFieldTooLong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(ctx, u.ID, tc.update)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidUsername(t *testing.T) {
	assert.True(t, validUsername("alice_w"))
	assert.True(t, validUsername("user_123456789abc"))
	assert.True(t, validUsername("a123"))
	assert.False(t, validUsername("abc"))
	assert.False(t, validUsername("0123456789"))
	assert.False(t, validUsername("has space"))
	assert.False(t, validUsername("dash-ed"))
	assert.False(t, validUsername(strings.Repeat("a", 51)))
}

func TestDefaultUsername(t *testing.T) {
	id := uuid.New()
	username := DefaultUsername(id)
	assert.True(t, strings.HasPrefix(username, "user_"))
	assert.Len(t, username, 17)
	assert.True(t, validUsername(username))
}
