package social

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01Justinnguyen/chirper-api/internal/user"
)

type edgeKey struct {
	follower uuid.UUID
	followed uuid.UUID
}

// fakeEdgeStore is an in-memory EdgeStore with unique-edge semantics.
type fakeEdgeStore struct {
	mu    sync.Mutex
	edges map[edgeKey]struct{}

	// when set, Create fails with ErrEdgeExists even if Exists said no,
	// simulating a concurrent insert winning the race
	loseInsertRace bool
}

func newFakeEdgeStore() *fakeEdgeStore {
	return &fakeEdgeStore{edges: make(map[edgeKey]struct{})}
}

func (s *fakeEdgeStore) Exists(ctx context.Context, follower, followed uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.edges[edgeKey{follower, followed}]
	return ok, nil
}

func (s *fakeEdgeStore) Create(ctx context.Context, follower, followed uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey{follower, followed}
	if _, ok := s.edges[key]; ok || s.loseInsertRace {
		return ErrEdgeExists
	}
	s.edges[key] = struct{}{}
	return nil
}

func (s *fakeEdgeStore) Delete(ctx context.Context, follower, followed uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey{follower, followed}
	if _, ok := s.edges[key]; !ok {
		return false, nil
	}
	delete(s.edges, key)
	return true, nil
}

func (s *fakeEdgeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edges)
}

// fakeUserStore resolves a fixed set of user ids.
type fakeUserStore struct {
	known map[uuid.UUID]struct{}
}

func newFakeUserStore(ids ...uuid.UUID) *fakeUserStore {
	known := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	return &fakeUserStore{known: known}
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if _, ok := s.known[id]; !ok {
		return nil, user.ErrNotFound
	}
	return &user.User{ID: id}, nil
}

func TestService_Follow_Idempotent(t *testing.T) {
	follower, followed := uuid.New(), uuid.New()
	edges := newFakeEdgeStore()
	svc := NewService(edges, newFakeUserStore(follower, followed))
	ctx := context.Background()

	outcome, err := svc.Follow(ctx, follower, followed)
	require.NoError(t, err)
	assert.Equal(t, Followed, outcome)
	assert.Equal(t, 1, edges.count())

	outcome, err = svc.Follow(ctx, follower, followed)
	require.NoError(t, err)
	assert.Equal(t, AlreadyFollowing, outcome)
	assert.Equal(t, 1, edges.count())
}

func TestService_Follow_SelfFollow(t *testing.T) {
	id := uuid.New()
	svc := NewService(newFakeEdgeStore(), newFakeUserStore(id))

	_, err := svc.Follow(context.Background(), id, id)
	assert.ErrorIs(t, err, ErrSelfFollow)
}

func TestService_Follow_UnknownUser(t *testing.T) {
	follower := uuid.New()
	svc := NewService(newFakeEdgeStore(), newFakeUserStore(follower))

	_, err := svc.Follow(context.Background(), follower, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_Follow_LostInsertRace(t *testing.T) {
	follower, followed := uuid.New(), uuid.New()
	edges := newFakeEdgeStore()
	edges.loseInsertRace = true
	svc := NewService(edges, newFakeUserStore(follower, followed))

	outcome, err := svc.Follow(context.Background(), follower, followed)
	require.NoError(t, err)
	assert.Equal(t, AlreadyFollowing, outcome)
}

func TestService_Follow_Directional(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	edges := newFakeEdgeStore()
	svc := NewService(edges, newFakeUserStore(a, b))
	ctx := context.Background()

	// a -> b and b -> a are distinct edges
	outcome, err := svc.Follow(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, Followed, outcome)

	outcome, err = svc.Follow(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, Followed, outcome)
	assert.Equal(t, 2, edges.count())
}

func TestService_Unfollow_Idempotent(t *testing.T) {
	follower, followed := uuid.New(), uuid.New()
	edges := newFakeEdgeStore()
	svc := NewService(edges, newFakeUserStore(follower, followed))
	ctx := context.Background()

	_, err := svc.Follow(ctx, follower, followed)
	require.NoError(t, err)

	outcome, err := svc.Unfollow(ctx, follower, followed)
	require.NoError(t, err)
	assert.Equal(t, Unfollowed, outcome)
	assert.Equal(t, 0, edges.count())

	outcome, err = svc.Unfollow(ctx, follower, followed)
	require.NoError(t, err)
	assert.Equal(t, AlreadyNotFollowing, outcome)
}

func TestService_Unfollow_SelfFollow(t *testing.T) {
	id := uuid.New()
	svc := NewService(newFakeEdgeStore(), newFakeUserStore(id))

	_, err := svc.Unfollow(context.Background(), id, id)
	assert.ErrorIs(t, err, ErrSelfFollow)
}

func TestService_Unfollow_NeverFollowed(t *testing.T) {
	follower, followed := uuid.New(), uuid.New()
	svc := NewService(newFakeEdgeStore(), newFakeUserStore(follower, followed))

	// Unfollow does not resolve the followed user; a missing edge is enough
	outcome, err := svc.Unfollow(context.Background(), follower, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, AlreadyNotFollowing, outcome)
}
