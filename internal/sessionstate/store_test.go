package sessionstate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/diary-server/internal/domain"
)

func newTestState(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true, TTL: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecentSearches_EmptySession(t *testing.T) {
	s := newTestState(t)

	list, err := s.RecentSearches(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestPushRecentSearch_MovesRepeatToFront(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	for _, q := range []string{"alps", "beach", "city"} {
		_, err := s.PushRecentSearch(ctx, "sess-1", q)
		require.NoError(t, err)
	}

	list, err := s.PushRecentSearch(ctx, "sess-1", "alps")
	require.NoError(t, err)
	assert.Equal(t, []string{"alps", "city", "beach"}, list)

	stored, err := s.RecentSearches(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, list, stored)
}

func TestPushRecentSearch_CapsAtLimit(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	for i := range domain.RecentSearchLimit + 5 {
		_, err := s.PushRecentSearch(ctx, "sess-1", fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}

	list, err := s.RecentSearches(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, list, domain.RecentSearchLimit)
	assert.Equal(t, fmt.Sprintf("q%d", domain.RecentSearchLimit+4), list[0])
}

func TestPushRecentSearch_SessionsAreIsolated(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	_, err := s.PushRecentSearch(ctx, "sess-a", "mine")
	require.NoError(t, err)
	_, err = s.PushRecentSearch(ctx, "sess-ab", "theirs")
	require.NoError(t, err)

	a, _ := s.RecentSearches(ctx, "sess-a")
	ab, _ := s.RecentSearches(ctx, "sess-ab")
	assert.Equal(t, []string{"mine"}, a)
	assert.Equal(t, []string{"theirs"}, ab)

	require.NoError(t, s.Clear(ctx, "sess-a"))

	a, _ = s.RecentSearches(ctx, "sess-a")
	ab, _ = s.RecentSearches(ctx, "sess-ab")
	assert.Empty(t, a)
	assert.Equal(t, []string{"theirs"}, ab, "clearing one session must not touch a prefix sibling")
}

func TestPing(t *testing.T) {
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)

	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, 0, s.CollectGarbage())

	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}
