package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/store"
)

// makeTestSession creates a domain.Session for userID expiring after ttl.
func makeTestSession(id, userID, tokenHash string, ttl time.Duration) *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:               id,
		UserID:           userID,
		RefreshTokenHash: tokenHash,
		ExpiresAt:        now.Add(ttl),
		CreatedAt:        now,
		LastSeenAt:       now,
		IPAddress:        "127.0.0.1",
		UserAgent:        "test",
	}
}

func createSessionUser(t *testing.T, s *Store) {
	t.Helper()
	if err := s.CreateUser(context.Background(), makeTestUser("user-1", "owner")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
}

func TestCreateAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createSessionUser(t, s)

	sess := makeTestSession("sess-1", "user-1", "hash-1", time.Hour)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := s.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.UserID != "user-1" || got.RefreshTokenHash != "hash-1" || got.UserAgent != "test" {
		t.Errorf("got %+v", got)
	}

	byToken, err := s.GetSessionByRefreshToken(ctx, "hash-1")
	if err != nil {
		t.Fatalf("GetSessionByRefreshToken: %v", err)
	}
	if byToken.ID != "sess-1" {
		t.Errorf("ID: got %q", byToken.ID)
	}
}

func TestCreateSession_UnknownUser(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateSession(context.Background(), makeTestSession("sess-1", "ghost", "h", time.Hour))
	if err == nil {
		t.Fatal("expected a foreign key error")
	}
}

func TestUpdateSession_RotatesToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createSessionUser(t, s)

	sess := makeTestSession("sess-1", "user-1", "old", time.Hour)
	_ = s.CreateSession(ctx, sess)

	sess.RefreshTokenHash = "new"
	sess.Touch()
	if err := s.UpdateSession(ctx, sess); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	if _, err := s.GetSessionByRefreshToken(ctx, "old"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("old token still valid: %v", err)
	}
	if _, err := s.GetSessionByRefreshToken(ctx, "new"); err != nil {
		t.Errorf("new token: %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createSessionUser(t, s)

	_ = s.CreateSession(ctx, makeTestSession("sess-1", "user-1", "h", time.Hour))

	if err := s.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if err := s.DeleteSession(ctx, "sess-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createSessionUser(t, s)

	_ = s.CreateSession(ctx, makeTestSession("live", "user-1", "h1", time.Hour))
	_ = s.CreateSession(ctx, makeTestSession("dead", "user-1", "h2", -time.Hour))

	n, err := s.DeleteExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted: got %d, want 1", n)
	}
	if _, err := s.GetSession(ctx, "live"); err != nil {
		t.Errorf("live session removed: %v", err)
	}
}
