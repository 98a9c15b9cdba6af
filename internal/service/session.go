package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/listenupapp/diary-server/internal/auth"
	"github.com/listenupapp/diary-server/internal/domain"
	domainerrors "github.com/listenupapp/diary-server/internal/errors"
	"github.com/listenupapp/diary-server/internal/store"
)

// SessionStateCleaner drops per-session state when a session ends.
// *sessionstate.Store implements it.
type SessionStateCleaner interface {
	Clear(ctx context.Context, sessionID string) error
}

// SessionService manages login sessions and their refresh tokens.
type SessionService struct {
	store        store.Store
	tokenService *auth.TokenService
	state        SessionStateCleaner
	logger       *slog.Logger
}

// NewSessionService creates a session service. state may be nil.
func NewSessionService(
	s store.Store,
	tokenService *auth.TokenService,
	state SessionStateCleaner,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		store:        s,
		tokenService: tokenService,
		state:        state,
		logger:       logger,
	}
}

// ClientInfo identifies where a request came from.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// SessionResponse contains session tokens and metadata.
type SessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // Seconds until the access token expires
	SessionID    string `json:"session_id"`
}

// CreateSession starts a session for user and issues its first token pair.
func (s *SessionService) CreateSession(ctx context.Context, user *domain.User, client ClientInfo) (*SessionResponse, error) {
	refreshToken, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		RefreshTokenHash: auth.HashRefreshToken(refreshToken),
		ExpiresAt:        now.Add(s.tokenService.RefreshTokenDuration()),
		CreatedAt:        now,
		LastSeenAt:       now,
		IPAddress:        client.IPAddress,
		UserAgent:        client.UserAgent,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return s.issue(user, session, refreshToken)
}

// RefreshSession rotates the token pair of the session owning refreshToken.
// The old refresh token stops working.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string, client ClientInfo) (*SessionResponse, *domain.User, error) {
	session, err := s.store.GetSessionByRefreshToken(ctx, auth.HashRefreshToken(refreshToken))
	if err != nil {
		return nil, nil, domainerrors.TokenExpired("Invalid or expired refresh token.").WithCause(err)
	}
	if session.IsExpired() {
		_ = s.DeleteSession(ctx, session.ID)
		return nil, nil, domainerrors.TokenExpired("Invalid or expired refresh token.")
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		_ = s.DeleteSession(ctx, session.ID)
		return nil, nil, domainerrors.NotFound("User not found.").WithCause(err)
	}

	newRefresh, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}

	session.RefreshTokenHash = auth.HashRefreshToken(newRefresh)
	session.Touch()
	session.ExpiresAt = session.LastSeenAt.Add(s.tokenService.RefreshTokenDuration())
	if client.IPAddress != "" {
		session.IPAddress = client.IPAddress
	}
	if client.UserAgent != "" {
		session.UserAgent = client.UserAgent
	}

	if err := s.store.UpdateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("update session: %w", err)
	}

	resp, err := s.issue(user, session, newRefresh)
	if err != nil {
		return nil, nil, err
	}
	return resp, user, nil
}

// GetSession returns a live session. Expired or missing sessions are NotFound.
func (s *SessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("Session not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.IsExpired() {
		return nil, domainerrors.NotFound("Session not found.")
	}
	return session, nil
}

// DeleteSession ends a session and drops its state.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}

	if s.state != nil {
		if err := s.state.Clear(ctx, sessionID); err != nil {
			s.logger.Warn("failed to clear session state", "session_id", sessionID, "error", err)
		}
	}

	s.logger.Info("Session deleted", "session_id", sessionID)
	return nil
}

// DeleteExpiredSessions removes expired sessions. Their state expires
// through its own TTL.
func (s *SessionService) DeleteExpiredSessions(ctx context.Context) (int, error) {
	count, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if count > 0 {
		s.logger.Info("Deleted expired sessions", "count", count)
	}
	return count, nil
}

func (s *SessionService) issue(user *domain.User, session *domain.Session, refreshToken string) (*SessionResponse, error) {
	accessToken, err := s.tokenService.GenerateAccessToken(user, session.ID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	return &SessionResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenService.AccessTokenDuration().Seconds()),
		SessionID:    session.ID,
	}, nil
}
