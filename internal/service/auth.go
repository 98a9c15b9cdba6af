package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/listenupapp/diary-server/internal/auth"
	"github.com/listenupapp/diary-server/internal/domain"
	domainerrors "github.com/listenupapp/diary-server/internal/errors"
	"github.com/listenupapp/diary-server/internal/id"
	"github.com/listenupapp/diary-server/internal/store"
	"github.com/listenupapp/diary-server/internal/validation"
)

const (
	msgInvalidCredentials = "Invalid username or password."
	msgUsernameTaken      = "Username already exists."
	msgRegistrationClosed = "Registration is closed."
	msgInvalidToken       = "Invalid or expired access token."
)

// AuthService handles registration, login and token verification.
// Session bookkeeping is delegated to SessionService.
type AuthService struct {
	store            store.Store
	tokenService     *auth.TokenService
	sessionService   *SessionService
	validator        *validation.Validator
	openRegistration bool
	logger           *slog.Logger
}

// NewAuthService creates a new authentication service. When openRegistration
// is false only the first account can be registered.
func NewAuthService(
	s store.Store,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	v *validation.Validator,
	openRegistration bool,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:            s,
		tokenService:     tokenService,
		sessionService:   sessionService,
		validator:        v,
		openRegistration: openRegistration,
		logger:           logger,
	}
}

// RegisterRequest contains the new account's credentials.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,notblank,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Username string     `json:"username" validate:"required,notblank"`
	Password string     `json:"password" validate:"required,max=1024"`
	Client   ClientInfo `json:"-"` // Extracted from request by handler
}

// RefreshRequest contains the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string     `json:"refresh_token" validate:"required"`
	Client       ClientInfo `json:"-"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// Register creates an account and logs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, client ClientInfo) (*AuthResponse, error) {
	req.Username = domain.NormalizeName(req.Username)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if !s.openRegistration {
		count, err := s.store.CountUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("count users: %w", err)
		}
		if count > 0 {
			return nil, domainerrors.Forbidden(msgRegistrationClosed)
		}
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		ID:           userID,
		Username:     req.Username,
		PasswordHash: passwordHash,
		LastLoginAt:  time.Now(),
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict(msgUsernameTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", user.Username)

	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}

// Login authenticates a user and opens a new session.
// Unknown usernames and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.Username = domain.NormalizeName(req.Username)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Hash anyway so both failure paths take similar time.
			_, _ = auth.VerifyPassword(dummyHash(), req.Password)
			return nil, domainerrors.InvalidCredentials(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.Info("Login failed", "username", req.Username, "ip", req.Client.IPAddress)
		return nil, domainerrors.InvalidCredentials(msgInvalidCredentials)
	}

	user.LastLoginAt = time.Now()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		s.logger.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.Client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "session_id", sessionResp.SessionID)

	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}

// RefreshTokens rotates the token pair of an existing session.
func (s *AuthService) RefreshTokens(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	sessionResp, user, err := s.sessionService.RefreshSession(ctx, req.RefreshToken, req.Client)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}

// Logout ends the session and forgets its recent searches.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessionService.DeleteSession(ctx, sessionID)
}

// VerifyAccessToken checks the token and that its session is still open,
// so a logged-out token stops working before it expires.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized(msgInvalidToken).WithCause(err)
	}

	if _, err := s.sessionService.GetSession(ctx, claims.SessionID); err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized(msgInvalidToken)
		}
		return nil, nil, err
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized(msgInvalidToken)
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	return user, claims, nil
}

// CurrentUser returns the user by id.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("User not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// dummyHash is verified against when the username is unknown.
var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("not-a-real-password")
	return h
})
