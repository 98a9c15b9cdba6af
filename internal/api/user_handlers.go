package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/diary-server/internal/domain"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me",
		Summary:     "Get current user",
		Description: "Returns the authenticated user",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleGetCurrentUser))
}

// CurrentUserResponse is the authenticated user and their session.
type CurrentUserResponse struct {
	domain.User
	SessionID string `json:"session_id" doc:"Current session"`
}

// CurrentUserOutput wraps the current user for Huma.
type CurrentUserOutput struct {
	Body CurrentUserResponse
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*CurrentUserOutput, error) {
	p, err := GetPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.CurrentUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return &CurrentUserOutput{Body: CurrentUserResponse{User: *user, SessionID: p.SessionID}}, nil
}
