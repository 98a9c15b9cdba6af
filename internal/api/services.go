package api

import (
	"context"

	"github.com/listenupapp/diary-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth    *service.AuthService
	Tag     *service.TagService
	Entry   *service.EntryService
	Search  *service.SearchService
	History *service.HistoryService
}

// Pinger is a dependency the health check can probe.
// *sessionstate.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}
