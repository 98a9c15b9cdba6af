package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/listenupapp/diary-server/internal/domain"
	domainerrors "github.com/listenupapp/diary-server/internal/errors"
	"github.com/listenupapp/diary-server/internal/store"
)

// HistoryService exposes the persisted search history.
type HistoryService struct {
	store  store.Store
	logger *slog.Logger
}

// NewHistoryService creates a history service.
func NewHistoryService(s store.Store, logger *slog.Logger) *HistoryService {
	return &HistoryService{store: s, logger: logger}
}

// HistoryQuery filters and orders the listing. Order is "usage" (default)
// or "time"; anything else falls back to usage.
type HistoryQuery struct {
	Filter string
	Order  string
}

// List returns history rows matching the filter.
func (s *HistoryService) List(ctx context.Context, q HistoryQuery) ([]domain.SearchHistoryEntry, error) {
	order := store.HistoryOrderUsage
	if store.HistoryOrder(q.Order) == store.HistoryOrderTime {
		order = store.HistoryOrderTime
	}

	rows, err := s.store.ListSearchHistory(ctx, store.HistoryQuery{
		Filter: strings.TrimSpace(q.Filter),
		Order:  order,
	})
	if err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}
	return rows, nil
}

// Delete removes one term.
func (s *HistoryService) Delete(ctx context.Context, term string) error {
	if strings.TrimSpace(term) == "" {
		return domainerrors.Validation("No term specified.")
	}

	if err := s.store.DeleteSearchHistory(ctx, term); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("Search term %q not found.", term)
		}
		return fmt.Errorf("delete search history: %w", err)
	}

	s.logger.Info("Search history term deleted", "term", term)
	return nil
}
