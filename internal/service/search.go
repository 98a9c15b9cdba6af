package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/search"
	"github.com/listenupapp/diary-server/internal/store"
)

// RecentStore holds the per-session recency list.
// *sessionstate.Store implements it.
type RecentStore interface {
	RecentSearches(ctx context.Context, sessionID string) ([]string, error)
	PushRecentSearch(ctx context.Context, sessionID, query string) ([]string, error)
}

// RankedIndex is the full-text side of search. *search.SearchIndex implements it.
type RankedIndex interface {
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
	Rebuild(entries []*domain.Entry) error
	DocumentCount() (uint64, error)
}

// SearchOutcome is the answer to one keyword search.
type SearchOutcome struct {
	Query   string          `json:"query"`
	Entries []*domain.Entry `json:"entries"`
	Recent  []string        `json:"recent"`
	Scope   string          `json:"scope"` // tag expansion strategy used
}

// SearchService runs keyword searches over entries and keeps the
// bookkeeping around them: persisted history and the session recency list.
type SearchService struct {
	store  store.Store
	recent RecentStore
	index  RankedIndex
	scopes scopeSelector
	logger *slog.Logger
	now    func() time.Time
}

// NewSearchService creates a search service. index may be nil, which
// disables ranked search.
func NewSearchService(s store.Store, recent RecentStore, index RankedIndex, logger *slog.Logger) *SearchService {
	return &SearchService{
		store:  s,
		recent: recent,
		index:  index,
		scopes: scopeSelector{store: s, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// Search splits query on whitespace and returns the entries matching every
// keyword, newest first. A keyword matches an entry whose title or content
// contains it, or that carries a descendant of a tag whose name contains it.
//
// A blank query matches nothing and records nothing. Otherwise the query is
// pushed onto the session's recency list, and on a non-empty result it is
// counted in the search history. Failures in either are warnings.
func (s *SearchService) Search(ctx context.Context, sessionID, query string) (Result[*SearchOutcome], error) {
	var res Result[*SearchOutcome]

	query = strings.TrimSpace(query)
	out := &SearchOutcome{Query: query, Entries: []*domain.Entry{}}
	res.Value = out

	keywords := strings.Fields(query)
	if len(keywords) == 0 {
		out.Recent = s.currentRecent(ctx, sessionID, &res)
		return res, nil
	}

	scope := s.scopes.pick(ctx)
	out.Scope = scope.Name()

	entries, err := s.matchAll(ctx, scope, keywords)
	if err != nil {
		return res, err
	}
	out.Entries = entries

	if len(entries) > 0 {
		if err := s.store.UpsertSearchHistory(ctx, query, s.now()); err != nil {
			s.logger.Warn("failed to record search history", "term", query, "error", err)
			res.Warnf("search history could not be updated")
		}
	}

	out.Recent = s.pushRecent(ctx, sessionID, query, &res)

	s.logger.Debug("search", "keywords", len(keywords), "results", len(entries), "scope", out.Scope)
	return res, nil
}

// Recent returns the session's recency list, newest first.
func (s *SearchService) Recent(ctx context.Context, sessionID string) ([]string, error) {
	if s.recent == nil || sessionID == "" {
		return []string{}, nil
	}
	return s.recent.RecentSearches(ctx, sessionID)
}

// Ranked runs a relevance-ranked full-text search. Unlike Search it stems
// words and tolerates typos, and it touches neither history nor recency.
func (s *SearchService) Ranked(ctx context.Context, query string, limit, offset int) (*search.SearchResult, error) {
	if s.index == nil {
		return &search.SearchResult{Query: query, Hits: []search.SearchHit{}}, nil
	}
	return s.index.Search(ctx, search.SearchParams{
		Query:     query,
		Limit:     limit,
		Offset:    offset,
		Highlight: true,
	})
}

// Reindex rebuilds the full-text index from the store.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	entries, err := s.store.ListAllEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list entries: %w", err)
	}
	if err := s.index.Rebuild(entries); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	return len(entries), nil
}

// DocumentCount reports how many entries the full-text index holds.
func (s *SearchService) DocumentCount() (uint64, error) {
	if s.index == nil {
		return 0, errors.New("search index disabled")
	}
	return s.index.DocumentCount()
}

// ReindexIfEmpty fills a freshly created index, e.g. after a mapping change.
func (s *SearchService) ReindexIfEmpty(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	n, err := s.index.DocumentCount()
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	if n > 0 {
		return nil
	}
	count, err := s.Reindex(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		s.logger.Info("Search index populated", "entries", count)
	}
	return nil
}

func (s *SearchService) matchAll(ctx context.Context, scope TagScope, keywords []string) ([]*domain.Entry, error) {
	scopes := make([]store.KeywordScope, 0, len(keywords))
	for _, kw := range keywords {
		ids, err := scope.ForKeyword(ctx, kw)
		if err != nil {
			return nil, fmt.Errorf("expand keyword %q: %w", kw, err)
		}
		scopes = append(scopes, store.KeywordScope{Keyword: domain.FoldKey(kw), TagIDs: ids})
	}

	entries, err := s.store.SearchEntries(ctx, scopes)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	return entries, nil
}

func (s *SearchService) currentRecent(ctx context.Context, sessionID string, res *Result[*SearchOutcome]) []string {
	list, err := s.Recent(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to read recent searches", "session_id", sessionID, "error", err)
		res.Warnf("recent searches are unavailable")
		return []string{}
	}
	return list
}

func (s *SearchService) pushRecent(ctx context.Context, sessionID, query string, res *Result[*SearchOutcome]) []string {
	if s.recent == nil || sessionID == "" {
		return []string{}
	}
	list, err := s.recent.PushRecentSearch(ctx, sessionID, query)
	if err != nil {
		s.logger.Warn("failed to update recent searches", "session_id", sessionID, "error", err)
		res.Warnf("recent searches could not be updated")
		return []string{}
	}
	return list
}
