package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/search"
	"github.com/listenupapp/diary-server/internal/service"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchEntries",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search entries",
		Description: "Returns entries matching every whitespace-separated keyword in the title, content or tag hierarchy, newest first.",
		Tags:        []string{"Search"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleSearch))

	huma.Register(s.api, huma.Operation{
		OperationID: "recentSearches",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/recent",
		Summary:     "Recent searches",
		Description: "Returns this session's recent queries, newest first",
		Tags:        []string{"Search"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleRecentSearches))

	huma.Register(s.api, huma.Operation{
		OperationID: "rankedSearch",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/ranked",
		Summary:     "Ranked search",
		Description: "Relevance-ranked full-text search with stemming and typo tolerance. Not recorded in history.",
		Tags:        []string{"Search"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleRankedSearch))

	huma.Register(s.api, huma.Operation{
		OperationID: "listSearchHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/history",
		Summary:     "List search history",
		Description: "Returns recorded search terms with their use counts",
		Tags:        []string{"Search"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleListHistory))

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteSearchHistory",
		Method:      http.MethodDelete,
		Path:        "/api/v1/search/history",
		Summary:     "Delete search history term",
		Description: "Removes one term from the search history",
		Tags:        []string{"Search"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleDeleteHistory))
}

// === DTOs ===

// SearchInput contains the keyword query.
type SearchInput struct {
	Query string `query:"q" maxLength:"500" doc:"Whitespace-separated keywords, all of which must match"`
}

// SearchResponse is a keyword search result plus warnings.
type SearchResponse struct {
	service.SearchOutcome
	Warnings []string `json:"warnings,omitempty" doc:"Bookkeeping writes that failed"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// RecentOutput wraps the recency list for Huma.
type RecentOutput struct {
	Body struct {
		Recent []string `json:"recent" doc:"Recent queries, newest first"`
	}
}

// RankedSearchInput contains ranked search parameters.
type RankedSearchInput struct {
	Query  string `query:"q" maxLength:"500" doc:"Search text"`
	Limit  int    `query:"limit" minimum:"0" maximum:"100" doc:"Maximum hits (default 20)"`
	Offset int    `query:"offset" minimum:"0" doc:"Hits to skip"`
}

// RankedSearchOutput wraps ranked hits for Huma.
type RankedSearchOutput struct {
	Body *search.SearchResult
}

// HistoryInput filters and orders the history listing.
type HistoryInput struct {
	Filter string `query:"filter" doc:"Case-insensitive substring of the term"`
	Order  string `query:"order" doc:"usage (default) or time"`
}

// HistoryOutput wraps the history listing for Huma.
type HistoryOutput struct {
	Body struct {
		History []domain.SearchHistoryEntry `json:"history"`
	}
}

// DeleteHistoryInput names the term to remove.
type DeleteHistoryInput struct {
	Term string `query:"term" doc:"Exact term to delete"`
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	p, err := GetPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Search.Search(ctx, p.SessionID, input.Query)
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: SearchResponse{SearchOutcome: *res.Value, Warnings: res.Warnings}}, nil
}

func (s *Server) handleRecentSearches(ctx context.Context, _ *struct{}) (*RecentOutput, error) {
	p, err := GetPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.services.Search.Recent(ctx, p.SessionID)
	if err != nil {
		return nil, err
	}
	out := &RecentOutput{}
	out.Body.Recent = recent
	return out, nil
}

func (s *Server) handleRankedSearch(ctx context.Context, input *RankedSearchInput) (*RankedSearchOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Search.Ranked(ctx, input.Query, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}
	return &RankedSearchOutput{Body: result}, nil
}

func (s *Server) handleListHistory(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	rows, err := s.services.History.List(ctx, service.HistoryQuery{Filter: input.Filter, Order: input.Order})
	if err != nil {
		return nil, err
	}
	out := &HistoryOutput{}
	out.Body.History = rows
	return out, nil
}

func (s *Server) handleDeleteHistory(ctx context.Context, input *DeleteHistoryInput) (*DeleteOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	if err := s.services.History.Delete(ctx, input.Term); err != nil {
		return nil, err
	}
	return &DeleteOutput{Body: DeleteResponse{Deleted: true}}, nil
}
