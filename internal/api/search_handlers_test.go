package api

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/search"
)

func searchPath(q string) string {
	return "/api/v1/search?q=" + url.QueryEscape(q)
}

func titlesOf(entries []*domain.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Title)
	}
	return out
}

func TestSearch_MatchesAllKeywords(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.token(t)
	travel := ts.createTag(t, authz, "Travel", nil)
	japan := ts.createTag(t, authz, "Japan", &travel.ID)

	ts.createEntry(t, authz, "Kyoto temples", "Rain all day", japan.ID)
	ts.createEntry(t, authz, "Groceries", "rain boots and rice")
	ts.createEntry(t, authz, "Osaka", "street food", japan.ID)

	tests := []struct {
		query string
		want  []string
	}{
		{"rain", []string{"Groceries", "Kyoto temples"}},
		{"RAIN travel", []string{"Kyoto temples"}},
		{"travel", []string{"Osaka", "Kyoto temples"}},
		{"  food   JAP ", []string{"Osaka"}},
		{"rain snow", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := ts.api.Get(searchPath(tt.query), authz)
			require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
			out := decodeEnvelope[SearchResponse](t, resp).Data
			assert.Equal(t, tt.want, titlesOf(out.Entries))
			assert.Empty(t, out.Warnings)
		})
	}
}

func TestSearch_ResultsCarryFullTags(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.token(t)
	mood := ts.createTag(t, authz, "mood", nil)
	work := ts.createTag(t, authz, "work", nil)
	ts.createEntry(t, authz, "Long day", "", work.ID, mood.ID)

	resp := ts.api.Get(searchPath("work"), authz)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	out := decodeEnvelope[SearchResponse](t, resp).Data
	require.Len(t, out.Entries, 1)
	assert.Equal(t, []string{"mood", "work"}, out.Entries[0].Tags)
}

func TestSearch_HistoryAndRecent(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.token(t)
	ts.createEntry(t, authz, "Picnic", "sunny park")

	for _, q := range []string{"sunny", "nothing here", "park", "sunny"} {
		resp := ts.api.Get(searchPath(q), authz)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}

	resp := ts.api.Get("/api/v1/search/recent", authz)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	recent := decodeEnvelope[struct {
		Recent []string `json:"recent"`
	}](t, resp).Data.Recent
	assert.Equal(t, []string{"sunny", "park", "nothing here"}, recent)

	// Only searches with results reach the history.
	resp = ts.api.Get("/api/v1/search/history", authz)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	history := decodeEnvelope[struct {
		History []domain.SearchHistoryEntry `json:"history"`
	}](t, resp).Data.History
	require.Len(t, history, 2)
	assert.Equal(t, "sunny", history[0].Term)
	assert.Equal(t, 2, history[0].Count)
	assert.Equal(t, "park", history[1].Term)

	resp = ts.api.Get("/api/v1/search/history?filter=PAR", authz)
	history = decodeEnvelope[struct {
		History []domain.SearchHistoryEntry `json:"history"`
	}](t, resp).Data.History
	require.Len(t, history, 1)
	assert.Equal(t, "park", history[0].Term)

	resp = ts.api.Delete("/api/v1/search/history?term=park", authz)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Delete("/api/v1/search/history?term=park", authz)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Delete("/api/v1/search/history", authz)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSearch_RecentIsPerSession(t *testing.T) {
	ts := setupTestServer(t)
	first := ts.register(t, "writer")
	ts.api.Get(searchPath("alpha"), "Authorization: Bearer "+first.AccessToken)

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"username": "writer",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	second := decodeEnvelope[AuthResponse](t, resp).Data

	resp = ts.api.Get("/api/v1/search/recent", "Authorization: Bearer "+second.AccessToken)
	recent := decodeEnvelope[struct {
		Recent []string `json:"recent"`
	}](t, resp).Data.Recent
	assert.Empty(t, recent)
}

func TestSearch_BlankQuery(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.token(t)
	ts.createEntry(t, authz, "Anything", "at all")

	resp := ts.api.Get(searchPath("   "), authz)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	out := decodeEnvelope[SearchResponse](t, resp).Data
	assert.Empty(t, out.Entries)
	assert.Empty(t, out.Recent)

	resp = ts.api.Get("/api/v1/search/history", authz)
	history := decodeEnvelope[struct {
		History []domain.SearchHistoryEntry `json:"history"`
	}](t, resp).Data.History
	assert.Empty(t, history)
}

func TestSearch_ScopeFollowsClosure(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.token(t)
	outdoors := ts.createTag(t, authz, "outdoors", nil)
	hiking := ts.createTag(t, authz, "hiking", &outdoors.ID)
	ts.createEntry(t, authz, "Ridge walk", "", hiking.ID)

	resp := ts.api.Get(searchPath("outdoors"), authz)
	live := decodeEnvelope[SearchResponse](t, resp).Data
	assert.Equal(t, "live", live.Scope)

	resp = ts.api.Post("/api/v1/tags/closure/rebuild", authz)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get(searchPath("outdoors"), authz)
	closure := decodeEnvelope[SearchResponse](t, resp).Data
	assert.Equal(t, "closure", closure.Scope)
	assert.Equal(t, titlesOf(live.Entries), titlesOf(closure.Entries))
}

func TestRankedSearch(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.token(t)
	garden := ts.createTag(t, authz, "garden", nil)
	e := ts.createEntry(t, authz, "Planting tomatoes", "The tomatoes went in today", garden.ID)
	ts.createEntry(t, authz, "Budget", "spreadsheets")

	resp := ts.api.Get("/api/v1/search/ranked?q=tomatoes&limit=5", authz)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	result := decodeEnvelope[search.SearchResult](t, resp).Data
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, e.ID, result.Hits[0].EntryID)

	// Ranked searches are not recorded.
	resp = ts.api.Get("/api/v1/search/history", authz)
	assert.NotContains(t, resp.Body.String(), "tomato")

	resp = ts.api.Get(fmt.Sprintf("/api/v1/search/ranked?q=x&limit=%d", 1000), authz)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}
