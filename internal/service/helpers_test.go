package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/search"
	"github.com/listenupapp/diary-server/internal/sessionstate"
	"github.com/listenupapp/diary-server/internal/store/sqlite"
)

type testEnv struct {
	store   *sqlite.Store
	state   *sessionstate.Store
	index   *search.SearchIndex
	tags    *TagService
	entries *EntryService
	search  *SearchService
	history *HistoryService
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestEnv wires the diary services over a temp SQLite file, an
// in-memory session state and a temp Bleve index.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := testLogger()

	st, err := sqlite.Open(filepath.Join(dir, "diary.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	state, err := sessionstate.Open(sessionstate.Options{InMemory: true, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = state.Close() })

	idx, err := search.NewSearchIndex(search.Options{DataPath: dir, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	return &testEnv{
		store:   st,
		state:   state,
		index:   idx,
		tags:    NewTagService(st, idx, logger),
		entries: NewEntryService(st, idx, logger),
		search:  NewSearchService(st, state, idx, logger),
		history: NewHistoryService(st, logger),
	}
}

func (e *testEnv) tag(t *testing.T, name string, parent *domain.Tag) *domain.Tag {
	t.Helper()
	req := CreateTagRequest{Name: name}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	res, err := e.tags.Create(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	return res.Value
}

func (e *testEnv) entry(t *testing.T, title, content string, tags ...*domain.Tag) *domain.Entry {
	t.Helper()
	ids := make([]string, len(tags))
	for i, tg := range tags {
		ids[i] = strconv.FormatInt(tg.ID, 10)
	}
	res, err := e.entries.Create(context.Background(), EntryInput{Title: title, Content: content, TagIDs: ids})
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	return res.Value
}

func entryIDs(entries []*domain.Entry) []int64 {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}
