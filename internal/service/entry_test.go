package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/diary-server/internal/errors"
	"github.com/listenupapp/diary-server/internal/store"
)

type failingTagsStore struct{ store.Store }

func (failingTagsStore) SetEntryTags(context.Context, int64, []int64) error {
	return errors.New("database is locked")
}

func TestEntryCreate_RequiresTitle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := EntryInput{Title: "   ", Content: "kept for the form"}
	_, err := env.entries.Create(ctx, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, in, derr.Details, "input is echoed back")

	total, err := env.store.CountEntries(ctx, store.EntryFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestEntryCreate_NormalizesContent(t *testing.T) {
	env := newTestEnv(t)

	e := env.entry(t, "  Market  ", "<p>A <strong>big</strong> day</p>")
	assert.Equal(t, "Market", e.Title)
	assert.Equal(t, "A **big** day", e.Content)
}

func TestEntryCreate_BadTagIDsAreWarnings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	walk := env.tag(t, "Walk", nil)
	wid := strconv.FormatInt(walk.ID, 10)

	res, err := env.entries.Create(ctx, EntryInput{
		Title:  "Evening",
		TagIDs: []string{"abc", wid, "999", wid, ""},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Value)

	assert.Equal(t, []string{"Walk"}, res.Value.Tags)
	assert.Equal(t, []string{
		`ignored invalid tag id "abc"`,
		`ignored invalid tag id ""`,
		"ignored unknown tag id 999",
	}, res.Warnings)
}

func TestEntryCreate_TagSaveFailureIsAWarning(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	walk := env.tag(t, "Walk", nil)

	svc := NewEntryService(failingTagsStore{env.store}, nil, testLogger())
	res, err := svc.Create(ctx, EntryInput{Title: "Evening", TagIDs: []string{strconv.FormatInt(walk.ID, 10)}})
	require.NoError(t, err)
	assert.Equal(t, []string{warnTagAssociations}, res.Warnings)

	got, err := env.entries.Get(ctx, res.Value.ID)
	require.NoError(t, err)
	assert.Equal(t, "Evening", got.Title)
	assert.Empty(t, got.Tags)
}

func TestEntryUpdate_ReplacesTags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	walk := env.tag(t, "Walk", nil)
	rain := env.tag(t, "Rain", nil)
	e := env.entry(t, "Evening", "", walk)

	res, err := env.entries.Update(ctx, e.ID, EntryInput{
		Title:  "Evening, wet",
		TagIDs: []string{strconv.FormatInt(rain.ID, 10)},
	})
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	assert.Equal(t, "Evening, wet", res.Value.Title)
	assert.Equal(t, []string{"Rain"}, res.Value.Tags)
	assert.Equal(t, e.CreatedAt.Unix(), res.Value.CreatedAt.Unix())
}

func TestEntry_NotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.entries.Get(ctx, 42)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = env.entries.Update(ctx, 42, EntryInput{Title: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = env.entries.Delete(ctx, 42)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestEntryDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.entry(t, "Short lived", "")

	res, err := env.entries.Delete(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, res.OK())

	_, err = env.entries.Get(ctx, e.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	n, err := env.index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEntryList_Pagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := range 25 {
		env.entry(t, fmt.Sprintf("Entry %02d", i), "")
	}

	first, err := env.entries.ListPreview(ctx, ListParams{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 25, first.Total)
	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, PreviewPerPage, first.PerPage)
	require.Len(t, first.Items, 10)
	assert.Equal(t, "Entry 24", first.Items[0].Title, "newest first")

	clamped, err := env.entries.ListPreview(ctx, ListParams{Page: 99})
	require.NoError(t, err)
	assert.Equal(t, 3, clamped.Page.Page)
	require.Len(t, clamped.Items, 5)
	assert.Equal(t, "Entry 00", clamped.Items[4].Title)

	titles, err := env.entries.ListTitles(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, TitlesPerPage, titles.PerPage)
	assert.Equal(t, 2, titles.TotalPages)
	assert.Len(t, titles.Items, 20)
	assert.NotNil(t, titles.AllTags)

	custom, err := env.entries.ListPreview(ctx, ListParams{Page: 2, PerPage: 7})
	require.NoError(t, err)
	assert.Equal(t, 4, custom.TotalPages)
	assert.Len(t, custom.Items, 7)
}

func TestEntryList_TagFilterIncludesDescendants(t *testing.T) {
	for _, closure := range []bool{false, true} {
		t.Run(fmt.Sprintf("closure=%v", closure), func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			require.NoError(t, env.tags.SetClosureEnabled(ctx, closure))

			travel := env.tag(t, "Travel", nil)
			japan := env.tag(t, "Japan", travel)
			work := env.tag(t, "Work", nil)
			a := env.entry(t, "Flight", "", travel)
			b := env.entry(t, "Kyoto", "", japan)
			env.entry(t, "Standup", "", work)

			list, err := env.entries.ListPreview(ctx, ListParams{Tag: "travel"})
			require.NoError(t, err)
			assert.Equal(t, "travel", list.Tag)
			assert.Equal(t, 2, list.Total)
			assert.Equal(t, []int64{b.ID, a.ID}, entryIDs(list.Items))

			list, err = env.entries.ListPreview(ctx, ListParams{Tag: "Japan"})
			require.NoError(t, err)
			assert.Equal(t, []int64{b.ID}, entryIDs(list.Items))

			titles, err := env.entries.ListTitles(ctx, ListParams{Tag: "Travel"})
			require.NoError(t, err)
			assert.Len(t, titles.AllTags, 3)
		})
	}
}

func TestEntryList_UnknownTagMatchesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.entry(t, "Anything", "")

	list, err := env.entries.ListPreview(context.Background(), ListParams{Tag: "nope", Page: 4})
	require.NoError(t, err)
	assert.Zero(t, list.Total)
	assert.Zero(t, list.TotalPages)
	assert.Equal(t, 1, list.Page.Page)
	assert.Empty(t, list.Items)
}
