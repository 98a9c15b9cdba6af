package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/diary-server/internal/errors"
	"github.com/listenupapp/diary-server/internal/search"
)

func ptr[T any](v T) *T { return &v }

func TestTagCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	travel := env.tag(t, "  Travel ", nil)
	assert.Equal(t, "Travel", travel.Name)
	assert.Nil(t, travel.ParentID)

	t.Run("blank name", func(t *testing.T) {
		_, err := env.tags.Create(ctx, CreateTagRequest{Name: " "})
		assert.ErrorIs(t, err, domainerrors.ErrValidation)
	})

	t.Run("duplicate ignores case", func(t *testing.T) {
		_, err := env.tags.Create(ctx, CreateTagRequest{Name: "TRAVEL"})
		assert.ErrorIs(t, err, domainerrors.ErrConflict)
	})

	t.Run("unknown parent makes a root", func(t *testing.T) {
		res, err := env.tags.Create(ctx, CreateTagRequest{Name: "Orphan", ParentID: ptr(int64(9999))})
		require.NoError(t, err)
		assert.Nil(t, res.Value.ParentID)
	})
}

func TestTagRename_ConflictKeepsOriginal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.tag(t, "Work", nil)
	home := env.tag(t, "Home", nil)

	_, err := env.tags.Update(ctx, home.ID, UpdateTagRequest{Name: ptr("work")})
	require.ErrorIs(t, err, domainerrors.ErrConflict)

	got, err := env.tags.Get(ctx, home.ID)
	require.NoError(t, err)
	assert.Equal(t, "Home", got.Name)

	list, err := env.tags.List(ctx)
	require.NoError(t, err)
	names := make([]string, len(list))
	for i, tg := range list {
		names[i] = tg.Name
	}
	assert.Equal(t, []string{"Home", "Work"}, names)
}

func TestTagRename_ReindexesTaggedEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tag := env.tag(t, "Hols", nil)
	e := env.entry(t, "Beach", "", tag)

	res, err := env.tags.Update(ctx, tag.ID, UpdateTagRequest{Name: ptr("Holiday")})
	require.NoError(t, err)
	require.Empty(t, res.Warnings)

	hits, err := env.index.Search(ctx, search.SearchParams{Query: "holiday"})
	require.NoError(t, err)
	require.Len(t, hits.Hits, 1)
	assert.Equal(t, e.ID, hits.Hits[0].EntryID)
}

func TestTagReparent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.tags.SetClosureEnabled(ctx, true))

	a := env.tag(t, "A", nil)
	b := env.tag(t, "B", a)
	c := env.tag(t, "C", b)
	other := env.tag(t, "Other", nil)

	t.Run("own parent", func(t *testing.T) {
		_, err := env.tags.Update(ctx, a.ID, UpdateTagRequest{ParentID: &a.ID})
		assert.ErrorIs(t, err, domainerrors.ErrValidation)
	})

	t.Run("under a descendant", func(t *testing.T) {
		_, err := env.tags.Update(ctx, a.ID, UpdateTagRequest{ParentID: &c.ID})
		assert.ErrorIs(t, err, domainerrors.ErrValidation)

		got, err := env.tags.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)
	})

	t.Run("move keeps closure fresh", func(t *testing.T) {
		res, err := env.tags.Update(ctx, b.ID, UpdateTagRequest{ParentID: &other.ID})
		require.NoError(t, err)
		require.Empty(t, res.Warnings)

		ids, err := env.tags.Descendants(ctx, other.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{other.ID, b.ID, c.ID}, ids)

		ids, err = env.tags.Descendants(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{a.ID}, ids)
	})

	t.Run("clear parent", func(t *testing.T) {
		res, err := env.tags.Update(ctx, b.ID, UpdateTagRequest{ClearParent: true})
		require.NoError(t, err)
		assert.Nil(t, res.Value.ParentID)
	})
}

func TestTagDelete_ChildrenBecomeRoots(t *testing.T) {
	for _, closure := range []bool{false, true} {
		name := "live"
		if closure {
			name = "closure"
		}
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			require.NoError(t, env.tags.SetClosureEnabled(ctx, closure))

			parent := env.tag(t, "Parent", nil)
			kid1 := env.tag(t, "Kid1", parent)
			kid2 := env.tag(t, "Kid2", parent)
			e := env.entry(t, "Tagged", "", parent, kid1)

			res, err := env.tags.Delete(ctx, parent.ID)
			require.NoError(t, err)
			assert.True(t, res.OK())

			for _, id := range []int64{kid1.ID, kid2.ID} {
				got, err := env.tags.Get(ctx, id)
				require.NoError(t, err)
				assert.Nil(t, got.ParentID)
			}

			got, err := env.entries.Get(ctx, e.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"Kid1"}, got.Tags)

			found, err := env.search.Search(ctx, "", "parent")
			require.NoError(t, err)
			assert.Empty(t, found.Value.Entries)

			_, err = env.tags.Delete(ctx, parent.ID)
			assert.ErrorIs(t, err, domainerrors.ErrNotFound)
		})
	}
}

func TestTagViews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	travel := env.tag(t, "Travel", nil)
	japan := env.tag(t, "Japan", travel)
	env.tag(t, "Tokyo", japan)
	env.tag(t, "Food", nil)

	list, err := env.tags.List(ctx)
	require.NoError(t, err)
	tiers := make(map[string]int, len(list))
	for _, tg := range list {
		tiers[tg.Name] = tg.Tier
	}
	assert.Equal(t, map[string]int{"Food": 0, "Japan": 1, "Tokyo": 2, "Travel": 0}, tiers)

	grouped, err := env.tags.Tiers(ctx)
	require.NoError(t, err)
	require.Len(t, grouped, 3)
	assert.Equal(t, 0, grouped[0].Tier)
	assert.Len(t, grouped[0].Tags, 2)

	tree, err := env.tags.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Food", tree[0].Name)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, "Japan", tree[1].Children[0].Name)
	assert.Equal(t, "Tokyo", tree[1].Children[0].Children[0].Name)
}

func TestTagClosureStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	status, err := env.tags.ClosureStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, ClosureStatus{Scope: ScopeLive}, status)

	a := env.tag(t, "A", nil)
	env.tag(t, "B", a)

	status, err = env.tags.RebuildClosure(ctx)
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.Equal(t, ScopeClosure, status.Scope)
	// (A,A), (B,B), (B,A)
	assert.Equal(t, 3, status.Rows)

	env.tag(t, "C", a)
	status, err = env.tags.ClosureStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, status.Rows, "creating a tag refreshes the closure")

	require.NoError(t, env.tags.SetClosureEnabled(ctx, false))
	status, err = env.tags.ClosureStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Exists)
}

func TestTagDescendants_Unknown(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.tags.Descendants(context.Background(), 77)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
