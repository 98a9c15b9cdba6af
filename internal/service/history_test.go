package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/diary-server/internal/errors"
)

func TestHistory_ListAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, term := range []string{"walk", "rain", "walk", "rainbow", "walk", "rain"} {
		require.NoError(t, env.store.UpsertSearchHistory(ctx, term, base.Add(time.Duration(i)*time.Hour)))
	}

	terms := func(q HistoryQuery) []string {
		rows, err := env.history.List(ctx, q)
		require.NoError(t, err)
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.Term
		}
		return out
	}

	assert.Equal(t, []string{"walk", "rain", "rainbow"}, terms(HistoryQuery{}))
	assert.Equal(t, []string{"walk", "rain", "rainbow"}, terms(HistoryQuery{Order: "bogus"}))
	assert.Equal(t, []string{"rain", "walk", "rainbow"}, terms(HistoryQuery{Order: "time"}))
	assert.Equal(t, []string{"rain", "rainbow"}, terms(HistoryQuery{Filter: " RAIN "}))

	require.NoError(t, env.history.Delete(ctx, "rain"))
	assert.Equal(t, []string{"walk", "rainbow"}, terms(HistoryQuery{}))

	err := env.history.Delete(ctx, "rain")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = env.history.Delete(ctx, "  ")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
