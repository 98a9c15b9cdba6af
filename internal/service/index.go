package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/store"
)

// EntryIndex is the ranked full-text index kept beside the store.
// *search.SearchIndex implements it. Index writes are best-effort: the
// store is the source of truth and the index can be rebuilt from it.
type EntryIndex interface {
	IndexEntry(e *domain.Entry) error
	IndexEntries(entries []*domain.Entry) error
	DeleteEntry(entryID int64) error
}

// entryIndexer applies index updates and logs failures.
// A nil index disables indexing.
type entryIndexer struct {
	store  store.Store
	index  EntryIndex
	logger *slog.Logger
}

func (x entryIndexer) put(e *domain.Entry) error {
	if x.index == nil {
		return nil
	}
	if err := x.index.IndexEntry(e); err != nil {
		x.logger.Warn("failed to index entry", "entry_id", e.ID, "error", err)
		return err
	}
	return nil
}

func (x entryIndexer) remove(entryID int64) error {
	if x.index == nil {
		return nil
	}
	if err := x.index.DeleteEntry(entryID); err != nil {
		x.logger.Warn("failed to remove entry from index", "entry_id", entryID, "error", err)
		return err
	}
	return nil
}

// refresh re-reads the given entries and re-indexes them, so their
// denormalized tag names follow a rename or delete.
func (x entryIndexer) refresh(ctx context.Context, ids []int64) error {
	if x.index == nil || len(ids) == 0 {
		return nil
	}

	entries := make([]*domain.Entry, 0, len(ids))
	for _, id := range ids {
		e, err := x.store.GetEntry(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load entry %d: %w", id, err)
		}
		entries = append(entries, e)
	}

	if err := x.index.IndexEntries(entries); err != nil {
		x.logger.Warn("failed to re-index entries", "count", len(entries), "error", err)
		return err
	}
	return nil
}
