package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/hierarchy"
	"github.com/listenupapp/diary-server/internal/store"
)

// TagScope expands tags into the descendant-inclusive set of tag ids an
// entry may carry to match them. Both implementations return the same ids
// for the same tag graph; they differ only in where the work happens.
type TagScope interface {
	// ForKeyword returns every descendant of every tag whose name contains
	// keyword, ignoring case. Results are ascending.
	ForKeyword(ctx context.Context, keyword string) ([]int64, error)
	// ForTag returns tagID and all of its descendants, ascending.
	ForTag(ctx context.Context, tagID int64) ([]int64, error)
	// Name identifies the strategy in logs and health output.
	Name() string
}

// Strategy names reported by TagScope.Name.
const (
	ScopeClosure = "closure"
	ScopeLive    = "live"
)

// NewClosureScope answers from the materialized tag_closure table.
func NewClosureScope(s store.Store) TagScope {
	return closureScope{store: s}
}

// NewLiveScope walks the tag graph on every call.
func NewLiveScope(s store.Store) TagScope {
	return liveScope{store: s}
}

type closureScope struct {
	store store.Store
}

func (c closureScope) Name() string { return ScopeClosure }

func (c closureScope) ForKeyword(ctx context.Context, keyword string) ([]int64, error) {
	return c.store.ClosureDescendantsMatching(ctx, domain.FoldKey(keyword))
}

func (c closureScope) ForTag(ctx context.Context, tagID int64) ([]int64, error) {
	return c.store.ClosureDescendantsOf(ctx, tagID)
}

type liveScope struct {
	store store.Store
}

func (l liveScope) Name() string { return ScopeLive }

func (l liveScope) resolver(ctx context.Context) (*hierarchy.Resolver, error) {
	tags, err := l.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return hierarchy.New(tags), nil
}

func (l liveScope) ForKeyword(ctx context.Context, keyword string) ([]int64, error) {
	r, err := l.resolver(ctx)
	if err != nil {
		return nil, err
	}
	return r.MatchingDescendants(domain.FoldKey(keyword)), nil
}

func (l liveScope) ForTag(ctx context.Context, tagID int64) ([]int64, error) {
	r, err := l.resolver(ctx)
	if err != nil {
		return nil, err
	}
	if !r.Has(tagID) {
		return []int64{}, nil
	}
	return r.DescendantIDs(tagID), nil
}

// scopeSelector picks the strategy per call from whether the closure table
// exists, so enabling or dropping it takes effect without a restart.
type scopeSelector struct {
	store  store.Store
	logger *slog.Logger
}

func (s scopeSelector) pick(ctx context.Context) TagScope {
	exists, err := s.store.ClosureExists(ctx)
	if err != nil {
		s.logger.Warn("closure check failed, using live expansion", "error", err)
		return NewLiveScope(s.store)
	}
	if exists {
		return NewClosureScope(s.store)
	}
	return NewLiveScope(s.store)
}
