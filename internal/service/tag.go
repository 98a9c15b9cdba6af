package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/listenupapp/diary-server/internal/domain"
	domainerrors "github.com/listenupapp/diary-server/internal/errors"
	"github.com/listenupapp/diary-server/internal/hierarchy"
	"github.com/listenupapp/diary-server/internal/store"
)

// User-facing tag messages.
const (
	msgTagNameRequired = "Tag name is required."
	msgTagExists       = "Tag already exists."
	msgTagNotFound     = "Tag not found."
	msgTagOwnParent    = "A tag cannot be its own parent."
	msgTagUnderOwnKin  = "A tag cannot be moved under one of its descendants."
)

// TagService manages the tag taxonomy and keeps the closure table in step.
type TagService struct {
	store   store.Store
	scopes  scopeSelector
	indexer entryIndexer
	logger  *slog.Logger
}

// NewTagService creates a tag service. index may be nil.
func NewTagService(s store.Store, index EntryIndex, logger *slog.Logger) *TagService {
	return &TagService{
		store:   s,
		scopes:  scopeSelector{store: s, logger: logger},
		indexer: entryIndexer{store: s, index: index, logger: logger},
		logger:  logger,
	}
}

// CreateTagRequest is the input for Create.
type CreateTagRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// UpdateTagRequest is the input for Update. Nil fields are left alone.
// ClearParent makes the tag a root and wins over ParentID.
type UpdateTagRequest struct {
	Name        *string `json:"name,omitempty"`
	ParentID    *int64  `json:"parent_id,omitempty"`
	ClearParent bool    `json:"clear_parent,omitempty"`
}

// TagListItem is a tag with its resolved tier.
type TagListItem struct {
	domain.Tag
	Tier int `json:"tier"`
}

// ClosureStatus describes the materialized closure table.
type ClosureStatus struct {
	Exists bool   `json:"exists"`
	Rows   int    `json:"rows"`
	Scope  string `json:"scope"` // strategy searches currently use
}

// Create adds a tag. A parent that does not exist is dropped, leaving a root.
func (s *TagService) Create(ctx context.Context, req CreateTagRequest) (Result[*domain.Tag], error) {
	var res Result[*domain.Tag]

	name := domain.NormalizeName(req.Name)
	if name == "" {
		return res, domainerrors.Validation(msgTagNameRequired)
	}

	parentID, err := s.existingParent(ctx, req.ParentID)
	if err != nil {
		return res, err
	}

	now := time.Now()
	tag := &domain.Tag{Name: name, ParentID: parentID, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return res, domainerrors.Conflict(msgTagExists)
		}
		return res, fmt.Errorf("create tag: %w", err)
	}

	s.logger.Info("Tag created", "tag_id", tag.ID, "name", tag.Name)

	res.Value = tag
	s.rebuildClosure(ctx, &res.Warnings)
	return res, nil
}

// Get returns one tag.
func (s *TagService) Get(ctx context.Context, id int64) (*domain.Tag, error) {
	tag, err := s.store.GetTag(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound(msgTagNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return tag, nil
}

// Update renames and/or reparents a tag. A name collision leaves the tag
// untouched. A parent that does not exist is treated as no parent.
func (s *TagService) Update(ctx context.Context, id int64, req UpdateTagRequest) (Result[*domain.Tag], error) {
	var res Result[*domain.Tag]

	tag, err := s.Get(ctx, id)
	if err != nil {
		return res, err
	}
	oldName, oldParent := tag.Name, tag.ParentID

	if req.Name != nil {
		name := domain.NormalizeName(*req.Name)
		if name == "" {
			return res, domainerrors.Validation(msgTagNameRequired)
		}
		tag.Name = name
	}

	switch {
	case req.ClearParent:
		tag.ParentID = nil
	case req.ParentID != nil:
		if err := s.checkReparent(ctx, id, *req.ParentID); err != nil {
			return res, err
		}
		if tag.ParentID, err = s.existingParent(ctx, req.ParentID); err != nil {
			return res, err
		}
	}

	tag.Touch()
	if err := s.store.UpdateTag(ctx, tag); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return res, domainerrors.Conflict(msgTagExists)
		case errors.Is(err, store.ErrNotFound):
			return res, domainerrors.NotFound(msgTagNotFound)
		}
		return res, fmt.Errorf("update tag: %w", err)
	}

	s.logger.Info("Tag updated", "tag_id", id, "name", tag.Name)
	res.Value = tag

	if !sameParent(oldParent, tag.ParentID) {
		s.rebuildClosure(ctx, &res.Warnings)
	}
	if oldName != tag.Name {
		s.refreshTagged(ctx, []int64{id}, &res.Warnings)
	}

	return res, nil
}

// Delete removes a tag and its entry associations. Children become roots.
func (s *TagService) Delete(ctx context.Context, id int64) (Result[struct{}], error) {
	var res Result[struct{}]

	// Collected first; the associations are gone after the delete.
	tagged, err := s.store.EntryIDsWithTags(ctx, []int64{id})
	if err != nil {
		return res, fmt.Errorf("list tagged entries: %w", err)
	}

	if err := s.store.DeleteTag(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return res, domainerrors.NotFound(msgTagNotFound)
		}
		return res, fmt.Errorf("delete tag: %w", err)
	}

	s.logger.Info("Tag deleted", "tag_id", id, "entries_affected", len(tagged))

	s.rebuildClosure(ctx, &res.Warnings)
	if s.indexer.refresh(ctx, tagged) != nil {
		res.Warnf("search index could not be updated")
	}
	return res, nil
}

// List returns every tag with usage count and tier, ordered by name.
func (s *TagService) List(ctx context.Context) ([]TagListItem, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	r := hierarchy.New(tags)
	out := make([]TagListItem, len(tags))
	for i, t := range tags {
		out[i] = TagListItem{Tag: t, Tier: r.Tier(t.ID)}
	}
	return out, nil
}

// Tiers groups tags by depth.
func (s *TagService) Tiers(ctx context.Context) ([]domain.TagTier, error) {
	r, err := s.resolver(ctx)
	if err != nil {
		return nil, err
	}
	return r.Tiers(), nil
}

// Tree returns the nested display forest.
func (s *TagService) Tree(ctx context.Context) ([]*domain.TagNode, error) {
	r, err := s.resolver(ctx)
	if err != nil {
		return nil, err
	}
	return r.Forest(), nil
}

// Descendants returns id and every tag below it through the active scope.
func (s *TagService) Descendants(ctx context.Context, id int64) ([]int64, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	ids, err := s.scopes.pick(ctx).ForTag(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("expand tag %d: %w", id, err)
	}
	return ids, nil
}

// ClosureStatus reports whether the closure table exists and its size.
func (s *TagService) ClosureStatus(ctx context.Context) (ClosureStatus, error) {
	exists, err := s.store.ClosureExists(ctx)
	if err != nil {
		return ClosureStatus{}, fmt.Errorf("check closure: %w", err)
	}
	if !exists {
		return ClosureStatus{Scope: ScopeLive}, nil
	}

	rows, err := s.store.CountClosureRows(ctx)
	if err != nil {
		return ClosureStatus{}, fmt.Errorf("count closure rows: %w", err)
	}
	return ClosureStatus{Exists: true, Rows: rows, Scope: ScopeClosure}, nil
}

// RebuildClosure recomputes the closure table, creating it if absent.
func (s *TagService) RebuildClosure(ctx context.Context) (ClosureStatus, error) {
	rows, err := s.store.EnableClosure(ctx)
	if err != nil {
		return ClosureStatus{}, fmt.Errorf("rebuild closure: %w", err)
	}
	s.logger.Info("Tag closure rebuilt", "rows", rows)
	return ClosureStatus{Exists: true, Rows: rows, Scope: ScopeClosure}, nil
}

// SetClosureEnabled creates and fills the closure table, or drops it so
// searches fall back to live expansion.
func (s *TagService) SetClosureEnabled(ctx context.Context, enabled bool) error {
	if enabled {
		_, err := s.RebuildClosure(ctx)
		return err
	}
	if err := s.store.DropClosure(ctx); err != nil {
		return fmt.Errorf("drop closure: %w", err)
	}
	s.logger.Info("Tag closure disabled, using live expansion")
	return nil
}

// existingParent returns id if it names a stored tag, nil otherwise.
func (s *TagService) existingParent(ctx context.Context, id *int64) (*int64, error) {
	if id == nil {
		return nil, nil
	}
	found, err := s.store.ExistingTagIDs(ctx, []int64{*id})
	if err != nil {
		return nil, fmt.Errorf("check parent: %w", err)
	}
	if len(found) == 0 {
		s.logger.Debug("ignoring unknown parent tag", "parent_id", *id)
		return nil, nil
	}
	p := *id
	return &p, nil
}

// checkReparent rejects moves that would close a cycle.
func (s *TagService) checkReparent(ctx context.Context, id, parentID int64) error {
	if parentID == id {
		return domainerrors.Validation(msgTagOwnParent)
	}
	r, err := s.resolver(ctx)
	if err != nil {
		return err
	}
	if _, below := r.Descendants(id)[parentID]; below {
		return domainerrors.Validation(msgTagUnderOwnKin)
	}
	return nil
}

// rebuildClosure refreshes the closure after a structural change.
// Nothing happens when the table is absent; failures only warn since
// the closure is a cache and staleness is tolerated.
func (s *TagService) rebuildClosure(ctx context.Context, warnings *[]string) {
	exists, err := s.store.ClosureExists(ctx)
	if err == nil && !exists {
		return
	}
	if err == nil {
		_, err = s.store.RebuildClosure(ctx)
	}
	if err != nil {
		s.logger.Warn("failed to rebuild tag closure", "error", err)
		*warnings = append(*warnings, "tag hierarchy cache could not be refreshed")
	}
}

func (s *TagService) refreshTagged(ctx context.Context, tagIDs []int64, warnings *[]string) {
	if s.indexer.index == nil {
		return
	}
	ids, err := s.store.EntryIDsWithTags(ctx, tagIDs)
	if err == nil {
		err = s.indexer.refresh(ctx, ids)
	}
	if err != nil {
		s.logger.Warn("failed to re-index tagged entries", "tag_ids", tagIDs, "error", err)
		*warnings = append(*warnings, "search index could not be updated")
	}
}

func (s *TagService) resolver(ctx context.Context) (*hierarchy.Resolver, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return hierarchy.New(tags), nil
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
