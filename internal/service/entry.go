package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/listenupapp/diary-server/internal/domain"
	domainerrors "github.com/listenupapp/diary-server/internal/errors"
	"github.com/listenupapp/diary-server/internal/store"
)

// Default page sizes for the two listing views.
const (
	PreviewPerPage = 10
	TitlesPerPage  = 20
)

const (
	msgTitleRequired    = "Title is required."
	msgEntryNotFound    = "Entry not found."
	warnTagAssociations = "could not save some tag associations"
	warnSearchIndex     = "search index could not be updated"
)

// EntryService manages diary entries and their tag associations.
type EntryService struct {
	store   store.Store
	scopes  scopeSelector
	indexer entryIndexer
	logger  *slog.Logger
}

// NewEntryService creates an entry service. index may be nil.
func NewEntryService(s store.Store, index EntryIndex, logger *slog.Logger) *EntryService {
	return &EntryService{
		store:   s,
		scopes:  scopeSelector{store: s, logger: logger},
		indexer: entryIndexer{store: s, index: index, logger: logger},
		logger:  logger,
	}
}

// EntryInput is the submitted form of an entry. TagIDs arrive as raw
// strings from a multi-select; unparsable ones are skipped with a warning.
type EntryInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	TagIDs  []string `json:"tag_ids"`
}

// ListParams selects a page of entries. Tag, when set, is a tag name and
// matches entries carrying that tag or any descendant.
type ListParams struct {
	Page    int
	PerPage int
	Tag     string
}

// EntryListing is one page of entries.
type EntryListing struct {
	store.PaginatedResult[*domain.Entry]
	Tag string `json:"tag,omitempty"`
}

// TagRef is the id and name of a tag, for filter pickers.
type TagRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TitleListing is a page of entries for the title-only view plus every tag.
type TitleListing struct {
	EntryListing
	AllTags []TagRef `json:"all_tags"`
}

// Create saves a new entry. Failing to save tag associations does not
// fail the create; it is reported as a warning.
func (s *EntryService) Create(ctx context.Context, in EntryInput) (Result[*domain.Entry], error) {
	var res Result[*domain.Entry]

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return res, domainerrors.Validation(msgTitleRequired).WithDetails(in)
	}

	now := time.Now()
	e := &domain.Entry{
		Title:     title,
		Content:   normalizeContent(in.Content),
		Tags:      []string{},
		TagIDs:    []int64{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateEntry(ctx, e); err != nil {
		return res, fmt.Errorf("create entry: %w", err)
	}

	s.logger.Info("Entry created", "entry_id", e.ID)

	res.Value = s.saveTags(ctx, e, in.TagIDs, &res)
	if s.indexer.put(res.Value) != nil {
		res.Warnf(warnSearchIndex)
	}
	return res, nil
}

// Get returns one entry with its tags.
func (s *EntryService) Get(ctx context.Context, id int64) (*domain.Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound(msgEntryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// Update replaces an entry's title, content and tag set.
func (s *EntryService) Update(ctx context.Context, id int64, in EntryInput) (Result[*domain.Entry], error) {
	var res Result[*domain.Entry]

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return res, domainerrors.Validation(msgTitleRequired).WithDetails(in)
	}

	e, err := s.Get(ctx, id)
	if err != nil {
		return res, err
	}

	e.Title = title
	e.Content = normalizeContent(in.Content)
	e.Touch()

	if err := s.store.UpdateEntry(ctx, e); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return res, domainerrors.NotFound(msgEntryNotFound)
		}
		return res, fmt.Errorf("update entry: %w", err)
	}

	s.logger.Info("Entry updated", "entry_id", id)

	res.Value = s.saveTags(ctx, e, in.TagIDs, &res)
	if s.indexer.put(res.Value) != nil {
		res.Warnf(warnSearchIndex)
	}
	return res, nil
}

// Delete removes an entry and its associations.
func (s *EntryService) Delete(ctx context.Context, id int64) (Result[struct{}], error) {
	var res Result[struct{}]

	if err := s.store.DeleteEntry(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return res, domainerrors.NotFound(msgEntryNotFound)
		}
		return res, fmt.Errorf("delete entry: %w", err)
	}

	s.logger.Info("Entry deleted", "entry_id", id)

	if s.indexer.remove(id) != nil {
		res.Warnf(warnSearchIndex)
	}
	return res, nil
}

// ListPreview returns a page for the content-preview view.
func (s *EntryService) ListPreview(ctx context.Context, p ListParams) (*EntryListing, error) {
	return s.list(ctx, p, PreviewPerPage)
}

// ListTitles returns a page for the title-only view, with every tag for
// the filter picker.
func (s *EntryService) ListTitles(ctx context.Context, p ListParams) (*TitleListing, error) {
	listing, err := s.list(ctx, p, TitlesPerPage)
	if err != nil {
		return nil, err
	}

	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	refs := make([]TagRef, len(tags))
	for i, t := range tags {
		refs[i] = TagRef{ID: t.ID, Name: t.Name}
	}

	return &TitleListing{EntryListing: *listing, AllTags: refs}, nil
}

func (s *EntryService) list(ctx context.Context, p ListParams, defaultPerPage int) (*EntryListing, error) {
	filter, err := s.tagFilter(ctx, strings.TrimSpace(p.Tag))
	if err != nil {
		return nil, err
	}

	total, err := s.store.CountEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}

	page := store.NewPage(p.Page, p.PerPage, defaultPerPage, total)

	items, err := s.store.ListEntries(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	return &EntryListing{
		PaginatedResult: store.PaginatedResult[*domain.Entry]{Items: items, Page: page},
		Tag:             strings.TrimSpace(p.Tag),
	}, nil
}

// tagFilter expands a tag name to its descendant set. An unknown name
// filters everything out.
func (s *EntryService) tagFilter(ctx context.Context, name string) (store.EntryFilter, error) {
	if name == "" {
		return store.EntryFilter{}, nil
	}

	tag, err := s.store.GetTagByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return store.EntryFilter{Filtered: true}, nil
	}
	if err != nil {
		return store.EntryFilter{}, fmt.Errorf("find tag %q: %w", name, err)
	}

	ids, err := s.scopes.pick(ctx).ForTag(ctx, tag.ID)
	if err != nil {
		return store.EntryFilter{}, fmt.Errorf("expand tag %q: %w", name, err)
	}
	return store.EntryFilter{Filtered: true, TagIDs: ids}, nil
}

// saveTags replaces e's associations and returns the entry as stored.
// Every problem here is a warning on res.
func (s *EntryService) saveTags(ctx context.Context, e *domain.Entry, raw []string, res *Result[*domain.Entry]) *domain.Entry {
	ids := parseTagIDs(raw, res)

	existing, err := s.store.ExistingTagIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to check tag ids", "entry_id", e.ID, "error", err)
		res.Warnf(warnTagAssociations)
		return e
	}
	for _, id := range ids {
		if _, found := slices.BinarySearch(existing, id); !found {
			res.Warnf("ignored unknown tag id %d", id)
		}
	}

	if err := s.store.SetEntryTags(ctx, e.ID, existing); err != nil {
		s.logger.Warn("failed to save tag associations", "entry_id", e.ID, "tag_ids", existing, "error", err)
		res.Warnf(warnTagAssociations)
		return e
	}

	stored, err := s.store.GetEntry(ctx, e.ID)
	if err != nil {
		s.logger.Warn("failed to reload entry", "entry_id", e.ID, "error", err)
		return e
	}
	return stored
}

// parseTagIDs parses and de-duplicates raw ids, preserving first-seen order.
func parseTagIDs(raw []string, res *Result[*domain.Entry]) []int64 {
	ids := make([]int64, 0, len(raw))
	seen := make(map[int64]bool, len(raw))
	for _, r := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(r), 10, 64)
		if err != nil || id <= 0 {
			res.Warnf("ignored invalid tag id %q", r)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
