package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/service"
)

func (s *Server) registerEntryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listEntries",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries",
		Summary:     "List entries",
		Description: "Returns a page of entries with content, newest first. The tag filter includes descendant tags.",
		Tags:        []string{"Entries"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleListEntries))

	huma.Register(s.api, huma.Operation{
		OperationID: "listEntryTitles",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries/titles",
		Summary:     "List entry titles",
		Description: "Returns a page of entries for the title-only view together with every tag",
		Tags:        []string{"Entries"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleListEntryTitles))

	huma.Register(s.api, huma.Operation{
		OperationID:   "createEntry",
		Method:        http.MethodPost,
		Path:          "/api/v1/entries",
		Summary:       "Create entry",
		Description:   "Creates an entry. Tag associations that cannot be saved are reported as warnings.",
		Tags:          []string{"Entries"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, withErrors(s.logger, s.handleCreateEntry))

	huma.Register(s.api, huma.Operation{
		OperationID: "getEntry",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries/{id}",
		Summary:     "Get entry",
		Description: "Returns an entry with its tags",
		Tags:        []string{"Entries"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleGetEntry))

	huma.Register(s.api, huma.Operation{
		OperationID: "updateEntry",
		Method:      http.MethodPut,
		Path:        "/api/v1/entries/{id}",
		Summary:     "Update entry",
		Description: "Replaces an entry's title, content and tags",
		Tags:        []string{"Entries"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleUpdateEntry))

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteEntry",
		Method:      http.MethodDelete,
		Path:        "/api/v1/entries/{id}",
		Summary:     "Delete entry",
		Description: "Deletes an entry and its tag associations",
		Tags:        []string{"Entries"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleDeleteEntry))
}

// === DTOs ===

// ListEntriesInput contains pagination and filter parameters.
type ListEntriesInput struct {
	Page    int    `query:"page" minimum:"0" doc:"Page number, 1-based; clamped to the last page"`
	PerPage int    `query:"per_page" minimum:"0" maximum:"100" doc:"Items per page; 10 for previews, 20 for titles by default"`
	Tag     string `query:"tag" doc:"Tag name; matches entries carrying it or any descendant"`
}

func (in *ListEntriesInput) params() service.ListParams {
	return service.ListParams{Page: in.Page, PerPage: in.PerPage, Tag: in.Tag}
}

// ListEntriesOutput wraps a preview page for Huma.
type ListEntriesOutput struct {
	Body *service.EntryListing
}

// ListTitlesOutput wraps a title page for Huma.
type ListTitlesOutput struct {
	Body *service.TitleListing
}

// EntryRequest is the request body for creating or replacing an entry.
// Tag ids are strings as submitted by a multi-select; ids that do not
// parse or name no tag are skipped with a warning.
type EntryRequest struct {
	Title   string   `json:"title,omitempty" maxLength:"500" doc:"Entry title"`
	Content string   `json:"content,omitempty" doc:"Entry body, Markdown or HTML"`
	TagIDs  []string `json:"tag_ids,omitempty" doc:"Tag ids to attach"`
}

func (r EntryRequest) input() service.EntryInput {
	return service.EntryInput{Title: r.Title, Content: r.Content, TagIDs: r.TagIDs}
}

// CreateEntryInput wraps the create request for Huma.
type CreateEntryInput struct {
	Body EntryRequest
}

// EntryIDInput identifies an entry.
type EntryIDInput struct {
	ID int64 `path:"id" doc:"Entry ID"`
}

// UpdateEntryInput wraps the update request for Huma.
type UpdateEntryInput struct {
	ID   int64 `path:"id" doc:"Entry ID"`
	Body EntryRequest
}

// EntryResponse is an entry plus warnings from secondary writes.
type EntryResponse struct {
	domain.Entry
	Warnings []string `json:"warnings,omitempty" doc:"Secondary writes that failed"`
}

// EntryOutput wraps an entry for Huma.
type EntryOutput struct {
	Body EntryResponse
}

// DeleteResponse reports a deletion.
type DeleteResponse struct {
	Deleted  bool     `json:"deleted"`
	Warnings []string `json:"warnings,omitempty" doc:"Secondary writes that failed"`
}

// DeleteOutput wraps a deletion for Huma.
type DeleteOutput struct {
	Body DeleteResponse
}

// === Handlers ===

func (s *Server) handleListEntries(ctx context.Context, input *ListEntriesInput) (*ListEntriesOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	page, err := s.services.Entry.ListPreview(ctx, input.params())
	if err != nil {
		return nil, err
	}
	return &ListEntriesOutput{Body: page}, nil
}

func (s *Server) handleListEntryTitles(ctx context.Context, input *ListEntriesInput) (*ListTitlesOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	page, err := s.services.Entry.ListTitles(ctx, input.params())
	if err != nil {
		return nil, err
	}
	return &ListTitlesOutput{Body: page}, nil
}

func (s *Server) handleCreateEntry(ctx context.Context, input *CreateEntryInput) (*EntryOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	res, err := s.services.Entry.Create(ctx, input.Body.input())
	if err != nil {
		return nil, err
	}
	return entryOutput(res), nil
}

func (s *Server) handleGetEntry(ctx context.Context, input *EntryIDInput) (*EntryOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	e, err := s.services.Entry.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &EntryOutput{Body: EntryResponse{Entry: *e}}, nil
}

func (s *Server) handleUpdateEntry(ctx context.Context, input *UpdateEntryInput) (*EntryOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	res, err := s.services.Entry.Update(ctx, input.ID, input.Body.input())
	if err != nil {
		return nil, err
	}
	return entryOutput(res), nil
}

func (s *Server) handleDeleteEntry(ctx context.Context, input *EntryIDInput) (*DeleteOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	res, err := s.services.Entry.Delete(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &DeleteOutput{Body: DeleteResponse{Deleted: true, Warnings: res.Warnings}}, nil
}

func entryOutput(res service.Result[*domain.Entry]) *EntryOutput {
	return &EntryOutput{Body: EntryResponse{Entry: *res.Value, Warnings: res.Warnings}}
}
