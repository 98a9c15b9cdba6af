package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns every tag with its usage count and tier, ordered by name",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleListTags))

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTag",
		Method:        http.MethodPost,
		Path:          "/api/v1/tags",
		Summary:       "Create tag",
		Description:   "Creates a tag. Names are unique ignoring case; an unknown parent leaves a root.",
		Tags:          []string{"Tags"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, withErrors(s.logger, s.handleCreateTag))

	huma.Register(s.api, huma.Operation{
		OperationID: "listTagTiers",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/tiers",
		Summary:     "List tags by tier",
		Description: "Groups tags by depth in the hierarchy, roots first",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleTagTiers))

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagTree",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/tree",
		Summary:     "Get tag tree",
		Description: "Returns the tag hierarchy as a nested forest ordered by name",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleTagTree))

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagClosure",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/closure",
		Summary:     "Get closure status",
		Description: "Reports whether the tag closure table exists and how many rows it holds",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleClosureStatus))

	huma.Register(s.api, huma.Operation{
		OperationID: "rebuildTagClosure",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/closure/rebuild",
		Summary:     "Rebuild closure",
		Description: "Recomputes the tag closure table, creating it if absent",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleRebuildClosure))

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Description: "Returns a tag by ID",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleGetTag))

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Update tag",
		Description: "Renames or reparents a tag",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleUpdateTag))

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Delete tag",
		Description: "Deletes a tag. Its children become roots and entries lose the tag.",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleDeleteTag))

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagDescendants",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}/descendants",
		Summary:     "Get tag descendants",
		Description: "Returns the tag's id and the ids of every tag below it",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, withErrors(s.logger, s.handleTagDescendants))
}

// === DTOs ===

// ListTagsResponse contains a list of tags.
type ListTagsResponse struct {
	Tags []service.TagListItem `json:"tags" doc:"List of tags"`
}

// ListTagsOutput wraps the list tags response for Huma.
type ListTagsOutput struct {
	Body ListTagsResponse
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name     string `json:"name,omitempty" maxLength:"200" doc:"Tag name"`
	ParentID *int64 `json:"parent_id,omitempty" doc:"Parent tag ID"`
}

// CreateTagInput wraps the create tag request for Huma.
type CreateTagInput struct {
	Body CreateTagRequest
}

// TagResponse is a tag plus warnings from secondary writes.
type TagResponse struct {
	domain.Tag
	Warnings []string `json:"warnings,omitempty" doc:"Secondary writes that failed"`
}

// TagOutput wraps the tag response for Huma.
type TagOutput struct {
	Body TagResponse
}

// TagIDInput identifies a tag.
type TagIDInput struct {
	ID int64 `path:"id" doc:"Tag ID"`
}

// UpdateTagRequest is the request body for updating a tag.
// Omitted fields are left alone.
type UpdateTagRequest struct {
	Name        *string `json:"name,omitempty" maxLength:"200" doc:"New tag name"`
	ParentID    *int64  `json:"parent_id,omitempty" doc:"New parent tag ID"`
	ClearParent bool    `json:"clear_parent,omitempty" doc:"Make the tag a root"`
}

// UpdateTagInput wraps the update tag request for Huma.
type UpdateTagInput struct {
	ID   int64 `path:"id" doc:"Tag ID"`
	Body UpdateTagRequest
}

// TagTiersOutput wraps the tier view for Huma.
type TagTiersOutput struct {
	Body struct {
		Tiers []domain.TagTier `json:"tiers" doc:"Tags grouped by depth"`
	}
}

// TagTreeOutput wraps the forest view for Huma.
type TagTreeOutput struct {
	Body struct {
		Roots []*domain.TagNode `json:"roots" doc:"Root tags with nested children"`
	}
}

// DescendantsOutput wraps a descendant id set for Huma.
type DescendantsOutput struct {
	Body struct {
		TagID int64   `json:"tag_id"`
		IDs   []int64 `json:"ids" doc:"The tag and every tag below it"`
	}
}

// ClosureOutput wraps the closure status for Huma.
type ClosureOutput struct {
	Body service.ClosureStatus
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*ListTagsOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	tags, err := s.services.Tag.List(ctx)
	if err != nil {
		return nil, err
	}
	return &ListTagsOutput{Body: ListTagsResponse{Tags: tags}}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	res, err := s.services.Tag.Create(ctx, service.CreateTagRequest{
		Name:     input.Body.Name,
		ParentID: input.Body.ParentID,
	})
	if err != nil {
		return nil, err
	}
	return tagOutput(res), nil
}

func (s *Server) handleGetTag(ctx context.Context, input *TagIDInput) (*TagOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	t, err := s.services.Tag.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: TagResponse{Tag: *t}}, nil
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*TagOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	res, err := s.services.Tag.Update(ctx, input.ID, service.UpdateTagRequest{
		Name:        input.Body.Name,
		ParentID:    input.Body.ParentID,
		ClearParent: input.Body.ClearParent,
	})
	if err != nil {
		return nil, err
	}
	return tagOutput(res), nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *TagIDInput) (*DeleteOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	res, err := s.services.Tag.Delete(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &DeleteOutput{Body: DeleteResponse{Deleted: true, Warnings: res.Warnings}}, nil
}

func (s *Server) handleTagTiers(ctx context.Context, _ *struct{}) (*TagTiersOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	tiers, err := s.services.Tag.Tiers(ctx)
	if err != nil {
		return nil, err
	}
	out := &TagTiersOutput{}
	out.Body.Tiers = tiers
	return out, nil
}

func (s *Server) handleTagTree(ctx context.Context, _ *struct{}) (*TagTreeOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	roots, err := s.services.Tag.Tree(ctx)
	if err != nil {
		return nil, err
	}
	out := &TagTreeOutput{}
	out.Body.Roots = roots
	return out, nil
}

func (s *Server) handleTagDescendants(ctx context.Context, input *TagIDInput) (*DescendantsOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	ids, err := s.services.Tag.Descendants(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	out := &DescendantsOutput{}
	out.Body.TagID = input.ID
	out.Body.IDs = ids
	return out, nil
}

func (s *Server) handleClosureStatus(ctx context.Context, _ *struct{}) (*ClosureOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	status, err := s.services.Tag.ClosureStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &ClosureOutput{Body: status}, nil
}

func (s *Server) handleRebuildClosure(ctx context.Context, _ *struct{}) (*ClosureOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	status, err := s.services.Tag.RebuildClosure(ctx)
	if err != nil {
		return nil, err
	}
	return &ClosureOutput{Body: status}, nil
}

func tagOutput(res service.Result[*domain.Tag]) *TagOutput {
	return &TagOutput{Body: TagResponse{Tag: *res.Value, Warnings: res.Warnings}}
}
