package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns all registered tags with their colors",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "addTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags",
		Summary:     "Add tag",
		Description: "Registers a tag. Adding an existing tag updates its color",
		Tags:        []string{"Tags"},
	}, s.handleAddTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTagColor",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{name}",
		Summary:     "Update tag color",
		Description: "Changes the color of an existing tag",
		Tags:        []string{"Tags"},
	}, s.handleUpdateTagColor)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/{name}/rename",
		Summary:     "Rename tag",
		Description: "Renames a tag everywhere it appears, keeping its color",
		Tags:        []string{"Tags"},
	}, s.handleRenameTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tags/{name}",
		Summary:     "Remove tag",
		Description: "Removes a tag from the registry and from every note carrying it",
		Tags:        []string{"Tags"},
	}, s.handleRemoveTag)
}

// === DTOs ===

// TagResponse contains tag data in API responses.
type TagResponse struct {
	Name  string `json:"name" doc:"Tag name"`
	Color string `json:"color" doc:"Display color"`
}

// ListTagsResponse contains a list of tags.
type ListTagsResponse struct {
	Tags []TagResponse `json:"tags" doc:"List of tags"`
}

// ListTagsOutput wraps the list tags response for Huma.
type ListTagsOutput struct {
	Body ListTagsResponse
}

// AddTagRequest is the request body for adding a tag.
type AddTagRequest struct {
	Name  string `json:"name" minLength:"1" maxLength:"100" doc:"Tag name"`
	Color string `json:"color,omitempty" doc:"Display color; defaults when empty"`
}

// AddTagInput wraps the add tag request for Huma.
type AddTagInput struct {
	Body AddTagRequest
}

// TagOutput wraps the tag response for Huma.
type TagOutput struct {
	Body TagResponse
}

// UpdateTagColorRequest is the request body for updating a tag color.
type UpdateTagColorRequest struct {
	Color string `json:"color" minLength:"1" doc:"Display color"`
}

// UpdateTagColorInput wraps the update tag color request for Huma.
type UpdateTagColorInput struct {
	Name string `path:"name" doc:"Tag name"`
	Body UpdateTagColorRequest
}

// RenameTagRequest is the request body for renaming a tag.
type RenameTagRequest struct {
	NewName string `json:"newName" minLength:"1" maxLength:"100" doc:"New tag name"`
}

// RenameTagInput wraps the rename tag request for Huma.
type RenameTagInput struct {
	Name string `path:"name" doc:"Current tag name"`
	Body RenameTagRequest
}

// RemoveTagInput contains parameters for removing a tag.
type RemoveTagInput struct {
	Name string `path:"name" doc:"Tag name"`
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*ListTagsOutput, error) {
	tags, err := s.services.Tags.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]TagResponse, len(tags))
	for i, t := range tags {
		resp[i] = TagResponse{Name: t.Name, Color: t.Color}
	}

	return &ListTagsOutput{Body: ListTagsResponse{Tags: resp}}, nil
}

func (s *Server) handleAddTag(ctx context.Context, input *AddTagInput) (*TagOutput, error) {
	added, err := s.services.Tags.AddTag(ctx, input.Body.Name, input.Body.Color)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, huma.Error422UnprocessableEntity("Tag name must not be empty")
	}

	color, err := s.services.Tags.TagColor(ctx, input.Body.Name)
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: TagResponse{Name: input.Body.Name, Color: color}}, nil
}

func (s *Server) handleUpdateTagColor(ctx context.Context, input *UpdateTagColorInput) (*TagOutput, error) {
	updated, err := s.services.Tags.UpdateTagColor(ctx, input.Name, input.Body.Color)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, huma.Error404NotFound("Tag not found")
	}

	return &TagOutput{Body: TagResponse{Name: input.Name, Color: input.Body.Color}}, nil
}

func (s *Server) handleRenameTag(ctx context.Context, input *RenameTagInput) (*TagOutput, error) {
	renamed, err := s.services.Tags.RenameTag(ctx, input.Name, input.Body.NewName)
	if err != nil {
		return nil, err
	}
	if !renamed {
		return nil, huma.Error404NotFound("Tag not found or new name already taken")
	}

	color, err := s.services.Tags.TagColor(ctx, input.Body.NewName)
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: TagResponse{Name: input.Body.NewName, Color: color}}, nil
}

func (s *Server) handleRemoveTag(ctx context.Context, input *RemoveTagInput) (*MessageOutput, error) {
	removed, err := s.services.Tags.RemoveTag(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, huma.Error404NotFound("Tag not found")
	}

	return &MessageOutput{Body: MessageResponse{Message: "Tag removed"}}, nil
}
