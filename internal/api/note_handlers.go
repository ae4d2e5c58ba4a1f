package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/notekeepapp/notekeep-server/internal/domain"
	"github.com/notekeepapp/notekeep-server/internal/service"
)

func (s *Server) registerNoteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes",
		Summary:     "List notes",
		Description: "Returns all notes, optionally filtered by a case-insensitive substring over title, content, and tags",
		Tags:        []string{"Notes"},
	}, s.handleListNotes)

	huma.Register(s.api, huma.Operation{
		OperationID: "createNote",
		Method:      http.MethodPost,
		Path:        "/api/v1/notes",
		Summary:     "Create note",
		Description: "Creates a new note with the next sequential ID",
		Tags:        []string{"Notes"},
	}, s.handleCreateNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "getNote",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Get note",
		Description: "Returns a note by ID",
		Tags:        []string{"Notes"},
	}, s.handleGetNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateNote",
		Method:      http.MethodPatch,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Update note",
		Description: "Merges the supplied fields into an existing note",
		Tags:        []string{"Notes"},
	}, s.handleUpdateNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteNote",
		Method:      http.MethodDelete,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Delete note",
		Description: "Deletes a note",
		Tags:        []string{"Notes"},
	}, s.handleDeleteNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportNote",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/{id}/export",
		Summary:     "Export note",
		Description: "Renders a note as Markdown",
		Tags:        []string{"Notes"},
	}, s.handleExportNote)
}

// === DTOs ===

// ListNotesInput contains parameters for listing notes.
type ListNotesInput struct {
	Query string `query:"q" doc:"Optional substring filter"`
}

// NoteResponse contains note data in API responses.
type NoteResponse struct {
	ID        int       `json:"id" doc:"Note ID"`
	Title     string    `json:"title" doc:"Note title"`
	Content   string    `json:"content" doc:"Note content"`
	Tags      []string  `json:"tags" doc:"Tag names on this note"`
	CreatedAt time.Time `json:"createdAt" doc:"Creation time"`
	UpdatedAt time.Time `json:"updatedAt" doc:"Last update time"`
}

// ListNotesResponse contains a list of notes.
type ListNotesResponse struct {
	Notes []NoteResponse `json:"notes" doc:"List of notes"`
}

// ListNotesOutput wraps the list notes response for Huma.
type ListNotesOutput struct {
	Body ListNotesResponse
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string   `json:"title,omitempty" maxLength:"500" doc:"Note title"`
	Content string   `json:"content,omitempty" doc:"Note content"`
	Tags    []string `json:"tags,omitempty" doc:"Tag names"`
}

// CreateNoteInput wraps the create note request for Huma.
type CreateNoteInput struct {
	Body CreateNoteRequest
}

// NoteOutput wraps the note response for Huma.
type NoteOutput struct {
	Body NoteResponse
}

// GetNoteInput contains parameters for getting a note.
type GetNoteInput struct {
	ID int `path:"id" doc:"Note ID"`
}

// UpdateNoteRequest is the request body for updating a note.
// Absent fields are left unchanged.
type UpdateNoteRequest struct {
	Title   *string   `json:"title,omitempty" doc:"Note title"`
	Content *string   `json:"content,omitempty" doc:"Note content"`
	Tags    *[]string `json:"tags,omitempty" doc:"Tag names"`
}

// UpdateNoteInput wraps the update note request for Huma.
type UpdateNoteInput struct {
	ID   int `path:"id" doc:"Note ID"`
	Body UpdateNoteRequest
}

// DeleteNoteInput contains parameters for deleting a note.
type DeleteNoteInput struct {
	ID int `path:"id" doc:"Note ID"`
}

// ExportNoteInput contains parameters for exporting a note.
type ExportNoteInput struct {
	ID int `path:"id" doc:"Note ID"`
}

// ExportNoteResponse contains the rendered Markdown for a note.
type ExportNoteResponse struct {
	Markdown string `json:"markdown" doc:"Note rendered as Markdown"`
}

// ExportNoteOutput wraps the export response for Huma.
type ExportNoteOutput struct {
	Body ExportNoteResponse
}

// MessageResponse contains a simple status message.
type MessageResponse struct {
	Message string `json:"message" doc:"Status message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

func noteResponse(n *domain.Note) NoteResponse {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return NoteResponse{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Tags:      tags,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// === Handlers ===

func (s *Server) handleListNotes(ctx context.Context, input *ListNotesInput) (*ListNotesOutput, error) {
	notes, err := s.services.Notes.FilterNotes(ctx, input.Query)
	if err != nil {
		return nil, err
	}

	resp := make([]NoteResponse, len(notes))
	for i := range notes {
		resp[i] = noteResponse(&notes[i])
	}

	return &ListNotesOutput{Body: ListNotesResponse{Notes: resp}}, nil
}

func (s *Server) handleCreateNote(ctx context.Context, input *CreateNoteInput) (*NoteOutput, error) {
	note, err := s.services.Notes.CreateNote(ctx, service.NoteInput{
		Title:   input.Body.Title,
		Content: input.Body.Content,
		Tags:    input.Body.Tags,
	})
	if err != nil {
		return nil, err
	}

	return &NoteOutput{Body: noteResponse(note)}, nil
}

func (s *Server) handleGetNote(ctx context.Context, input *GetNoteInput) (*NoteOutput, error) {
	note, err := s.services.Notes.GetNote(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, huma.Error404NotFound("Note not found")
	}

	return &NoteOutput{Body: noteResponse(note)}, nil
}

func (s *Server) handleUpdateNote(ctx context.Context, input *UpdateNoteInput) (*NoteOutput, error) {
	note, err := s.services.Notes.UpdateNote(ctx, input.ID, domain.NoteUpdate{
		Title:   input.Body.Title,
		Content: input.Body.Content,
		Tags:    input.Body.Tags,
	})
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, huma.Error404NotFound("Note not found")
	}

	return &NoteOutput{Body: noteResponse(note)}, nil
}

func (s *Server) handleDeleteNote(ctx context.Context, input *DeleteNoteInput) (*MessageOutput, error) {
	deleted, err := s.services.Notes.DeleteNote(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, huma.Error404NotFound("Note not found")
	}

	return &MessageOutput{Body: MessageResponse{Message: "Note deleted"}}, nil
}

func (s *Server) handleExportNote(ctx context.Context, input *ExportNoteInput) (*ExportNoteOutput, error) {
	markdown, err := s.services.Notes.ExportNote(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if markdown == "" {
		return nil, huma.Error404NotFound("Note not found")
	}

	return &ExportNoteOutput{Body: ExportNoteResponse{Markdown: markdown}}, nil
}
