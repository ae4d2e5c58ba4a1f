// Package service contains the business-logic layer between the HTTP
// API and the store.
package service

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/notekeepapp/notekeep-server/internal/domain"
	apperrors "github.com/notekeepapp/notekeep-server/internal/errors"
	"github.com/notekeepapp/notekeep-server/internal/export"
	"github.com/notekeepapp/notekeep-server/internal/store"
)

// NoteInput carries user-supplied note fields for create operations.
type NoteInput struct {
	Title   string   `validate:"max=500"`
	Content string   `validate:"max=1048576"`
	Tags    []string `validate:"dive,min=1,max=100"`
}

// NotesService orchestrates note CRUD, filtering, and export.
type NotesService struct {
	store    *store.Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewNotesService creates a new notes service.
func NewNotesService(s *store.Store, logger *slog.Logger) *NotesService {
	return &NotesService{
		store:    s,
		validate: validator.New(),
		logger:   logger,
	}
}

// ListNotes returns every note.
func (s *NotesService) ListNotes(ctx context.Context) ([]domain.Note, error) {
	return s.store.GetAllNotes(ctx)
}

// GetNote returns a note by id, or nil when it does not exist.
func (s *NotesService) GetNote(ctx context.Context, id int) (*domain.Note, error) {
	return s.store.GetNoteByID(ctx, id)
}

// CreateNote validates the input and creates a note. Tag names on the
// note are not required to exist in the global registry, matching the
// original system's behavior.
func (s *NotesService) CreateNote(ctx context.Context, input NoteInput) (*domain.Note, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeValidation, "invalid note")
	}

	note, err := s.store.CreateNote(ctx, input.Title, input.Content, input.Tags)
	if err != nil {
		return nil, err
	}

	s.logger.Info("note created", "note_id", note.ID, "tags", len(note.Tags))
	return note, nil
}

// UpdateNote merges partial fields into an existing note. Returns nil
// when the id does not exist - a no-op, not an error.
func (s *NotesService) UpdateNote(ctx context.Context, id int, update domain.NoteUpdate) (*domain.Note, error) {
	if update.Title != nil || update.Content != nil || update.Tags != nil {
		input := NoteInput{}
		if update.Title != nil {
			input.Title = *update.Title
		}
		if update.Content != nil {
			input.Content = *update.Content
		}
		if update.Tags != nil {
			input.Tags = *update.Tags
		}
		if err := s.validate.Struct(input); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeValidation, "invalid note update")
		}
	}

	note, err := s.store.UpdateNote(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if note != nil {
		s.logger.Info("note updated", "note_id", note.ID)
	}
	return note, nil
}

// DeleteNote removes a note. Returns false when the id does not exist.
func (s *NotesService) DeleteNote(ctx context.Context, id int) (bool, error) {
	deleted, err := s.store.DeleteNote(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("note deleted", "note_id", id)
	}
	return deleted, nil
}

// FilterNotes runs the exact substring filter: case-insensitive
// contains over title, content, and tag names. An empty query returns
// all notes.
func (s *NotesService) FilterNotes(ctx context.Context, query string) ([]domain.Note, error) {
	return s.store.SearchNotes(ctx, query)
}

// ExportNote renders a note as Markdown. Returns "" with no error when
// the note does not exist.
func (s *NotesService) ExportNote(ctx context.Context, id int) (string, error) {
	note, err := s.store.GetNoteByID(ctx, id)
	if err != nil {
		return "", err
	}
	if note == nil {
		return "", nil
	}
	return export.NoteToMarkdown(note), nil
}
