package store

import (
	"context"

	"github.com/notekeepapp/notekeep-server/internal/domain"
)

// GetAllNotes returns every note in the document, in stored order.
// Returns an empty slice when the document has no notes.
func (s *Store) GetAllNotes(ctx context.Context) ([]domain.Note, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if doc.Notes == nil {
		return []domain.Note{}, nil
	}
	return doc.Notes, nil
}

// GetNoteByID returns the note with the given id, or nil if no note
// matches. A miss is not an error.
func (s *Store) GetNoteByID(ctx context.Context, id int) (*domain.Note, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if n := doc.NoteByID(id); n != nil {
		clone := n.Clone()
		return &clone, nil
	}
	return nil, nil
}

// CreateNote assigns the next id, stamps both timestamps, appends the
// note, and persists. LastID is advanced in the same write, so ids are
// strictly increasing and never reused.
func (s *Store) CreateNote(ctx context.Context, title, content string, tags []string) (*domain.Note, error) {
	if tags == nil {
		tags = []string{}
	}

	var created domain.Note
	err := s.mutate(ctx, func(doc *domain.Document) (bool, error) {
		note := domain.Note{
			ID:      doc.LastID + 1,
			Title:   title,
			Content: content,
			Tags:    append([]string(nil), tags...),
		}
		note.InitTimestamps()

		doc.Notes = append(doc.Notes, note)
		doc.LastID = note.ID
		created = note.Clone()
		return true, nil
	}, func(ctx context.Context) {
		s.indexNote(ctx, &created)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateNote merges the partial fields into the existing note, refreshes
// updatedAt, and persists. Returns nil without error when the id is not
// found - callers must check.
func (s *Store) UpdateNote(ctx context.Context, id int, update domain.NoteUpdate) (*domain.Note, error) {
	var updated *domain.Note
	err := s.mutate(ctx, func(doc *domain.Document) (bool, error) {
		note := doc.NoteByID(id)
		if note == nil {
			return false, nil
		}
		update.Apply(note)
		clone := note.Clone()
		updated = &clone
		return true, nil
	}, func(ctx context.Context) {
		s.indexNote(ctx, updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteNote removes the note with the given id. Returns false when no
// note matches.
func (s *Store) DeleteNote(ctx context.Context, id int) (bool, error) {
	deleted := false
	err := s.mutate(ctx, func(doc *domain.Document) (bool, error) {
		for i := range doc.Notes {
			if doc.Notes[i].ID == id {
				doc.Notes = append(doc.Notes[:i], doc.Notes[i+1:]...)
				deleted = true
				return true, nil
			}
		}
		return false, nil
	}, func(ctx context.Context) {
		if ierr := s.indexer.DeleteNote(ctx, id); ierr != nil && s.logger != nil {
			s.logger.Warn("failed to remove note from search index", "note_id", id, "error", ierr)
		}
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// SearchNotes returns the notes whose title, content, or any tag name
// contains the query, case-insensitively. An empty query returns all
// notes unfiltered, in stored order.
func (s *Store) SearchNotes(ctx context.Context, query string) ([]domain.Note, error) {
	notes, err := s.GetAllNotes(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return notes, nil
	}

	matched := make([]domain.Note, 0, len(notes))
	for _, n := range notes {
		if n.Matches(query) {
			matched = append(matched, n)
		}
	}
	return matched, nil
}

// indexNote publishes a note change to the search indexer, best effort.
func (s *Store) indexNote(ctx context.Context, note *domain.Note) {
	if err := s.indexer.IndexNote(ctx, note); err != nil && s.logger != nil {
		s.logger.Warn("failed to index note", "note_id", note.ID, "error", err)
	}
}
