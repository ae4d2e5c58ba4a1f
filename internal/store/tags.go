package store

import (
	"context"

	"github.com/notekeepapp/notekeep-server/internal/domain"
)

// AddTag registers a tag with a color. If the tag already exists only
// its color is updated (idempotent upsert). An empty name is a no-op
// returning false.
func (s *Store) AddTag(ctx context.Context, name, color string) (bool, error) {
	if name == "" {
		return false, nil
	}
	if color == "" {
		color = domain.DefaultTagColor
	}

	err := s.mutate(ctx, func(doc *domain.Document) (bool, error) {
		if !doc.HasTag(name) {
			doc.Tags = append(doc.Tags, name)
		}
		doc.TagColors[name] = color
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateTagColor changes the color of an existing tag. Returns false
// when the tag does not exist.
func (s *Store) UpdateTagColor(ctx context.Context, name, color string) (bool, error) {
	updated := false
	err := s.mutate(ctx, func(doc *domain.Document) (bool, error) {
		if !doc.HasTag(name) {
			return false, nil
		}
		doc.TagColors[name] = color
		updated = true
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

// RemoveTag deletes the tag from the registry, drops its color entry,
// and strips it from every note's tag list, all in one persisted write.
// Returns false when the tag is not present.
func (s *Store) RemoveTag(ctx context.Context, name string) (bool, error) {
	removed := false
	var touched []domain.Note

	err := s.mutate(ctx, func(doc *domain.Document) (bool, error) {
		idx := -1
		for i, t := range doc.Tags {
			if t == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return false, nil
		}

		doc.Tags = append(doc.Tags[:idx], doc.Tags[idx+1:]...)
		delete(doc.TagColors, name)

		for i := range doc.Notes {
			if stripTag(&doc.Notes[i], name) {
				touched = append(touched, doc.Notes[i].Clone())
			}
		}

		removed = true
		return true, nil
	}, func(ctx context.Context) {
		for i := range touched {
			s.indexNote(ctx, &touched[i])
		}
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// RenameTag moves a tag to a new name in a single persisted write: the
// new name is registered with the old color, every referencing note is
// rewritten, and the old name is dropped. One write means a failure can
// never leave both names behind.
func (s *Store) RenameTag(ctx context.Context, oldName, newName string) (bool, error) {
	if oldName == "" || newName == "" || oldName == newName {
		return false, nil
	}

	renamed := false
	var touched []domain.Note

	err := s.mutate(ctx, func(doc *domain.Document) (bool, error) {
		idx := -1
		for i, t := range doc.Tags {
			if t == oldName {
				idx = i
				break
			}
		}
		if idx < 0 {
			return false, nil
		}

		color := doc.TagColor(oldName)

		doc.Tags = append(doc.Tags[:idx], doc.Tags[idx+1:]...)
		delete(doc.TagColors, oldName)
		if !doc.HasTag(newName) {
			doc.Tags = append(doc.Tags, newName)
		}
		doc.TagColors[newName] = color

		for i := range doc.Notes {
			note := &doc.Notes[i]
			if !note.HasTag(oldName) {
				continue
			}
			stripTag(note, oldName)
			if !note.HasTag(newName) {
				note.Tags = append(note.Tags, newName)
			}
			note.Touch()
			touched = append(touched, note.Clone())
		}

		renamed = true
		return true, nil
	}, func(ctx context.Context) {
		for i := range touched {
			s.indexNote(ctx, &touched[i])
		}
	})
	if err != nil {
		return false, err
	}
	return renamed, nil
}

// GetTagColor returns the stored color for a tag, or the default color
// when unset.
func (s *Store) GetTagColor(ctx context.Context, name string) (string, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	return doc.TagColor(name), nil
}

// GetAllTagsWithColors returns one entry per registered tag with its
// effective color.
func (s *Store) GetAllTagsWithColors(ctx context.Context) ([]domain.TagWithColor, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.TagsWithColors(), nil
}

// stripTag removes every occurrence of name from the note's tag list,
// touching the note when anything changed.
func stripTag(note *domain.Note, name string) bool {
	kept := note.Tags[:0]
	changed := false
	for _, t := range note.Tags {
		if t == name {
			changed = true
			continue
		}
		kept = append(kept, t)
	}
	if changed {
		note.Tags = kept
		note.Touch()
	}
	return changed
}
