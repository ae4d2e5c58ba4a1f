package domain

import (
	"strings"
	"time"
)

// Note is one user-authored entry. Content is rich text serialized as
// markup; both title and content may be empty. A note's tag list may name
// tags absent from the global registry - the store does not enforce
// referential integrity on create/update, matching the original behavior.
type Note struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Touch refreshes the UpdatedAt timestamp. CreatedAt is immutable after
// creation.
func (n *Note) Touch() {
	n.UpdatedAt = time.Now().UTC()
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
func (n *Note) InitTimestamps() {
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
}

// HasTag reports whether the note carries the given tag name.
func (n *Note) HasTag(name string) bool {
	for _, t := range n.Tags {
		if t == name {
			return true
		}
	}
	return false
}

// Matches reports whether the note matches a case-insensitive substring
// query against its title, content, or any tag name. An empty query
// matches every note.
func (n *Note) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(n.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(n.Content), q) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the note.
func (n Note) Clone() Note {
	clone := n
	clone.Tags = append([]string(nil), n.Tags...)
	return clone
}

// NoteUpdate carries the partial fields merged into an existing note by
// Store.UpdateNote. Nil fields are left untouched.
type NoteUpdate struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// Apply merges the non-nil fields into the note and refreshes UpdatedAt.
func (u NoteUpdate) Apply(n *Note) {
	if u.Title != nil {
		n.Title = *u.Title
	}
	if u.Content != nil {
		n.Content = *u.Content
	}
	if u.Tags != nil {
		n.Tags = append([]string(nil), (*u.Tags)...)
	}
	n.Touch()
}
