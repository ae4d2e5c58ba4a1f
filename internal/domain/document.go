// Package domain defines the core data model: the persisted Document and its notes and tags.
package domain

import "time"

// DefaultTagColor is used for any tag without an explicit color entry.
const DefaultTagColor = "#e4e4e4"

// Document is the single root object persisted locally. It owns every
// note, the tag registry, tag colors, and backup bookkeeping. All field
// names match the on-disk and remote JSON layout.
type Document struct {
	Notes          []Note            `json:"notes"`
	Tags           []string          `json:"tags"`
	TagColors      map[string]string `json:"tagColors"`
	LastID         int               `json:"lastId"`
	LastBackupTime *time.Time        `json:"lastBackupTime"`
}

// NewDocument returns the default empty document created on first load.
func NewDocument() *Document {
	return &Document{
		Notes:     []Note{},
		Tags:      []string{},
		TagColors: map[string]string{},
		LastID:    0,
	}
}

// Upgrade fills in fields missing from legacy document shapes.
// Returns true if anything changed and the document should be re-persisted.
func (d *Document) Upgrade() bool {
	changed := false
	if d.Notes == nil {
		d.Notes = []Note{}
		changed = true
	}
	if d.Tags == nil {
		d.Tags = []string{}
		changed = true
	}
	if d.TagColors == nil {
		d.TagColors = map[string]string{}
		changed = true
	}
	return changed
}

// NoteByID returns a pointer to the note with the given id, or nil.
// Lookup is by id, never by list index.
func (d *Document) NoteByID(id int) *Note {
	for i := range d.Notes {
		if d.Notes[i].ID == id {
			return &d.Notes[i]
		}
	}
	return nil
}

// HasTag reports whether name is present in the global tag registry.
func (d *Document) HasTag(name string) bool {
	for _, t := range d.Tags {
		if t == name {
			return true
		}
	}
	return false
}

// TagColor returns the stored color for a tag, or DefaultTagColor.
func (d *Document) TagColor(name string) string {
	if c, ok := d.TagColors[name]; ok && c != "" {
		return c
	}
	return DefaultTagColor
}

// MaxNoteID returns the highest id among the document's notes, or 0.
func (d *Document) MaxNoteID() int {
	maxID := 0
	for i := range d.Notes {
		if d.Notes[i].ID > maxID {
			maxID = d.Notes[i].ID
		}
	}
	return maxID
}

// Clone returns a deep copy of the document. The store hands out clones
// so callers can never mutate the persisted state behind its back.
func (d *Document) Clone() *Document {
	clone := &Document{
		Notes:     make([]Note, len(d.Notes)),
		Tags:      append([]string(nil), d.Tags...),
		TagColors: make(map[string]string, len(d.TagColors)),
		LastID:    d.LastID,
	}
	for i := range d.Notes {
		clone.Notes[i] = d.Notes[i].Clone()
	}
	for k, v := range d.TagColors {
		clone.TagColors[k] = v
	}
	if d.LastBackupTime != nil {
		t := *d.LastBackupTime
		clone.LastBackupTime = &t
	}
	return clone
}

// TagWithColor pairs a tag name with its effective color.
type TagWithColor struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TagsWithColors returns one entry per registered tag, colors defaulted.
func (d *Document) TagsWithColors() []TagWithColor {
	out := make([]TagWithColor, 0, len(d.Tags))
	for _, name := range d.Tags {
		out = append(out, TagWithColor{Name: name, Color: d.TagColor(name)})
	}
	return out
}
