package domain

import "time"

// BackupPayload is the JSON document uploaded to and downloaded from the
// remote file store. It is a superset of the local document: historical
// payloads may or may not carry lastId, and both shapes must be accepted
// on download.
type BackupPayload struct {
	Notes      []Note            `json:"notes"`
	Tags       []string          `json:"tags"`
	TagColors  map[string]string `json:"tagColors"`
	LastID     *int              `json:"lastId,omitempty"`
	BackupDate time.Time         `json:"backupDate"`
	// DeviceID identifies which install produced the backup. Absent on
	// payloads written by older clients.
	DeviceID string `json:"deviceId,omitempty"`
}

// NewBackupPayload snapshots a document into an uploadable payload.
func NewBackupPayload(doc *Document, deviceID string) *BackupPayload {
	lastID := doc.LastID
	return &BackupPayload{
		Notes:      doc.Notes,
		Tags:       doc.Tags,
		TagColors:  doc.TagColors,
		LastID:     &lastID,
		BackupDate: time.Now().UTC(),
		DeviceID:   deviceID,
	}
}

// ToDocument converts a downloaded payload into a document, tolerating
// legacy shapes with missing fields. When lastId is absent it is derived
// from the highest note id.
func (p *BackupPayload) ToDocument() *Document {
	doc := &Document{
		Notes:     p.Notes,
		Tags:      p.Tags,
		TagColors: p.TagColors,
	}
	doc.Upgrade()
	if p.LastID != nil {
		doc.LastID = *p.LastID
	} else {
		doc.LastID = doc.MaxNoteID()
	}
	return doc
}
