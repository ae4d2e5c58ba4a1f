// Package merge implements the reconciliation policy combining a local
// and a remote document into one. Documents is a pure function: no I/O,
// deterministic for fixed inputs, which makes it the most directly
// testable unit in the system.
package merge

import (
	"sort"

	"github.com/notekeepapp/notekeep-server/internal/domain"
)

// Documents merges remote into local and returns a new document.
//
// Policy:
//   - Notes are merged by id. A remote note replaces the local one only
//     when its updatedAt is strictly newer; ties keep the local entry.
//   - Tags are the set union of both sides.
//   - Tag colors are a shallow merge with remote values overwriting
//     local on collision. The right bias is intentional even though
//     notes favor the newer side by timestamp.
//   - lastId is the max of both documents' lastId and the highest merged
//     note id.
//   - lastBackupTime is taken from local; the caller overwrites it after
//     a successful round-trip.
//
// Merged note order is by id. Order carries no meaning; it only keeps
// the output deterministic.
func Documents(local, remote *domain.Document) *domain.Document {
	if local == nil {
		local = domain.NewDocument()
	}
	if remote == nil {
		remote = domain.NewDocument()
	}

	byID := make(map[int]domain.Note, len(local.Notes)+len(remote.Notes))
	for _, n := range local.Notes {
		byID[n.ID] = n.Clone()
	}
	for _, rn := range remote.Notes {
		ln, ok := byID[rn.ID]
		if !ok || rn.UpdatedAt.After(ln.UpdatedAt) {
			byID[rn.ID] = rn.Clone()
		}
	}

	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	merged := domain.NewDocument()
	merged.Notes = make([]domain.Note, 0, len(ids))
	maxNoteID := 0
	for _, id := range ids {
		merged.Notes = append(merged.Notes, byID[id])
		if id > maxNoteID {
			maxNoteID = id
		}
	}

	merged.Tags = unionTags(local.Tags, remote.Tags)

	for k, v := range local.TagColors {
		merged.TagColors[k] = v
	}
	for k, v := range remote.TagColors {
		merged.TagColors[k] = v
	}

	merged.LastID = local.LastID
	if remote.LastID > merged.LastID {
		merged.LastID = remote.LastID
	}
	if maxNoteID > merged.LastID {
		merged.LastID = maxNoteID
	}

	if local.LastBackupTime != nil {
		t := *local.LastBackupTime
		merged.LastBackupTime = &t
	}

	return merged
}

// unionTags returns local's tags followed by remote tags not already
// present, preserving first-seen order.
func unionTags(local, remote []string) []string {
	seen := make(map[string]struct{}, len(local)+len(remote))
	union := make([]string, 0, len(local)+len(remote))
	for _, t := range local {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		union = append(union, t)
	}
	for _, t := range remote {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		union = append(union, t)
	}
	return union
}
