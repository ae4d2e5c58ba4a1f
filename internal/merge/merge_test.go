package merge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notekeepapp/notekeep-server/internal/domain"
	"github.com/notekeepapp/notekeep-server/internal/merge"
)

func note(id int, title string, updatedAt time.Time, tags ...string) domain.Note {
	return domain.Note{
		ID:        id,
		Title:     title,
		Content:   "content of " + title,
		Tags:      tags,
		CreatedAt: updatedAt.Add(-time.Hour),
		UpdatedAt: updatedAt,
	}
}

func TestDocuments_NewerRemoteWins(t *testing.T) {
	now := time.Now().UTC()

	local := domain.NewDocument()
	local.Notes = []domain.Note{note(1, "local stale", now.Add(-time.Hour))}
	local.LastID = 1

	remote := domain.NewDocument()
	remote.Notes = []domain.Note{note(1, "remote fresh", now)}
	remote.LastID = 1

	merged := merge.Documents(local, remote)

	require.Len(t, merged.Notes, 1)
	assert.Equal(t, "remote fresh", merged.Notes[0].Title)
}

func TestDocuments_TieKeepsLocal(t *testing.T) {
	now := time.Now().UTC()

	local := domain.NewDocument()
	local.Notes = []domain.Note{note(1, "local", now)}

	remote := domain.NewDocument()
	remote.Notes = []domain.Note{note(1, "remote", now)}

	merged := merge.Documents(local, remote)

	require.Len(t, merged.Notes, 1)
	assert.Equal(t, "local", merged.Notes[0].Title)
}

func TestDocuments_OlderRemoteLoses(t *testing.T) {
	now := time.Now().UTC()

	local := domain.NewDocument()
	local.Notes = []domain.Note{note(1, "local fresh", now)}

	remote := domain.NewDocument()
	remote.Notes = []domain.Note{note(1, "remote stale", now.Add(-time.Minute))}

	merged := merge.Documents(local, remote)

	require.Len(t, merged.Notes, 1)
	assert.Equal(t, "local fresh", merged.Notes[0].Title)
}

func TestDocuments_DisjointNotesKept(t *testing.T) {
	now := time.Now().UTC()

	local := domain.NewDocument()
	local.Notes = []domain.Note{note(3, "only local", now)}
	local.LastID = 3

	remote := domain.NewDocument()
	remote.Notes = []domain.Note{note(1, "only remote", now), note(2, "also remote", now)}
	remote.LastID = 2

	merged := merge.Documents(local, remote)

	require.Len(t, merged.Notes, 3)
	// Output is ordered by id.
	assert.Equal(t, 1, merged.Notes[0].ID)
	assert.Equal(t, 2, merged.Notes[1].ID)
	assert.Equal(t, 3, merged.Notes[2].ID)
}

func TestDocuments_TagUnionPreservesOrder(t *testing.T) {
	local := domain.NewDocument()
	local.Tags = []string{"work", "home"}

	remote := domain.NewDocument()
	remote.Tags = []string{"home", "travel"}

	merged := merge.Documents(local, remote)

	assert.Equal(t, []string{"work", "home", "travel"}, merged.Tags)
}

func TestDocuments_RemoteColorWinsOnCollision(t *testing.T) {
	local := domain.NewDocument()
	local.Tags = []string{"work"}
	local.TagColors = map[string]string{"work": "#111111", "home": "#222222"}

	remote := domain.NewDocument()
	remote.Tags = []string{"work"}
	remote.TagColors = map[string]string{"work": "#ffffff"}

	merged := merge.Documents(local, remote)

	assert.Equal(t, "#ffffff", merged.TagColors["work"])
	assert.Equal(t, "#222222", merged.TagColors["home"])
}

func TestDocuments_LastIDIsMax(t *testing.T) {
	now := time.Now().UTC()

	local := domain.NewDocument()
	local.LastID = 5

	remote := domain.NewDocument()
	remote.Notes = []domain.Note{note(9, "high id", now)}
	remote.LastID = 7

	merged := merge.Documents(local, remote)

	// Highest of local lastId, remote lastId, and any merged note id.
	assert.Equal(t, 9, merged.LastID)
}

func TestDocuments_LastBackupTimeFromLocal(t *testing.T) {
	stamp := time.Now().UTC().Add(-2 * time.Hour)

	local := domain.NewDocument()
	local.LastBackupTime = &stamp

	remote := domain.NewDocument()
	other := stamp.Add(time.Hour)
	remote.LastBackupTime = &other

	merged := merge.Documents(local, remote)

	require.NotNil(t, merged.LastBackupTime)
	assert.True(t, merged.LastBackupTime.Equal(stamp))
}

func TestDocuments_NilInputs(t *testing.T) {
	merged := merge.Documents(nil, nil)

	require.NotNil(t, merged)
	assert.Empty(t, merged.Notes)
	assert.Empty(t, merged.Tags)
	assert.Equal(t, 0, merged.LastID)
}

func TestDocuments_Deterministic(t *testing.T) {
	now := time.Now().UTC()

	local := domain.NewDocument()
	local.Notes = []domain.Note{note(2, "b", now), note(1, "a", now)}
	local.Tags = []string{"x", "y"}

	remote := domain.NewDocument()
	remote.Notes = []domain.Note{note(3, "c", now)}
	remote.Tags = []string{"z"}

	first := merge.Documents(local, remote)
	second := merge.Documents(local, remote)

	assert.Equal(t, first, second)
}

func TestDocuments_DoesNotAliasInputs(t *testing.T) {
	now := time.Now().UTC()

	local := domain.NewDocument()
	local.Notes = []domain.Note{note(1, "original", now, "keep")}

	merged := merge.Documents(local, domain.NewDocument())
	merged.Notes[0].Tags[0] = "mutated"

	assert.Equal(t, "keep", local.Notes[0].Tags[0])
}
