package search_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notekeepapp/notekeep-server/internal/domain"
	"github.com/notekeepapp/notekeep-server/internal/search"
)

func newTestIndex(t *testing.T) *search.Index {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ix, err := search.NewIndex(filepath.Join(t.TempDir(), "notes.bleve"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	return ix
}

func indexNotes(t *testing.T, ix *search.Index, notes ...domain.Note) {
	t.Helper()
	ctx := context.Background()
	for i := range notes {
		require.NoError(t, ix.IndexNote(ctx, &notes[i]))
	}
}

func TestSearch_RanksTitleMatches(t *testing.T) {
	ix := newTestIndex(t)
	indexNotes(t, ix,
		domain.Note{ID: 1, Title: "Grocery shopping list", Content: "milk, eggs, bread"},
		domain.Note{ID: 2, Title: "Meeting notes", Content: "we discussed grocery budgets"},
		domain.Note{ID: 3, Title: "Unrelated", Content: "nothing of interest"},
	)

	res, err := ix.Search(context.Background(), search.Params{Query: "grocery", Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), res.Total)
	require.Len(t, res.Hits, 2)
	ids := []int{res.Hits[0].NoteID, res.Hits[1].NoteID}
	assert.ElementsMatch(t, []int{1, 2}, ids)
	assert.Greater(t, res.Hits[0].Score, 0.0)
}

func TestSearch_FuzzyToleratesTypos(t *testing.T) {
	ix := newTestIndex(t)
	indexNotes(t, ix, domain.Note{ID: 1, Title: "kubernetes deployment"})

	res, err := ix.Search(context.Background(), search.Params{Query: "kubernets", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total)
}

func TestSearch_TagFilterIsConjunctive(t *testing.T) {
	ix := newTestIndex(t)
	indexNotes(t, ix,
		domain.Note{ID: 1, Title: "trip plan", Tags: []string{"travel", "2026"}},
		domain.Note{ID: 2, Title: "trip photos", Tags: []string{"travel"}},
	)

	res, err := ix.Search(context.Background(), search.Params{Query: "trip", Tags: []string{"travel", "2026"}, Limit: 10})
	require.NoError(t, err)

	require.Len(t, res.Hits, 1)
	assert.Equal(t, 1, res.Hits[0].NoteID)
}

func TestSearch_EmptyQueryMatchesAll(t *testing.T) {
	ix := newTestIndex(t)
	indexNotes(t, ix,
		domain.Note{ID: 1, Title: "one"},
		domain.Note{ID: 2, Title: "two"},
	)

	res, err := ix.Search(context.Background(), search.Params{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)
}

func TestDeleteNote_RemovesFromIndex(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()
	indexNotes(t, ix, domain.Note{ID: 1, Title: "doomed"})

	require.NoError(t, ix.DeleteNote(ctx, 1))

	res, err := ix.Search(ctx, search.Params{Query: "doomed", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestIndexNote_UpdateReplacesDocument(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	indexNotes(t, ix, domain.Note{ID: 1, Title: "draft"})
	indexNotes(t, ix, domain.Note{ID: 1, Title: "final"})

	count, err := ix.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	res, err := ix.Search(ctx, search.Params{Query: "draft", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	res, err = ix.Search(ctx, search.Params{Query: "final", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total)
}

func TestReindexAll(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	indexNotes(t, ix, domain.Note{ID: 99, Title: "stale leftover"})

	require.NoError(t, ix.ReindexAll(ctx, []domain.Note{
		{ID: 1, Title: "fresh one"},
		{ID: 2, Title: "fresh two"},
	}))

	res, err := ix.Search(ctx, search.Params{Query: "fresh", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)

	// The rebuild drops anything no longer in the store.
	res, err = ix.Search(ctx, search.Params{Query: "stale", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}
