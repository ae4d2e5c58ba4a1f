// Package search provides ranked full-text search over notes using
// Bleve. It complements the store's exact substring filter: the sidebar
// filter keeps its strict contains semantics, while this index powers
// relevance-ranked queries with stemming and highlighting.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/notekeepapp/notekeep-server/internal/domain"
)

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch triggers an automatic rebuild on startup.
const mappingVersion = "1"

// Index wraps a Bleve index with note-specific operations.
//
// Thread safety: all public methods are safe for concurrent use. The
// mutex protects against corruption during rebuild.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// noteDocument is the shape indexed per note.
type noteDocument struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// NewIndex creates or opens the note search index at path. A corrupted
// or version-mismatched index is removed and recreated; callers should
// reindex from the store afterwards.
func NewIndex(path string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	versionPath := path + ".version"
	needsRebuild := false

	indexExists := false
	if _, err := os.Stat(path); err == nil {
		indexExists = true
	}

	if indexExists {
		existing, err := os.ReadFile(versionPath) //#nosec G304 -- path derived from validated data path
		if err != nil || string(existing) != mappingVersion {
			logger.Info("search index mapping outdated, rebuilding", "new_version", mappingVersion)
			needsRebuild = true
		}
	}

	var index bleve.Index
	var err error
	if indexExists && !needsRebuild {
		index, err = bleve.Open(path)
		if err != nil {
			logger.Warn("failed to open existing search index, recreating", "path", path, "error", err)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		index = nil
	}

	if index == nil {
		index, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created note search index", "path", path)
	} else {
		logger.Info("opened note search index", "path", path)
	}

	return &Index{
		index:  index,
		path:   path,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}

// IndexNote adds or updates a note in the index.
func (ix *Index) IndexNote(_ context.Context, note *domain.Note) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.Index(noteID(note.ID), noteDocument{
		Title:   note.Title,
		Content: note.Content,
		Tags:    note.Tags,
	})
}

// DeleteNote removes a note from the index.
func (ix *Index) DeleteNote(_ context.Context, id int) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.Delete(noteID(id))
}

// ReindexAll replaces the index contents with the given notes: the
// index is dropped, recreated, and repopulated in one batch. Used on
// startup to heal any drift between store and index.
//
// This acquires an exclusive lock and blocks all other operations for
// the duration of the rebuild.
func (ix *Index) ReindexAll(_ context.Context, notes []domain.Note) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(ix.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	fresh, err := bleve.New(ix.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	ix.index = fresh

	batch := ix.index.NewBatch()
	for i := range notes {
		n := &notes[i]
		if err := batch.Index(noteID(n.ID), noteDocument{
			Title:   n.Title,
			Content: n.Content,
			Tags:    n.Tags,
		}); err != nil {
			return fmt.Errorf("batch index note %d: %w", n.ID, err)
		}
	}
	return ix.index.Batch(batch)
}

// Count returns the number of indexed notes.
func (ix *Index) Count() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.DocCount()
}

// noteID converts a note id into its index document id.
func noteID(id int) string {
	return strconv.Itoa(id)
}
