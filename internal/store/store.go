// Package store owns the persisted Document and is the sole authority
// over its mutation. Every operation follows a whole-document
// read-modify-write against a single Badger key; mutations are
// serialized through one writer lock, so two in-process operations can
// never silently discard each other's writes.
package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/notekeepapp/notekeep-server/internal/domain"
	apperrors "github.com/notekeepapp/notekeep-server/internal/errors"
)

// documentKey is the single key holding the entire Document as JSON.
var documentKey = []byte("document")

// SearchIndexer is the interface for keeping the full-text index in sync.
// Store uses this to publish note changes without depending on the search
// implementation. Index failures are logged, never propagated.
// Publications happen under the store's writer lock, in the same order as
// the persisted writes; implementations must not call back into the Store.
type SearchIndexer interface {
	IndexNote(ctx context.Context, note *domain.Note) error
	DeleteNote(ctx context.Context, id int) error
}

// NoopIndexer is a no-op implementation of SearchIndexer for testing.
type NoopIndexer struct{}

// IndexNote implements SearchIndexer.IndexNote as a no-op.
func (NoopIndexer) IndexNote(context.Context, *domain.Note) error { return nil }

// DeleteNote implements SearchIndexer.DeleteNote as a no-op.
func (NoopIndexer) DeleteNote(context.Context, int) error { return nil }

// Store wraps a Badger database instance holding the Document.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// mu serializes all read-modify-write cycles on the document.
	mu sync.Mutex

	// Search indexer for keeping full-text search in sync with mutations.
	// Set via SetSearchIndexer after store creation to avoid circular
	// dependencies.
	indexer SearchIndexer
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageIO, "failed to open badger db")
	}

	store := &Store{
		db:      db,
		logger:  logger,
		indexer: NoopIndexer{},
	}

	if logger != nil {
		logger.Info("document database opened", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing document database")
	}
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer for keeping search in sync.
// This is set after store creation to avoid circular dependencies
// (store needs to exist before the search service can be created).
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	if indexer == nil {
		indexer = NoopIndexer{}
	}
	s.indexer = indexer
}

// Load returns a copy of the persisted document, initializing and
// persisting the default empty document if none exists. Legacy documents
// missing tagColors are upgraded and re-persisted before being returned;
// the upgrade is idempotent and runs before anything else touches the
// document.
func (s *Store) Load(ctx context.Context) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// loadLocked fetches the document, healing missing or legacy shapes.
// Callers must hold mu.
func (s *Store) loadLocked() (*domain.Document, error) {
	var doc domain.Document

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		// First run: initialize and persist the default empty document.
		init := domain.NewDocument()
		if err := s.saveLocked(init); err != nil {
			return nil, err
		}
		if s.logger != nil {
			s.logger.Info("initialized empty document")
		}
		return init, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageIO, "failed to load document")
	}

	if doc.Upgrade() {
		// Legacy shape: persist the upgraded document before returning.
		if err := s.saveLocked(&doc); err != nil {
			return nil, err
		}
		if s.logger != nil {
			s.logger.Info("upgraded legacy document shape")
		}
	}

	return &doc, nil
}

// saveLocked persists the whole document. Callers must hold mu.
func (s *Store) saveLocked(doc *domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageIO, "failed to marshal document")
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(documentKey, data)
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageIO, "failed to persist document")
	}
	return nil
}

// mutate runs fn against the current document under the writer lock and
// persists the result. fn returning false skips the write (no-op reads
// of a mutation path, e.g. deleting a missing note). Any publish
// callbacks run after a successful persist, still under the lock, so
// search-index updates observe mutations in write order.
func (s *Store) mutate(ctx context.Context, fn func(doc *domain.Document) (bool, error), publish ...func(context.Context)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return err
	}

	dirty, err := fn(doc)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}

	if err := s.saveLocked(doc); err != nil {
		return err
	}
	for _, p := range publish {
		p(ctx)
	}
	return nil
}

// ReplaceDocument swaps in a whole new document, used by restore and
// merge flows. The replacement is persisted in a single write.
func (s *Store) ReplaceDocument(ctx context.Context, doc *domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	replacement := doc.Clone()
	replacement.Upgrade()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(replacement)
}

// SetLastBackupTime records the time of the most recent successful
// backup round-trip.
func (s *Store) SetLastBackupTime(ctx context.Context, t time.Time) error {
	return s.mutate(ctx, func(doc *domain.Document) (bool, error) {
		utc := t.UTC()
		doc.LastBackupTime = &utc
		return true, nil
	})
}
