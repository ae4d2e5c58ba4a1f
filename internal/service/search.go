package service

import (
	"context"
	"log/slog"

	"github.com/notekeepapp/notekeep-server/internal/domain"
	"github.com/notekeepapp/notekeep-server/internal/search"
	"github.com/notekeepapp/notekeep-server/internal/store"
)

// RankedNote is a note paired with its relevance score and any
// highlighted fragments from the search index.
type RankedNote struct {
	Note       domain.Note
	Score      float64
	Highlights map[string][]string
}

// RankedResult is a page of ranked search results.
type RankedResult struct {
	Query  string
	Total  uint64
	TookMs int64
	Notes  []RankedNote
}

// SearchService provides ranked full-text search over notes, backed by
// the bleve index. The exact substring filter lives on NotesService;
// this is the fuzzy, scored path.
type SearchService struct {
	store  *store.Store
	index  *search.Index
	logger *slog.Logger
}

// NewSearchService creates a search service and wires the index into
// the store so note writes keep the index current.
func NewSearchService(s *store.Store, index *search.Index, logger *slog.Logger) *SearchService {
	svc := &SearchService{
		store:  s,
		index:  index,
		logger: logger,
	}
	s.SetSearchIndexer(index)
	return svc
}

// Search runs a ranked query and resolves each hit back to its note.
// Hits whose note has been deleted since indexing are dropped.
func (s *SearchService) Search(ctx context.Context, params search.Params) (*RankedResult, error) {
	res, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedNote, 0, len(res.Hits))
	for _, hit := range res.Hits {
		note := doc.NoteByID(hit.NoteID)
		if note == nil {
			continue
		}
		ranked = append(ranked, RankedNote{
			Note:       *note,
			Score:      hit.Score,
			Highlights: hit.Highlights,
		})
	}

	return &RankedResult{
		Query:  res.Query,
		Total:  res.Total,
		TookMs: res.TookMs,
		Notes:  ranked,
	}, nil
}

// Reindex rebuilds the search index from the current document. Run at
// startup so the index catches up with writes it missed.
func (s *SearchService) Reindex(ctx context.Context) error {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if err := s.index.ReindexAll(ctx, doc.Notes); err != nil {
		return err
	}
	s.logger.Info("search index rebuilt", "notes", len(doc.Notes))
	return nil
}
