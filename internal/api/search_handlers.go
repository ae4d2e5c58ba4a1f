package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/notekeepapp/notekeep-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search notes",
		Description: "Ranked full-text search over note titles, content, and tags",
		Tags:        []string{"Search"},
	}, s.handleSearchNotes)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindexNotes",
		Method:      http.MethodPost,
		Path:        "/api/v1/search/reindex",
		Summary:     "Rebuild search index",
		Description: "Rebuilds the search index from the current notes",
		Tags:        []string{"Search"},
	}, s.handleReindexNotes)
}

// === DTOs ===

// SearchInput contains ranked search parameters.
type SearchInput struct {
	Query  string   `query:"q" doc:"Search query; empty matches everything"`
	Tags   []string `query:"tag" doc:"Restrict results to notes carrying all of these tags"`
	Limit  int      `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum results"`
	Offset int      `query:"offset" minimum:"0" doc:"Results to skip"`
}

// SearchHit is a single ranked result.
type SearchHit struct {
	Note       NoteResponse        `json:"note" doc:"The matching note"`
	Score      float64             `json:"score" doc:"Relevance score"`
	Highlights map[string][]string `json:"highlights,omitempty" doc:"Highlighted fragments per field"`
}

// SearchResponse contains ranked search results.
type SearchResponse struct {
	Query  string      `json:"query" doc:"The query that was run"`
	Total  uint64      `json:"total" doc:"Total matching notes"`
	TookMs int64       `json:"tookMs" doc:"Search duration in milliseconds"`
	Hits   []SearchHit `json:"hits" doc:"Ranked results"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// ReindexResponse reports the result of an index rebuild.
type ReindexResponse struct {
	Indexed uint64 `json:"indexed" doc:"Number of notes in the rebuilt index"`
}

// ReindexOutput wraps the reindex response for Huma.
type ReindexOutput struct {
	Body ReindexResponse
}

// === Handlers ===

func (s *Server) handleSearchNotes(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.DefaultParams()
	params.Query = input.Query
	params.Tags = input.Tags
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, len(result.Notes))
	for i, rn := range result.Notes {
		hits[i] = SearchHit{
			Note:       noteResponse(&rn.Note),
			Score:      rn.Score,
			Highlights: rn.Highlights,
		}
	}

	return &SearchOutput{Body: SearchResponse{
		Query:  result.Query,
		Total:  result.Total,
		TookMs: result.TookMs,
		Hits:   hits,
	}}, nil
}

func (s *Server) handleReindexNotes(ctx context.Context, _ *struct{}) (*ReindexOutput, error) {
	if err := s.services.Search.Reindex(ctx); err != nil {
		return nil, err
	}

	count, err := s.searchIndex.Count()
	if err != nil {
		return nil, err
	}

	return &ReindexOutput{Body: ReindexResponse{Indexed: count}}, nil
}
