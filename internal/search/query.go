package search

import (
	"context"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a ranked search query.
type Params struct {
	Query  string
	Tags   []string // Restrict results to notes carrying all of these tags
	Limit  int
	Offset int
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{Limit: 20}
}

// Result holds ranked search results.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is one ranked match.
type Hit struct {
	NoteID     int                 `json:"noteId"`
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// Search runs a ranked query against the index. The query text is
// matched with fuzzy tolerance against title and content; tag filters
// are exact conjunctive terms.
func (ix *Index) Search(ctx context.Context, params Params) (*Result, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultParams().Limit
	}

	var clauses []query.Query
	if params.Query != "" {
		match := bleve.NewMatchQuery(params.Query)
		match.SetFuzziness(1)
		clauses = append(clauses, match)
	} else {
		clauses = append(clauses, bleve.NewMatchAllQuery())
	}

	for _, tag := range params.Tags {
		tq := bleve.NewTermQuery(tag)
		tq.SetField("tags")
		clauses = append(clauses, tq)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(clauses...), params.Limit, params.Offset, false)
	req.Highlight = bleve.NewHighlight()

	ix.mu.RLock()
	res, err := ix.index.SearchInContext(ctx, req)
	ix.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		id, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		result.Hits = append(result.Hits, Hit{
			NoteID:     id,
			Score:      hit.Score,
			Highlights: hit.Fragments,
		})
	}
	return result, nil
}
