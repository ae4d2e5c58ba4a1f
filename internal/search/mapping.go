package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for notes.
// Titles and content get English stemming; tags are matched as exact
// keywords so "work" never stems into "working".
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	noteMapping := bleve.NewDocumentMapping()

	titleMapping := bleve.NewTextFieldMapping()
	titleMapping.Analyzer = en.AnalyzerName
	titleMapping.Store = true
	titleMapping.IncludeTermVectors = true // For highlighting
	noteMapping.AddFieldMappingsAt("title", titleMapping)

	contentMapping := bleve.NewTextFieldMapping()
	contentMapping.Analyzer = en.AnalyzerName
	contentMapping.Store = false
	contentMapping.IncludeTermVectors = true
	noteMapping.AddFieldMappingsAt("content", contentMapping)

	tagMapping := bleve.NewTextFieldMapping()
	tagMapping.Analyzer = keyword.Name
	tagMapping.Store = true
	noteMapping.AddFieldMappingsAt("tags", tagMapping)

	indexMapping.DefaultMapping = noteMapping
	return indexMapping
}
