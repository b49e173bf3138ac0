// Package model holds the data shapes shared across the crawl core: the
// immutable PromptContext built once per request and the Document records
// that populate the content store.
package model

import "time"

// PromptContext is built once per request and never mutated afterward.
type PromptContext struct {
	OriginalText string
	SearchPhrase string
	QueryText    string
	Keywords     []string
}

// Document is a single unit of the content store.
type Document struct {
	ID             string // ULID, assigned at ingestion
	URL            string
	Domain         string
	Title          string
	Body           string
	WordCount      int
	PublishDate    *time.Time
	HeuristicScore float64
	OutboundLinks  []string
	ContentHash    string
}

// ScoredDocument augments a Document with the query-time scores.
// HeuristicScore is inherited from the embedded Document (frozen at ingestion);
// CosineSimilarityScore and WeightedScore are computed fresh per query.
type ScoredDocument struct {
	Document
	CosineSimilarityScore float64
	WeightedScore         float64
}
