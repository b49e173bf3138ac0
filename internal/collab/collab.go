// Package collab defines the boundary interfaces the core crawler depends
// on but does not implement: seed discovery, fetching, extraction, query
// expansion, answer synthesis, and evaluation. Concrete
// implementations live under internal/collab/* or are provided by callers;
// the core packages (pipeline, crawler, orchestrator) only ever see these
// interfaces.
package collab

import (
	"context"
	"time"
)

// SeedProvider supplies candidate seed URLs for a query. Implementations
// must never panic into the core; a failed search is reported as an error
// and the caller degrades gracefully.
type SeedProvider interface {
	Search(ctx context.Context, query string, n int) ([]string, error)
}

// FetchResult is the successful outcome of a Fetcher.Get call.
type FetchResult struct {
	Body     string
	FinalURL string
}

// Fetcher retrieves a URL's body, following redirects, and reports the
// final (post-redirect) URL. A non-HTML content type or transport error is
// reported as a non-nil error, never a panic (the reference implementation
// in internal/collab/fetchclient wraps fetchclient.ErrNotFetchable).
type Fetcher interface {
	Get(ctx context.Context, url string, timeout time.Duration) (FetchResult, error)
}

// Extraction is the structured result of parsing one fetched page.
type Extraction struct {
	Title         string
	Body          string
	PublishDate   *time.Time
	OutboundLinks []string
	WordCount     int
}

// Extractor turns raw HTML into plain-text content and structural metadata.
// Body is whitespace-normalized plain text with URLs and emails stripped;
// OutboundLinks are same-host, absolute, fragment-stripped, and
// de-duplicated.
type Extractor interface {
	Parse(ctx context.Context, html string, pageURL string) (Extraction, error)
}

// QueryEnricher expands a natural-language prompt into a set of search
// keywords/phrases. Implementations must return a non-empty slice for any
// non-empty prompt.
type QueryEnricher interface {
	Expand(ctx context.Context, prompt string, nKeywords int) ([]string, error)
}

// AnswerSynthesizer produces a natural-language answer from a prompt and the
// ranked results. Optional: the orchestrator tolerates a nil synthesizer or
// a synthesis error by degrading to no answer.
type AnswerSynthesizer interface {
	Generate(ctx context.Context, prompt string, results []string) (string, error)
}

// Evaluation is the optional quality assessment produced by a Judge.
type Evaluation struct {
	RawResultsEvaluation    string
	LLMResponseEvaluation   string
	HasLLMResponseEvaluation bool
}

// Judge scores the crawl results (and, if present, the synthesized answer)
// against the original prompt. Optional, like AnswerSynthesizer.
type Judge interface {
	Evaluate(ctx context.Context, prompt string, results []string, answer string) (Evaluation, error)
}
