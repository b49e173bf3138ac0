// Package pipeline implements the per-URL fetch-extract-score-store
// operation the scheduler dispatches into a worker pool: fetch, follow
// redirects, extract, gate on word count, score, dedup-check, store, and
// always surface outbound links so frontier exploration isn't pruned by
// content quality alone.
package pipeline

import (
	"context"
	"time"

	"github.com/anatolykoptev/go_crawler/internal/collab"
	"github.com/anatolykoptev/go_crawler/internal/harvest"
	"github.com/anatolykoptev/go_crawler/internal/heuristic"
	"github.com/anatolykoptev/go_crawler/internal/model"
	"github.com/anatolykoptev/go_crawler/internal/store"
	"github.com/anatolykoptev/go_crawler/internal/urlutil"
	"github.com/rs/zerolog"
)

const minBodyWords = 30

// Result is what Process returns for one dispatched URL: the extracted
// outbound links (possibly empty, and returned even for pages below the
// word gate), plus the scored Document when the page passed the word gate.
// It is empty when fetch or extraction failed or the redirect target was
// already visited.
type Result struct {
	OutboundLinks []string
	Processed     bool // true if a page was actually fetched and scored
	Document      *model.Document
}

// Pipeline bundles the external collaborators and config a single Process
// call needs. Stateless beyond its fields; safe to share across workers
// since everything it touches is either per-call or passed in by the
// caller (store/visited/harvest are mutated only after the batch barrier).
type Pipeline struct {
	Fetcher   collab.Fetcher
	Extractor collab.Extractor
	Log       zerolog.Logger
}

// New returns a Pipeline wired to the given collaborators.
func New(fetcher collab.Fetcher, extractor collab.Extractor, log zerolog.Logger) *Pipeline {
	return &Pipeline{Fetcher: fetcher, Extractor: extractor, Log: log}
}

// Process fetches, extracts, and scores a single URL. It never mutates shared state
// directly — content scoring is computed here, but the caller (the
// scheduler, after the batch barrier, via Apply) decides admission and
// applies the result to the shared VisitedSet, ContentStore, and
// harvest.Meter. This keeps every worker call independent, per the
// concurrency model: workers return data, the scheduler merges.
func (p *Pipeline) Process(ctx context.Context, rawURL string, keywords []string, alreadyVisited map[string]bool, timeout time.Duration) Result {
	fetched, err := p.Fetcher.Get(ctx, rawURL, timeout)
	if err != nil {
		p.Log.Debug().Err(err).Str("url", rawURL).Msg("pipeline: fetch failed")
		return Result{}
	}

	finalURL := fetched.FinalURL
	if finalURL == "" {
		finalURL = rawURL
	}

	if finalURL != rawURL && alreadyVisited[finalURL] {
		return Result{}
	}

	extraction, err := p.Extractor.Parse(ctx, fetched.Body, finalURL)
	if err != nil {
		p.Log.Debug().Err(err).Str("url", finalURL).Msg("pipeline: extraction failed")
		return Result{}
	}

	if extraction.WordCount < minBodyWords {
		return Result{OutboundLinks: extraction.OutboundLinks}
	}

	doc := model.Document{
		URL:           finalURL,
		Domain:        urlutil.RegisteredDomain(finalURL),
		Title:         extraction.Title,
		Body:          extraction.Body,
		WordCount:     extraction.WordCount,
		PublishDate:   extraction.PublishDate,
		OutboundLinks: extraction.OutboundLinks,
	}
	doc.HeuristicScore = heuristic.Score(doc, keywords)

	return Result{
		OutboundLinks: extraction.OutboundLinks,
		Processed:     true,
		Document:      &doc,
	}
}

// Apply records a Process result against shared state: marks the URL
// visited, records the harvest sample at depth, and — if the page cleared
// contentThreshold — attempts to admit the document into the store. Must
// be called only by the scheduler-owned goroutine, after the batch
// barrier.
func Apply(res Result, url string, depth int, contentThreshold float64, visited *store.VisitedSet, cs *store.ContentStore, meter *harvest.Meter) {
	visited.Mark(url)

	if !res.Processed || res.Document == nil {
		return
	}

	relevant := res.Document.HeuristicScore >= contentThreshold
	meter.RecordDepth(depth, relevant)

	if relevant {
		cs.Admit(*res.Document)
	}
}
