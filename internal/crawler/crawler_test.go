package crawler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/anatolykoptev/go_crawler/internal/collab"
	"github.com/anatolykoptev/go_crawler/internal/config"
	"github.com/anatolykoptev/go_crawler/internal/harvest"
	"github.com/anatolykoptev/go_crawler/internal/model"
	"github.com/anatolykoptev/go_crawler/internal/pipeline"
	"github.com/anatolykoptev/go_crawler/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopLog() zerolog.Logger { return zerolog.Nop() }

type stubSeedProvider struct {
	urls []string
	err  error
}

func (s stubSeedProvider) Search(ctx context.Context, query string, n int) ([]string, error) {
	return s.urls, s.err
}

// pageFetcher serves canned HTML bodies keyed by URL, simulating a small
// link graph without touching the network.
type pageFetcher struct {
	pages map[string]string
}

func (f pageFetcher) Get(ctx context.Context, url string, timeout time.Duration) (collab.FetchResult, error) {
	body, ok := f.pages[url]
	if !ok {
		return collab.FetchResult{}, fmt.Errorf("no page for %s", url)
	}
	return collab.FetchResult{Body: body, FinalURL: url}, nil
}

// plainExtractor treats the fetched "body" as already-cleaned plain text,
// with any "->url" suffix tokens becoming outbound links.
type plainExtractor struct {
	linksByURL map[string][]string
}

func (e plainExtractor) Parse(ctx context.Context, html string, pageURL string) (collab.Extraction, error) {
	return collab.Extraction{
		Title:         "Page " + pageURL,
		Body:          html,
		OutboundLinks: e.linksByURL[pageURL],
		WordCount:     len(splitWords(html)),
	}, nil
}

func splitWords(s string) []string {
	var words []string
	word := ""
	for _, r := range s {
		if r == ' ' {
			if word != "" {
				words = append(words, word)
				word = ""
			}
			continue
		}
		word += string(r)
	}
	if word != "" {
		words = append(words, word)
	}
	return words
}

func repeatWords(phrase string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += phrase + " "
	}
	return out
}

func newTestScheduler(cfg config.Config, seeds collab.SeedProvider, fetcher collab.Fetcher, extractor collab.Extractor) (*Scheduler, *store.VisitedSet, *store.ContentStore, *harvest.Meter) {
	visited := store.NewVisitedSet()
	cs := store.NewContentStore(nopLog())
	meter := harvest.NewMeter()
	p := pipeline.New(fetcher, extractor, nopLog())
	sched := New(cfg, seeds, p, visited, cs, meter, nopLog(), 1000)
	return sched, visited, cs, meter
}

func TestRunNoSeedsReportsNoWork(t *testing.T) {
	cfg := config.New()
	cfg.StateDir = t.TempDir()
	sched, _, _, _ := newTestScheduler(cfg, stubSeedProvider{}, pageFetcher{}, plainExtractor{})

	outcome, err := sched.Run(t.Context(), Request{
		Prompt:        model.PromptContext{Keywords: []string{"golang"}},
		BaseThreshold: 0.3,
		NumResults:    2,
	})
	require.NoError(t, err)
	assert.False(t, outcome.DidWork)
}

func TestRunStopsAtDepthZeroWhenSeedsAreRelevant(t *testing.T) {
	cfg := config.New()
	cfg.StateDir = t.TempDir()
	cfg.BatchSize = 20
	cfg.MaxDepth = 3

	fetcher := pageFetcher{pages: map[string]string{
		"https://h.test/golang-a": repeatWords("golang crawler design", 400),
		"https://h.test/golang-b": repeatWords("golang crawler pattern", 400),
	}}
	extractor := plainExtractor{}
	seeds := stubSeedProvider{urls: []string{"https://h.test/golang-a", "https://h.test/golang-b"}}

	sched, visited, cs, meter := newTestScheduler(cfg, seeds, fetcher, extractor)

	outcome, err := sched.Run(t.Context(), Request{
		Prompt:        model.PromptContext{Keywords: []string{"golang", "crawler"}, SearchPhrase: "golang crawler"},
		MaxDepth:      3,
		BaseThreshold: 0.3,
		NumResults:    2,
	})
	require.NoError(t, err)
	assert.True(t, outcome.DidWork)
	assert.Equal(t, 2, cs.Len())
	assert.Equal(t, 2, visited.Len())
	assert.InDelta(t, 1.0, meter.DepthRatio(0), 1e-9)
}

func TestRunDedupsByteIdenticalBodies(t *testing.T) {
	cfg := config.New()
	cfg.StateDir = t.TempDir()

	body := repeatWords("golang crawler design", 400)
	fetcher := pageFetcher{pages: map[string]string{
		"https://h.test/golang-a": body,
		"https://h.test/golang-b": body,
	}}
	seeds := stubSeedProvider{urls: []string{"https://h.test/golang-a", "https://h.test/golang-b"}}

	sched, visited, cs, _ := newTestScheduler(cfg, seeds, fetcher, plainExtractor{})

	_, err := sched.Run(t.Context(), Request{
		Prompt:        model.PromptContext{Keywords: []string{"golang", "crawler"}, SearchPhrase: "golang crawler"},
		MaxDepth:      0,
		BaseThreshold: 0.3,
		NumResults:    5, // more than dedup can leave in the store, so early stop never fires
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cs.Len())
	assert.Equal(t, 2, visited.Len())
}

func TestRunDepthEscalatesWhenSeedsAreOffTopic(t *testing.T) {
	cfg := config.New()
	cfg.StateDir = t.TempDir()
	cfg.MaxDepth = 2

	offTopic := repeatWords("cooking recipe", 10) // < 30 words -> word gate rejects, still yields links
	onTopic := repeatWords("golang crawler design", 400)

	fetcher := pageFetcher{pages: map[string]string{
		"https://h.test/golang-seed": offTopic,
		"https://h.test/golang-deep": onTopic,
	}}
	extractor := plainExtractor{linksByURL: map[string][]string{
		"https://h.test/golang-seed": {"https://h.test/golang-deep"},
	}}
	seeds := stubSeedProvider{urls: []string{"https://h.test/golang-seed"}}

	sched, _, cs, meter := newTestScheduler(cfg, seeds, fetcher, extractor)

	outcome, err := sched.Run(t.Context(), Request{
		Prompt:        model.PromptContext{Keywords: []string{"golang", "crawler"}, SearchPhrase: "golang crawler"},
		MaxDepth:      2,
		BaseThreshold: 0.3,
		NumResults:    1,
	})
	require.NoError(t, err)
	assert.True(t, outcome.DidWork)
	assert.Equal(t, 1, cs.Len())
	assert.Equal(t, 0, meter.DepthProcessed(0))
	assert.Greater(t, meter.DepthProcessed(1), 0)
}

func TestRunPartialFailurePropagatesSeedProviderError(t *testing.T) {
	cfg := config.New()
	cfg.StateDir = t.TempDir()
	sched, _, _, _ := newTestScheduler(cfg, stubSeedProvider{err: fmt.Errorf("search down")}, pageFetcher{}, plainExtractor{})

	_, err := sched.Run(t.Context(), Request{
		Prompt:        model.PromptContext{Keywords: []string{"golang"}, SearchPhrase: "golang"},
		BaseThreshold: 0.3,
		NumResults:    2,
	})
	assert.Error(t, err)
}
