// Package crawler implements the adaptive BFS crawl scheduler: seed sourcing, the depth loop, batched worker dispatch,
// per-batch early-stop on ranking quality, and periodic snapshotting.
//
// Grounded on go_job's internal/engine/search.go federation-and-merge
// loop and internal/engine/pipeline.go batch-dispatch shape, reworked from
// a single flat search pass into a depth-bounded frontier loop, and from a
// plain goroutine-per-item-with-WaitGroup pattern into a
// golang.org/x/sync/errgroup-coordinated, golang.org/x/sync/semaphore-bounded
// worker pool paired with a golang.org/x/time/rate limiter that paces all
// dispatches through one shared bucket.
package crawler

import (
	"context"
	"sync"

	"github.com/anatolykoptev/go_crawler/internal/collab"
	"github.com/anatolykoptev/go_crawler/internal/config"
	"github.com/anatolykoptev/go_crawler/internal/harvest"
	"github.com/anatolykoptev/go_crawler/internal/model"
	"github.com/anatolykoptev/go_crawler/internal/pipeline"
	"github.com/anatolykoptev/go_crawler/internal/ranking"
	"github.com/anatolykoptev/go_crawler/internal/store"
	"github.com/anatolykoptev/go_crawler/internal/urlfilter"
	"github.com/anatolykoptev/go_crawler/internal/urlutil"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Request bundles a single crawl invocation's inputs. The caller
// (the orchestrator) is responsible for resolving config defaults before
// building a Request — MaxDepth=0 here means "crawl only depth 0", not
// "unset".
type Request struct {
	Prompt        model.PromptContext
	SeedURLs      []string // user-supplied, optional
	NumSeedURLs   int
	MaxDepth      int
	BaseThreshold float64
	NumResults    int
	// Strict selects the "urls-strict" initiation mode: SeedURLs are used
	// as-is with no search augmentation, and ranking is restricted to
	// documents whose URL is in SeedURLs.
	Strict bool
}

// Outcome is what the scheduler hands back to the orchestrator.
type Outcome struct {
	DidWork bool // false means "no seeds" or an empty frontier from the start
}

// Scheduler owns one crawl request's frontier loop. A fresh Scheduler is
// built per request by the orchestrator; the Visited set, ContentStore,
// and Meter it's given are mutated only by this Scheduler's own goroutine,
// never inside a worker.
type Scheduler struct {
	Cfg          config.Config
	SeedProvider collab.SeedProvider
	Pipeline     *pipeline.Pipeline
	Visited      *store.VisitedSet
	Store        *store.ContentStore
	Meter        *harvest.Meter
	Log          zerolog.Logger

	// Backend and RedisCache are optional durable-persistence mirrors set
	// by the orchestrator after New; nil means snapshotting only writes the
	// JSON files under Cfg.StateDir.
	Backend    store.Backend
	RedisCache *store.RedisSnapshotCache

	// hostLimiter rate-limits dispatch with a single bucket shared by all
	// hosts, built once in New; it does not keep a separate bucket per host.
	hostLimiter *rate.Limiter
}

// New builds a Scheduler. hostRPS bounds the overall dispatch rate
// (requests per second, one bucket shared across hosts since C10 has no
// per-host frontier split).
func New(cfg config.Config, seeds collab.SeedProvider, p *pipeline.Pipeline, visited *store.VisitedSet, cs *store.ContentStore, meter *harvest.Meter, log zerolog.Logger, hostRPS float64) *Scheduler {
	if hostRPS <= 0 {
		hostRPS = 4
	}
	return &Scheduler{
		Cfg:          cfg,
		SeedProvider: seeds,
		Pipeline:     p,
		Visited:      visited,
		Store:        cs,
		Meter:        meter,
		Log:          log,
		hostLimiter: rate.NewLimiter(rate.Limit(hostRPS), int(hostRPS)+1),
	}
}

// Run drives the full depth loop and returns whether any work was
// actually dispatched.
func (s *Scheduler) Run(ctx context.Context, req Request) (Outcome, error) {
	seeds, err := s.sourceSeeds(ctx, req)
	if err != nil {
		return Outcome{}, err
	}

	filter := urlfilter.New(req.Prompt.Keywords, s.Cfg.MinKeywordMatches)
	frontier := urlutil.Dedup(filter.Select(seeds))
	if len(frontier) == 0 {
		return Outcome{DidWork: false}, nil
	}

	everSeen := make(map[string]bool, len(frontier))
	for _, u := range frontier {
		everSeen[u] = true
	}

	didWork := false
	maxDepth := req.MaxDepth

	for depth := 0; depth <= maxDepth && len(frontier) > 0; depth++ {
		threshold := s.Cfg.DepthThreshold(depth, req.BaseThreshold)
		discovered := make(map[string]bool)

		for _, batch := range chunk(frontier, s.Cfg.BatchSize) {
			results := s.dispatchBatch(ctx, batch, req.Prompt.Keywords)
			didWork = didWork || len(batch) > 0

			for url, res := range results {
				pipeline.Apply(res, url, depth, threshold, s.Visited, s.Store, s.Meter)
				for _, link := range res.OutboundLinks {
					discovered[link] = true
				}
			}

			if s.earlyStop(req.NumResults, req.Prompt.Keywords, threshold, strictSeeds(req)) {
				s.Log.Info().Int("depth", depth).Msg("crawler: early stop on batch quality")
				store.PersistAll(ctx, s.Cfg.StateDir, s.Visited, s.Store, s.Backend, s.RedisCache, s.Log)
				return Outcome{DidWork: didWork}, nil
			}
		}

		s.Log.Info().Int("depth", depth).Float64("ratio", s.Meter.DepthRatio(depth)).Msg("crawler: depth harvest ratio")

		var next []string
		for link := range discovered {
			if everSeen[link] {
				continue
			}
			next = append(next, link)
		}
		next = filter.Select(next)
		for _, u := range next {
			everSeen[u] = true
		}
		frontier = next

		if s.Cfg.SaveFrequency > 0 && (depth+1)%s.Cfg.SaveFrequency == 0 {
			store.PersistAll(ctx, s.Cfg.StateDir, s.Visited, s.Store, s.Backend, s.RedisCache, s.Log)
		}
	}

	store.PersistAll(ctx, s.Cfg.StateDir, s.Visited, s.Store, s.Backend, s.RedisCache, s.Log)
	return Outcome{DidWork: didWork}, nil
}

// sourceSeeds resolves the depth-0 seed set. In the default
// ("urls-augmented") mode, user-supplied URLs (filtered through IsValid) are
// unioned with a fresh search for num_seed, or a plain search if the user
// supplied nothing. In Strict ("urls-strict") mode, no search is performed
// at all — only the user-supplied URLs are used.
func (s *Scheduler) sourceSeeds(ctx context.Context, req Request) ([]string, error) {
	var valid []string
	for _, u := range req.SeedURLs {
		if urlutil.IsValid(u) {
			valid = append(valid, u)
		}
	}

	if req.Strict || s.SeedProvider == nil {
		return valid, nil
	}

	numSeed := req.NumSeedURLs
	if numSeed <= 0 {
		numSeed = s.Cfg.NumSeedURLs
	}

	searched, err := s.SeedProvider.Search(ctx, req.Prompt.SearchPhrase, numSeed)
	if err != nil {
		return nil, err
	}

	return urlutil.Dedup(append(valid, searched...)), nil
}

// strictSeeds returns req.SeedURLs when the request is in strict mode, nil
// otherwise — the restriction ranking.RankWithOptions applies during the
// per-batch quality check.
func strictSeeds(req Request) []string {
	if !req.Strict {
		return nil
	}
	return req.SeedURLs
}

// dispatchBatch runs one batch of URLs through the pipeline with a bounded
// worker pool, returning each URL's Result keyed by the URL it was
// dispatched with. Per-worker failures never propagate — they simply
// result in an empty Result (treated as "visited, nothing gained"). The
// semaphore bounds concurrency; the errgroup coordinates goroutine lifetime
// and join, replacing a hand-rolled channel/counter wait.
func (s *Scheduler) dispatchBatch(ctx context.Context, batch []string, keywords []string) map[string]pipeline.Result {
	results := make(map[string]pipeline.Result, len(batch))
	if len(batch) == 0 {
		return results
	}

	maxWorkers := s.Cfg.MaxParallelRequests
	if maxWorkers <= 0 {
		maxWorkers = config.DefaultMaxParallelRequests
	}
	sem := semaphore.NewWeighted(int64(maxWorkers))
	visitedSnapshot := s.Visited.All()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, u := range batch {
		if s.Visited.Has(u) {
			continue
		}
		url := u
		if err := sem.Acquire(gctx, 1); err != nil {
			mu.Lock()
			results[url] = pipeline.Result{}
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			defer sem.Release(1)
			_ = s.hostLimiter.Wait(gctx)
			res := s.Pipeline.Process(gctx, url, keywords, visitedSnapshot, s.Cfg.FetchTimeout)
			mu.Lock()
			results[url] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// earlyStop is the per-batch quality check: rank the current
// store, and if at least NumResults documents clear threshold, stop.
// restrictToSeeds mirrors the "urls-strict" query-time filter so early-stop
// only counts documents that will actually be returned.
func (s *Scheduler) earlyStop(numResults int, keywords []string, threshold float64, restrictToSeeds []string) bool {
	if numResults <= 0 {
		numResults = s.Cfg.NumResults
	}
	docs := s.Store.Documents()
	ranked := ranking.RankWithOptions(docs, keywords, ranking.Weights{
		Heuristic: s.Cfg.HeuristicScoreWeight,
		Cosine:    s.Cfg.CosineSimilarityWeight,
	}, numResults, ranking.RankOptions{RestrictToSeeds: restrictToSeeds})

	if len(ranked) < numResults {
		return false
	}
	for _, r := range ranked {
		if r.WeightedScore < threshold {
			return false
		}
	}
	return true
}

func chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = config.DefaultBatchSize
	}
	var out [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
