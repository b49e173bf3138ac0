// Package orchestrator implements the request-scope crawl-and-query entry
// point: prompt expansion, the cache-or-crawl decision, ranking,
// optional answer synthesis and evaluation, and partial-failure status
// reduction. Grounded on go_job's internal/jobserver request-handler
// shape (accept a request struct, call into the engine, assemble a
// response struct with a status/error-list instead of propagating a
// single error) — reworked into an explicit
// (value, error)-per-phase accumulation instead of broad catch blocks.
package orchestrator

import (
	"context"
	"time"

	"github.com/anatolykoptev/go_crawler/internal/collab"
	"github.com/anatolykoptev/go_crawler/internal/config"
	"github.com/anatolykoptev/go_crawler/internal/crawler"
	"github.com/anatolykoptev/go_crawler/internal/harvest"
	"github.com/anatolykoptev/go_crawler/internal/keywordidx"
	"github.com/anatolykoptev/go_crawler/internal/model"
	"github.com/anatolykoptev/go_crawler/internal/pipeline"
	"github.com/anatolykoptev/go_crawler/internal/ranking"
	"github.com/anatolykoptev/go_crawler/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Status is the final outcome classification for a Response.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
)

// SeedMode selects one of the three initiation modes: the zero value
// (SeedModeAugmented) unions any user-supplied SeedURLs with a fresh search,
// matching "prompt only" when SeedURLs is empty and "prompt + URLs
// augmented by search" otherwise. SeedModeStrict uses SeedURLs as-is with no
// search augmentation, and restricts ranked results to documents whose URL
// is in SeedURLs ("prompt + URLs strictly").
type SeedMode string

const (
	SeedModeAugmented SeedMode = ""
	SeedModeStrict    SeedMode = "urls-strict"
)

// Request is a single crawl-and-query call.
type Request struct {
	Prompt        string
	SeedURLs      []string
	SeedMode      SeedMode
	NumSeedURLs   int
	MaxDepth      int
	NumResults    int
	BaseThreshold float64
	ForceCrawl    bool
}

// Metadata captures per-subsystem error strings and summary counts for a
// Response.
type Metadata struct {
	RequestID      string
	VisitedCount   int
	TotalDocuments int
	FromCache      bool
	Errors         map[string]string // phase name -> error string
}

// TimeMetrics breaks Response's wall-clock cost down by phase, grounded on
// original_source's per-phase timing and go_job's TrackOperation slow-op
// logging.
type TimeMetrics struct {
	TotalMs      int64
	CacheCheckMs int64
	CrawlMs      int64
}

// Response is the orchestrator's output.
type Response struct {
	Status   Status
	Results  []model.ScoredDocument
	Answer   string
	Metadata Metadata
	Harvest  harvest.Snapshot
	Time     TimeMetrics
}

// Orchestrator owns the long-lived collaborators and config for a crawl
// deployment; VisitedSet/ContentStore are loaded once at construction and
// persist across requests.
type Orchestrator struct {
	Cfg       config.Config
	Enricher  collab.QueryEnricher
	Seeds     collab.SeedProvider
	Fetcher   collab.Fetcher
	Extractor collab.Extractor
	Synth     collab.AnswerSynthesizer // optional
	Judge     collab.Judge             // optional
	Log       zerolog.Logger

	Visited *store.VisitedSet
	Store   *store.ContentStore

	// Backend is the optional SQLite/Postgres durable backing selected by
	// Cfg.Backend; nil means the JSON snapshot files under Cfg.StateDir are
	// the only persistence.
	Backend store.Backend
	// RedisCache is the optional L2 snapshot cache selected by
	// Cfg.RedisAddr.
	RedisCache *store.RedisSnapshotCache

	closeBackend func() error
}

// New constructs an Orchestrator, restoring persisted state from
// cfg.StateDir and, if configured, from Cfg.Backend. Cfg.RedisAddr only sets
// up RedisCache, which snapshots are written to; New does not read from it.
func New(cfg config.Config, enricher collab.QueryEnricher, seeds collab.SeedProvider, fetcher collab.Fetcher, extractor collab.Extractor, synth collab.AnswerSynthesizer, judge collab.Judge, log zerolog.Logger) *Orchestrator {
	visited, cs := store.Restore(cfg.StateDir, log)

	o := &Orchestrator{
		Cfg:       cfg,
		Enricher:  enricher,
		Seeds:     seeds,
		Fetcher:   fetcher,
		Extractor: extractor,
		Synth:     synth,
		Judge:     judge,
		Log:       log,
		Visited:   visited,
		Store:     cs,
	}

	if backend, closer, err := openBackend(cfg); err != nil {
		log.Warn().Err(err).Str("backend", cfg.Backend).Msg("orchestrator: backend open failed, using JSON snapshot only")
	} else if backend != nil {
		o.Backend = backend
		o.closeBackend = closer
		store.LoadFromBackend(context.Background(), backend, visited, cs, log)
	}

	if cfg.RedisAddr != "" {
		o.RedisCache = store.NewRedisSnapshotCache(cfg.RedisAddr, cfg.RedisTTL)
	}

	return o
}

// Close releases the Backend connection and RedisCache, if configured.
func (o *Orchestrator) Close() error {
	var err error
	if o.RedisCache != nil {
		err = o.RedisCache.Close()
	}
	if o.closeBackend != nil {
		if cerr := o.closeBackend(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// openBackend opens the durable backend named by cfg.Backend, returning a
// nil Backend (and nil error) when cfg.Backend is unset.
func openBackend(cfg config.Config) (store.Backend, func() error, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := store.OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BackendPostgres:
		s, err := store.OpenPostgresStore(context.Background(), cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { s.Close(); return nil }, nil
	default:
		return nil, nil, nil
	}
}

// CrawlAndQuery runs the full crawl-and-query request flow.
func (o *Orchestrator) CrawlAndQuery(ctx context.Context, req Request) Response {
	start := time.Now()
	errs := make(map[string]string)
	requestID := uuid.New().String()
	log := o.Log.With().Str("request_id", requestID).Logger()
	log.Debug().Str("prompt", req.Prompt).Msg("orchestrator: request started")

	numResults := req.NumResults
	if numResults <= 0 {
		numResults = o.Cfg.NumResults
	}
	baseThreshold := req.BaseThreshold
	if baseThreshold <= 0 {
		baseThreshold = o.Cfg.BaseRelevanceThreshold
	}

	promptCtx := o.buildPromptContext(ctx, req.Prompt, errs)

	weights := ranking.Weights{Heuristic: o.Cfg.HeuristicScoreWeight, Cosine: o.Cfg.CosineSimilarityWeight}
	meter := harvest.NewMeter()
	rankOpts := ranking.RankOptions{RestrictToSeeds: restrictToSeeds(req)}

	fromCache := false
	cacheCheckStart := time.Now()
	if !req.ForceCrawl {
		cacheResults := ranking.RankWithOptions(o.Store.Documents(), promptCtx.Keywords, weights, numResults, rankOpts)
		if sufficientAndAboveThreshold(cacheResults, numResults, baseThreshold) {
			fromCache = true
			recordCacheHit(meter, cacheResults, baseThreshold)
		}
	}
	cacheCheckMs := time.Since(cacheCheckStart).Milliseconds()

	var crawlMs int64
	if !fromCache {
		crawlStart := time.Now()
		outcome, err := o.runCrawl(ctx, req, promptCtx, baseThreshold, numResults, meter)
		crawlMs = time.Since(crawlStart).Milliseconds()
		if err != nil {
			errs["crawl"] = err.Error()
		} else if !outcome.DidWork {
			fromCache = true
		}
	}

	results := ranking.RankWithOptions(o.Store.Documents(), promptCtx.Keywords, weights, numResults, rankOpts)

	answer := o.synthesizeAnswer(ctx, req.Prompt, results, errs)
	o.evaluate(ctx, req.Prompt, results, answer, errs)

	status := StatusSuccess
	if len(errs) > 0 {
		status = StatusPartialSuccess
	}
	totalMs := time.Since(start).Milliseconds()
	log.Info().Str("status", string(status)).Bool("from_cache", fromCache).Int("results", len(results)).Msg("orchestrator: request finished")

	return Response{
		Status:  status,
		Results: results,
		Answer:  answer,
		Metadata: Metadata{
			RequestID:      requestID,
			VisitedCount:   o.Visited.Len(),
			TotalDocuments: o.Store.Len(),
			FromCache:      fromCache,
			Errors:         errs,
		},
		Harvest: meter.Snapshot(),
		Time: TimeMetrics{
			TotalMs:      totalMs,
			CacheCheckMs: cacheCheckMs,
			CrawlMs:      crawlMs,
		},
	}
}

// restrictToSeeds returns req.SeedURLs when the request uses the
// urls-strict initiation mode, nil otherwise.
func restrictToSeeds(req Request) []string {
	if req.SeedMode != SeedModeStrict {
		return nil
	}
	return req.SeedURLs
}

func (o *Orchestrator) buildPromptContext(ctx context.Context, prompt string, errs map[string]string) model.PromptContext {
	phrases := []string{prompt}
	if o.Enricher != nil {
		expanded, err := o.Enricher.Expand(ctx, prompt, 6)
		if err != nil {
			errs["query_enrich"] = err.Error()
		} else if len(expanded) > 0 {
			phrases = expanded
		}
	}

	keywords := keywordidx.Extract(phrases)
	return model.PromptContext{
		OriginalText: prompt,
		SearchPhrase: quotedOrJoin(phrases),
		QueryText:    joinSpace(keywords),
		Keywords:     keywords,
	}
}

func (o *Orchestrator) runCrawl(ctx context.Context, req Request, promptCtx model.PromptContext, baseThreshold float64, numResults int, meter *harvest.Meter) (crawler.Outcome, error) {
	p := pipeline.New(o.Fetcher, o.Extractor, o.Log)
	sched := crawler.New(o.Cfg, o.Seeds, p, o.Visited, o.Store, meter, o.Log, 4)
	sched.Backend = o.Backend
	sched.RedisCache = o.RedisCache

	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = o.Cfg.MaxDepth
	}
	numSeed := req.NumSeedURLs
	if numSeed <= 0 {
		numSeed = o.Cfg.NumSeedURLs
	}

	return sched.Run(ctx, crawler.Request{
		Prompt:        promptCtx,
		SeedURLs:      req.SeedURLs,
		Strict:        req.SeedMode == SeedModeStrict,
		NumSeedURLs:   numSeed,
		MaxDepth:      maxDepth,
		BaseThreshold: baseThreshold,
		NumResults:    numResults,
	})
}

// recordCacheHit implements the harvest meter's cache-bucket rule: for every
// cache hit, add (#results, #results above threshold) into the cache bucket.
func recordCacheHit(meter *harvest.Meter, results []model.ScoredDocument, threshold float64) {
	for _, r := range results {
		meter.RecordCache(r.WeightedScore >= threshold)
	}
}

func (o *Orchestrator) synthesizeAnswer(ctx context.Context, prompt string, results []model.ScoredDocument, errs map[string]string) string {
	if o.Synth == nil || len(results) == 0 {
		return ""
	}
	bodies := make([]string, len(results))
	for i, r := range results {
		bodies[i] = r.Body
	}
	answer, err := o.Synth.Generate(ctx, prompt, bodies)
	if err != nil {
		errs["synthesis"] = err.Error()
		return ""
	}
	return answer
}

func (o *Orchestrator) evaluate(ctx context.Context, prompt string, results []model.ScoredDocument, answer string, errs map[string]string) {
	if o.Judge == nil {
		return
	}
	bodies := make([]string, len(results))
	for i, r := range results {
		bodies[i] = r.Body
	}
	if _, err := o.Judge.Evaluate(ctx, prompt, bodies, answer); err != nil {
		errs["evaluation"] = err.Error()
	}
}

func sufficientAndAboveThreshold(results []model.ScoredDocument, numResults int, threshold float64) bool {
	if len(results) < numResults {
		return false
	}
	for _, r := range results {
		if r.WeightedScore < threshold {
			return false
		}
	}
	return true
}

func quotedOrJoin(phrases []string) string {
	out := ""
	for i, p := range phrases {
		if i > 0 {
			out += " OR "
		}
		out += "\"" + p + "\""
	}
	return out
}

func joinSpace(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}
