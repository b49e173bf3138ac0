// Package config holds the immutable crawl configuration, built once per
// orchestrator and passed down by value — no package-level mutable state.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the crawler's default tuning.
const (
	DefaultNumResults               = 3
	DefaultMaxDepth                 = 3
	DefaultNumSeedURLs               = 5
	DefaultBaseRelevanceThreshold    = 0.4
	DefaultMinimumRelevanceThreshold = 0.15
	DefaultDepthRelevanceStep        = 0.05
	DefaultMaxParallelRequests       = 8
	DefaultBatchSize                 = 20
	DefaultSaveFrequency              = 3
	DefaultHeuristicScoreWeight       = 0.6
	DefaultCosineSimilarityWeight     = 0.4
	DefaultMinKeywordMatches          = 1
	DefaultFetchTimeout               = 10 * time.Second
)

// Config is the single immutable configuration value threaded through the
// orchestrator, scheduler, and pipeline. Build it once via New and never
// mutate it afterward — concurrent requests each get their own Config.
type Config struct {
	NumResults               int           `yaml:"num_results"`
	MaxDepth                 int           `yaml:"max_depth"`
	NumSeedURLs              int           `yaml:"num_seed_urls"`
	ForceCrawl               bool          `yaml:"force_crawl"`
	BaseRelevanceThreshold    float64      `yaml:"base_relevance_threshold"`
	MinimumRelevanceThreshold float64      `yaml:"minimum_relevance_threshold"`
	DepthRelevanceStep        float64      `yaml:"depth_relevance_step"`
	MaxParallelRequests       int          `yaml:"max_parallel_requests"`
	BatchSize                 int          `yaml:"batch_size"`
	SaveFrequency             int          `yaml:"save_frequency"`
	HeuristicScoreWeight      float64      `yaml:"heuristic_score_weight"`
	CosineSimilarityWeight    float64      `yaml:"cosine_similarity_weight"`
	MinKeywordMatches         int          `yaml:"min_keyword_matches"`
	FetchTimeout              time.Duration `yaml:"fetch_timeout"`

	// StateDir is the directory holding the three persisted files described
	// on disk (visited_urls, content_hashes, content_store).
	StateDir string `yaml:"state_dir"`

	// Backend selects a durable persistence backing beyond the default JSON
	// snapshot files: "" (default) uses StateDir's JSON files only,
	// "sqlite" additionally backs the store with a SQLiteStore at
	// SQLitePath, "postgres" with a PostgresStore at PostgresDSN.
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`

	// RedisAddr, when non-empty, layers a Redis L2 snapshot cache (TTL
	// RedisTTL) in front of whichever backend is selected.
	RedisAddr string        `yaml:"redis_addr"`
	RedisTTL  time.Duration `yaml:"redis_ttl"`
}

// Backend names for Config.Backend.
const (
	BackendJSON     = ""
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// New returns a Config with every field defaulted. Callers override
// individual fields (e.g. from a request or a loaded YAML file) afterward.
func New() Config {
	return Config{
		NumResults:                DefaultNumResults,
		MaxDepth:                  DefaultMaxDepth,
		NumSeedURLs:               DefaultNumSeedURLs,
		BaseRelevanceThreshold:    DefaultBaseRelevanceThreshold,
		MinimumRelevanceThreshold: DefaultMinimumRelevanceThreshold,
		DepthRelevanceStep:        DefaultDepthRelevanceStep,
		MaxParallelRequests:       DefaultMaxParallelRequests,
		BatchSize:                 DefaultBatchSize,
		SaveFrequency:             DefaultSaveFrequency,
		HeuristicScoreWeight:      DefaultHeuristicScoreWeight,
		CosineSimilarityWeight:    DefaultCosineSimilarityWeight,
		MinKeywordMatches:         DefaultMinKeywordMatches,
		FetchTimeout:              DefaultFetchTimeout,
	}
}

// Load builds a Config by layering an optional YAML file over New()'s
// defaults, then layering CRAWLER_*-prefixed environment variables over
// that — the same env-override-last pattern go_job's main.go uses for its
// own engine.Config. yamlPath == "" skips the file layer entirely.
func Load(yamlPath string) (Config, error) {
	cfg := New()
	cfg.StateDir = "./crawler-state"

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.NumResults = envInt("CRAWLER_NUM_RESULTS", cfg.NumResults)
	cfg.MaxDepth = envInt("CRAWLER_MAX_DEPTH", cfg.MaxDepth)
	cfg.NumSeedURLs = envInt("CRAWLER_NUM_SEED_URLS", cfg.NumSeedURLs)
	cfg.BaseRelevanceThreshold = envFloat("CRAWLER_BASE_RELEVANCE_THRESHOLD", cfg.BaseRelevanceThreshold)
	cfg.MinimumRelevanceThreshold = envFloat("CRAWLER_MINIMUM_RELEVANCE_THRESHOLD", cfg.MinimumRelevanceThreshold)
	cfg.DepthRelevanceStep = envFloat("CRAWLER_DEPTH_RELEVANCE_STEP", cfg.DepthRelevanceStep)
	cfg.MaxParallelRequests = envInt("CRAWLER_MAX_PARALLEL_REQUESTS", cfg.MaxParallelRequests)
	cfg.BatchSize = envInt("CRAWLER_BATCH_SIZE", cfg.BatchSize)
	cfg.SaveFrequency = envInt("CRAWLER_SAVE_FREQUENCY", cfg.SaveFrequency)
	cfg.MinKeywordMatches = envInt("CRAWLER_MIN_KEYWORD_MATCHES", cfg.MinKeywordMatches)
	cfg.StateDir = envString("CRAWLER_STATE_DIR", cfg.StateDir)
	cfg.Backend = envString("CRAWLER_BACKEND", cfg.Backend)
	cfg.SQLitePath = envString("CRAWLER_SQLITE_PATH", cfg.SQLitePath)
	cfg.PostgresDSN = envString("CRAWLER_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.RedisAddr = envString("CRAWLER_REDIS_ADDR", cfg.RedisAddr)

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// DepthThreshold computes the depth-adaptive content relevance threshold t_d.
func (c Config) DepthThreshold(depth int, baseThreshold float64) float64 {
	t := baseThreshold - float64(depth)*c.DepthRelevanceStep
	if t < c.MinimumRelevanceThreshold {
		return c.MinimumRelevanceThreshold
	}
	return t
}
