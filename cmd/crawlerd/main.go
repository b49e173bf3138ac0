// crawlerd runs a single adaptive crawl-and-query request from the command
// line. Config is loaded from an optional YAML file and CRAWLER_*
// environment variables (including a .env file via godotenv), a crawl
// orchestrator is built with the reference Fetcher/Extractor collaborators,
// and the request runs to completion or until an interrupt signal cancels
// its context.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go_crawler/internal/collab/fetchclient"
	"github.com/anatolykoptev/go_crawler/internal/collab/htmlextract"
	"github.com/anatolykoptev/go_crawler/internal/config"
	"github.com/anatolykoptev/go_crawler/internal/orchestrator"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	prompt := flag.String("prompt", "", "search prompt (required)")
	seeds := flag.String("seeds", "", "comma-separated seed URLs")
	numResults := flag.Int("num-results", 0, "override num_results (0 = config default)")
	maxDepth := flag.Int("max-depth", -1, "override max_depth (values <= 0 use the config default; a depth-0-only crawl cannot be selected)")
	baseThreshold := flag.Float64("base-threshold", 0, "override base_threshold (0 = config default)")
	forceCrawl := flag.Bool("force-crawl", false, "skip the cache and always crawl")
	strict := flag.Bool("strict", false, "urls-strict initiation mode: no search augmentation, rank only the given seeds")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if *prompt == "" {
		fmt.Fprintln(os.Stderr, "crawlerd: -prompt is required")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "crawlerd: .env load failed: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawlerd: config load failed: %v\n", err)
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	orch := orchestrator.New(cfg, nil, nil, fetchclient.New(), htmlextract.New(), nil, nil, log)
	defer func() {
		if err := orch.Close(); err != nil {
			log.Warn().Err(err).Msg("crawlerd: backend close failed")
		}
	}()

	req := orchestrator.Request{
		Prompt:        *prompt,
		SeedURLs:      splitAndTrim(*seeds),
		NumResults:    *numResults,
		BaseThreshold: *baseThreshold,
		ForceCrawl:    *forceCrawl,
	}
	if *maxDepth >= 0 {
		req.MaxDepth = *maxDepth
	}
	if *strict {
		req.SeedMode = orchestrator.SeedModeStrict
	}

	sigCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("prompt", *prompt).Msg("crawlerd: starting request")
	resp := orch.CrawlAndQuery(sigCtx, req)
	log.Info().
		Str("status", string(resp.Status)).
		Int("results", len(resp.Results)).
		Bool("from_cache", resp.Metadata.FromCache).
		Int64("elapsed_ms", resp.Time.TotalMs).
		Msg("crawlerd: request complete")

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("crawlerd: failed to encode response")
		os.Exit(1)
	}
	fmt.Println(string(out))

	if resp.Status == orchestrator.StatusPartialSuccess {
		os.Exit(1)
	}
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
