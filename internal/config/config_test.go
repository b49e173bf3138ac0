package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNoFileUsesDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("CRAWLER_MAX_DEPTH", "7")
	t.Setenv("CRAWLER_BASE_RELEVANCE_THRESHOLD", "0.55")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxDepth)
	assert.InDelta(t, 0.55, cfg.BaseRelevanceThreshold, 1e-9)
	assert.Equal(t, DefaultNumResults, cfg.NumResults)
}

func TestLoadYAMLFileOverridesDefaultsEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crawler.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_depth: 9\nbatch_size: 50\n"), 0o600))

	t.Setenv("CRAWLER_BATCH_SIZE", "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.MaxDepth)
	assert.Equal(t, 12, cfg.BatchSize) // env wins over file
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxDepth, cfg.MaxDepth)
}
