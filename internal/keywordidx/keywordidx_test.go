package keywordidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDropsStopWordsAndShortTokens(t *testing.T) {
	got := Extract([]string{"the quick and of go"})
	assert.NotContains(t, got, "the")
	assert.NotContains(t, got, "of")
	assert.NotContains(t, got, "go") // len 2, dropped
	assert.Contains(t, got, "quick")
}

func TestExtractPreservesFirstSeenOrderAndDedups(t *testing.T) {
	got := Extract([]string{"golang concurrency", "concurrency patterns golang"})
	assert.Equal(t, "golang", got[0])
	count := 0
	for _, k := range got {
		if k == "golang" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtractEmptyInputYieldsEmptySet(t *testing.T) {
	assert.Empty(t, Extract(nil))
	assert.Empty(t, Extract([]string{""}))
}

func TestExtractAddsLemmaForms(t *testing.T) {
	got := Extract([]string{"running databases"})
	assert.Contains(t, got, "running")
	assert.Contains(t, got, "run")
	assert.Contains(t, got, "database")
}

func TestExtractFromPromptDegenerateSinglePhrase(t *testing.T) {
	got := ExtractFromPrompt("distributed systems consensus")
	assert.Contains(t, got, "distributed")
	assert.Contains(t, got, "systems")
	assert.Contains(t, got, "consensus")
}
