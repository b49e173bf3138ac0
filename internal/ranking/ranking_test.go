package ranking

import (
	"testing"

	"github.com/anatolykoptev/go_crawler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var equalWeights = Weights{Heuristic: 0.6, Cosine: 0.4}

func TestRankEmptyDocsReturnsNil(t *testing.T) {
	assert.Nil(t, Rank(nil, []string{"golang"}, equalWeights, 3))
}

func TestRankNonPositiveKReturnsNil(t *testing.T) {
	docs := []model.Document{{Body: "golang crawler"}}
	assert.Nil(t, Rank(docs, []string{"golang"}, equalWeights, 0))
}

func TestRankOrdersByWeightedScoreDescending(t *testing.T) {
	docs := []model.Document{
		{URL: "https://a.com", Body: "unrelated content about cooking", HeuristicScore: 0.1},
		{URL: "https://b.com", Body: "golang concurrency patterns golang goroutines", HeuristicScore: 0.9},
	}
	ranked := Rank(docs, []string{"golang", "concurrency"}, equalWeights, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "https://b.com", ranked[0].URL)
	assert.GreaterOrEqual(t, ranked[0].WeightedScore, ranked[1].WeightedScore)
}

func TestRankTruncatesToK(t *testing.T) {
	docs := []model.Document{
		{URL: "https://a.com", Body: "golang one"},
		{URL: "https://b.com", Body: "golang two"},
		{URL: "https://c.com", Body: "golang three"},
	}
	ranked := Rank(docs, []string{"golang"}, equalWeights, 2)
	assert.Len(t, ranked, 2)
}

func TestRankUnknownQueryTermsDoNotPanic(t *testing.T) {
	docs := []model.Document{{URL: "https://a.com", Body: "completely different words"}}
	ranked := Rank(docs, []string{"zzzznotfound"}, equalWeights, 1)
	require.Len(t, ranked, 1)
	assert.Equal(t, 0.0, ranked[0].CosineSimilarityScore)
}

func TestRankIsDeterministicAcrossRuns(t *testing.T) {
	docs := []model.Document{
		{URL: "https://a.com", Body: "golang crawler design"},
		{URL: "https://b.com", Body: "golang crawler design"},
	}
	r1 := Rank(docs, []string{"golang", "design"}, equalWeights, 2)
	r2 := Rank(docs, []string{"golang", "design"}, equalWeights, 2)
	assert.Equal(t, r1, r2)
}
