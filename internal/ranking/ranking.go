// Package ranking computes query-time relevance over the content store: a
// fresh TF-IDF vector space built over the stored documents' bodies, cosine
// similarity against the query's keyword vector, and a blend with each
// document's frozen heuristic score.
//
// There is no third-party vector-search library in play here: the corpus's
// dense-retrieval stacks (bleve, hnsw) index a fixed, independently-updated
// corpus and assume persistent indices amortized across many queries. This
// component rebuilds a TF-IDF space from scratch over a small, per-request
// in-memory document set on every query, which is cheap enough in plain
// math/strings that standing up an external index would add dependency
// weight without a matching benefit.
package ranking

import (
	"math"
	"sort"
	"strings"

	"github.com/anatolykoptev/go_crawler/internal/model"
)

// Weights controls the heuristic/cosine blend: weighted = w_h *
// heuristic + w_c * cosine.
type Weights struct {
	Heuristic float64
	Cosine    float64
}

// RankOptions holds optional post-filters applied before scoring.
type RankOptions struct {
	// RestrictToSeeds, when non-empty, limits ranking to documents whose URL
	// is in this set — the "urls-strict" initiation mode's query-time filter.
	RestrictToSeeds []string
}

// Rank scores every document in docs against keywords and returns the top k
// by WeightedScore, descending, ties broken by original order. Returns an
// empty slice if docs is empty or k <= 0. Equivalent to RankWithOptions with
// a zero-value RankOptions.
func Rank(docs []model.Document, keywords []string, weights Weights, k int) []model.ScoredDocument {
	return RankWithOptions(docs, keywords, weights, k, RankOptions{})
}

// RankWithOptions is Rank with an optional RestrictToSeeds post-filter
// applied before scoring.
func RankWithOptions(docs []model.Document, keywords []string, weights Weights, k int, opts RankOptions) []model.ScoredDocument {
	if len(opts.RestrictToSeeds) > 0 {
		allowed := make(map[string]bool, len(opts.RestrictToSeeds))
		for _, u := range opts.RestrictToSeeds {
			allowed[u] = true
		}
		filtered := make([]model.Document, 0, len(docs))
		for _, d := range docs {
			if allowed[d.URL] {
				filtered = append(filtered, d)
			}
		}
		docs = filtered
	}

	if len(docs) == 0 || k <= 0 {
		return nil
	}
	if allBodiesEmpty(docs) {
		return nil
	}

	corpus := make([][]string, len(docs))
	for i, d := range docs {
		corpus[i] = tokenize(d.Body)
	}

	idf := computeIDF(corpus)
	queryVec := termFreq(keywords)

	scored := make([]model.ScoredDocument, 0, len(docs))
	for i, d := range docs {
		docVec := tfidf(termFreq(corpus[i]), idf)
		queryTFIDF := tfidf(queryVec, idf)
		cos := cosineSimilarity(docVec, queryTFIDF)
		weighted := weights.Heuristic*d.HeuristicScore + weights.Cosine*cos
		scored = append(scored, model.ScoredDocument{
			Document:              d,
			CosineSimilarityScore: cos,
			WeightedScore:         weighted,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].WeightedScore > scored[j].WeightedScore
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// allBodiesEmpty guards against a corrupted or bypassed-load snapshot: normal
// ingestion (store.Admit) rejects empty bodies, so this is unreachable in
// practice, but a snapshot restored from elsewhere shouldn't score an
// all-empty corpus as if it had content.
func allBodiesEmpty(docs []model.Document) bool {
	for _, d := range docs {
		if strings.TrimSpace(d.Body) != "" {
			return false
		}
	}
	return true
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

func termFreq(tokens []string) map[string]float64 {
	tf := make(map[string]float64)
	for _, tok := range tokens {
		tf[tok]++
	}
	total := float64(len(tokens))
	if total == 0 {
		return tf
	}
	for tok := range tf {
		tf[tok] /= total
	}
	return tf
}

// computeIDF returns inverse document frequency for every term seen across
// corpus, using the standard smoothed form log((1+N)/(1+df)) + 1 so terms
// that occur in every document keep a non-zero weight. Query terms absent
// from the corpus are not in the result; tfidf gives them weight 1.
func computeIDF(corpus [][]string) map[string]float64 {
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, tok := range doc {
			if !seen[tok] {
				df[tok]++
				seen[tok] = true
			}
		}
	}
	n := float64(len(corpus))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}
	return idf
}

func tfidf(tf map[string]float64, idf map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(tf))
	for term, freq := range tf {
		weight, ok := idf[term]
		if !ok {
			weight = 1 // term unseen in corpus (e.g. a query-only keyword)
		}
		out[term] = freq * weight
	}
	return out
}

func cosineSimilarity(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, va := range a {
		dot += va * b[term]
		normA += va * va
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
