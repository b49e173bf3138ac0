// Package heuristic computes the frozen per-document relevance score used at
// ingestion time: a weighted blend of title match, body
// keyword density, freshness, and length, with a short-title penalty.
package heuristic

import (
	"math"
	"strings"
	"time"

	"github.com/anatolykoptev/go_crawler/internal/model"
)

const (
	titleWeight     = 0.30
	bodyWeight      = 0.40
	freshnessWeight = 0.15
	lengthWeight    = 0.15

	shortTitlePenalty = 0.9
	shortTitleRunes   = 10

	densityEpsilon = 1e-6
)

// Score computes a relevance score in [0,1] for a document given the
// prompt's keywords. Returns 0 if keywords is empty.
func Score(doc model.Document, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	title := strings.ToLower(doc.Title)
	body := strings.ToLower(doc.Body)

	score := titleScore(title, keywords)*titleWeight +
		bodyScore(body, doc.WordCount, keywords)*bodyWeight +
		freshnessBonus(doc.PublishDate) +
		lengthBonus(doc.WordCount)

	if len([]rune(doc.Title)) < shortTitleRunes {
		score *= shortTitlePenalty
	}

	return clamp01(score)
}

func titleScore(title string, keywords []string) float64 {
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(title, kw) {
			matches++
		}
	}
	return float64(matches) / float64(len(keywords))
}

func bodyScore(body string, wordCount int, keywords []string) float64 {
	matches := 0
	for _, kw := range keywords {
		matches += strings.Count(body, kw)
	}
	density := (float64(matches) / (float64(wordCount) + densityEpsilon)) / float64(len(keywords))
	return math.Min(math.Sqrt(1000*density), 1.0)
}

// freshnessBonus implements the publish-date freshness tiers. A naive (no
// timezone) publish date is treated as UTC, per spec.
func freshnessBonus(publishDate *time.Time) float64 {
	if publishDate == nil {
		return 0
	}
	age := time.Since(*publishDate)
	switch {
	case age < 0:
		return 0
	case age < 30*24*time.Hour:
		return 0.15
	case age < 180*24*time.Hour:
		return 0.10
	case age < 365*24*time.Hour:
		return 0.05
	default:
		return 0
	}
}

func lengthBonus(wordCount int) float64 {
	switch {
	case wordCount > 1500:
		return 0.15
	case wordCount > 750:
		return 0.10
	case wordCount > 300:
		return 0.05
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
