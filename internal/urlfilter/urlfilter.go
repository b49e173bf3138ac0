// Package urlfilter implements the URL relevance pre-filter: a cheap keyword-substring check over the decoded URL path+query that
// runs before a URL is ever dispatched to the fetch pipeline.
package urlfilter

import (
	"strings"

	"github.com/anatolykoptev/go_crawler/internal/urlutil"
)

// Filter admits URLs whose decoded path+query contains at least
// MinKeywordMatches of the prompt's keywords as substrings.
type Filter struct {
	keywords          []string
	minKeywordMatches int
}

// New builds a Filter for the given keyword set. minKeywordMatches <= 0
// falls back to a default of 1.
func New(keywords []string, minKeywordMatches int) *Filter {
	if minKeywordMatches <= 0 {
		minKeywordMatches = 1
	}
	return &Filter{keywords: keywords, minKeywordMatches: minKeywordMatches}
}

// Admits reports whether a single URL passes the filter. A URL whose parse
// fails is rejected, not raised. An empty keyword set admits every valid URL.
func (f *Filter) Admits(rawURL string) bool {
	if len(f.keywords) == 0 {
		return urlutil.IsValid(rawURL)
	}
	pathQuery, ok := urlutil.PathQuery(rawURL)
	if !ok {
		return false
	}
	matches := 0
	for _, kw := range f.keywords {
		if kw != "" && strings.Contains(pathQuery, kw) {
			matches++
			if matches >= f.minKeywordMatches {
				return true
			}
		}
	}
	return false
}

// Select filters a batch of URLs, preserving order.
func (f *Filter) Select(urls []string) []string {
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if f.Admits(u) {
			out = append(out, u)
		}
	}
	return out
}
