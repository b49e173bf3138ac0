// Package keywordidx derives a normalized, de-duplicated keyword set from a
// prompt or a list of enricher-supplied phrases.
package keywordidx

import (
	"strings"
	"unicode"
)

// stopWords filters common English words that add no signal to keyword
// matching. Kept small and explicit rather than pulled from a dictionary
// package, matching go_job's inline stop-word set in jobs/match.go.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "their": true, "they": true,
	"about": true, "which": true, "what": true, "who": true, "how": true,
	"can": true, "not": true, "but": true, "all": true, "also": true,
	"more": true, "than": true, "into": true, "has": true, "its": true,
	"was": true, "were": true, "been": true, "each": true, "new": true,
	"use": true, "using": true, "used": true, "well": true, "high": true,
	"good": true, "able": true, "get": true, "set": true, "such": true,
	"when": true, "where": true, "why": true, "does": true, "did": true,
	"being": true, "over": true, "under": true, "out": true,
}

// irregular lemma forms for common verb/noun/adjective/adverb families that
// simple suffix-stripping would miss.
var irregularLemmas = map[string][]string{
	"ran":     {"run"},
	"running": {"run"},
	"runs":    {"run"},
	"better":  {"good"},
	"best":    {"good"},
	"worse":   {"bad"},
	"worst":   {"bad"},
	"children": {"child"},
	"people":  {"person"},
	"mice":    {"mouse"},
	"men":     {"man"},
	"women":   {"woman"},
}

// Extract builds an ordered, de-duplicated set of normalized tokens from a
// list of keyword phrases (as returned by the QueryEnricher collaborator) or,
// absent an enricher, the raw prompt treated as a single phrase. The pipeline
// is: lowercase → tokenize on word boundaries → drop stop-words → drop tokens
// of length <= 2 or non-alphanumeric → lemmatize, keeping both the original
// token and its lemma forms → de-duplicate preserving first-seen order.
//
// Pure function: empty input yields an empty set, never an error.
func Extract(phrases []string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(tok string) {
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		out = append(out, tok)
	}

	for _, phrase := range phrases {
		for _, tok := range tokenize(phrase) {
			if !isCandidate(tok) {
				continue
			}
			add(tok)
			for _, lemma := range lemmatize(tok) {
				add(lemma)
			}
		}
	}
	return out
}

// ExtractFromPrompt treats the raw prompt as a degenerate single phrase —
// the fallback path when no QueryEnricher is available.
func ExtractFromPrompt(prompt string) []string {
	return Extract([]string{prompt})
}

func tokenize(s string) []string {
	var tokens []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func isCandidate(tok string) bool {
	if len([]rune(tok)) <= 2 {
		return false
	}
	if stopWords[tok] {
		return false
	}
	for _, r := range tok {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// lemmatize returns plausible base forms for noun/verb/adjective/adverb
// inflections, beyond the original token. Best-effort suffix stripping plus
// a small irregular-form table; never returns the input token itself.
func lemmatize(tok string) []string {
	if forms, ok := irregularLemmas[tok]; ok {
		return forms
	}

	var out []string
	switch {
	case strings.HasSuffix(tok, "ies") && len(tok) > 4:
		out = append(out, tok[:len(tok)-3]+"y")
	case strings.HasSuffix(tok, "ves") && len(tok) > 4:
		out = append(out, tok[:len(tok)-3]+"f")
	case strings.HasSuffix(tok, "sses") && len(tok) > 5:
		out = append(out, tok[:len(tok)-2])
	case strings.HasSuffix(tok, "es") && len(tok) > 4:
		out = append(out, tok[:len(tok)-2], tok[:len(tok)-1])
	case strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") && len(tok) > 3:
		out = append(out, tok[:len(tok)-1])
	}

	switch {
	case strings.HasSuffix(tok, "ing") && len(tok) > 5:
		stem := tok[:len(tok)-3]
		out = append(out, stem, stem+"e")
	case strings.HasSuffix(tok, "ied") && len(tok) > 4:
		out = append(out, tok[:len(tok)-3]+"y")
	case strings.HasSuffix(tok, "ed") && len(tok) > 4:
		stem := tok[:len(tok)-2]
		out = append(out, stem, stem+"e")
	}

	switch {
	case strings.HasSuffix(tok, "ily") && len(tok) > 5:
		out = append(out, tok[:len(tok)-3]+"y")
	case strings.HasSuffix(tok, "ly") && len(tok) > 4:
		out = append(out, tok[:len(tok)-2])
	}

	return out
}
