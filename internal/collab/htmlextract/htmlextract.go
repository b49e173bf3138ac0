// Package htmlextract is a reference collab.Extractor backed by goquery,
// grounded on go_job's fetch_html.go fetchWithGoquery path (selector
// removal list, content-container fallback chain) — reworked to return
// structured Extraction data instead of a markdown string, and to resolve
// and filter outbound links per the same-host/absolute/fragment-stripped
// contract. Falls back to a golang.org/x/net/html token-level scan for
// outbound links when goquery's selector pass finds none, grounded on
// go_job's fetchWithFallback regex-vs-html-tokenizer fallback ladder.
package htmlextract

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_crawler/internal/collab"
	"github.com/araddon/dateparse"
	"golang.org/x/net/html"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	emailRe      = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	bareURLRe    = regexp.MustCompile(`https?://\S+`)

	removeSelectors = strings.Join([]string{
		"script", "style", "noscript", "iframe", "svg",
		"header", "footer", "nav", "aside",
		".advertisement", ".ad", ".sidebar", ".comments",
		"[role=navigation]", "[role=banner]", "[role=contentinfo]",
	}, ", ")

	contentSelectors = "article, main, .content, .post-content, .article-content, #content"

	publishDateSelectors = []string{
		"meta[property='article:published_time']",
		"meta[name='date']",
		"time[datetime]",
	}
)

// Extractor parses HTML documents into plain-text content and metadata.
type Extractor struct{}

// New returns a ready-to-use Extractor. Stateless; safe for concurrent use.
func New() *Extractor { return &Extractor{} }

// Parse implements collab.Extractor.
func (e *Extractor) Parse(_ context.Context, rawHTML string, pageURL string) (collab.Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return collab.Extraction{}, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return collab.Extraction{}, err
	}

	title := extractTitle(doc)
	publishDate := extractPublishDate(doc)

	doc.Find(removeSelectors).Each(func(_ int, s *goquery.Selection) { s.Remove() })

	links := extractOutboundLinks(doc, base)
	if len(links) == 0 {
		links = tokenFallbackLinks(rawHTML, base)
	}

	contentSel := doc.Find(contentSelectors).First()
	if contentSel.Length() == 0 {
		contentSel = doc.Find("body")
	}
	body := cleanBody(contentSel.Text())
	wordCount := len(strings.Fields(body))

	return collab.Extraction{
		Title:         title,
		Body:          body,
		PublishDate:   publishDate,
		OutboundLinks: links,
		WordCount:     wordCount,
	}, nil
}

func extractTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		return title
	}
	doc.Find("meta[property='og:title']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("content"); ok && v != "" {
			title = v
			return false
		}
		return true
	})
	return strings.TrimSpace(title)
}

func extractPublishDate(doc *goquery.Document) *time.Time {
	for _, sel := range publishDateSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		raw, ok := node.Attr("content")
		if !ok {
			raw, ok = node.Attr("datetime")
		}
		if !ok || raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return &t
		}
	}
	return nil
}

func extractOutboundLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		resolved.Fragment = ""
		if resolved.Hostname() != base.Hostname() {
			return
		}
		abs := resolved.String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})
	return links
}

// tokenFallbackLinks walks rawHTML with the golang.org/x/net/html tokenizer
// directly, for pages goquery's selector pass turns up zero links on (badly
// nested markup, anchors goquery's parser recovers from but drops attributes
// on). Same same-host/fragment-stripped contract as extractOutboundLinks.
func tokenFallbackLinks(rawHTML string, base *url.URL) []string {
	seen := make(map[string]bool)
	var links []string

	z := html.NewTokenizer(strings.NewReader(rawHTML))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "a" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key != "href" {
					continue
				}
				resolved, err := base.Parse(attr.Val)
				if err != nil {
					continue
				}
				resolved.Fragment = ""
				if resolved.Hostname() != base.Hostname() {
					continue
				}
				abs := resolved.String()
				if !seen[abs] {
					seen[abs] = true
					links = append(links, abs)
				}
			}
		}
	}
}

func cleanBody(raw string) string {
	text := bareURLRe.ReplaceAllString(raw, " ")
	text = emailRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
