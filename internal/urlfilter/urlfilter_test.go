package urlfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdmitsRequiresKeywordMatch(t *testing.T) {
	f := New([]string{"golang", "crawler"}, 1)
	assert.True(t, f.Admits("https://example.com/blog/golang-tips"))
	assert.False(t, f.Admits("https://example.com/blog/python-tips"))
}

func TestAdmitsMinKeywordMatchesTwo(t *testing.T) {
	f := New([]string{"golang", "crawler"}, 2)
	assert.False(t, f.Admits("https://example.com/golang-only"))
	assert.True(t, f.Admits("https://example.com/golang-crawler-guide"))
}

func TestAdmitsRejectsUnparseableURL(t *testing.T) {
	f := New([]string{"golang"}, 1)
	assert.False(t, f.Admits("://not a url"))
}

func TestAdmitsEmptyKeywordsAdmitsValidURLs(t *testing.T) {
	f := New(nil, 1)
	assert.True(t, f.Admits("https://example.com/anything"))
	assert.False(t, f.Admits("not-a-url"))
}

func TestSelectPreservesOrder(t *testing.T) {
	f := New([]string{"golang"}, 1)
	in := []string{"https://a.com/golang", "https://a.com/java", "https://a.com/golang-2"}
	out := f.Select(in)
	assert.Equal(t, []string{"https://a.com/golang", "https://a.com/golang-2"}, out)
}
