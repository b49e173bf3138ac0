package htmlextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `
<html>
<head>
	<title>Golang Crawler Guide</title>
	<meta property="article:published_time" content="2024-01-15T10:00:00Z">
</head>
<body>
	<nav>skip this nav</nav>
	<article>
		<p>Learn about golang crawlers and concurrency patterns.</p>
		<a href="/page2">Page 2</a>
		<a href="https://external.com/other">External</a>
		<a href="https://example.com/page3#section">Page 3</a>
	</article>
	<footer>skip this footer</footer>
</body>
</html>`

func TestParseExtractsTitleBodyAndLinks(t *testing.T) {
	e := New()
	res, err := e.Parse(t.Context(), samplePage, "https://example.com/")
	require.NoError(t, err)

	assert.Equal(t, "Golang Crawler Guide", res.Title)
	assert.Contains(t, res.Body, "golang crawlers")
	assert.NotContains(t, res.Body, "skip this nav")
	assert.NotContains(t, res.Body, "skip this footer")
	require.NotNil(t, res.PublishDate)
	assert.Equal(t, 2024, res.PublishDate.Year())
}

func TestParseOutboundLinksAreSameHostAbsoluteFragmentStrippedDeduped(t *testing.T) {
	e := New()
	res, err := e.Parse(t.Context(), samplePage, "https://example.com/")
	require.NoError(t, err)

	assert.Contains(t, res.OutboundLinks, "https://example.com/page2")
	assert.Contains(t, res.OutboundLinks, "https://example.com/page3")
	assert.NotContains(t, res.OutboundLinks, "https://external.com/other")
	for _, l := range res.OutboundLinks {
		assert.NotContains(t, l, "#")
	}
}

func TestParseNoPublishDateReturnsNil(t *testing.T) {
	e := New()
	res, err := e.Parse(t.Context(), "<html><body><p>no date here</p></body></html>", "https://example.com/")
	require.NoError(t, err)
	assert.Nil(t, res.PublishDate)
}
