package htmlx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomashaas/retrieve-core/internal/urlmodel"
)

func writeHTML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestExtractHTML_ClassifiesLinkAndStylesheet(t *testing.T) {
	path := writeHTML(t, `<html><head>
		<link rel="stylesheet" href="/style.css">
	</head><body>
		<a href="/next.html">next</a>
		<img src="/logo.png">
	</body></html>`)

	base, err := urlmodel.Parse("http://example.com/index.html")
	require.NoError(t, err)

	ex := NewExtractor()
	children, nofollow, err := ex.ExtractHTML(path, base)
	require.NoError(t, err)
	assert.False(t, nofollow)

	var css, link, img frontierMatch
	for _, c := range children {
		switch c.URL.String() {
		case "http://example.com/style.css":
			css = frontierMatch{found: true, inline: c.LinkInline, expectCSS: c.LinkExpectCSS}
		case "http://example.com/next.html":
			link = frontierMatch{found: true, inline: c.LinkInline, expectHTML: c.LinkExpectHTML}
		case "http://example.com/logo.png":
			img = frontierMatch{found: true, inline: c.LinkInline}
		}
	}

	assert.True(t, css.found)
	assert.True(t, css.inline)
	assert.True(t, css.expectCSS)

	assert.True(t, link.found)
	assert.False(t, link.inline)
	assert.True(t, link.expectHTML)

	assert.True(t, img.found)
	assert.True(t, img.inline)
}

type frontierMatch struct {
	found      bool
	inline     bool
	expectHTML bool
	expectCSS  bool
}

func TestExtractHTML_DetectsMetaNofollow(t *testing.T) {
	path := writeHTML(t, `<html><head>
		<meta name="robots" content="noindex, nofollow">
	</head><body></body></html>`)

	base, err := urlmodel.Parse("http://example.com/index.html")
	require.NoError(t, err)

	ex := NewExtractor()
	_, nofollow, err := ex.ExtractHTML(path, base)
	require.NoError(t, err)
	assert.True(t, nofollow)
}

func TestExtractHTML_SkipsFragmentAndJavascriptLinks(t *testing.T) {
	path := writeHTML(t, `<html><body>
		<a href="#section">jump</a>
		<a href="javascript:void(0)">click</a>
		<a href="mailto:a@example.com">mail</a>
	</body></html>`)

	base, err := urlmodel.Parse("http://example.com/index.html")
	require.NoError(t, err)

	ex := NewExtractor()
	children, _, err := ex.ExtractHTML(path, base)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestExtractHTML_DeduplicatesRepeatedLinks(t *testing.T) {
	path := writeHTML(t, `<html><body>
		<a href="/a.html">one</a>
		<a href="/a.html">two</a>
	</body></html>`)

	base, err := urlmodel.Parse("http://example.com/index.html")
	require.NoError(t, err)

	ex := NewExtractor()
	children, _, err := ex.ExtractHTML(path, base)
	require.NoError(t, err)
	assert.Len(t, children, 1)
}
