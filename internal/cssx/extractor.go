// Package cssx discovers the links a CSS file references: url(...)
// functions and @import rules, mirroring the original's css-url.c
// line-oriented scan rather than building a full CSS parser.
package cssx

import (
	"os"
	"regexp"
	"strings"

	"github.com/tomashaas/retrieve-core/internal/frontier"
	"github.com/tomashaas/retrieve-core/internal/urlmodel"
)

var (
	urlFuncRe = regexp.MustCompile(`url\(\s*['"]?([^'")]+?)['"]?\s*\)`)
	importRe  = regexp.MustCompile(`@import\s+(?:url\()?['"]?([^'")\s;]+?)['"]?\)?\s*;`)
)

// Extractor implements traversal.CSSExtractor with a regex-based scan.
type Extractor struct{}

func NewExtractor() Extractor {
	return Extractor{}
}

func (Extractor) ExtractCSS(localPath string, base urlmodel.URL) ([]frontier.Candidate, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	text := string(data)

	seen := make(map[string]bool)
	var candidates []frontier.Candidate

	addAll := func(matches [][]string) {
		for _, m := range matches {
			href := strings.TrimSpace(m[1])
			if href == "" || strings.HasPrefix(href, "data:") {
				continue
			}
			resolved, err := urlmodel.ParseRelativeTo(base, href)
			if err != nil {
				continue
			}
			key := resolved.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, frontier.Candidate{
				URL:          resolved,
				LinkRelative: resolved.IsRelative(),
				LinkInline:   true,
			})
		}
	}

	addAll(importRe.FindAllStringSubmatch(text, -1))
	addAll(urlFuncRe.FindAllStringSubmatch(text, -1))

	return candidates, nil
}
