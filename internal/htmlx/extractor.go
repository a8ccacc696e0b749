// Package htmlx turns a fetched HTML document into the link candidates
// the traversal driver feeds to the admission filter. It classifies
// each discovered link the way html-url.c does: which attribute carried
// it decides whether the link is inline (a page requisite) and whether
// the target is expected to be HTML or CSS.
package htmlx

import (
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tomashaas/retrieve-core/internal/frontier"
	"github.com/tomashaas/retrieve-core/internal/urlmodel"
)

// Extractor implements traversal.HTMLExtractor with goquery.
type Extractor struct{}

func NewExtractor() Extractor {
	return Extractor{}
}

// linkRule describes one HTML tag/attribute pair wget's html-url.c
// tracks, and how a link found there should be classified.
type linkRule struct {
	selector    string
	attr        string
	inline      bool
	expectHTML  bool
	expectCSS   bool
	ignoreWhenD bool
}

var linkRules = []linkRule{
	{selector: "a[href]", attr: "href", inline: false, expectHTML: true},
	{selector: "area[href]", attr: "href", inline: false, expectHTML: true},
	{selector: "frame[src]", attr: "src", inline: false, expectHTML: true},
	{selector: "iframe[src]", attr: "src", inline: false, expectHTML: true},
	{selector: "link[rel='stylesheet'][href]", attr: "href", inline: true, expectCSS: true},
	{selector: "link[href]:not([rel='stylesheet'])", attr: "href", inline: true},
	{selector: "script[src]", attr: "src", inline: true},
	{selector: "img[src]", attr: "src", inline: true},
	{selector: "img[srcset]", attr: "srcset", inline: true},
	{selector: "input[src]", attr: "src", inline: true},
	{selector: "embed[src]", attr: "src", inline: true},
	{selector: "source[src]", attr: "src", inline: true},
	{selector: "body[background]", attr: "background", inline: true},
	{selector: "table[background]", attr: "background", inline: true},
	{selector: "td[background]", attr: "background", inline: true},
	{selector: "th[background]", attr: "background", inline: true},
}

// ExtractHTML parses the document at localPath and returns every
// candidate link it discovers relative to base, plus whether a
// meta-robots nofollow directive was present.
func (Extractor) ExtractHTML(localPath string, base urlmodel.URL) ([]frontier.Candidate, bool, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, false, err
	}

	metaNofollow := hasNofollow(doc)

	var candidates []frontier.Candidate
	seen := make(map[string]bool)

	for _, rule := range linkRules {
		rule := rule
		doc.Find(rule.selector).Each(func(_ int, s *goquery.Selection) {
			raw, exists := s.Attr(rule.attr)
			if !exists {
				return
			}
			for _, href := range splitAttrValue(rule.attr, raw) {
				href = strings.TrimSpace(href)
				if href == "" || strings.HasPrefix(href, "#") {
					continue
				}
				if strings.HasPrefix(strings.ToLower(href), "javascript:") || strings.HasPrefix(strings.ToLower(href), "mailto:") {
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
					URL:                   resolved,
					LinkRelative:          resolved.IsRelative(),
					LinkInline:            rule.inline,
					LinkExpectHTML:        rule.expectHTML,
					LinkExpectCSS:         rule.expectCSS,
					IgnoreWhenDownloading: rule.ignoreWhenD,
				})
			}
		})
	}

	return candidates, metaNofollow, nil
}

// splitAttrValue handles srcset's comma-separated "url descriptor" list;
// every other attribute carries exactly one URL.
func splitAttrValue(attr, raw string) []string {
	if attr != "srcset" {
		return []string{raw}
	}
	parts := strings.Split(raw, ",")
	urls := make([]string, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}

func hasNofollow(doc *goquery.Document) bool {
	nofollow := false
	doc.Find("meta[name='robots'],meta[name='googlebot']").Each(func(_ int, s *goquery.Selection) {
		content, exists := s.Attr("content")
		if !exists {
			return
		}
		for _, token := range strings.Split(content, ",") {
			if strings.EqualFold(strings.TrimSpace(token), "nofollow") {
				nofollow = true
			}
		}
	})
	return nofollow
}
