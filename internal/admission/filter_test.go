package admission

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomashaas/retrieve-core/internal/frontier"
	"github.com/tomashaas/retrieve-core/internal/urlmodel"
)

// testConfig is a minimal, fully permissive Config the tests override
// field by field.
type testConfig struct {
	httpsOnly      bool
	followFTP      bool
	relativeOnly   bool
	spanHost       bool
	noParent       bool
	pageReqs       bool
	useRobots      bool
	maxDepthFinite bool
	maxDepth       int
	hostAllowlist  map[string]struct{}
	includes       []string
	excludes       []string
	acceptRe       []*regexp.Regexp
	rejectRe       []*regexp.Regexp
	acceptSuffix   []string
	rejectSuffix   []string
}

func newTestConfig() *testConfig {
	return &testConfig{spanHost: true}
}

func (c *testConfig) HTTPSOnly() bool      { return c.httpsOnly }
func (c *testConfig) FollowFTP() bool      { return c.followFTP }
func (c *testConfig) RelativeOnly() bool   { return c.relativeOnly }
func (c *testConfig) SpanHost() bool       { return c.spanHost }
func (c *testConfig) NoParent() bool       { return c.noParent }
func (c *testConfig) PageRequisites() bool { return c.pageReqs }
func (c *testConfig) UseRobots() bool      { return c.useRobots }
func (c *testConfig) MaxDepthFinite() bool { return c.maxDepthFinite }
func (c *testConfig) MaxDepth() int        { return c.maxDepth }
func (c *testConfig) Includes() []string   { return c.includes }
func (c *testConfig) Excludes() []string   { return c.excludes }

func (c *testConfig) AllowsHost(host string) bool {
	if len(c.hostAllowlist) == 0 {
		return true
	}
	_, ok := c.hostAllowlist[host]
	return ok
}

func (c *testConfig) AcceptsURL(rawURL string) bool {
	if len(c.acceptRe) == 0 {
		return true
	}
	for _, re := range c.acceptRe {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

func (c *testConfig) RejectsURL(rawURL string) bool {
	for _, re := range c.rejectRe {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

func (c *testConfig) AcceptsFilename(file string) bool {
	if len(c.acceptSuffix) == 0 {
		return true
	}
	for _, s := range c.acceptSuffix {
		if hasSuffixFold(file, s) {
			return true
		}
	}
	return false
}

func (c *testConfig) RejectsFilename(file string) bool {
	for _, s := range c.rejectSuffix {
		if hasSuffixFold(file, s) {
			return true
		}
	}
	return false
}

func hasSuffixFold(s, suffix string) bool {
	if len(suffix) > len(s) {
		return false
	}
	return s[len(s)-len(suffix):] == suffix
}

type recordingVisits struct {
	visits []string
}

func (r *recordingVisits) RecordVisit(url, referer string) {
	r.visits = append(r.visits, url+"|"+referer)
}

func mustParse(t *testing.T, raw string) urlmodel.URL {
	t.Helper()
	u, err := urlmodel.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestDecide_SpanHostRejectsCrossHost(t *testing.T) {
	cfg := newTestConfig()
	cfg.spanHost = false

	filter := NewFilter(cfg, nil, nil, false, false, "")
	seed := mustParse(t, "http://a/")
	visited := frontier.NewVisitedSet()

	child := frontier.Candidate{URL: mustParse(t, "http://b/p2")}
	reason := filter.Decide(child, seed, seed, 0, visited, nil)
	assert.Equal(t, SpannedHost, reason)
}

func TestDecide_SpanHostAdmitsSameHost(t *testing.T) {
	cfg := newTestConfig()
	cfg.spanHost = false

	filter := NewFilter(cfg, nil, nil, false, false, "")
	seed := mustParse(t, "http://a/")
	visited := frontier.NewVisitedSet()

	child := frontier.Candidate{URL: mustParse(t, "http://a/p1")}
	reason := filter.Decide(child, seed, seed, 0, visited, nil)
	assert.Equal(t, Success, reason)
}

func TestDecide_NoParentRejectsAboveSeedDir(t *testing.T) {
	cfg := newTestConfig()
	cfg.noParent = true

	filter := NewFilter(cfg, nil, nil, false, false, "")
	seed := mustParse(t, "http://a/dir/idx.html")
	visited := frontier.NewVisitedSet()

	other := frontier.Candidate{URL: mustParse(t, "http://a/other/x")}
	assert.Equal(t, Parent, filter.Decide(other, seed, seed, 0, visited, nil))

	sub := frontier.Candidate{URL: mustParse(t, "http://a/dir/sub/y")}
	assert.Equal(t, Success, filter.Decide(sub, seed, seed, 0, visited, nil))
}

// Mirrors the literal predicate in recur.c: the no-parent directory
// check still applies across a scheme change even when the port also
// differs, because the guard is "scheme differs OR ports match", not
// "schemes match".
func TestDecide_NoParentAppliesAcrossSchemeAndPortChange(t *testing.T) {
	cfg := newTestConfig()
	cfg.noParent = true

	filter := NewFilter(cfg, nil, nil, false, false, "")
	seed := mustParse(t, "https://a:443/dir/idx.html")
	visited := frontier.NewVisitedSet()

	other := frontier.Candidate{URL: mustParse(t, "http://a:80/other/x")}
	assert.Equal(t, Parent, filter.Decide(other, seed, seed, 0, visited, nil))
}

func TestDecide_BlacklistedURLRejected(t *testing.T) {
	cfg := newTestConfig()
	filter := NewFilter(cfg, nil, nil, false, false, "")
	seed := mustParse(t, "http://a/")
	visited := frontier.NewVisitedSet()
	visited.Add("http://a/x")

	child := frontier.Candidate{URL: mustParse(t, "http://a/x")}
	assert.Equal(t, Blacklist, filter.Decide(child, seed, seed, 0, visited, nil))
}

func TestDecide_BlacklistRecordsVisitInSpiderMode(t *testing.T) {
	cfg := newTestConfig()
	filter := NewFilter(cfg, nil, nil, true, false, "")
	seed := mustParse(t, "http://a/")
	parent := mustParse(t, "http://a/parent")
	visited := frontier.NewVisitedSet()
	visited.Add("http://a/x")

	rec := &recordingVisits{}
	child := frontier.Candidate{URL: mustParse(t, "http://a/x")}
	reason := filter.Decide(child, parent, seed, 0, visited, rec)

	assert.Equal(t, Blacklist, reason)
	require.Len(t, rec.visits, 1)
	assert.Contains(t, rec.visits[0], "http://a/x")
}

func TestDecide_HTTPSOnlyRejectsPlainHTTP(t *testing.T) {
	cfg := newTestConfig()
	cfg.httpsOnly = true
	filter := NewFilter(cfg, nil, nil, false, false, "")
	seed := mustParse(t, "https://a/")
	visited := frontier.NewVisitedSet()

	child := frontier.Candidate{URL: mustParse(t, "http://a/x")}
	assert.Equal(t, NotHTTPS, filter.Decide(child, seed, seed, 0, visited, nil))
}

func TestDecide_NonHTTPSchemeRejected(t *testing.T) {
	cfg := newTestConfig()
	filter := NewFilter(cfg, nil, nil, false, false, "")
	seed := mustParse(t, "http://a/")
	visited := frontier.NewVisitedSet()

	child := frontier.Candidate{URL: mustParse(t, "mailto:x@a")}
	assert.Equal(t, NonHTTP, filter.Decide(child, seed, seed, 0, visited, nil))
}

func TestDecide_IsIdempotent(t *testing.T) {
	cfg := newTestConfig()
	cfg.spanHost = false
	filter := NewFilter(cfg, nil, nil, false, false, "")
	seed := mustParse(t, "http://a/")
	visited := frontier.NewVisitedSet()

	child := frontier.Candidate{URL: mustParse(t, "http://b/p2")}
	r1 := filter.Decide(child, seed, seed, 0, visited, nil)
	r2 := filter.Decide(child, seed, seed, 0, visited, nil)
	assert.Equal(t, r1, r2)
}

func TestDescendRedirect_RegexOverriddenToSuccess(t *testing.T) {
	cfg := newTestConfig()
	cfg.rejectRe = []*regexp.Regexp{regexp.MustCompile(`canonical`)}

	filter := NewFilter(cfg, nil, nil, false, false, "")
	seed := mustParse(t, "http://a/")
	original := mustParse(t, "http://a/alias")
	visited := frontier.NewVisitedSet()
	visited.Add("http://a/alias")

	reason := filter.DescendRedirect("http://a/canonical", original, seed, 0, visited, nil)
	assert.Equal(t, Success, reason)
	assert.True(t, visited.Contains("http://a/canonical"))
}

func TestDescendRedirect_OtherRejectionPassesThrough(t *testing.T) {
	cfg := newTestConfig()
	cfg.spanHost = false

	filter := NewFilter(cfg, nil, nil, false, false, "")
	seed := mustParse(t, "http://a/")
	original := mustParse(t, "http://a/alias")
	visited := frontier.NewVisitedSet()

	reason := filter.DescendRedirect("http://b/other", original, seed, 0, visited, nil)
	assert.Equal(t, SpannedHost, reason)
}
