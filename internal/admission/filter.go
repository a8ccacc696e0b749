// Package admission implements the per-candidate admission decision: the
// ordered, cheapest-first set of checks that decide whether a discovered
// link is enqueued for retrieval, plus the redirect-reconciliation policy
// that runs the same filter against a redirect target.
package admission

import (
	"strings"

	"github.com/tomashaas/retrieve-core/internal/frontier"
	"github.com/tomashaas/retrieve-core/internal/urlmodel"
	"github.com/tomashaas/retrieve-core/pkg/urlutil"
)

// RejectReason is the closed set of outcomes the admission filter can
// report. SUCCESS is the internal "admit" value; everything else names
// the first failing check, in the order they are evaluated.
type RejectReason string

const (
	Success      RejectReason = "SUCCESS"
	Blacklist    RejectReason = "BLACKLIST"
	NotHTTPS     RejectReason = "NOTHTTPS"
	NonHTTP      RejectReason = "NONHTTP"
	Absolute     RejectReason = "ABSOLUTE"
	Domain       RejectReason = "DOMAIN"
	Parent       RejectReason = "PARENT"
	List         RejectReason = "LIST"
	Regex        RejectReason = "REGEX"
	Rules        RejectReason = "RULES"
	SpannedHost  RejectReason = "SPANNEDHOST"
	Robots       RejectReason = "ROBOTS"
)

// Config is the slice of configuration the admission filter needs,
// defined here (not in package config) so this package never imports a
// concrete configuration type — only its own interface.
type Config interface {
	HTTPSOnly() bool
	FollowFTP() bool
	RelativeOnly() bool
	SpanHost() bool
	NoParent() bool
	PageRequisites() bool
	UseRobots() bool
	MaxDepthFinite() bool
	MaxDepth() int

	AllowsHost(host string) bool
	Includes() []string
	Excludes() []string
	AcceptsURL(rawURL string) bool
	RejectsURL(rawURL string) bool
	AcceptsFilename(file string) bool
	RejectsFilename(file string) bool
}

// VisitRecorder records that a URL was visited, with its referer, for
// spider-mode accounting. A driver not running in spider mode can inject
// a no-op implementation.
type VisitRecorder interface {
	RecordVisit(url, referer string)
}

// Specs is the minimal behavior an admission filter needs from a parsed
// robots.txt specification: whether it allows a given request path.
type Specs interface {
	Allows(path string) bool
}

// RobotsStore is the robots-policy store contract (spec §6), expressed
// as the small interface this package actually calls. The concrete
// implementation (package robots) is never imported here.
type RobotsStore interface {
	Get(host string, port int) (Specs, bool)
	Put(host string, port int, specs Specs)
	FetchRobots(scheme, host string, port int) (localPath string, err error)
	ParseRobots(localPath string) Specs
	ParseRobotsEmpty() Specs
	Matches(specs Specs, path string) bool
}

// FileDeleter unlinks a temporary artifact (used for the robots.txt file
// fetched for rule 11, when delete-after/spider/suffix policy applies).
type FileDeleter interface {
	Unlink(path string) error
}

// Filter is a pure decision procedure, parameterized by the collaborators
// it needs. It holds no per-candidate state between calls.
type Filter struct {
	cfg           Config
	robots        RobotsStore
	deleter       FileDeleter
	spider        bool
	deleteAfter   bool
	robotsTmpDir  string // directory robots.txt is fetched into; files here are candidates for cleanup
}

func NewFilter(cfg Config, robots RobotsStore, deleter FileDeleter, spider, deleteAfter bool, robotsTmpDir string) *Filter {
	return &Filter{
		cfg:          cfg,
		robots:       robots,
		deleter:      deleter,
		spider:       spider,
		deleteAfter:  deleteAfter,
		robotsTmpDir: robotsTmpDir,
	}
}

// Decide runs the ordered admission checks against candidate, returning
// the first failing RejectReason or Success if every check passes.
func (f *Filter) Decide(candidate frontier.Candidate, parent, seed urlmodel.URL, depth int, visited *frontier.VisitedSet, visits VisitRecorder) RejectReason {
	u := candidate.URL
	key := urlutil.UnescapeKey(u.String())

	// 1. Already visited.
	if visited.Contains(key) {
		if f.spider && visits != nil {
			visits.RecordVisit(u.String(), parent.StringAuthHidden())
		}
		return Blacklist
	}

	// 2. HTTPS-only.
	if f.cfg.HTTPSOnly() && u.Scheme() != urlmodel.SchemeHTTPS {
		return NotHTTPS
	}

	// 3. Scheme permitted for recursion.
	if !u.Scheme().IsHTTPLike() {
		if !(u.Scheme().IsFTPLike() && f.cfg.FollowFTP()) {
			return NonHTTP
		}
	}

	// 4. Relative-only.
	if f.cfg.RelativeOnly() && u.Scheme().IsHTTPLike() && !candidate.LinkRelative {
		return Absolute
	}

	// 5. Domain accept-list.
	if !f.cfg.AllowsHost(u.Host()) {
		return Domain
	}

	// 6. No-parent.
	if f.cfg.NoParent() &&
		urlutil.SchemesEquivalent(httpLikeToken(u.Scheme()), httpLikeToken(seed.Scheme())) &&
		strings.EqualFold(u.Host(), seed.Host()) &&
		(u.Scheme() != seed.Scheme() || u.Port() == seed.Port()) &&
		!(f.cfg.PageRequisites() && candidate.LinkInline) {
		if !urlutil.IsSubdirectory(seed.Dir(), u.Dir()) {
			return Parent
		}
	}

	// 7. Include/exclude directory lists.
	if (len(f.cfg.Includes()) > 0 || len(f.cfg.Excludes()) > 0) && !dirAccepted(u.Dir(), f.cfg.Includes(), f.cfg.Excludes()) {
		return List
	}

	// 8. URL regex filter.
	if f.cfg.RejectsURL(u.String()) || !f.cfg.AcceptsURL(u.String()) {
		return Regex
	}

	// 9. Filename accept/reject rules, with the HTML-exception waiver.
	if u.File() != "" && !htmlExceptionApplies(u.File(), depth, f.cfg) {
		if f.cfg.RejectsFilename(u.File()) || !f.cfg.AcceptsFilename(u.File()) {
			return Rules
		}
	}

	// 10. Span-host.
	if u.Scheme() == parent.Scheme() && !f.cfg.SpanHost() && !strings.EqualFold(parent.Host(), u.Host()) {
		return SpannedHost
	}

	// 11. Robots.
	if f.cfg.UseRobots() && u.Scheme().IsHTTPLike() && f.robots != nil {
		specs := f.obtainSpecs(u.Scheme(), u.Host(), u.Port())
		if !f.robots.Matches(specs, u.Path()) {
			visited.Add(key)
			return Robots
		}
	}

	return Success
}

// obtainSpecs fetches and parses robots.txt for (host, port) if not
// already cached, registering a permissive dummy on fetch failure so the
// attempt is not retried (spec §4.4 rule 11).
func (f *Filter) obtainSpecs(scheme urlmodel.Scheme, host string, port int) Specs {
	if specs, ok := f.robots.Get(host, port); ok {
		return specs
	}

	localPath, err := f.robots.FetchRobots(scheme.String(), host, port)
	var specs Specs
	if err != nil {
		specs = f.robots.ParseRobotsEmpty()
	} else {
		specs = f.robots.ParseRobots(localPath)
		if localPath != "" && f.deleter != nil && (f.deleteAfter || f.spider || strings.HasSuffix(localPath, ".tmp")) {
			_ = f.deleter.Unlink(localPath)
		}
	}
	f.robots.Put(host, port, specs)
	return specs
}

// DescendRedirect implements redirect reconciliation (spec §4.5): it
// parses redirectedStr (inheriting original's encoding tag), runs the
// admission filter with original as parent, and applies the policy that
// LIST/REGEX rejections on a redirect target are overridden to SUCCESS.
func (f *Filter) DescendRedirect(redirectedStr string, original, seed urlmodel.URL, depth int, visited *frontier.VisitedSet, visits VisitRecorder) RejectReason {
	redirected, err := urlmodel.ParseWithEncoding(redirectedStr, original.Encoding())
	if err != nil {
		return NonHTTP
	}

	candidate := frontier.Candidate{URL: redirected}
	reason := f.Decide(candidate, original, seed, depth, visited, visits)

	switch reason {
	case Success:
		visited.Add(urlutil.UnescapeKey(redirected.String()))
		return Success
	case List, Regex:
		visited.Add(urlutil.UnescapeKey(redirected.String()))
		return Success
	default:
		return reason
	}
}

func httpLikeToken(s urlmodel.Scheme) string {
	if s.IsHTTPLike() {
		return "http"
	}
	return s.String()
}

func dirAccepted(dir string, includes, excludes []string) bool {
	for _, ex := range excludes {
		if urlutil.IsSubdirectory(ex, dir) {
			return false
		}
	}
	if len(includes) == 0 {
		return true
	}
	for _, in := range includes {
		if urlutil.IsSubdirectory(in, dir) {
			return true
		}
	}
	return false
}

func htmlExceptionApplies(file string, depth int, cfg Config) bool {
	if !hasHTMLSuffix(file) {
		return false
	}
	if !cfg.MaxDepthFinite() {
		return true
	}
	if depth < cfg.MaxDepth()-1 {
		return true
	}
	return cfg.PageRequisites()
}

func hasHTMLSuffix(file string) bool {
	lower := strings.ToLower(file)
	return strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm")
}
