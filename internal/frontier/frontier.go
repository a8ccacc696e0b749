// Package frontier holds the traversal-local domain types built on top of
// the generic queue primitive: the pending-work entries, the parser's
// discovered-link candidates, and the visited set that prevents
// re-enqueueing.
package frontier

import "github.com/tomashaas/retrieve-core/internal/urlmodel"

// QueueEntry is one pending unit of work: a URL to fetch, the referer it
// was discovered from, its depth from the seed, and the content-type
// hints carried from the parent's link.
type QueueEntry struct {
	URL         urlmodel.URL
	Referer     string
	Depth       int
	HTMLAllowed bool
	CSSAllowed  bool
}

// Candidate is a link discovered by a parser (urlpos in the original):
// a URL plus the hints the admission filter and the resulting queue
// entry need.
type Candidate struct {
	URL                   urlmodel.URL
	LinkRelative          bool
	LinkInline            bool
	LinkExpectHTML        bool
	LinkExpectCSS         bool
	IgnoreWhenDownloading bool
}

// VisitedSet ("blacklist") holds the percent-unescaped form of every URL
// string that must not be enqueued again. It grows monotonically; there
// are no evictions during one traversal.
type VisitedSet struct {
	seen map[string]struct{}
}

func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Add inserts key into the set. Adding an already-present key is a no-op.
func (v *VisitedSet) Add(key string) {
	v.seen[key] = struct{}{}
}

// Contains reports whether key has already been recorded.
func (v *VisitedSet) Contains(key string) bool {
	_, ok := v.seen[key]
	return ok
}

// Len returns the number of distinct keys recorded so far.
func (v *VisitedSet) Len() int {
	return len(v.seen)
}
