package urlutil

import (
	"net/url"
	"strings"
)

// UnescapeKey returns the percent-unescaped form of a URL string, the form
// the visited set keys membership on so that "/a%20b" and "/a b" collide.
// If the string cannot be unescaped (malformed percent-encoding) the
// original string is returned unchanged, which still gives a usable
// (if slightly less precise) dedup key.
func UnescapeKey(rawURL string) string {
	unescaped, err := url.PathUnescape(rawURL)
	if err != nil {
		return rawURL
	}
	return unescaped
}

// IsSubdirectory reports whether child is parent or a path-segment
// descendant of parent. Both arguments are directory paths (no file
// part), e.g. "/docs" or "/docs/". The root directory "" or "/" is a
// parent of everything.
func IsSubdirectory(parent, child string) bool {
	parent = normalizeDir(parent)
	child = normalizeDir(child)

	if parent == "/" || parent == "" {
		return true
	}
	if child == parent {
		return true
	}
	return strings.HasPrefix(child, parent+"/")
}

func normalizeDir(dir string) string {
	if dir == "" {
		return "/"
	}
	for len(dir) > 1 && strings.HasSuffix(dir, "/") {
		dir = dir[:len(dir)-1]
	}
	return dir
}

// SchemesEquivalent reports whether two scheme strings should be treated
// as equal for no-parent/span-host comparisons. Comparison is case
// insensitive; no HTTP/HTTPS blurring is applied here because the callers
// that need that blurring (rule 6's documented quirk) compare schemes
// literally on purpose.
func SchemesEquivalent(a, b string) bool {
	return strings.EqualFold(a, b)
}

// StripUserInfo returns host[:port] with any leading "user:pass@" removed.
func StripUserInfo(hostWithAuth string) string {
	if idx := strings.LastIndex(hostWithAuth, "@"); idx != -1 {
		return hostWithAuth[idx+1:]
	}
	return hostWithAuth
}
