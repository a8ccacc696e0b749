// Package urlmodel is the URL data model the retrieval core is built on:
// a parsed, immutable representation exposing the fields the admission
// filter and audit writer need (scheme, host, port, path, directory/file
// split, optional params/query/fragment/user-info) without tying callers
// to net/url's mutable url.URL.
package urlmodel

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Scheme is the closed set of schemes this core reasons about. Anything
// else parses to SchemeOther and is reported as SCHEME_INVALID in the
// audit log, matching the original's scheme token table.
type Scheme int

const (
	SchemeHTTP Scheme = iota
	SchemeHTTPS
	SchemeFTP
	SchemeFTPS
	SchemeOther
)

func schemeFromString(s string) Scheme {
	switch strings.ToLower(s) {
	case "http":
		return SchemeHTTP
	case "https":
		return SchemeHTTPS
	case "ftp":
		return SchemeFTP
	case "ftps":
		return SchemeFTPS
	default:
		return SchemeOther
	}
}

// String returns the lowercase scheme token ("http", "https", ...).
func (s Scheme) String() string {
	switch s {
	case SchemeHTTP:
		return "http"
	case SchemeHTTPS:
		return "https"
	case SchemeFTP:
		return "ftp"
	case SchemeFTPS:
		return "ftps"
	default:
		return "other"
	}
}

// AuditToken returns the SCHEME_* token used in the rejection audit log.
func (s Scheme) AuditToken() string {
	switch s {
	case SchemeHTTP:
		return "SCHEME_HTTP"
	case SchemeHTTPS:
		return "SCHEME_HTTPS"
	case SchemeFTP:
		return "SCHEME_FTP"
	case SchemeFTPS:
		return "SCHEME_FTPS"
	default:
		return "SCHEME_INVALID"
	}
}

// IsHTTPLike reports whether the scheme is HTTP or HTTPS.
func (s Scheme) IsHTTPLike() bool {
	return s == SchemeHTTP || s == SchemeHTTPS
}

// IsFTPLike reports whether the scheme is FTP or FTPS.
func (s Scheme) IsFTPLike() bool {
	return s == SchemeFTP || s == SchemeFTPS
}

func defaultPort(s Scheme) int {
	switch s {
	case SchemeHTTP:
		return 80
	case SchemeHTTPS:
		return 443
	case SchemeFTP, SchemeFTPS:
		return 21
	default:
		return 0
	}
}

// Encoding tags the original encoding of a URL string, the way the
// original carries an "ori_enc" flag (plain percent-encoded URL vs. a
// UTF-8 IRI) through redirect reconciliation.
type Encoding int

const (
	EncodingURL Encoding = iota
	EncodingIRI
)

// URL is the immutable, parsed representation of one link. It is created
// by Parse and never mutated afterward; a queue entry or candidate owns
// one for its lifetime.
type URL struct {
	original string
	scheme   Scheme
	host     string
	port     int
	path     string
	dir      string
	file     string
	params   string
	query    string
	fragment string
	user     string
	password string
	relative bool
	enc      Encoding
}

// Parse parses a raw URL string, assuming EncodingURL (plain percent
// encoding). Use ParseRelativeTo to resolve a link found on a page.
func Parse(raw string) (URL, error) {
	return parseWithEncoding(raw, EncodingURL)
}

// ParseWithEncoding parses raw, tagging the result with the given
// encoding — used by redirect reconciliation, which inherits the
// original URL's encoding tag for the redirect target.
func ParseWithEncoding(raw string, enc Encoding) (URL, error) {
	return parseWithEncoding(raw, enc)
}

func parseWithEncoding(raw string, enc Encoding) (URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URL{}, fmt.Errorf("urlmodel: parse %q: %w", raw, err)
	}

	relative := !u.IsAbs()
	scheme := schemeFromString(u.Scheme)

	port := defaultPort(scheme)
	if p := u.Port(); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			port = parsed
		}
	}

	var userName, password string
	if u.User != nil {
		userName = u.User.Username()
		password, _ = u.User.Password()
	}

	dir, file := splitDirFile(u.Path)

	return URL{
		original: raw,
		scheme:   scheme,
		host:     u.Hostname(),
		port:     port,
		path:     u.Path,
		dir:      dir,
		file:     file,
		params:   "",
		query:    u.RawQuery,
		fragment: u.Fragment,
		user:     userName,
		password: password,
		relative: relative,
		enc:      enc,
	}, nil
}

// ParseRelativeTo resolves raw against base (the page it was found on)
// and parses the result, inheriting base's encoding tag. link_relative_p
// is derived from whether raw itself was a relative reference.
func ParseRelativeTo(base URL, raw string) (URL, error) {
	baseURL, err := url.Parse(base.original)
	if err != nil {
		return URL{}, fmt.Errorf("urlmodel: reparse base %q: %w", base.original, err)
	}
	rel, err := url.Parse(raw)
	if err != nil {
		return URL{}, fmt.Errorf("urlmodel: parse %q: %w", raw, err)
	}
	resolved := baseURL.ResolveReference(rel)

	parsed, err := parseWithEncoding(resolved.String(), base.enc)
	if err != nil {
		return URL{}, err
	}
	parsed.relative = !rel.IsAbs() && rel.Host == ""
	return parsed, nil
}

func splitDirFile(p string) (dir, file string) {
	if p == "" {
		return "/", ""
	}
	d, f := path.Split(p)
	if d == "" {
		d = "/"
	}
	return d, f
}

func (u URL) String() string          { return u.original }
func (u URL) Scheme() Scheme          { return u.scheme }
func (u URL) Host() string            { return u.host }
func (u URL) Port() int               { return u.port }
func (u URL) Path() string            { return u.path }
func (u URL) Dir() string             { return u.dir }
func (u URL) File() string            { return u.file }
func (u URL) Params() string          { return u.params }
func (u URL) Query() string           { return u.query }
func (u URL) Fragment() string        { return u.fragment }
func (u URL) User() string            { return u.user }
func (u URL) HasUserInfo() bool       { return u.user != "" || u.password != "" }
func (u URL) IsRelative() bool        { return u.relative }
func (u URL) Encoding() Encoding      { return u.enc }
func (u URL) IsZero() bool            { return u.original == "" }

// StringAuthHidden returns the original string form with any user:pass@
// prefix on the host stripped, the form used as a child's referer when
// the parent URL carried credentials.
func (u URL) StringAuthHidden() string {
	if !u.HasUserInfo() {
		return u.original
	}
	parsed, err := url.Parse(u.original)
	if err != nil {
		return u.original
	}
	parsed.User = nil
	return parsed.String()
}

// HostPort returns "host:port" using the explicit port even when it is
// the scheme's default, for cache-keying purposes.
func (u URL) HostPort() string {
	return fmt.Sprintf("%s:%d", strings.ToLower(u.host), u.port)
}
