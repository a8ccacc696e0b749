// Package traversal owns the run: it pulls from the queue, invokes the
// fetcher, triggers parsing when appropriate, applies the admission
// filter to each discovered link, manages quota and depth, and writes
// the rejection audit log.
package traversal

import (
	"context"

	"github.com/tomashaas/retrieve-core/internal/admission"
	"github.com/tomashaas/retrieve-core/internal/frontier"
	"github.com/tomashaas/retrieve-core/internal/urlmodel"
)

// Config is the full set of configuration the driver and the admission
// filter it drives need. It embeds admission.Config so a single concrete
// configuration type can satisfy both without this package importing the
// concrete config package.
type Config interface {
	admission.Config

	// Quota returns the byte quota, or 0 for unlimited.
	Quota() int64
	Spider() bool
	DeleteAfter() bool
	RejectedLogPath() string
}

// ContentFlags is the bitset the fetcher reports about a fetched
// response, matching spec §6's "content_flags... at least OK, TEXTHTML,
// TEXTCSS".
type ContentFlags uint8

const (
	ContentOK ContentFlags = 1 << iota
	ContentHTML
	ContentCSS
)

func (c ContentFlags) Has(flag ContentFlags) bool {
	return c&flag != 0
}

// FetchStatus is the fetcher's terminal status for one request.
type FetchStatus int

const (
	FetchOK FetchStatus = iota
	FetchWriteError
	FetchOtherError
)

// FetchResult is what the fetcher returns for one request (spec §6).
type FetchResult struct {
	LocalPath       string
	Status          FetchStatus
	RedirectedURL   string
	ContentFlags    ContentFlags
	BytesDownloaded int64
}

// Fetcher is the out-of-scope collaborator referenced only by interface
// (spec §1/§6): retrieve_url(url, referer, flags) -> (local_path,
// final_status, redirected_url?, content_flags).
type Fetcher interface {
	Fetch(ctx context.Context, u urlmodel.URL, referer string, htmlAllowed, cssAllowed bool) (FetchResult, error)
}

// HTMLExtractor is extract_html(local_path, base_url) -> (children, meta_nofollow).
type HTMLExtractor interface {
	ExtractHTML(localPath string, base urlmodel.URL) (children []frontier.Candidate, metaNofollow bool, err error)
}

// CSSExtractor is extract_css(local_path, base_url) -> children.
type CSSExtractor interface {
	ExtractCSS(localPath string, base urlmodel.URL) (children []frontier.Candidate, err error)
}

// Deleter unlinks a file from disk and registers the deletion, the
// filesystem-accounting-layer collaborator from spec §6.
type Deleter interface {
	Unlink(path string) error
}

// FinalStatus is retrieve_tree's return value.
type FinalStatus int

const (
	StatusOK FinalStatus = iota
	StatusQuotaExceeded
	StatusWriteError
)

func (s FinalStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusQuotaExceeded:
		return "QUOTA_EXCEEDED"
	case StatusWriteError:
		return "WRITE_ERROR"
	default:
		return "UNKNOWN"
	}
}
