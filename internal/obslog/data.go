package obslog

import "time"

// FetchEvent records one fetcher invocation for observability. It is pure
// data: nothing reads these fields to make a control-flow decision.
type FetchEvent struct {
	URL         string
	HTTPStatus  int
	Duration    time.Duration
	ContentType string
	RetryCount  int
	Depth       int
}

// RejectionEvent records one admission-filter rejection.
type RejectionEvent struct {
	URL       string
	ParentURL string
	Reason    string
	Depth     int
}

/*
CrawlStats
  - Represents a terminal, derived summary of a completed run
  - Contains only aggregate counts and durations
  - Is computed by the driver after traversal termination
  - Is recorded exactly once
  - Must not influence termination, retries, or scheduling
*/
type CrawlStats struct {
	TotalFetched   int
	TotalRejected  int
	TotalErrors    int
	TotalBytes     int64
	DurationMillis int64
}

type ArtifactRecord struct {
	Path string
	Kind string
}

/*
ErrorCause is a closed, canonical classification used exclusively for
observability (logging, metrics, reporting).

Rules:
  - ErrorCause is for observability only.
  - It must never be used to derive retry, continuation, or abort decisions.
  - Any use of ErrorCause outside logging, metrics, or reporting is a design violation.
  - ErrorCause values MUST have stable, package-agnostic semantics.
  - Packages MAY map their local errors to ErrorCause, but MUST NOT invent
    new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.
  - Used as a safe fallback.

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or remote availability.

Examples:
  - TCP timeouts, DNS resolution failures, connection resets, robots.txt fetch timeout.

# CausePolicyDisallow

Meaning:
  - Traversal was disallowed by an explicit policy or rule.

Examples:
  - robots.txt disallow, admission-filter rejection.

# CauseContentInvalid

Meaning:
  - Content was fetched but could not be processed meaningfully.

Examples:
  - Non-HTML/CSS response, broken document body.

# CauseStorageFailure

Meaning:
  - Failure while persisting a fetched document.

# CauseInvariantViolation

Meaning:
  - A system-level invariant was violated.

# CauseQuotaExceeded

Meaning:
  - The configured byte quota was exceeded and the run stopped.

# CauseWriteFailure

Meaning:
  - Writing a fetched document to local disk failed; this is fatal to the run.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
	CauseQuotaExceeded
	CauseWriteFailure
)

type ErrorRecord struct {
	PackageName string
	Action      string
	Cause       ErrorCause
	ErrorString string
	ObservedAt  time.Time
	Attrs       []Attribute
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrTime       AttributeKey = "time"
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrPath       AttributeKey = "path"
	AttrDepth      AttributeKey = "depth"
	AttrField      AttributeKey = "field"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrAssetURL   AttributeKey = "asset_url"
	AttrWritePath  AttributeKey = "write_path"
	AttrReason     AttributeKey = "reason"
)
