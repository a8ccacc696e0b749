package obslog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Rejection reasons
- Crawl depth

Logging Goals
- Debuggable traversal behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Status codes
- Durations
- Identifiers
*/

// Sink is the observational surface the traversal driver and its
// collaborators write to. A Sink call never returns an error that the
// caller is expected to act on: recording is best-effort and must never
// influence control flow.
type Sink interface {
	RecordFetch(FetchEvent)
	RecordRejection(RejectionEvent)
	RecordError(ErrorRecord)
	RecordArtifact(ArtifactRecord)
	RecordCrawlStats(CrawlStats)
}

// NoopSink discards everything. Useful as the default when the caller
// has not wired a real sink.
type NoopSink struct{}

func (NoopSink) RecordFetch(FetchEvent)         {}
func (NoopSink) RecordRejection(RejectionEvent) {}
func (NoopSink) RecordError(ErrorRecord)        {}
func (NoopSink) RecordArtifact(ArtifactRecord)  {}
func (NoopSink) RecordCrawlStats(CrawlStats)    {}

// Recorder is the default Sink: it writes one structured line per event to
// an io.Writer-like destination (an *os.File in practice), tab-separated
// in the same spirit as the rejection audit log, so both can be grepped
// the same way.
type Recorder struct {
	mu  sync.Mutex
	out *os.File
}

func NewRecorder(out *os.File) *Recorder {
	if out == nil {
		out = os.Stderr
	}
	return &Recorder{out: out}
}

func (r *Recorder) writeLine(kind string, fields ...Attribute) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "%s\t%s", time.Now().UTC().Format(time.RFC3339), kind)
	for _, f := range fields {
		fmt.Fprintf(r.out, "\t%s=%s", f.Key, f.Value)
	}
	fmt.Fprintln(r.out)
}

func (r *Recorder) RecordFetch(e FetchEvent) {
	r.writeLine("fetch",
		NewAttr(AttrURL, e.URL),
		NewAttr(AttrHTTPStatus, fmt.Sprintf("%d", e.HTTPStatus)),
		NewAttr(AttrDepth, fmt.Sprintf("%d", e.Depth)),
		NewAttr(AttrField, e.ContentType),
	)
}

func (r *Recorder) RecordRejection(e RejectionEvent) {
	r.writeLine("reject",
		NewAttr(AttrURL, e.URL),
		NewAttr(AttrReason, e.Reason),
		NewAttr(AttrDepth, fmt.Sprintf("%d", e.Depth)),
	)
}

func (r *Recorder) RecordError(e ErrorRecord) {
	r.writeLine("error",
		NewAttr(AttrField, e.PackageName+"."+e.Action),
		NewAttr(AttrReason, e.ErrorString),
	)
}

func (r *Recorder) RecordArtifact(a ArtifactRecord) {
	r.writeLine("artifact",
		NewAttr(AttrWritePath, a.Path),
		NewAttr(AttrField, a.Kind),
	)
}

func (r *Recorder) RecordCrawlStats(s CrawlStats) {
	r.writeLine("stats",
		NewAttr(AttrField, fmt.Sprintf("fetched=%d rejected=%d errors=%d bytes=%d duration_ms=%d",
			s.TotalFetched, s.TotalRejected, s.TotalErrors, s.TotalBytes, s.DurationMillis)),
	)
}
