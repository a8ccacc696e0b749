// Package audit writes the tab-separated rejection log described in
// spec §4.6: one line per rejected candidate, for post-hoc analysis.
package audit

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/tomashaas/retrieve-core/internal/admission"
	"github.com/tomashaas/retrieve-core/internal/urlmodel"
)

var header = []string{
	"REASON", "U_URL", "U_SCHEME", "U_HOST", "U_PORT", "U_PATH", "U_PARAMS", "U_QUERY", "U_FRAGMENT",
	"P_URL", "P_SCHEME", "P_HOST", "P_PORT", "P_PATH", "P_PARAMS", "P_QUERY", "P_FRAGMENT",
}

// Writer appends one tab-separated record per rejected candidate. A
// Writer with a nil sink is an explicit no-op, per design notes §9 —
// callers that disable auditing get a Writer rather than having to
// null-check at every call site.
type Writer struct {
	w           *bufio.Writer
	closer      io.Closer
	wroteHeader bool
}

// NewWriter wraps an already-open sink. Passing nil produces a no-op
// Writer.
func NewWriter(sink io.WriteCloser) *Writer {
	if sink == nil {
		return &Writer{}
	}
	return &Writer{w: bufio.NewWriter(sink), closer: sink}
}

// Open opens path for the rejection audit log. Per spec §4.6/§7, a
// failure to open is reported but not fatal — the caller gets a non-nil
// error alongside a usable no-op Writer so traversal can continue.
func Open(path string) (*Writer, error) {
	if path == "" {
		return &Writer{}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &Writer{}, fmt.Errorf("audit: open %q: %w", path, err)
	}
	return NewWriter(f), nil
}

func (w *Writer) enabled() bool {
	return w != nil && w.w != nil
}

// WriteHeader writes the column header line once. Calling it on a no-op
// Writer is a no-op.
func (w *Writer) WriteHeader() error {
	if !w.enabled() || w.wroteHeader {
		return nil
	}
	w.wroteHeader = true
	_, err := fmt.Fprintln(w.w, joinTab(header))
	return err
}

// WriteRejection appends one record for a rejected candidate.
func (w *Writer) WriteRejection(reason admission.RejectReason, candidate, parent urlmodel.URL) error {
	if !w.enabled() {
		return nil
	}
	fields := []string{
		string(reason),
		escapedURL(candidate), candidate.Scheme().AuditToken(), candidate.Host(), portString(candidate),
		candidate.Path(), candidate.Params(), candidate.Query(), candidate.Fragment(),
		escapedURL(parent), parent.Scheme().AuditToken(), parent.Host(), portString(parent),
		parent.Path(), parent.Params(), parent.Query(), parent.Fragment(),
	}
	_, err := fmt.Fprintln(w.w, joinTab(fields))
	return err
}

// Close flushes and closes the underlying sink, if any.
func (w *Writer) Close() error {
	if !w.enabled() {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

func escapedURL(u urlmodel.URL) string {
	return u.String()
}

func portString(u urlmodel.URL) string {
	return fmt.Sprintf("%d", u.Port())
}

func joinTab(fields []string) string {
	out := fields[0]
	for _, f := range fields[1:] {
		out += "\t" + f
	}
	return out
}
