package audit

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// VisitLog implements admission.VisitRecorder by appending one
// tab-separated "url\treferer" line per visit, for spider mode (where
// nothing is fetched to disk, so this is the only record a URL was
// seen). A VisitLog with a nil sink is a no-op, the same nullability
// convention Writer uses.
type VisitLog struct {
	w      *bufio.Writer
	closer io.Closer
}

// NewVisitLog wraps an already-open sink. Passing nil produces a no-op
// VisitLog.
func NewVisitLog(sink io.WriteCloser) *VisitLog {
	if sink == nil {
		return &VisitLog{}
	}
	return &VisitLog{w: bufio.NewWriter(sink), closer: sink}
}

// OpenVisitLog opens path for spider-mode visit recording. An empty
// path yields a no-op VisitLog.
func OpenVisitLog(path string) (*VisitLog, error) {
	if path == "" {
		return &VisitLog{}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &VisitLog{}, fmt.Errorf("audit: open %q: %w", path, err)
	}
	return NewVisitLog(f), nil
}

// RecordVisit appends one line for a URL visited in spider mode.
func (v *VisitLog) RecordVisit(url, referer string) {
	if v == nil || v.w == nil {
		return
	}
	fmt.Fprintf(v.w, "%s\t%s\n", url, referer)
}

// Close flushes and closes the underlying sink, if any.
func (v *VisitLog) Close() error {
	if v == nil || v.w == nil {
		return nil
	}
	if err := v.w.Flush(); err != nil {
		return err
	}
	if v.closer != nil {
		return v.closer.Close()
	}
	return nil
}
