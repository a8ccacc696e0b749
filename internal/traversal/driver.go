package traversal

import (
	"context"
	"path/filepath"
	"time"

	"github.com/tomashaas/retrieve-core/internal/admission"
	"github.com/tomashaas/retrieve-core/internal/audit"
	"github.com/tomashaas/retrieve-core/internal/frontier"
	"github.com/tomashaas/retrieve-core/internal/obslog"
	"github.com/tomashaas/retrieve-core/internal/queue"
	"github.com/tomashaas/retrieve-core/internal/urlmodel"
	"github.com/tomashaas/retrieve-core/pkg/urlutil"
)

// Driver is the traversal loop described in spec §4.1: retrieve_tree.
type Driver struct {
	cfg     Config
	filter  *admission.Filter
	fetcher Fetcher
	html    HTMLExtractor
	css     CSSExtractor
	audit   *audit.Writer
	// ownAudit is true only when Retrieve opened d.audit itself (no
	// writer was supplied to NewDriver); only then does Retrieve close
	// it on exit. A caller-supplied writer is assumed shared across
	// multiple Retrieve calls (one per seed) and is the caller's to
	// close once, after the last call.
	ownAudit bool
	shared   *SharedState
	sink     obslog.Sink
	deleter  Deleter
	visits   admission.VisitRecorder
}

func NewDriver(
	cfg Config,
	filter *admission.Filter,
	fetcher Fetcher,
	html HTMLExtractor,
	css CSSExtractor,
	auditWriter *audit.Writer,
	shared *SharedState,
	sink obslog.Sink,
	deleter Deleter,
	visits admission.VisitRecorder,
) *Driver {
	if sink == nil {
		sink = obslog.NoopSink{}
	}
	if shared == nil {
		shared = NewSharedState()
	}
	return &Driver{
		cfg:     cfg,
		filter:  filter,
		fetcher: fetcher,
		html:    html,
		css:     css,
		audit:   auditWriter,
		shared:  shared,
		sink:    sink,
		deleter: deleter,
		visits:  visits,
	}
}

// Retrieve runs retrieve_tree(seedRaw) to completion.
func (d *Driver) Retrieve(ctx context.Context, seedRaw string) (FinalStatus, error) {
	seed, err := urlmodel.Parse(seedRaw)
	if err != nil {
		return StatusOK, err
	}

	q := queue.New[frontier.QueueEntry]()
	visited := frontier.NewVisitedSet()

	q.Enqueue(frontier.QueueEntry{URL: seed, Depth: 0, HTMLAllowed: true, CSSAllowed: false})
	visited.Add(urlutil.UnescapeKey(seed.String()))

	if d.audit == nil {
		d.audit, _ = audit.Open(d.cfg.RejectedLogPath())
		d.ownAudit = true
	}
	if werr := d.audit.WriteHeader(); werr != nil {
		d.sink.RecordError(obslog.ErrorRecord{
			PackageName: "audit", Action: "open", Cause: obslog.CauseStorageFailure,
			ErrorString: werr.Error(), ObservedAt: time.Now(),
		})
	}
	if d.ownAudit {
		defer d.audit.Close()
	}

	start := time.Now()
	var cumulativeBytes int64
	var fetched, rejected, errored int
	status := StatusOK
	lastWriteError := false

loop:
	for {
		if d.cfg.Quota() > 0 && cumulativeBytes > d.cfg.Quota() {
			status = StatusQuotaExceeded
			break loop
		}
		if lastWriteError {
			status = StatusWriteError
			break loop
		}

		entry, ok := q.Dequeue()
		if !ok {
			break loop
		}

		localPath, descend, isCSS, redirectedURL, contentFlags := d.fetchOrReuse(ctx, entry, &cumulativeBytes, &fetched, &errored, &lastWriteError)

		if descend && redirectedURL != "" {
			descend = d.reconcileRedirect(entry, seed, redirectedURL, visited, &rejected)
		}

		if d.cfg.Spider() && d.visits != nil {
			d.visits.RecordVisit(entry.URL.String(), entry.Referer)
		}

		dashPLeaf := false
		if descend && d.cfg.MaxDepthFinite() && entry.Depth >= d.cfg.MaxDepth() {
			if d.cfg.PageRequisites() && (entry.Depth == d.cfg.MaxDepth() || entry.Depth == d.cfg.MaxDepth()+1) {
				dashPLeaf = true
			} else {
				descend = false
			}
		}

		if descend {
			d.parseAndEnqueue(entry, seed, localPath, isCSS, dashPLeaf, q, visited, &rejected, &errored)
		}

		if localPath != "" {
			d.disposeIfNeeded(localPath)
		}

		_ = contentFlags // contentFlags only informs the branch decisions above
	}

	q.Drain()

	d.sink.RecordCrawlStats(obslog.CrawlStats{
		TotalFetched:   fetched,
		TotalRejected:  rejected,
		TotalErrors:    errored,
		TotalBytes:     cumulativeBytes,
		DurationMillis: time.Since(start).Milliseconds(),
	})

	return status, nil
}

// fetchOrReuse implements spec §4.1 step 3: the dl_url_file_map
// short-circuit, then an actual fetch.
func (d *Driver) fetchOrReuse(ctx context.Context, entry frontier.QueueEntry, cumulativeBytes *int64, fetched, errored *int, lastWriteError *bool) (localPath string, descend, isCSS bool, redirectedURL string, flags ContentFlags) {
	key := urlutil.UnescapeKey(entry.URL.String())

	if cached, hit := d.shared.Lookup(key); hit {
		localPath = cached
		if entry.HTMLAllowed && d.shared.WasHTML(cached) {
			descend = true
		}
		if entry.CSSAllowed && d.shared.WasCSS(cached) {
			descend = true
			isCSS = true
		}
		return localPath, descend, isCSS, "", flags
	}

	result, err := d.fetcher.Fetch(ctx, entry.URL, entry.Referer, entry.HTMLAllowed, entry.CSSAllowed)
	if err != nil {
		*errored++
		d.sink.RecordError(obslog.ErrorRecord{
			PackageName: "fetcher", Action: "fetch", Cause: obslog.CauseNetworkFailure,
			ErrorString: err.Error(), ObservedAt: time.Now(),
			Attrs: []obslog.Attribute{obslog.NewAttr(obslog.AttrURL, entry.URL.String())},
		})
		return "", false, false, "", flags
	}

	localPath = result.LocalPath
	flags = result.ContentFlags
	*cumulativeBytes += result.BytesDownloaded
	*fetched++
	d.sink.RecordFetch(obslog.FetchEvent{URL: entry.URL.String(), Depth: entry.Depth, ContentType: result.statusLabel()})

	if result.Status == FetchWriteError {
		*lastWriteError = true
	}

	// CSS takes precedence over HTML when both hints could apply: servers
	// frequently mislabel CSS as text/html, and the CSS branch is checked
	// after the HTML branch and wins if both are set (see original
	// recur.c's descend/is_css computation).
	htmlBranch := entry.HTMLAllowed && flags.Has(ContentHTML)
	cssBranch := entry.CSSAllowed || flags.Has(ContentCSS)
	descend = result.Status == FetchOK && (htmlBranch || cssBranch)
	isCSS = cssBranch
	redirectedURL = result.RedirectedURL

	if localPath != "" {
		d.shared.Record(key, localPath)
		if isCSS {
			d.shared.MarkCSS(localPath)
		} else if htmlBranch {
			d.shared.MarkHTML(localPath)
		}
	}

	return localPath, descend, isCSS, redirectedURL, flags
}

func (r FetchResult) statusLabel() string {
	switch r.Status {
	case FetchOK:
		return "OK"
	case FetchWriteError:
		return "WRITE_ERROR"
	default:
		return "ERROR"
	}
}

// reconcileRedirect implements spec §4.5 at the driver call site: on a
// non-SUCCESS reconciliation, descent is cancelled and a rejection is
// recorded for the redirect target against the original as parent.
func (d *Driver) reconcileRedirect(entry frontier.QueueEntry, seed urlmodel.URL, redirectedStr string, visited *frontier.VisitedSet, rejected *int) bool {
	reason := d.filter.DescendRedirect(redirectedStr, entry.URL, seed, entry.Depth, visited, d.visits)
	if reason == admission.Success {
		visited.Add(urlutil.UnescapeKey(entry.URL.String()))
		return true
	}

	*rejected++
	if redirectedURL, perr := urlmodel.ParseWithEncoding(redirectedStr, entry.URL.Encoding()); perr == nil {
		_ = d.audit.WriteRejection(reason, redirectedURL, entry.URL)
	}
	return false
}

func (d *Driver) parseAndEnqueue(entry frontier.QueueEntry, seed urlmodel.URL, localPath string, isCSS, dashPLeaf bool, q *queue.FIFOQueue[frontier.QueueEntry], visited *frontier.VisitedSet, rejected, errored *int) {
	var children []frontier.Candidate
	var metaNofollow bool
	var err error

	switch {
	case isCSS && d.css != nil:
		children, err = d.css.ExtractCSS(localPath, entry.URL)
	case d.html != nil:
		children, metaNofollow, err = d.html.ExtractHTML(localPath, entry.URL)
	}

	if err != nil {
		*errored++
		d.sink.RecordError(obslog.ErrorRecord{
			PackageName: "traversal", Action: "parse", Cause: obslog.CauseContentInvalid,
			ErrorString: err.Error(), ObservedAt: time.Now(),
		})
		return
	}

	if metaNofollow && d.cfg.UseRobots() {
		return
	}

	referer := entry.URL.StringAuthHidden()
	for _, child := range children {
		if child.IgnoreWhenDownloading {
			continue
		}
		if dashPLeaf && !child.LinkInline {
			continue
		}

		reason := d.filter.Decide(child, entry.URL, seed, entry.Depth, visited, d.visits)
		if reason == admission.Success {
			q.Enqueue(frontier.QueueEntry{
				URL:         child.URL,
				Referer:     referer,
				Depth:       entry.Depth + 1,
				HTMLAllowed: child.LinkExpectHTML,
				CSSAllowed:  child.LinkExpectCSS,
			})
			visited.Add(urlutil.UnescapeKey(child.URL.String()))
			continue
		}

		*rejected++
		_ = d.audit.WriteRejection(reason, child.URL, entry.URL)
		d.sink.RecordRejection(obslog.RejectionEvent{
			URL: child.URL.String(), ParentURL: entry.URL.String(),
			Reason: string(reason), Depth: entry.Depth,
		})
	}
}

func (d *Driver) disposeIfNeeded(localPath string) {
	acceptable := d.cfg.AcceptsFilename(filepath.Base(localPath)) && !d.cfg.RejectsFilename(filepath.Base(localPath))
	if d.cfg.DeleteAfter() || d.cfg.Spider() || !acceptable {
		if d.deleter != nil {
			_ = d.deleter.Unlink(localPath)
		}
	}
}
