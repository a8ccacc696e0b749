// Package fetcher is the concrete HTTP collaborator behind
// traversal.Fetcher: it performs the request, classifies the response,
// and writes the body to disk.
//
// Responsibilities
//
//   - Perform HTTP requests with retry and browser-like headers
//   - Detect the final URL after any redirect chain
//   - Classify content as HTML/CSS from its Content-Type
//   - Persist the body under outputDir, mirroring the URL's structure
//
// The fetcher never parses content; it only returns a local path, status,
// and content flags.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomashaas/retrieve-core/internal/obslog"
	"github.com/tomashaas/retrieve-core/internal/traversal"
	"github.com/tomashaas/retrieve-core/internal/urlmodel"
	"github.com/tomashaas/retrieve-core/pkg/failure"
	"github.com/tomashaas/retrieve-core/pkg/limiter"
	"github.com/tomashaas/retrieve-core/pkg/retry"
)

type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	outputDir  string
	sink       obslog.Sink
	retryParam retry.RetryParam
	rateLimit  limiter.RateLimiter
}

// NewHTTPFetcher builds a fetcher that paces requests to the same host
// with a ConcurrentRateLimiter seeded from retryParam's delay settings,
// on top of retryParam's own retry/backoff behavior on failed requests.
func NewHTTPFetcher(httpClient *http.Client, userAgent, outputDir string, sink obslog.Sink, retryParam retry.RetryParam) *HTTPFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if sink == nil {
		sink = obslog.NoopSink{}
	}
	rateLimit := limiter.NewConcurrentRateLimiter()
	rateLimit.SetBaseDelay(retryParam.BaseDelay)
	rateLimit.SetJitter(retryParam.Jitter)
	if retryParam.RandomSeed != 0 {
		rateLimit.SetRandomSeed(retryParam.RandomSeed)
	}
	return &HTTPFetcher{httpClient: httpClient, userAgent: userAgent, outputDir: outputDir, sink: sink, retryParam: retryParam, rateLimit: rateLimit}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, u urlmodel.URL, referer string, htmlAllowed, cssAllowed bool) (traversal.FetchResult, error) {
	fetchTask := func() (traversal.FetchResult, failure.ClassifiedError) {
		return h.performFetch(ctx, u, referer)
	}

	res := retry.Retry(h.retryParam, fetchTask)
	if res.IsFailure() {
		err := res.Err()
		h.recordError(u, err)
		var writeErr *FetchError
		if errors.As(err, &writeErr) && writeErr.Cause == ErrCauseWriteFailure {
			return traversal.FetchResult{Status: traversal.FetchWriteError}, nil
		}
		return traversal.FetchResult{}, err
	}
	return res.Value(), nil
}

func (h *HTTPFetcher) recordError(u urlmodel.URL, err failure.ClassifiedError) {
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		return
	}
	h.sink.RecordError(obslog.ErrorRecord{
		PackageName: "fetcher", Action: "Fetch", Cause: mapFetchErrorToObslogCause(fetchErr),
		ErrorString: err.Error(), ObservedAt: time.Now(),
		Attrs: []obslog.Attribute{obslog.NewAttr(obslog.AttrURL, u.String())},
	})
}

func (h *HTTPFetcher) performFetch(ctx context.Context, u urlmodel.URL, referer string) (traversal.FetchResult, failure.ClassifiedError) {
	host := u.Host()
	if err := h.waitForTurn(ctx, host); err != nil {
		return traversal.FetchResult{}, &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseNetworkFailure}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return traversal.FetchResult{}, &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseNetworkFailure}
	}
	for key, value := range requestHeaders(h.userAgent, referer) {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := h.httpClient.Do(req)
	h.rateLimit.MarkLastFetchAsNow(host)
	if err != nil {
		h.rateLimit.Backoff(host)
		return traversal.FetchResult{}, &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseNetworkFailure}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		h.rateLimit.Backoff(host)
		return traversal.FetchResult{}, &FetchError{Message: fmt.Sprintf("server error: %d", resp.StatusCode), Retryable: true, Cause: ErrCauseRequest5xx}
	case resp.StatusCode == 429:
		h.rateLimit.Backoff(host)
		return traversal.FetchResult{}, &FetchError{Message: "rate limited (429)", Retryable: true, Cause: ErrCauseRequestTooMany}
	case resp.StatusCode == 403:
		return traversal.FetchResult{}, &FetchError{Message: "access forbidden (403)", Retryable: false, Cause: ErrCauseRequestForbidden}
	case resp.StatusCode >= 400:
		return traversal.FetchResult{}, &FetchError{Message: fmt.Sprintf("client error: %d", resp.StatusCode), Retryable: false, Cause: ErrCauseRequestForbidden}
	}
	h.rateLimit.ResetBackoff(host)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return traversal.FetchResult{}, &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseReadResponseBodyError}
	}

	localPath := LocalPath(h.outputDir, u)
	if err := writeFile(localPath, body); err != nil {
		return traversal.FetchResult{}, &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure}
	}

	flags := classifyContent(resp.Header.Get("Content-Type"), localPath)

	var redirectedURL string
	if finalURL := resp.Request.URL.String(); finalURL != u.String() {
		redirectedURL = finalURL
	}

	h.sink.RecordFetch(obslog.FetchEvent{
		URL: u.String(), HTTPStatus: resp.StatusCode, Duration: time.Since(start),
		ContentType: resp.Header.Get("Content-Type"),
	})

	return traversal.FetchResult{
		LocalPath:       localPath,
		Status:          traversal.FetchOK,
		RedirectedURL:   redirectedURL,
		ContentFlags:    flags,
		BytesDownloaded: int64(len(body)),
	}, nil
}

// waitForTurn blocks until host's politeness delay (base delay, jitter,
// and any standing backoff from a prior failed fetch) has elapsed, or
// ctx is canceled first.
func (h *HTTPFetcher) waitForTurn(ctx context.Context, host string) error {
	delay := h.rateLimit.ResolveDelay(host)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func classifyContent(contentType, localPath string) traversal.ContentFlags {
	flags := traversal.ContentOK
	ct := strings.ToLower(contentType)
	ext := strings.ToLower(filepath.Ext(localPath))

	switch {
	case strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml"):
		flags |= traversal.ContentHTML
	case strings.Contains(ct, "text/css"):
		flags |= traversal.ContentCSS
	case ct == "":
		if ext == ".html" || ext == ".htm" {
			flags |= traversal.ContentHTML
		} else if ext == ".css" {
			flags |= traversal.ContentCSS
		}
	}
	return flags
}

func writeFile(path string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, body, 0644)
}

func requestHeaders(userAgent, referer string) map[string]string {
	headers := map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,text/css,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	}
	if referer != "" {
		headers["Referer"] = referer
	}
	return headers
}
