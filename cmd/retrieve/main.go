// Command retrieve is the process entrypoint: it wires the admission
// filter, HTTP fetcher, robots store, HTML/CSS extractors, and audit
// writer into a traversal.Driver and runs one retrieval per seed URL.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tomashaas/retrieve-core/internal/admission"
	"github.com/tomashaas/retrieve-core/internal/audit"
	cmd "github.com/tomashaas/retrieve-core/internal/cli"
	"github.com/tomashaas/retrieve-core/internal/config"
	"github.com/tomashaas/retrieve-core/internal/cssx"
	"github.com/tomashaas/retrieve-core/internal/fetcher"
	"github.com/tomashaas/retrieve-core/internal/htmlx"
	"github.com/tomashaas/retrieve-core/internal/obslog"
	"github.com/tomashaas/retrieve-core/internal/robots"
	"github.com/tomashaas/retrieve-core/internal/robots/cache"
	"github.com/tomashaas/retrieve-core/internal/traversal"
	"github.com/tomashaas/retrieve-core/pkg/fileutil"
	"github.com/tomashaas/retrieve-core/pkg/retry"
	"github.com/tomashaas/retrieve-core/pkg/timeutil"
)

func main() {
	cmd.SetRunner(run)
	cmd.Execute()
}

func run(cfg config.Config) error {
	if err := os.MkdirAll(cfg.OutputDir(), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	var sink obslog.Sink = obslog.NoopSink{}
	if f, err := os.OpenFile(filepath.Join(cfg.OutputDir(), "events.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		sink = obslog.NewRecorder(f)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout()}

	backoff := timeutil.NewBackoffParam(cfg.BackoffInitialDuration(), cfg.BackoffMultiplier(), cfg.BackoffMaxDuration())
	retryParam := retry.NewRetryParam(cfg.BaseDelay(), cfg.Jitter(), cfg.RandomSeed(), cfg.MaxAttempt(), backoff)

	httpFetcher := fetcher.NewHTTPFetcher(httpClient, cfg.UserAgent(), cfg.OutputDir(), sink, retryParam)

	robotsDir := os.TempDir()
	robotsStore := robots.NewStore(httpClient, cfg.UserAgent(), cache.NewMemoryCache(), robotsDir)

	deleter := fileutil.NewDeletedFiles()

	filter := admission.NewFilter(cfg, robotsStore, deleter, cfg.Spider(), cfg.DeleteAfter(), robotsDir)

	rejectedLogPath := cfg.RejectedLogPath()
	if rejectedLogPath == "" {
		rejectedLogPath = filepath.Join(cfg.OutputDir(), "rejected.log")
	}
	auditWriter, err := audit.Open(rejectedLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening rejection log: %v\n", err)
	}
	defer auditWriter.Close()

	visitLog, err := audit.OpenVisitLog(filepath.Join(cfg.OutputDir(), "visited.log"))
	if err != nil {
		return fmt.Errorf("opening visit log: %w", err)
	}
	defer visitLog.Close()

	driver := traversal.NewDriver(
		cfg,
		filter,
		httpFetcher,
		htmlx.NewExtractor(),
		cssx.NewExtractor(),
		auditWriter,
		nil,
		sink,
		deleter,
		visitLog,
	)

	ctx := context.Background()
	for _, seed := range cfg.SeedURLs() {
		status, err := driver.Retrieve(ctx, seed)
		if err != nil {
			return fmt.Errorf("retrieving %s: %w", seed, err)
		}
		fmt.Printf("%s: %s\n", seed, status)
	}
	return nil
}
