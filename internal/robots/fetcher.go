package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/tomashaas/retrieve-core/internal/admission"
	"github.com/tomashaas/retrieve-core/internal/robots/cache"
)

// Store fetches, parses, and caches robots.txt documents per (host, port).
// It is the concrete implementation of admission.RobotsStore; admission
// never imports this package, only the interface it defines.
type Store struct {
	httpClient *http.Client
	userAgent  string
	cache      cache.Cache
	tmpDir     string
}

func NewStore(httpClient *http.Client, userAgent string, c cache.Cache, tmpDir string) *Store {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c == nil {
		c = cache.NewMemoryCache()
	}
	return &Store{httpClient: httpClient, userAgent: userAgent, cache: c, tmpDir: tmpDir}
}

func cacheKey(host string, port int) string {
	return fmt.Sprintf("%s:%d", strings.ToLower(host), port)
}

// Get returns a previously cached Specs for (host, port).
func (s *Store) Get(host string, port int) (admission.Specs, bool) {
	v, ok := s.cache.Get(cacheKey(host, port))
	if !ok {
		return nil, false
	}
	specs, ok := v.(Specs)
	if !ok {
		return nil, false
	}
	return specs, true
}

// Put caches specs for (host, port).
func (s *Store) Put(host string, port int, specs admission.Specs) {
	concrete, ok := specs.(Specs)
	if !ok {
		return
	}
	s.cache.Put(cacheKey(host, port), concrete)
}

// FetchRobots downloads robots.txt for (scheme, host, port) into a temp
// file and returns its path. A 4xx/5xx response or transport failure is
// reported as an error; the caller (admission rule 11) falls back to a
// permissive dummy rather than retrying inline.
func (s *Store) FetchRobots(scheme, host string, port int) (string, error) {
	robotsURL := fmt.Sprintf("%s://%s:%d/robots.txt", scheme, host, port)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, robotsURL, nil)
	if err != nil {
		return "", &RobotsError{Message: err.Error(), Retryable: false, Cause: ErrCausePreFetchFailure}
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &RobotsError{Message: err.Error(), Retryable: true, Cause: ErrCauseHttpFetchFailure}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &RobotsError{
			Message:   fmt.Sprintf("robots.txt fetch for %s returned %d", robotsURL, resp.StatusCode),
			Retryable: resp.StatusCode >= 500 || resp.StatusCode == 429,
			Cause:     ErrCauseHttpUnexpectedStatus,
		}
	}

	const maxSize = 500 * 1024
	content, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return "", &RobotsError{Message: err.Error(), Retryable: true, Cause: ErrCauseParseError}
	}
	if len(content) > maxSize {
		content = content[:maxSize]
	}

	// No literal ".tmp" suffix here: the admission filter's cleanup
	// check treats a ".tmp"-suffixed path as its own deletion condition,
	// distinct from deleteAfter/spider, and that distinction would be
	// meaningless if every fetched robots file always matched it.
	f, err := os.CreateTemp(s.tmpDir, fmt.Sprintf("robots-%s-%d-*", strings.ReplaceAll(host, ":", "_"), port))
	if err != nil {
		return "", &RobotsError{Message: err.Error(), Retryable: false, Cause: ErrCausePreFetchFailure}
	}
	defer f.Close()
	if _, err := f.Write(content); err != nil {
		return "", &RobotsError{Message: err.Error(), Retryable: false, Cause: ErrCauseParseError}
	}

	return f.Name(), nil
}

// ParseRobots parses the file at localPath into a Specs.
func (s *Store) ParseRobots(localPath string) admission.Specs {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return s.ParseRobotsEmpty()
	}
	doc, err := robotstxt.FromBytes(data)
	if err != nil {
		return s.ParseRobotsEmpty()
	}
	return newSpecs(doc, s.userAgent, filepath.Base(localPath))
}

// ParseRobotsEmpty returns the permissive dummy used when robots.txt could
// not be obtained (spec §4.4 rule 11): absence is treated as allow-all.
func (s *Store) ParseRobotsEmpty() admission.Specs {
	return newSpecs(nil, s.userAgent, "")
}

// Matches reports whether specs permits path.
func (s *Store) Matches(specs admission.Specs, path string) bool {
	if specs == nil {
		return true
	}
	return specs.Allows(path)
}
