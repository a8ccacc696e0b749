package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomashaas/retrieve-core/internal/obslog"
	"github.com/tomashaas/retrieve-core/internal/traversal"
	"github.com/tomashaas/retrieve-core/internal/urlmodel"
	"github.com/tomashaas/retrieve-core/pkg/retry"
	"github.com/tomashaas/retrieve-core/pkg/timeutil"
)

func testRetryParam() retry.RetryParam {
	return retry.NewRetryParam(10*time.Millisecond, 5*time.Millisecond, 1, 2, timeutil.NewBackoffParam(10*time.Millisecond, 2.0, 100*time.Millisecond))
}

func TestHTTPFetcher_WritesBodyAndClassifiesHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer srv.Close()

	outputDir := t.TempDir()
	f := NewHTTPFetcher(srv.Client(), "retrieve-core-test", outputDir, obslog.NoopSink{}, testRetryParam())

	u, err := urlmodel.Parse(srv.URL + "/index.html")
	require.NoError(t, err)

	result, ferr := f.Fetch(context.Background(), u, "", true, false)
	require.NoError(t, ferr)
	assert.Equal(t, traversal.FetchOK, result.Status)
	assert.True(t, result.ContentFlags.Has(traversal.ContentHTML))
	assert.Empty(t, result.RedirectedURL)

	data, err := os.ReadFile(result.LocalPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hi")
}

func TestHTTPFetcher_DetectsRedirectTarget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old.html", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new.html", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	outputDir := t.TempDir()
	f := NewHTTPFetcher(srv.Client(), "retrieve-core-test", outputDir, obslog.NoopSink{}, testRetryParam())

	u, err := urlmodel.Parse(srv.URL + "/old.html")
	require.NoError(t, err)

	result, ferr := f.Fetch(context.Background(), u, "", true, false)
	require.NoError(t, ferr)
	assert.Equal(t, srv.URL+"/new.html", result.RedirectedURL)
}

func TestHTTPFetcher_ServerErrorReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client(), "retrieve-core-test", t.TempDir(), obslog.NoopSink{}, testRetryParam())
	u, err := urlmodel.Parse(srv.URL + "/broken.html")
	require.NoError(t, err)

	_, ferr := f.Fetch(context.Background(), u, "", true, false)
	assert.Error(t, ferr)
}

func TestLocalPath_DirectoryLikePathGetsIndexHTML(t *testing.T) {
	u, err := urlmodel.Parse("http://example.com/docs/")
	require.NoError(t, err)
	got := LocalPath("/out", u)
	assert.Equal(t, filepath.Join("/out", "example.com_80", "docs", "index.html"), got)
}
