package fetcher

import (
	"path/filepath"
	"strings"

	"github.com/tomashaas/retrieve-core/internal/urlmodel"
)

// LocalPath maps a fetched URL to where its bytes are written on disk,
// mirroring the original's url_filename(): host and port, always
// including the port (even the scheme's default) and joined with "_",
// become the top directory, the URL path becomes nested files, and a
// directory-like path (trailing slash or empty file) is materialized as
// index.html, the same layout convention as the original mirroring tool.
func LocalPath(outputDir string, u urlmodel.URL) string {
	host := u.HostPort()
	host = strings.ReplaceAll(host, ":", "_")

	segments := strings.Split(strings.Trim(u.Path(), "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		segments = nil
	}
	if u.File() == "" {
		segments = append(segments, "index.html")
	}

	parts := append([]string{outputDir, host}, segments...)
	return filepath.Join(parts...)
}
