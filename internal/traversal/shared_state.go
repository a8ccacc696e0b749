package traversal

import "sync"

// SharedState is the explicit context object spec §9's design notes call
// for in place of the original's process-wide globals
// (dl_url_file_map, downloaded_html_set, downloaded_css_set): the
// URL-to-local-file map and the parsed-as-HTML/parsed-as-CSS sets, so
// multiple traversals or tests can share or isolate this state
// deterministically instead of relying on package-level mutable maps.
type SharedState struct {
	mu         sync.Mutex
	urlToFile  map[string]string
	parsedHTML map[string]bool
	parsedCSS  map[string]bool
}

func NewSharedState() *SharedState {
	return &SharedState{
		urlToFile:  make(map[string]string),
		parsedHTML: make(map[string]bool),
		parsedCSS:  make(map[string]bool),
	}
}

// Lookup returns the local file previously downloaded for urlKey, if any.
func (s *SharedState) Lookup(urlKey string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.urlToFile[urlKey]
	return path, ok
}

// Record associates urlKey with the local file it was downloaded to.
func (s *SharedState) Record(urlKey, localPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urlToFile[urlKey] = localPath
}

func (s *SharedState) MarkHTML(localPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsedHTML[localPath] = true
}

func (s *SharedState) MarkCSS(localPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsedCSS[localPath] = true
}

func (s *SharedState) WasHTML(localPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parsedHTML[localPath]
}

func (s *SharedState) WasCSS(localPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parsedCSS[localPath]
}
