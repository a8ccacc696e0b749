package fileutil

import (
	"os"
	"sync"
)

// DeletionRegistry records paths that have been unlinked on disk during a
// run, the Go shape of the original's register_delete_file(path) hook.
type DeletionRegistry interface {
	RegisterDelete(path string)
}

// DeletedFiles is the default in-memory DeletionRegistry, also capable of
// performing the unlink itself via Unlink.
type DeletedFiles struct {
	mu    sync.Mutex
	paths []string
}

func NewDeletedFiles() *DeletedFiles {
	return &DeletedFiles{}
}

func (d *DeletedFiles) RegisterDelete(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paths = append(d.paths, path)
}

// Paths returns a snapshot of every path registered as deleted so far.
func (d *DeletedFiles) Paths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.paths))
	copy(out, d.paths)
	return out
}

// Unlink removes path from disk and registers the deletion. A missing
// file is not an error: the caller only cares that the path is gone.
func (d *DeletedFiles) Unlink(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	d.RegisterDelete(path)
	return nil
}
