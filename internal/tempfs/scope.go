// Package tempfs provides scoped temporary directories that are removed on
// every exit path.
package tempfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spherical/case-intake/internal/domain"
)

// Scope owns one temporary directory and everything written into it.
type Scope struct {
	mu    sync.Mutex
	dir   string
	files []string
}

// New creates a scope under parent (os.TempDir() when empty).
func New(parent, pattern string) (*Scope, error) {
	dir, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return nil, domain.ResourceError("Failed to create temp directory", err)
	}
	return &Scope{dir: dir}, nil
}

// Dir returns the scope directory, or "" once closed.
func (s *Scope) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// WriteFile writes data to name inside the scope and returns its path.
func (s *Scope) WriteFile(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		return "", domain.ResourceError("temp scope already closed", nil)
	}
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", domain.ResourceError(fmt.Sprintf("Failed to write temp file %s", name), err)
	}
	s.files = append(s.files, path)
	return path, nil
}

// Files returns the paths written so far, in order.
func (s *Scope) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.files...)
}

// Close removes the directory and everything in it. It is safe to call more
// than once.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		return nil
	}
	dir := s.dir
	s.dir = ""
	s.files = nil

	if err := os.RemoveAll(dir); err != nil {
		return domain.ResourceError("Failed to remove temp directory", err)
	}
	return nil
}
