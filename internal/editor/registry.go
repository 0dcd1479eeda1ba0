package editor

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spherical/case-intake/internal/config"
	"github.com/spherical/case-intake/internal/domain"
	"github.com/spherical/case-intake/internal/observability"
)

// Registry hands out at most one open session per document.
type Registry struct {
	mu     sync.Mutex
	open   map[string]*Session
	cfg    *config.Config
	logger *observability.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *config.Config, logger *observability.Logger) *Registry {
	return &Registry{
		open:   make(map[string]*Session),
		cfg:    cfg,
		logger: observability.OrNop(logger).WithOperation("editor"),
	}
}

// Open starts a session on path. It fails with ErrSessionBusy while another
// session on the same file is open.
func (r *Registry) Open(path string) (*Session, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, domain.InputError("resolve document path", err).WithFile(path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if other, ok := r.open[key]; ok {
		return nil, domain.InputError(fmt.Sprintf("document is being edited by session %s", other.ID()), domain.ErrSessionBusy).WithFile(path)
	}

	s, err := Open(path, r.cfg, r.logger)
	if err != nil {
		return nil, err
	}
	r.open[key] = s
	s.release = func() { r.forget(key, s) }

	r.logger.Debug().Str("path", key).Str("session_id", s.ID()).Msg("session acquired")
	return s, nil
}

// Active returns the number of open sessions.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}

// CloseAll discards every open session without saving.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.open))
	for _, s := range r.open {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (r *Registry) forget(key string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open[key] == s {
		delete(r.open, key)
		r.logger.Debug().Str("path", key).Str("session_id", s.ID()).Msg("session released")
	}
}
