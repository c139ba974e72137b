package browse

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookfinder/internal/discovery"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry holds the browse sessions of the process keyed by id.
type Registry struct {
	searcher Searcher
	rewriter *discovery.Rewriter
	idleTTL  time.Duration
	log      *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Controller
}

func NewRegistry(searcher Searcher, rewriter *discovery.Rewriter, idleTTL time.Duration, log *slog.Logger) *Registry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		searcher: searcher,
		rewriter: rewriter,
		idleTTL:  idleTTL,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*Controller),
	}
}

// Create registers a new idle session.
func (r *Registry) Create(theme Theme) (string, *Controller) {
	c := NewController(r.searcher, r.rewriter)
	c.now = r.now
	c.lastUsed = r.now()
	c.theme = theme

	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = c
	r.mu.Unlock()
	return id, c
}

func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdle drops sessions unused for longer than the idle TTL and returns
// how many were removed.
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, c := range r.sessions {
		if c.IdleSince().Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Run evicts idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				r.log.Info("evicted idle sessions", "count", n, "remaining", r.Len())
			}
		}
	}
}
