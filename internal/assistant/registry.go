package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/toywonder-assistant/internal/catalog"
	"github.com/avvvet/toywonder-assistant/internal/i18n"
	"github.com/avvvet/toywonder-assistant/internal/logger"
	"github.com/avvvet/toywonder-assistant/internal/memory"
	"github.com/avvvet/toywonder-assistant/internal/metrics"
)

// Registry hands out sessions by id, loading stored state the first time a
// session is seen. Idle sessions are dropped by EvictIdle and reloaded from
// the store on next use.
type Registry struct {
	opts   Options
	logger logger.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	session  *Session
	lastUsed time.Time
}

// NewRegistry fills unset options with in-process defaults. A Generator is
// required.
func NewRegistry(opts Options) (*Registry, error) {
	if opts.Generator == nil {
		return nil, errors.New("suggestion generator is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.NewStaticRepository(catalog.DefaultProducts())
	}
	if opts.Store == nil {
		opts.Store = memory.NewAdapter(memory.NewInMemoryStore(), opts.Logger)
	}
	if opts.Translate == nil {
		opts.Translate = i18n.Translate
	}

	return &Registry{
		opts:     opts,
		logger:   opts.Logger.WithFields(map[string]interface{}{"component": "registry"}),
		now:      time.Now,
		sessions: make(map[string]*entry),
	}, nil
}

// Session returns the session for id, creating it if needed. A session
// whose stored state cannot be read is not cached.
func (r *Registry) Session(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidSession
	}

	r.mu.Lock()
	if e, ok := r.sessions[id]; ok {
		e.lastUsed = r.now()
		r.mu.Unlock()
		return e.session, nil
	}
	r.mu.Unlock()

	// load outside the lock so one slow store read does not stall others
	fresh, err := newSession(ctx, id, r.opts)
	if err != nil {
		r.logger.Error("Failed to load session", map[string]interface{}{
			"session_id": id,
			"error":      err,
		})
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		e.lastUsed = r.now()
		return e.session, nil
	}
	r.sessions[id] = &entry{session: fresh, lastUsed: r.now()}
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.logger.Info("Session loaded", map[string]interface{}{
		"session_id": id,
		"messages":   len(fresh.messages),
	})
	return fresh, nil
}

// EvictIdle drops sessions unused for at least maxIdle. Sessions awaiting a
// reply are kept. It returns the number evicted.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, e := range r.sessions {
		if e.lastUsed.After(cutoff) || e.session.State() == StateAwaiting {
			continue
		}
		delete(r.sessions, id)
		evicted++
	}
	if evicted > 0 {
		metrics.ActiveSessions.Set(float64(len(r.sessions)))
		r.logger.Info("Evicted idle sessions", map[string]interface{}{
			"evicted":   evicted,
			"remaining": len(r.sessions),
		})
	}
	return evicted
}

// RunEviction calls EvictIdle every half maxIdle until ctx is done. A
// non-positive maxIdle disables eviction.
func (r *Registry) RunEviction(ctx context.Context, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	interval := maxIdle / 2
	if interval <= 0 {
		interval = maxIdle
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle(maxIdle)
		}
	}
}

// Len returns the number of sessions held in memory
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Catalog exposes the product repository sessions rank against
func (r *Registry) Catalog() catalog.Repository {
	return r.opts.Catalog
}
