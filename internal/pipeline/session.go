package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/filterstate"
	"storefront/internal/metrics"
	"storefront/internal/services"
)

// ErrStale is returned for a run that a newer Submit superseded.
var ErrStale = errors.New("pipeline: superseded by a newer selection")

const defaultMemoLimit = 256

// Session serializes one shopper's selections: the latest Submit wins and
// cancels whatever run it replaces.
type Session struct {
	graph *Graph
	memo  *Memo

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewSession(graph *Graph, memoLimit int) *Session {
	if memoLimit <= 0 {
		memoLimit = defaultMemoLimit
	}
	return &Session{graph: graph, memo: NewMemo(memoLimit)}
}

func (s *Session) Submit(ctx context.Context, state filterstate.FilterState, pageCtx services.PageContext, offset, limit int) (*Result, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	result, err := s.graph.Run(runCtx, state, pageCtx, offset, limit, s.memo)

	s.mu.Lock()
	stale := seq != s.seq
	s.mu.Unlock()
	if stale {
		metrics.PipelineStale.Inc()
		return nil, ErrStale
	}
	return result, err
}

// Forget drops memoized facets, e.g. after the catalog changed.
func (s *Session) Forget() {
	s.memo.Reset()
}

type registryEntry struct {
	session  *Session
	lastUsed time.Time
}

// Registry keeps sessions by client-supplied id until they sit idle.
type Registry struct {
	graph     *Graph
	idle      time.Duration
	memoLimit int
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

func NewRegistry(graph *Graph, idle time.Duration, memoLimit int) *Registry {
	return &Registry{
		graph:     graph,
		idle:      idle,
		memoLimit: memoLimit,
		now:       time.Now,
		sessions:  make(map[string]*registryEntry),
	}
}

func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		e = &registryEntry{session: NewSession(r.graph, r.memoLimit)}
		r.sessions[id] = e
	}
	e.lastUsed = r.now()
	return e.session
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the registry's idle timeout
// and returns how many it removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idle)
	removed := 0
	for id, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// ForgetAll clears every session's memoized facets.
func (r *Registry) ForgetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.sessions {
		e.session.Forget()
	}
}
