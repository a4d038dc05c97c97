// Package session keeps one section orchestrator per connected client or
// REST session id.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/edumarques81/animekun-backend/internal/domain/section"
	"github.com/edumarques81/animekun-backend/internal/metrics"
)

// DefaultID is used by REST callers that send no session header.
const DefaultID = "default"

// entry is one open session. Sessions opened with an observer belong to a
// socket connection and are closed by it; the rest are reclaimable.
type entry struct {
	svc      *section.Service
	owned    bool
	lastUsed time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithIdleTimeout drops reclaimable sessions unused for longer than d.
// Zero keeps them until capacity forces them out.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) { r.idleTimeout = d }
}

// WithMaxSessions caps the reclaimable sessions. Opening one more evicts
// the least recently used. Zero disables the cap.
func WithMaxSessions(n int) Option {
	return func(r *Registry) { r.maxSessions = n }
}

// WithClock sets the time source used for idle accounting.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Registry owns the per-client section services.
type Registry struct {
	fetcher   section.Fetcher
	favorites section.FavoriteSet
	cfg       section.Config

	idleTimeout time.Duration
	maxSessions int
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry

	done chan struct{}
	once sync.Once
}

// NewRegistry creates an empty registry. Every session it opens shares the
// fetcher, the favorites set and the section config. With an idle timeout
// a sweeper runs until Stop.
func NewRegistry(fetcher section.Fetcher, favorites section.FavoriteSet, cfg section.Config, opts ...Option) *Registry {
	r := &Registry{
		fetcher:   fetcher,
		favorites: favorites,
		cfg:       cfg,
		now:       time.Now,
		sessions:  make(map[string]*entry),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.idleTimeout > 0 {
		go r.sweeper()
	}
	return r
}

// Open returns the session for id, creating it with observer when absent.
// created reports whether a new session was made; the caller is expected to
// Refresh it. A nil observer marks the session reclaimable.
func (r *Registry) Open(id string, observer section.Observer) (svc *section.Service, created bool) {
	if id == "" {
		id = DefaultID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.sessions[id]; ok {
		e.lastUsed = now
		return e.svc, false
	}

	owned := observer != nil
	if !owned && r.maxSessions > 0 {
		for r.reclaimableLocked() >= r.maxSessions {
			r.evictOldestLocked()
		}
	}

	svc = section.NewService(r.fetcher, r.favorites, observer, r.cfg)
	r.sessions[id] = &entry{svc: svc, owned: owned, lastUsed: now}
	r.updateGaugesLocked()
	log.Debug().Str("session", id).Bool("owned", owned).Int("sessions", len(r.sessions)).Msg("Session opened")
	return svc, true
}

// Get returns an existing session.
func (r *Registry) Get(id string) (*section.Service, bool) {
	if id == "" {
		id = DefaultID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return e.svc, true
}

// Close forgets a session. In-flight loads of the session finish but are
// no longer reachable.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	r.updateGaugesLocked()
	log.Debug().Str("session", id).Int("sessions", len(r.sessions)).Msg("Session closed")
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops reclaimable sessions idle past the timeout and returns how
// many were dropped.
func (r *Registry) Sweep() int {
	if r.idleTimeout <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTimeout)
	dropped := 0
	for id, e := range r.sessions {
		if !e.owned && e.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			dropped++
		}
	}
	if dropped > 0 {
		metrics.SessionsReclaimed.WithLabelValues("idle").Add(float64(dropped))
		r.updateGaugesLocked()
		log.Debug().Int("dropped", dropped).Int("sessions", len(r.sessions)).Msg("Idle sessions reclaimed")
	}
	return dropped
}

// Stop ends the idle sweeper.
func (r *Registry) Stop() {
	r.once.Do(func() { close(r.done) })
}

// FavoritesChanged notifies every open session and waits until their
// reloads are done.
func (r *Registry) FavoritesChanged(ctx context.Context) {
	r.mu.Lock()
	services := make([]*section.Service, 0, len(r.sessions))
	for _, e := range r.sessions {
		services = append(services, e.svc)
	}
	r.mu.Unlock()

	p := pool.New().WithMaxGoroutines(4)
	for _, svc := range services {
		p.Go(func() {
			svc.FavoritesChanged(ctx)
		})
	}
	p.Wait()
}

func (r *Registry) sweeper() {
	interval := r.idleTimeout / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval <= 0 {
		interval = r.idleTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) reclaimableLocked() int {
	n := 0
	for _, e := range r.sessions {
		if !e.owned {
			n++
		}
	}
	return n
}

func (r *Registry) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range r.sessions {
		if e.owned {
			continue
		}
		if oldestID == "" || e.lastUsed.Before(oldest) {
			oldestID, oldest = id, e.lastUsed
		}
	}
	if oldestID == "" {
		return
	}
	delete(r.sessions, oldestID)
	metrics.SessionsReclaimed.WithLabelValues("capacity").Inc()
	log.Debug().Str("session", oldestID).Msg("Session evicted at capacity")
}

func (r *Registry) updateGaugesLocked() {
	reclaimable := r.reclaimableLocked()
	metrics.OpenSessions.WithLabelValues("rest").Set(float64(reclaimable))
	metrics.OpenSessions.WithLabelValues("socket").Set(float64(len(r.sessions) - reclaimable))
}
