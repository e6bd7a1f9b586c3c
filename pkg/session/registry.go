// Package session keeps the live feeds served over HTTP. Each session owns a
// pagination controller, the proximity trigger bound to it and the signal
// broadcaster that viewport updates are published on.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/Sternrassler/infinite-feed/pkg/trigger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")

	// ErrLimitReached is returned when MaxSessions sessions are live.
	ErrLimitReached = errors.New("session limit reached")
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feed_sessions_active",
		Help: "Number of live feed sessions",
	})

	sessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_sessions_created_total",
		Help: "Total feed sessions created",
	})
)

// Config holds registry configuration.
type Config struct {
	Pagination pagination.Config
	Trigger    trigger.Config

	// MaxSessions caps live sessions. Zero means unlimited.
	MaxSessions int
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{
		Pagination:  pagination.DefaultConfig(),
		Trigger:     trigger.DefaultConfig(),
		MaxSessions: 1000,
	}
}

// Session is one feed with its trigger wiring.
type Session struct {
	ID        string
	CreatedAt time.Time

	Controller *pagination.Controller
	Trigger    *trigger.Proximity
	Signals    *trigger.Broadcaster

	signalMu sync.Mutex
}

// LoadMore is the manual trigger.
func (s *Session) LoadMore(ctx context.Context) bool {
	return trigger.LoadMore(ctx, s.Controller)
}

// Signal publishes a viewport update and reports whether it caused a request.
// Signals are serialized so each caller sees only its own request.
func (s *Session) Signal(g trigger.Geometry) bool {
	s.signalMu.Lock()
	defer s.signalMu.Unlock()

	before := s.Trigger.Fired()
	s.Signals.Publish(g)
	return s.Trigger.Fired() > before
}

// Close releases the trigger subscription. A fetch already in flight still
// completes against the controller.
func (s *Session) Close() {
	s.Trigger.Close()
}

// Registry stores sessions by id.
type Registry struct {
	fetcher pagination.BatchFetcher
	config  Config
	logger  zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	reserved int // slots held by creates still initializing
}

// NewRegistry creates an empty registry whose sessions fetch through fetcher.
func NewRegistry(fetcher pagination.BatchFetcher, cfg Config, logger zerolog.Logger) (*Registry, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("batch fetcher is required")
	}
	if cfg.MaxSessions < 0 {
		return nil, fmt.Errorf("max_sessions must be >= 0 (got %d)", cfg.MaxSessions)
	}
	return &Registry{
		fetcher:  fetcher,
		config:   cfg,
		logger:   logger.With().Str("component", "session").Logger(),
		sessions: make(map[string]*Session),
	}, nil
}

// Create starts a new feed: controller, activated trigger and the page 1 fetch.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	if r.config.MaxSessions > 0 && len(r.sessions)+r.reserved >= r.config.MaxSessions {
		r.mu.Unlock()
		return nil, ErrLimitReached
	}
	r.reserved++
	id := uuid.NewString()
	r.mu.Unlock()

	inserted := false
	defer func() {
		if !inserted {
			r.mu.Lock()
			r.reserved--
			r.mu.Unlock()
		}
	}()

	logger := r.logger.With().Str("session", id).Logger()

	ctrl, err := pagination.NewController(r.fetcher, r.config.Pagination, logger)
	if err != nil {
		return nil, fmt.Errorf("create controller: %w", err)
	}

	s := &Session{
		ID:         id,
		CreatedAt:  time.Now(),
		Controller: ctrl,
		Signals:    trigger.NewBroadcaster(),
		Trigger:    trigger.NewProximity(ctrl, r.config.Trigger, logger),
	}

	// Triggered requests outlive the HTTP request that created the session.
	if err := s.Trigger.Activate(context.WithoutCancel(ctx), s.Signals); err != nil {
		return nil, fmt.Errorf("activate trigger: %w", err)
	}
	if err := ctrl.Initialize(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("initialize feed: %w", err)
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.reserved--
	inserted = true
	r.mu.Unlock()

	sessionsActive.Inc()
	sessionsCreatedTotal.Inc()
	logger.Info().Msg("Session created")

	return s, nil
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes and removes the session with id.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.Close()
	sessionsActive.Dec()

	r.logger.Info().Str("session", id).Int("records", s.Controller.Len()).Msg("Session deleted")
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns the ids of all live sessions.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// CloseAll closes and removes every session. Used on server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		sessionsActive.Dec()
	}
	if len(sessions) > 0 {
		r.logger.Info().Int("sessions", len(sessions)).Msg("All sessions closed")
	}
}
