// Package sessions keeps the live conversations served by this instance
// and fans captured leads out to the configured notifiers.
package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/leadbot/internal/lead"
)

var ErrNotFound = errors.New("session not found")

const notifyTimeout = 15 * time.Second

// ConfigSource supplies the capture settings new sessions start with.
type ConfigSource interface {
	Current() lead.CaptureConfig
}

// Registry holds in-memory sessions keyed by id. Turns on one session are
// serialised; different sessions run concurrently.
type Registry struct {
	extractor    lead.Extractor
	responder    lead.Responder
	source       ConfigSource
	instructions lead.Instructions
	parallel     bool
	notifiers    []Notifier
	logger       *slog.Logger
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session

	pending sync.WaitGroup
}

type session struct {
	mu         sync.Mutex
	coord      *lead.Coordinator
	createdAt  time.Time
	lastActive time.Time
}

type Option func(*Registry)

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func WithInstructions(in lead.Instructions) Option {
	return func(r *Registry) { r.instructions = in }
}

func WithParallelTurns(on bool) Option {
	return func(r *Registry) { r.parallel = on }
}

// WithNotifiers adds destinations for captured leads. Nil entries are skipped.
func WithNotifiers(ns ...Notifier) Option {
	return func(r *Registry) {
		for _, n := range ns {
			if n != nil {
				r.notifiers = append(r.notifiers, n)
			}
		}
	}
}

func NewRegistry(ext lead.Extractor, resp lead.Responder, source ConfigSource, opts ...Option) *Registry {
	r := &Registry{
		extractor:    ext,
		responder:    resp,
		source:       source,
		instructions: lead.DefaultInstructions(),
		logger:       slog.Default(),
		now:          time.Now,
		sessions:     make(map[uuid.UUID]*session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Info describes a session for callers outside the registry.
type Info struct {
	ID         uuid.UUID         `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	LastActive time.Time         `json:"last_active"`
	State      lead.SessionState `json:"state"`
}

// Create starts a session under the current capture settings.
func (r *Registry) Create() (Info, error) {
	id := uuid.New()
	s := &session{}
	logger := r.logger.With("session_id", id.String())

	coord, err := lead.New(r.source.Current(), r.extractor, r.responder,
		lead.WithLogger(logger),
		lead.WithInstructions(r.instructions),
		lead.WithParallel(r.parallel),
		lead.OnLeadCaptured(func(ctx context.Context, fields lead.Fields) {
			// Runs inside HandleTurn with s.mu held.
			r.dispatch(ctx, Capture{
				SessionID:  id.String(),
				Fields:     fields,
				Turn:       s.coord.Snapshot().TurnCount,
				CapturedAt: r.now().UTC(),
			})
		}),
	)
	if err != nil {
		return Info{}, err
	}
	now := r.now().UTC()
	s.coord, s.createdAt, s.lastActive = coord, now, now

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	logger.Info("session created", "mode", string(coord.Config().Mode))
	return s.info(id), nil
}

// Get returns a snapshot of one session.
func (r *Registry) Get(id uuid.UUID) (Info, error) {
	s, err := r.lookup(id)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info(id), nil
}

// Turn runs one user utterance through the session.
func (r *Registry) Turn(ctx context.Context, id uuid.UUID, text string) (lead.TurnResult, Info, error) {
	s, err := r.lookup(id)
	if err != nil {
		return lead.TurnResult{}, Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.coord.HandleTurn(ctx, text)
	if err != nil {
		return lead.TurnResult{}, s.info(id), err
	}
	s.lastActive = r.now().UTC()
	return res, s.info(id), nil
}

// Reset clears a session back to its welcome turn.
func (r *Registry) Reset(id uuid.UUID) (Info, error) {
	s, err := r.lookup(id)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coord.Reset()
	s.lastActive = r.now().UTC()
	return s.info(id), nil
}

func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ApplySettings reconfigures every live session. Sessions whose mode
// changed are reset. It has the shape of a settings listener.
func (r *Registry) ApplySettings(_ context.Context, cfg lead.CaptureConfig) {
	r.mu.RLock()
	targets := make(map[uuid.UUID]*session, len(r.sessions))
	for id, s := range r.sessions {
		targets[id] = s
	}
	r.mu.RUnlock()

	resets := 0
	for id, s := range targets {
		s.mu.Lock()
		reset, err := s.coord.Reconfigure(cfg)
		s.mu.Unlock()
		if err != nil {
			r.logger.Warn("session rejected capture settings", "session_id", id.String(), "error", err)
			continue
		}
		if reset {
			resets++
		}
	}
	r.logger.Info("capture settings applied to sessions", "sessions", len(targets), "reset", resets)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().UTC().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if !s.mu.TryLock() {
			continue
		}
		idle := s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Wait blocks until in-flight lead notifications finish.
func (r *Registry) Wait() {
	r.pending.Wait()
}

func (r *Registry) lookup(id uuid.UUID) (*session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *Registry) dispatch(ctx context.Context, c Capture) {
	ctx = context.WithoutCancel(ctx)
	for _, n := range r.notifiers {
		r.pending.Add(1)
		go func(n Notifier) {
			defer r.pending.Done()
			nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
			defer cancel()
			if err := n.LeadCaptured(nctx, c); err != nil {
				r.logger.Error("lead notification failed", "session_id", c.SessionID, "error", err)
			}
		}(n)
	}
}

func (s *session) info(id uuid.UUID) Info {
	return Info{
		ID:         id,
		CreatedAt:  s.createdAt,
		LastActive: s.lastActive,
		State:      s.coord.Snapshot(),
	}
}
