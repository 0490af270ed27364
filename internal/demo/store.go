package demo

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
	"github.com/Bhardin04/brianhardin.info/internal/metrics"
)

// sessionRecord is the store-internal mutable state behind a Session.
type sessionRecord struct {
	session Session
	idle    bool
}

// Store owns the session id → metadata mapping and enforces the session cap
// and TTL eligibility. All mutation is serialized behind a single mutex; the
// eviction callback always runs after the lock is released so cascading
// teardown never re-enters the store under lock.
type Store struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	maxSessions int
	ttl         time.Duration
	sessions    map[uuid.UUID]*sessionRecord
	onEvict     func(Session, EvictReason)
}

// NewStore creates a session store. onEvict is invoked for every removed
// session, after the store lock is released; it may be nil.
func NewStore(clock clockwork.Clock, maxSessions int, ttl time.Duration, onEvict func(Session, EvictReason)) *Store {
	return &Store{
		clock:       clock,
		maxSessions: maxSessions,
		ttl:         ttl,
		sessions:    make(map[uuid.UUID]*sessionRecord),
		onEvict:     onEvict,
	}
}

// Attach returns the caller's existing session when id is known, refreshing
// its activity timestamp. Otherwise it allocates a new session, evicting the
// least-recently-active one first when the store is at capacity (ties broken
// by earliest creation time).
func (s *Store) Attach(id uuid.UUID, demoType Type) (Session, error) {
	var evicted []Session

	s.mu.Lock()
	if rec, ok := s.sessions[id]; ok && rec.session.Type == demoType {
		rec.session.LastActiveAt = s.clock.Now()
		rec.idle = false
		session := rec.session
		s.mu.Unlock()
		return session, nil
	}

	if len(s.sessions) >= s.maxSessions {
		victim, ok := s.lruLocked()
		if !ok {
			s.mu.Unlock()
			metrics.DemoCapacityRejections.WithLabelValues("sessions").Inc()
			return Session{}, apperrors.CapacityError("maximum number of demo sessions reached").
				WithContext("max_sessions", s.maxSessions)
		}
		delete(s.sessions, victim.ID)
		evicted = append(evicted, victim)
		metrics.DemoSessionsEvicted.WithLabelValues(string(EvictLRU)).Inc()
	}

	now := s.clock.Now()
	session := Session{
		ID:           uuid.New(),
		Type:         demoType,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	s.sessions[session.ID] = &sessionRecord{session: session}
	metrics.DemoActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	for _, victim := range evicted {
		slog.Info("Demo session evicted to make room", "session_id", victim.ID.String(), "demo_type", victim.Type)
		if s.onEvict != nil {
			s.onEvict(victim, EvictLRU)
		}
	}

	return session, nil
}

// Get returns the session by id. TTL-expired sessions are still returned;
// only the reaper retires sessions on TTL grounds.
func (s *Store) Get(id uuid.UUID) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return Session{}, apperrors.NotFoundError("demo session not found").WithContext("session_id", id.String())
	}
	return rec.session, nil
}

// Touch refreshes a session's activity timestamp and clears its idle flag.
// Touching an unknown session is a no-op; callers re-create via Attach.
func (s *Store) Touch(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.sessions[id]; ok {
		rec.session.LastActiveAt = s.clock.Now()
		rec.idle = false
	}
}

// MarkIdle flags a session whose last connection has gone away so the next
// reaper sweep can retire it before the full TTL elapses.
func (s *Store) MarkIdle(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.sessions[id]; ok {
		rec.idle = true
	}
}

// Delete removes a session and triggers the eviction cascade. Idempotent.
func (s *Store) Delete(id uuid.UUID, reason EvictReason) {
	s.mu.Lock()
	rec, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, id)
	metrics.DemoActiveSessions.Set(float64(len(s.sessions)))
	session := rec.session
	s.mu.Unlock()

	metrics.DemoSessionsEvicted.WithLabelValues(string(reason)).Inc()
	if s.onEvict != nil {
		s.onEvict(session, reason)
	}
}

// Reap removes every TTL-expired session plus every idle-flagged one, and
// returns the removed sessions. Called only by the reaper.
func (s *Store) Reap() []Session {
	now := s.clock.Now()

	s.mu.Lock()
	var victims []Session
	var reasons []EvictReason
	for id, rec := range s.sessions {
		switch {
		case now.Sub(rec.session.LastActiveAt) > s.ttl:
			victims = append(victims, rec.session)
			reasons = append(reasons, EvictTTL)
			delete(s.sessions, id)
		case rec.idle:
			victims = append(victims, rec.session)
			reasons = append(reasons, EvictIdle)
			delete(s.sessions, id)
		}
	}
	metrics.DemoActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	for i, victim := range victims {
		metrics.DemoSessionsEvicted.WithLabelValues(string(reasons[i])).Inc()
		if s.onEvict != nil {
			s.onEvict(victim, reasons[i])
		}
	}

	return victims
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// lruLocked picks the eviction victim: least-recently-active first, earliest
// creation time on ties. Must be called with mu held.
func (s *Store) lruLocked() (Session, bool) {
	var victim Session
	found := false
	for _, rec := range s.sessions {
		if !found {
			victim = rec.session
			found = true
			continue
		}
		if rec.session.LastActiveAt.Before(victim.LastActiveAt) ||
			(rec.session.LastActiveAt.Equal(victim.LastActiveAt) && rec.session.CreatedAt.Before(victim.CreatedAt)) {
			victim = rec.session
		}
	}
	return victim, found
}
