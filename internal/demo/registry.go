package demo

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
	"github.com/Bhardin04/brianhardin.info/internal/metrics"
)

// sessionLookup is the slice of the session store the registry needs: a
// connection may only attach to a session that exists.
type sessionLookup interface {
	Get(id uuid.UUID) (Session, error)
}

// Registry owns every live connection. Registration and cap checks happen
// atomically under one mutex; broadcast fan-out reads consistent snapshots
// and never holds the lock across a send.
type Registry struct {
	mu            sync.Mutex
	clock         clockwork.Clock
	sessions      sessionLookup
	maxConns      int
	maxPerSession int
	bySession     map[uuid.UUID]map[uuid.UUID]*Conn
	byConn        map[uuid.UUID]*Conn
	total         int

	// onFirstConn fires when a session gains its first connection,
	// onSessionIdle when it loses its last one. Both run outside the lock.
	onFirstConn   func(Session)
	onSessionIdle func(uuid.UUID)
}

// NewRegistry creates a connection registry bound to a session lookup.
func NewRegistry(clock clockwork.Clock, sessions sessionLookup, maxConns, maxPerSession int) *Registry {
	return &Registry{
		clock:         clock,
		sessions:      sessions,
		maxConns:      maxConns,
		maxPerSession: maxPerSession,
		bySession:     make(map[uuid.UUID]map[uuid.UUID]*Conn),
		byConn:        make(map[uuid.UUID]*Conn),
	}
}

// OnFirstConn sets the first-connection callback. Must be called before the
// registry is shared between goroutines.
func (r *Registry) OnFirstConn(fn func(Session)) { r.onFirstConn = fn }

// OnSessionIdle sets the last-disconnect callback. Must be called before the
// registry is shared between goroutines.
func (r *Registry) OnSessionIdle(fn func(uuid.UUID)) { r.onSessionIdle = fn }

// Register admits a new connection for the session, enforcing the global and
// per-session caps atomically with respect to concurrent registrations. The
// returned Conn is owned by the registry; the caller must not close it
// directly, only Unregister it.
func (r *Registry) Register(sessionID uuid.UUID, transport Transport) (*Conn, error) {
	session, err := r.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.total >= r.maxConns {
		r.mu.Unlock()
		metrics.DemoCapacityRejections.WithLabelValues("global").Inc()
		return nil, apperrors.CapacityError("server at connection capacity").
			WithContext("max_connections", r.maxConns)
	}

	clients := r.bySession[sessionID]
	if len(clients) >= r.maxPerSession {
		r.mu.Unlock()
		metrics.DemoCapacityRejections.WithLabelValues("per_session").Inc()
		return nil, apperrors.CapacityError("too many connections for session").
			WithContext("session_id", sessionID.String()).
			WithContext("max_connections_per_session", r.maxPerSession)
	}

	// The session deletion cascade serializes on r.mu via CloseSession, so a
	// deletion that completed between the lookup above and taking the lock is
	// visible here. Re-check before inserting; admitting the connection would
	// leave it attached to a session the cascade has already swept.
	if _, err := r.sessions.Get(sessionID); err != nil {
		r.mu.Unlock()
		return nil, err
	}

	conn := newConn(sessionID, session.Type, transport, r.clock)
	conn.onFailure = func() { r.Unregister(conn.ID) }

	if clients == nil {
		clients = make(map[uuid.UUID]*Conn)
		r.bySession[sessionID] = clients
	}
	clients[conn.ID] = conn
	r.byConn[conn.ID] = conn
	r.total++
	first := len(clients) == 1

	if r.total > r.maxConns || len(clients) > r.maxPerSession {
		// Admission control is broken if this is ever observed. Reject the
		// operation and log loudly; do not crash the process.
		observed := r.total
		delete(clients, conn.ID)
		delete(r.byConn, conn.ID)
		r.total--
		r.mu.Unlock()
		metrics.DemoCapacityViolations.Inc()
		slog.Error("Demo connection cap exceeded despite admission control",
			"session_id", sessionID.String(),
			"total", observed,
		)
		return nil, apperrors.CapacityError("connection admission invariant violated")
	}
	r.mu.Unlock()

	conn.start()
	metrics.DemoConnectedClients.Inc()
	slog.Debug("Demo connection registered",
		"connection_id", conn.ID.String(),
		"session_id", sessionID.String(),
		"demo_type", session.Type,
	)

	if first && r.onFirstConn != nil {
		r.onFirstConn(session)
	}

	return conn, nil
}

// Unregister removes a connection and stops its write pump. Idempotent and
// safe to call concurrently from the teardown path and forced eviction:
// exactly one caller performs the removal.
func (r *Registry) Unregister(connID uuid.UUID) {
	r.mu.Lock()
	conn, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byConn, connID)
	clients := r.bySession[conn.SessionID]
	delete(clients, connID)
	last := len(clients) == 0
	if last {
		delete(r.bySession, conn.SessionID)
	}
	r.total--
	r.mu.Unlock()

	conn.stop()
	metrics.DemoConnectedClients.Dec()

	if last {
		slog.Debug("Last connection left demo session", "session_id", conn.SessionID.String())
		if r.onSessionIdle != nil {
			r.onSessionIdle(conn.SessionID)
		}
	}
}

// CloseSession tears down every connection of a session without firing the
// idle callback; used by the session eviction cascade where the session is
// already gone.
func (r *Registry) CloseSession(sessionID uuid.UUID) {
	r.mu.Lock()
	clients := r.bySession[sessionID]
	delete(r.bySession, sessionID)
	conns := make([]*Conn, 0, len(clients))
	for id, conn := range clients {
		delete(r.byConn, id)
		conns = append(conns, conn)
		r.total--
	}
	r.mu.Unlock()

	for _, conn := range conns {
		conn.stop()
		metrics.DemoConnectedClients.Dec()
	}
}

// CloseAll tears down every connection. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]*Conn, 0, len(r.byConn))
	for id, conn := range r.byConn {
		delete(r.byConn, id)
		conns = append(conns, conn)
	}
	r.bySession = make(map[uuid.UUID]map[uuid.UUID]*Conn)
	r.total = 0
	r.mu.Unlock()

	for _, conn := range conns {
		conn.stop()
		metrics.DemoConnectedClients.Dec()
	}
}

// ForSession returns a point-in-time snapshot of the session's connections.
func (r *Registry) ForSession(sessionID uuid.UUID) []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := r.bySession[sessionID]
	conns := make([]*Conn, 0, len(clients))
	for _, conn := range clients {
		conns = append(conns, conn)
	}
	return conns
}

// ForType returns a point-in-time snapshot of every connection across all
// sessions of the given demo type.
func (r *Registry) ForType(demoType Type) []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	var conns []*Conn
	for _, conn := range r.byConn {
		if conn.DemoType == demoType {
			conns = append(conns, conn)
		}
	}
	return conns
}

// SessionConnCount returns the number of live connections for a session.
func (r *Registry) SessionConnCount(sessionID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySession[sessionID])
}

// Total returns the number of live connections across all sessions.
func (r *Registry) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
