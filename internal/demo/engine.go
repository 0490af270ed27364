package demo

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// Engine wires the session store, connection registry, broadcast router,
// simulators, and reaper into the surface the HTTP layer consumes.
type Engine struct {
	clock    clockwork.Clock
	store    *Store
	registry *Registry
	router   *Router
	sims     *Simulators
	reaper   *Reaper

	attachGroup singleflight.Group
	cancel      context.CancelFunc
}

// NewEngine builds a demo engine from the externally supplied configuration.
func NewEngine(cfg Config, clock clockwork.Clock) *Engine {
	e := &Engine{clock: clock}

	e.store = NewStore(clock, cfg.MaxSessions, cfg.SessionTTL, e.onSessionEvicted)
	e.registry = NewRegistry(clock, e.store, cfg.MaxConnections, cfg.MaxConnsPerSession)
	e.router = NewRouter(e.registry)
	e.sims = NewSimulators(clock, cfg.TickInterval, e.router, e.registry, e.store)
	e.reaper = NewReaper(e.store, clock, cfg.ReaperInterval)

	e.registry.OnFirstConn(func(session Session) {
		e.store.Touch(session.ID)
		e.sims.Start(session)
	})
	e.registry.OnSessionIdle(func(sessionID uuid.UUID) {
		e.sims.Stop(sessionID)
		e.store.MarkIdle(sessionID)
	})

	return e
}

// onSessionEvicted cascades a session removal: all of its connections are
// torn down and its simulator is terminated for good.
func (e *Engine) onSessionEvicted(session Session, reason EvictReason) {
	slog.Info("Demo session removed",
		"session_id", session.ID.String(),
		"demo_type", session.Type,
		"reason", reason,
	)
	e.sims.Terminate(session.ID)
	e.registry.CloseSession(session.ID)
}

// Start launches the background reaper.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	go e.reaper.Run(ctx)
}

// Stop shuts the engine down: reaper first, then simulators, then every live
// connection.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.sims.StopAll()
	e.registry.CloseAll()
}

// Attach returns the visitor's existing session when sessionID matches one of
// the requested demo type, creating a session otherwise. Concurrent attaches
// for the same id collapse to a single store operation.
func (e *Engine) Attach(sessionID uuid.UUID, demoType Type) (Session, error) {
	if sessionID == uuid.Nil {
		return e.store.Attach(uuid.Nil, demoType)
	}

	v, err, _ := e.attachGroup.Do(sessionID.String()+"/"+string(demoType), func() (any, error) {
		return e.store.Attach(sessionID, demoType)
	})
	if err != nil {
		return Session{}, err
	}
	return v.(Session), nil
}

// Touch refreshes a session's activity timestamp on inbound client activity.
func (e *Engine) Touch(sessionID uuid.UUID) {
	e.store.Touch(sessionID)
}

// Session returns session metadata by id.
func (e *Engine) Session(sessionID uuid.UUID) (Session, error) {
	return e.store.Get(sessionID)
}

// Delete removes a session explicitly, cascading to its connections and
// simulator. Idempotent.
func (e *Engine) Delete(sessionID uuid.UUID) {
	e.store.Delete(sessionID, EvictExplicit)
}

// Connect registers a streaming connection for the session. The returned Conn
// stays owned by the registry; callers release it with Disconnect.
func (e *Engine) Connect(sessionID uuid.UUID, transport Transport) (*Conn, error) {
	conn, err := e.registry.Register(sessionID, transport)
	if err != nil {
		return nil, err
	}
	e.store.Touch(sessionID)
	return conn, nil
}

// Disconnect removes a connection. Idempotent.
func (e *Engine) Disconnect(connID uuid.UUID) {
	e.registry.Unregister(connID)
}

// SendToType delivers a snapshot to every connection of the demo type.
func (e *Engine) SendToType(demoType Type, snapshot Snapshot) {
	e.router.SendToType(demoType, snapshot)
}

// ConnCount returns the number of live connections for a session.
func (e *Engine) ConnCount(sessionID uuid.UUID) int {
	return e.registry.SessionConnCount(sessionID)
}

// Stats reports live counts for the health endpoint.
func (e *Engine) Stats() (sessions, connections int) {
	return e.store.Len(), e.registry.Total()
}
