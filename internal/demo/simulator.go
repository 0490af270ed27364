package demo

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Bhardin04/brianhardin.info/internal/metrics"
)

// connCounter is the slice of the registry the simulators need: a tick loop
// double-checks it still has an audience.
type connCounter interface {
	SessionConnCount(sessionID uuid.UUID) int
}

// sessionToucher keeps actively streamed sessions from being TTL-reaped.
type sessionToucher interface {
	Touch(id uuid.UUID)
}

// Simulators runs one tick loop per session that currently has at least one
// connection. Loops are started and stopped exclusively by registry and store
// events; a simulator never deletes its own session.
//
// Per-session sequence numbers outlive an individual loop: when a session
// drops to zero connections and later gains one, the restarted loop continues
// the same strictly increasing sequence.
type Simulators struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	tick    time.Duration
	router  *Router
	conns   connCounter
	store   sessionToucher
	running map[uuid.UUID]chan struct{}
	seqs    map[uuid.UUID]*uint64
	wg      sync.WaitGroup
}

// NewSimulators creates the simulator supervisor.
func NewSimulators(clock clockwork.Clock, tick time.Duration, router *Router, conns connCounter, store sessionToucher) *Simulators {
	return &Simulators{
		clock:   clock,
		tick:    tick,
		router:  router,
		conns:   conns,
		store:   store,
		running: make(map[uuid.UUID]chan struct{}),
		seqs:    make(map[uuid.UUID]*uint64),
	}
}

// Start launches the tick loop for a session. No-op if one is already
// running.
func (s *Simulators) Start(session Session) {
	s.mu.Lock()
	if _, ok := s.running[session.ID]; ok {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.running[session.ID] = stop

	seq, ok := s.seqs[session.ID]
	if !ok {
		seq = new(uint64)
		s.seqs[session.ID] = seq
	}
	s.mu.Unlock()

	gen := newGenerator(session.Type, s.clock.Now().UnixNano())

	s.wg.Add(1)
	go s.run(session, gen, seq, stop)
	slog.Debug("Demo simulator started", "session_id", session.ID.String(), "demo_type", session.Type)
}

// Stop halts a session's tick loop, keeping its sequence counter so a later
// restart continues where it left off. No-op if nothing is running.
func (s *Simulators) Stop(sessionID uuid.UUID) {
	s.mu.Lock()
	stop, ok := s.running[sessionID]
	if ok {
		delete(s.running, sessionID)
		close(stop)
	}
	s.mu.Unlock()
}

// Terminate stops the loop and discards the sequence counter. Called from the
// session deletion cascade.
func (s *Simulators) Terminate(sessionID uuid.UUID) {
	s.mu.Lock()
	stop, ok := s.running[sessionID]
	if ok {
		delete(s.running, sessionID)
		close(stop)
	}
	delete(s.seqs, sessionID)
	s.mu.Unlock()
}

// StopAll halts every loop and waits for them to exit. Used on shutdown.
func (s *Simulators) StopAll() {
	s.mu.Lock()
	for id, stop := range s.running {
		delete(s.running, id)
		close(stop)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Running reports whether the session currently has a live tick loop.
func (s *Simulators) Running(sessionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[sessionID]
	return ok
}

func (s *Simulators) run(session Session, gen *generator, seq *uint64, stop chan struct{}) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			slog.Debug("Demo simulator stopped", "session_id", session.ID.String())
			return
		case <-ticker.Chan():
			// Safety net: the idle callback normally stops this loop, but
			// never outlive an audience by more than one tick.
			if s.conns.SessionConnCount(session.ID) == 0 {
				s.Stop(session.ID)
				continue
			}
			s.tickOnce(session, gen, seq)
		}
	}
}

func (s *Simulators) tickOnce(session Session, gen *generator, seq *uint64) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Demo simulator tick panic recovered", "session_id", session.ID.String(), "panic", r)
			metrics.DemoPanicsRecovered.WithLabelValues("simulator").Inc()
		}
	}()

	now := s.clock.Now()
	// Atomic so a restarting loop racing a stopping one can never reuse a
	// sequence number.
	next := atomic.AddUint64(seq, 1)
	kind, data := gen.next(now)

	s.router.SendToSession(session.ID, Snapshot{
		SessionID: session.ID,
		DemoType:  session.Type,
		Seq:       next,
		Kind:      kind,
		SentAt:    now,
		Data:      data,
	})
	s.store.Touch(session.ID)
	metrics.DemoSimulatorTicks.WithLabelValues(string(session.Type)).Inc()
}
