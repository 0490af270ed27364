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

const (
	pingInterval      = 30 * time.Second
	messageBufferSize = 16
)

// Conn is one live streaming connection attached to a session. The registry
// exclusively owns Conn lifecycles; everyone else only enqueues.
type Conn struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	DemoType  Type
	OpenedAt  time.Time

	transport Transport
	clock     clockwork.Clock
	out       chan []byte
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	degraded  atomic.Bool

	// onFailure is invoked once when the write pump dies on a transport
	// error. Set by the registry before the pump starts.
	onFailure func()
}

func newConn(sessionID uuid.UUID, demoType Type, transport Transport, clock clockwork.Clock) *Conn {
	return &Conn{
		ID:        uuid.New(),
		SessionID: sessionID,
		DemoType:  demoType,
		OpenedAt:  clock.Now(),
		transport: transport,
		clock:     clock,
		out:       make(chan []byte, messageBufferSize),
		done:      make(chan struct{}),
	}
}

// Degraded reports whether this connection's outbound buffer has overflowed
// at least once.
func (c *Conn) Degraded() bool {
	return c.degraded.Load()
}

// Send queues an application payload for this connection outside the snapshot
// stream, going through the same buffer so nothing ever writes to the
// transport concurrently with the pump.
func (c *Conn) Send(data []byte) {
	c.enqueue(data)
}

// enqueue places data on the outbound buffer without ever blocking the
// caller. When the buffer is full the oldest buffered message is discarded in
// favor of the newest and the connection is flagged degraded. Discarding from
// the head never reorders what remains, so per-connection delivery stays in
// non-decreasing sequence order.
func (c *Conn) enqueue(data []byte) {
	select {
	case c.out <- data:
		return
	default:
	}

	select {
	case <-c.out:
		metrics.DemoMessagesDropped.Inc()
		if !c.degraded.Swap(true) {
			metrics.DemoDegradedConnections.Inc()
			slog.Warn("Demo connection degraded: outbound buffer overflow",
				"connection_id", c.ID.String(),
				"session_id", c.SessionID.String(),
			)
		}
	default:
		// Writer drained concurrently; there is room again.
	}

	select {
	case c.out <- data:
	default:
		// Still full after dropping one slot: the snapshot is stale the
		// moment the next tick fires, so dropping the new one is safe too.
		metrics.DemoMessagesDropped.Inc()
	}
}

// run is the connection's write pump. It suspends only waiting on its own
// buffer or ping timer, never on another connection.
func (c *Conn) run() {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Demo connection writer panic recovered", "connection_id", c.ID.String(), "panic", r)
			metrics.DemoPanicsRecovered.WithLabelValues("writer").Inc()
		}
	}()

	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.out:
			if err := c.transport.WriteMessage(msg); err != nil {
				c.failed(err)
				return
			}
		case <-ticker.Chan():
			if err := c.transport.WritePing(); err != nil {
				c.failed(err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// failed handles a transport-level send failure: the failure stays isolated
// to this connection, which removes itself through the registry callback.
func (c *Conn) failed(err error) {
	metrics.DemoTransportFailures.Inc()
	slog.Debug("Demo connection transport failure",
		"connection_id", c.ID.String(),
		"session_id", c.SessionID.String(),
		"error", err,
	)
	if c.onFailure != nil {
		go c.onFailure()
	}
}

// stop terminates the write pump and closes the transport. Safe to call from
// the teardown path and forced eviction concurrently.
func (c *Conn) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		_ = c.transport.Close()
		if c.degraded.Load() {
			metrics.DemoDegradedConnections.Dec()
		}
	})
	c.wg.Wait()
}

func (c *Conn) start() {
	c.wg.Add(1)
	go c.run()
}
