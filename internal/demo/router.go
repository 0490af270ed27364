package demo

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Bhardin04/brianhardin.info/internal/metrics"
)

// Router fans snapshots out to live connections. Delivery is a bounded,
// non-blocking enqueue per connection: a stalled receiver loses its oldest
// buffered message, never delays a sibling or the caller.
type Router struct {
	registry *Registry
}

// NewRouter creates a broadcast router over the registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// SendToSession delivers the snapshot to every live connection of the session.
func (r *Router) SendToSession(sessionID uuid.UUID, snapshot Snapshot) {
	r.deliver(r.registry.ForSession(sessionID), snapshot)
}

// SendToType delivers the snapshot to every live connection across all
// sessions of the demo type; used for shared aggregate views.
func (r *Router) SendToType(demoType Type, snapshot Snapshot) {
	r.deliver(r.registry.ForType(demoType), snapshot)
}

func (r *Router) deliver(conns []*Conn, snapshot Snapshot) {
	if len(conns) == 0 {
		return
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		slog.Error("Failed to marshal demo snapshot",
			"session_id", snapshot.SessionID.String(),
			"seq", snapshot.Seq,
			"error", err,
		)
		return
	}

	for _, conn := range conns {
		conn.enqueue(data)
	}
	metrics.DemoSnapshotsSent.WithLabelValues(string(snapshot.DemoType)).Add(float64(len(conns)))
}
