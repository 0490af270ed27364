package demo

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Bhardin04/brianhardin.info/internal/metrics"
)

// Reaper periodically retires sessions past their TTL and idle sessions with
// no connections. It is the only component that evicts on TTL grounds.
type Reaper struct {
	store    *Store
	clock    clockwork.Clock
	interval time.Duration
	stopCh   chan struct{}
}

// NewReaper creates a session reaper over the store.
func NewReaper(store *Store, clock clockwork.Clock, interval time.Duration) *Reaper {
	return &Reaper{
		store:    store,
		clock:    clock,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Run executes the sweep loop until Stop is called or ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.sweep()
		case <-r.stopCh:
			slog.Info("Demo session reaper stopped")
			return
		case <-ctx.Done():
			slog.Info("Demo session reaper context cancelled")
			return
		}
	}
}

// Stop terminates the sweep loop.
func (r *Reaper) Stop() {
	close(r.stopCh)
}

func (r *Reaper) sweep() {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Demo reaper sweep panic recovered", "panic", rec)
			metrics.DemoPanicsRecovered.WithLabelValues("reaper").Inc()
		}
	}()

	reaped := r.store.Reap()
	if len(reaped) > 0 {
		slog.Info("Demo sessions reaped", "count", len(reaped))
	}
}
