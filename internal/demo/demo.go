package demo

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
)

// Type partitions broadcast scope: connections of the same demo type can be
// addressed together for shared dashboard views.
type Type string

const (
	TypePaymentProcessing    Type = "payment-processing"
	TypeDataPipeline         Type = "data-pipeline"
	TypeSalesDashboard       Type = "sales-dashboard"
	TypeCollectionsDashboard Type = "collections-dashboard"
)

// Types lists all supported demo types.
func Types() []Type {
	return []Type{
		TypePaymentProcessing,
		TypeDataPipeline,
		TypeSalesDashboard,
		TypeCollectionsDashboard,
	}
}

// ParseType validates a demo type string from the HTTP layer.
func ParseType(s string) (Type, error) {
	for _, t := range Types() {
		if s == string(t) {
			return t, nil
		}
	}
	return "", apperrors.ValidationError("unknown demo type").WithContext("demo_type", s)
}

// Session is one demo instance for one visitor. Sessions are process-memory
// only and vanish on restart.
type Session struct {
	ID           uuid.UUID
	Type         Type
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// Snapshot is one unit of synthesized demo data pushed on a scheduled tick.
// Seq is strictly increasing within a session; gaps are expected under the
// drop-oldest overflow policy, duplicates never are.
type Snapshot struct {
	SessionID uuid.UUID `json:"session_id"`
	DemoType  Type      `json:"demo_type"`
	Seq       uint64    `json:"seq"`
	Kind      string    `json:"kind"`
	SentAt    time.Time `json:"sent_at"`
	Data      any       `json:"data"`
}

// Config is the externally supplied tuning surface of the demo engine.
type Config struct {
	MaxSessions        int
	SessionTTL         time.Duration
	MaxConnections     int
	MaxConnsPerSession int
	TickInterval       time.Duration
	ReaperInterval     time.Duration
}

// EvictReason records why a session was removed.
type EvictReason string

const (
	EvictLRU      EvictReason = "lru"
	EvictTTL      EvictReason = "ttl"
	EvictIdle     EvictReason = "idle"
	EvictExplicit EvictReason = "explicit"
)
