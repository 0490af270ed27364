package demo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeSeqs(t *testing.T, payloads [][]byte) []uint64 {
	t.Helper()
	seqs := make([]uint64, 0, len(payloads))
	for _, p := range payloads {
		var snap Snapshot
		require.NoError(t, json.Unmarshal(p, &snap))
		seqs = append(seqs, snap.Seq)
	}
	return seqs
}

func TestRouter_SendToSessionReachesEveryConnection(t *testing.T) {
	sessions := newStubSessions()
	registry := NewRegistry(clockwork.NewRealClock(), sessions, 10, 5)
	defer registry.CloseAll()
	router := NewRouter(registry)

	session := sessions.add(TypeSalesDashboard)
	transports := []*recordingTransport{{}, {}, {}}
	for _, tr := range transports {
		_, err := registry.Register(session.ID, tr)
		require.NoError(t, err)
	}

	router.SendToSession(session.ID, Snapshot{SessionID: session.ID, DemoType: session.Type, Seq: 1, Kind: "metrics"})

	for _, tr := range transports {
		assert.Eventually(t, func() bool {
			return len(tr.received()) == 1
		}, 2*time.Second, 10*time.Millisecond)
	}
}

func TestRouter_UnknownSessionIsNoop(t *testing.T) {
	registry := NewRegistry(clockwork.NewRealClock(), newStubSessions(), 10, 5)
	router := NewRouter(registry)

	assert.NotPanics(t, func() {
		router.SendToSession(uuid.New(), Snapshot{Seq: 1})
	})
}

func TestRouter_StalledConnectionDoesNotDelaySiblings(t *testing.T) {
	sessions := newStubSessions()
	registry := NewRegistry(clockwork.NewRealClock(), sessions, 10, 5)
	defer registry.CloseAll()
	router := NewRouter(registry)

	session := sessions.add(TypeDataPipeline)

	release := make(chan struct{})
	stalled := &recordingTransport{block: release}
	healthy := &recordingTransport{}

	stalledConn, err := registry.Register(session.ID, stalled)
	require.NoError(t, err)
	_, err = registry.Register(session.ID, healthy)
	require.NoError(t, err)

	const total = 40
	start := time.Now()
	for i := 1; i <= total; i++ {
		router.SendToSession(session.ID, Snapshot{SessionID: session.ID, DemoType: session.Type, Seq: uint64(i)})
	}
	assert.Less(t, time.Since(start), time.Second, "broadcast must never block on a stalled receiver")

	// The healthy sibling gets the full stream.
	assert.Eventually(t, func() bool {
		return len(healthy.received()) == total
	}, 2*time.Second, 10*time.Millisecond)
	healthySeqs := decodeSeqs(t, healthy.received())
	for i, seq := range healthySeqs {
		assert.Equal(t, uint64(i+1), seq)
	}

	// The stalled connection overflowed its buffer and was flagged degraded.
	assert.True(t, stalledConn.Degraded())

	// Once it drains again it sees a gappy but strictly increasing stream
	// ending with recent messages.
	close(release)
	assert.Eventually(t, func() bool {
		seqs := decodeSeqs(t, stalled.received())
		return len(seqs) > 0 && seqs[len(seqs)-1] >= uint64(total-1)
	}, 2*time.Second, 10*time.Millisecond)

	seqs := decodeSeqs(t, stalled.received())
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1], "delivery order must stay strictly increasing")
	}
	assert.Less(t, len(seqs), total, "some messages must have been dropped")
}

func TestConn_EnqueueDropsOldestFirst(t *testing.T) {
	conn := newConn(uuid.New(), TypeSalesDashboard, &recordingTransport{}, clockwork.NewRealClock())
	// Pump not started: everything stays buffered.

	for i := 1; i <= messageBufferSize+4; i++ {
		payload, err := json.Marshal(Snapshot{Seq: uint64(i)})
		require.NoError(t, err)
		conn.enqueue(payload)
	}

	assert.True(t, conn.Degraded())

	var buffered [][]byte
drain:
	for {
		select {
		case msg := <-conn.out:
			buffered = append(buffered, msg)
		default:
			break drain
		}
	}

	seqs := decodeSeqs(t, buffered)
	require.Len(t, seqs, messageBufferSize)
	// The oldest four were discarded; the newest survive in order.
	assert.Equal(t, uint64(5), seqs[0])
	assert.Equal(t, uint64(messageBufferSize+4), seqs[len(seqs)-1])
}
