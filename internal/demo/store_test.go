package demo

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
)

func newTestStore(t *testing.T, clock clockwork.Clock, maxSessions int, onEvict func(Session, EvictReason)) *Store {
	t.Helper()
	return NewStore(clock, maxSessions, time.Hour, onEvict)
}

func TestStore_AttachCreatesSession(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newTestStore(t, clock, 10, nil)

	session, err := store.Attach(uuid.Nil, TypeSalesDashboard)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Equal(t, TypeSalesDashboard, session.Type)
	assert.Equal(t, clock.Now(), session.CreatedAt)
	assert.Equal(t, 1, store.Len())
}

func TestStore_AttachExistingRefreshesActivity(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newTestStore(t, clock, 10, nil)

	created, err := store.Attach(uuid.Nil, TypeDataPipeline)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)

	attached, err := store.Attach(created.ID, TypeDataPipeline)
	require.NoError(t, err)

	assert.Equal(t, created.ID, attached.ID)
	assert.Equal(t, clock.Now(), attached.LastActiveAt)
	assert.Equal(t, 1, store.Len())
}

func TestStore_AttachWithForeignTypeCreatesNewSession(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newTestStore(t, clock, 10, nil)

	created, err := store.Attach(uuid.Nil, TypeDataPipeline)
	require.NoError(t, err)

	attached, err := store.Attach(created.ID, TypeSalesDashboard)
	require.NoError(t, err)

	assert.NotEqual(t, created.ID, attached.ID)
	assert.Equal(t, 2, store.Len())
}

func TestStore_CapNeverExceeded(t *testing.T) {
	const maxSessions = 5
	clock := clockwork.NewFakeClock()
	store := newTestStore(t, clock, maxSessions, nil)

	for range 20 {
		_, err := store.Attach(uuid.Nil, TypeSalesDashboard)
		require.NoError(t, err)
		assert.LessOrEqual(t, store.Len(), maxSessions)
		clock.Advance(time.Second)
	}

	assert.Equal(t, maxSessions, store.Len())
}

func TestStore_LRUEvictionPicksLeastRecentlyActive(t *testing.T) {
	clock := clockwork.NewFakeClock()

	var evicted []Session
	store := newTestStore(t, clock, 3, func(s Session, reason EvictReason) {
		assert.Equal(t, EvictLRU, reason)
		evicted = append(evicted, s)
	})

	first, err := store.Attach(uuid.Nil, TypeSalesDashboard)
	require.NoError(t, err)
	clock.Advance(time.Second)
	second, err := store.Attach(uuid.Nil, TypeSalesDashboard)
	require.NoError(t, err)
	clock.Advance(time.Second)
	third, err := store.Attach(uuid.Nil, TypeSalesDashboard)
	require.NoError(t, err)

	// Touch the oldest so the second session becomes the LRU victim.
	clock.Advance(time.Second)
	store.Touch(first.ID)

	clock.Advance(time.Second)
	_, err = store.Attach(uuid.Nil, TypeSalesDashboard)
	require.NoError(t, err)

	require.Len(t, evicted, 1)
	assert.Equal(t, second.ID, evicted[0].ID)

	_, err = store.Get(first.ID)
	assert.NoError(t, err)
	_, err = store.Get(third.ID)
	assert.NoError(t, err)
	_, err = store.Get(second.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStore_LRUEvictionTieBrokenByCreationTime(t *testing.T) {
	clock := clockwork.NewFakeClock()

	var evicted []Session
	store := newTestStore(t, clock, 2, func(s Session, _ EvictReason) {
		evicted = append(evicted, s)
	})

	oldest, err := store.Attach(uuid.Nil, TypeSalesDashboard)
	require.NoError(t, err)
	clock.Advance(time.Second)
	newer, err := store.Attach(uuid.Nil, TypeSalesDashboard)
	require.NoError(t, err)

	// Give both the same last-activity timestamp.
	clock.Advance(time.Second)
	store.Touch(oldest.ID)
	store.Touch(newer.ID)

	clock.Advance(time.Second)
	_, err = store.Attach(uuid.Nil, TypeSalesDashboard)
	require.NoError(t, err)

	require.Len(t, evicted, 1)
	assert.Equal(t, oldest.ID, evicted[0].ID)
}

func TestStore_GetUnknownReturnsNotFound(t *testing.T) {
	store := newTestStore(t, clockwork.NewFakeClock(), 10, nil)

	_, err := store.Get(uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStore_TouchUnknownIsNoop(t *testing.T) {
	store := newTestStore(t, clockwork.NewFakeClock(), 10, nil)

	assert.NotPanics(t, func() { store.Touch(uuid.New()) })
	assert.Equal(t, 0, store.Len())
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()

	calls := 0
	store := newTestStore(t, clock, 10, func(Session, EvictReason) { calls++ })

	session, err := store.Attach(uuid.Nil, TypeCollectionsDashboard)
	require.NoError(t, err)

	store.Delete(session.ID, EvictExplicit)
	store.Delete(session.ID, EvictExplicit)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, store.Len())
}

func TestStore_ReapRemovesExpiredSessions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newTestStore(t, clock, 10, nil)

	expired, err := store.Attach(uuid.Nil, TypeSalesDashboard)
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	fresh, err := store.Attach(uuid.Nil, TypeSalesDashboard)
	require.NoError(t, err)

	clock.Advance(45 * time.Minute)
	reaped := store.Reap()

	require.Len(t, reaped, 1)
	assert.Equal(t, expired.ID, reaped[0].ID)

	_, err = store.Get(expired.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestStore_ReapRemovesIdleFlaggedSessions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newTestStore(t, clock, 10, nil)

	idle, err := store.Attach(uuid.Nil, TypePaymentProcessing)
	require.NoError(t, err)
	busy, err := store.Attach(uuid.Nil, TypePaymentProcessing)
	require.NoError(t, err)

	store.MarkIdle(idle.ID)
	reaped := store.Reap()

	require.Len(t, reaped, 1)
	assert.Equal(t, idle.ID, reaped[0].ID)
	_, err = store.Get(busy.ID)
	assert.NoError(t, err)
}

func TestStore_TouchClearsIdleFlag(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newTestStore(t, clock, 10, nil)

	session, err := store.Attach(uuid.Nil, TypePaymentProcessing)
	require.NoError(t, err)

	store.MarkIdle(session.ID)
	store.Touch(session.ID)

	assert.Empty(t, store.Reap())
	_, err = store.Get(session.ID)
	assert.NoError(t, err)
}

func TestStore_ConcurrentAttachRespectsCap(t *testing.T) {
	const maxSessions = 8
	store := newTestStore(t, clockwork.NewRealClock(), maxSessions, nil)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Attach(uuid.Nil, TypeSalesDashboard)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, maxSessions, store.Len())
}
