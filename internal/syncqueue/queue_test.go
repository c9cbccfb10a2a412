package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcadams/tcg-tracker/internal/models"
)

const waitFor = 2 * time.Second

// memStore is an in-memory Store for queue tests.
type memStore struct {
	mu  sync.Mutex
	ops []*models.SyncOperation
}

func (s *memStore) Append(_ context.Context, op *models.SyncOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *op
	s.ops = append(s.ops, &copied)
	return nil
}

func (s *memStore) Pending(context.Context) ([]*models.SyncOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.SyncOperation, 0, len(s.ops))
	for _, op := range s.ops {
		copied := *op
		out = append(out, &copied)
	}
	return out, nil
}

func (s *memStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, op := range s.ops {
		if op.ID == id {
			s.ops = append(s.ops[:i], s.ops[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memStore) UpdateRetries(_ context.Context, id string, retries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range s.ops {
		if op.ID == id {
			op.Retries = retries
		}
	}
	return nil
}

func (s *memStore) snapshot() []*models.SyncOperation {
	ops, _ := s.Pending(context.Background())
	return ops
}

type remoteCall struct {
	table models.Table
	id    string
	row   map[string]any
}

// fakeRemote records calls and fails the first failN attempts.
type fakeRemote struct {
	mu      sync.Mutex
	failN   int
	calls   int
	upserts []remoteCall
	deletes []remoteCall
}

func (r *fakeRemote) Upsert(_ context.Context, table models.Table, row map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.failN {
		return errors.New("remote unavailable")
	}
	r.upserts = append(r.upserts, remoteCall{table: table, row: row})
	return nil
}

func (r *fakeRemote) Delete(_ context.Context, table models.Table, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.failN {
		return errors.New("remote unavailable")
	}
	r.deletes = append(r.deletes, remoteCall{table: table, id: id})
	return nil
}

func (r *fakeRemote) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *fakeRemote) upsertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.upserts)
}

// fakeClock returns immediately from Sleep and records the requested delays.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) recordedSleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type staticNet bool

func (n staticNet) Online() bool { return bool(n) }

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testOp(entityID string, kind models.OperationKind) *models.SyncOperation {
	payload, _ := json.Marshal(map[string]any{"id": entityID, "name": "FNM"})
	return &models.SyncOperation{
		EntityID: entityID,
		Kind:     kind,
		Table:    models.TableEvents,
		Payload:  payload,
	}
}

func newTestService(t *testing.T, store Store, remote Remote, online bool) (*Service, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	svc, err := New(store, remote, staticNet(online), clock, DefaultConfig(), quietLogger())
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, clock
}

func TestEnqueueDrains(t *testing.T) {
	store := &memStore{}
	remote := &fakeRemote{}
	svc, _ := newTestService(t, store, remote, true)

	require.NoError(t, svc.Enqueue(context.Background(), testOp("event-1", models.OpCreate)))

	require.Eventually(t, func() bool {
		return svc.Status().Pending == 0 && remote.upsertCount() == 1
	}, waitFor, 5*time.Millisecond)

	assert.Empty(t, store.snapshot(), "durable log should be empty after drain")

	remote.mu.Lock()
	defer remote.mu.Unlock()
	require.Len(t, remote.upserts, 1)
	assert.Equal(t, models.TableEvents, remote.upserts[0].table)
	assert.Equal(t, "event-1", remote.upserts[0].row["id"])
}

func TestEnqueuePersistsBeforeReturn(t *testing.T) {
	store := &memStore{}
	svc, _ := newTestService(t, store, &fakeRemote{}, false)

	require.NoError(t, svc.Enqueue(context.Background(), testOp("event-1", models.OpCreate)))

	ops := store.snapshot()
	require.Len(t, ops, 1, "operation must be durable when Enqueue returns")
	assert.NotEmpty(t, ops[0].ID)
	assert.Equal(t, "event-1", ops[0].EntityID)
	assert.Zero(t, ops[0].Retries)
}

func TestEnqueueRejectsIncomplete(t *testing.T) {
	svc, _ := newTestService(t, &memStore{}, &fakeRemote{}, false)

	err := svc.Enqueue(context.Background(), &models.SyncOperation{Kind: models.OpCreate})
	require.Error(t, err)
}

func TestEnqueueDedupesPending(t *testing.T) {
	store := &memStore{}
	svc, _ := newTestService(t, store, &fakeRemote{}, false)
	ctx := context.Background()

	require.NoError(t, svc.Enqueue(ctx, testOp("event-1", models.OpUpdate)))
	require.NoError(t, svc.Enqueue(ctx, testOp("event-1", models.OpUpdate)))
	require.NoError(t, svc.Enqueue(ctx, testOp("event-1", models.OpDelete)))
	require.NoError(t, svc.Enqueue(ctx, testOp("event-2", models.OpUpdate)))

	assert.Equal(t, 3, svc.Status().Pending, "same entity and kind collapses, others do not")
	assert.Len(t, store.snapshot(), 3)
}

func TestRetryThenSucceed(t *testing.T) {
	store := &memStore{}
	remote := &fakeRemote{failN: 2}
	svc, clock := newTestService(t, store, remote, true)

	require.NoError(t, svc.Enqueue(context.Background(), testOp("event-1", models.OpCreate)))

	require.Eventually(t, func() bool {
		return svc.Status().Pending == 0 && remote.upsertCount() == 1
	}, waitFor, 5*time.Millisecond)

	assert.Equal(t, 3, remote.callCount(), "two failures then one success")
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, clock.recordedSleeps())
}

func TestDropAfterMaxRetries(t *testing.T) {
	store := &memStore{}
	remote := &fakeRemote{failN: 100}
	svc, clock := newTestService(t, store, remote, true)

	require.NoError(t, svc.Enqueue(context.Background(), testOp("event-1", models.OpCreate)))

	require.Eventually(t, func() bool {
		return svc.Status().Pending == 0
	}, waitFor, 5*time.Millisecond)

	assert.Equal(t, 5, remote.callCount(), "dropped after the fifth failure")
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	}, clock.recordedSleeps())
	assert.Empty(t, store.snapshot(), "dropped operation leaves the durable log")
}

func TestBackoffCap(t *testing.T) {
	svc := &Service{cfg: &Config{
		MaxRetries:     10,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     5 * time.Second,
	}}

	assert.Equal(t, 1*time.Second, svc.backoff(1))
	assert.Equal(t, 2*time.Second, svc.backoff(2))
	assert.Equal(t, 4*time.Second, svc.backoff(3))
	assert.Equal(t, 5*time.Second, svc.backoff(4))
	assert.Equal(t, 5*time.Second, svc.backoff(9))
}

func TestHeadBlocksQueue(t *testing.T) {
	store := &memStore{}
	remote := &fakeRemote{failN: 2}
	svc, _ := newTestService(t, store, remote, false)
	ctx := context.Background()

	require.NoError(t, svc.Enqueue(ctx, testOp("event-1", models.OpCreate)))
	require.NoError(t, svc.Enqueue(ctx, testOp("event-2", models.OpCreate)))
	svc.SetOnline(true)

	require.Eventually(t, func() bool {
		return svc.Status().Pending == 0
	}, waitFor, 5*time.Millisecond)

	remote.mu.Lock()
	defer remote.mu.Unlock()
	require.Len(t, remote.upserts, 2)
	assert.Equal(t, "event-1", remote.upserts[0].row["id"], "head must complete before the next entry")
	assert.Equal(t, "event-2", remote.upserts[1].row["id"])
}

func TestOfflineHoldsQueue(t *testing.T) {
	store := &memStore{}
	remote := &fakeRemote{}
	svc, _ := newTestService(t, store, remote, false)

	require.NoError(t, svc.Enqueue(context.Background(), testOp("event-1", models.OpCreate)))

	// Nothing should reach the remote while offline.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, remote.callCount())
	assert.Equal(t, 1, svc.Status().Pending)

	svc.SetOnline(true)
	require.Eventually(t, func() bool {
		return svc.Status().Pending == 0 && remote.upsertCount() == 1
	}, waitFor, 5*time.Millisecond)
}

func TestReconnectWithEmptyQueueThenEnqueue(t *testing.T) {
	store := &memStore{}
	remote := &fakeRemote{}
	svc, _ := newTestService(t, store, remote, true)

	// Drop offline and come back with nothing pending; the reconnect alone
	// must leave the queue drainable.
	svc.SetOnline(false)
	svc.SetOnline(true)

	status := svc.Status()
	assert.False(t, status.Paused, "reconnect must clear the offline pause")
	assert.True(t, status.Online)

	require.NoError(t, svc.Enqueue(context.Background(), testOp("event-1", models.OpCreate)))

	require.Eventually(t, func() bool {
		return svc.Status().Pending == 0 && remote.upsertCount() == 1
	}, waitFor, 5*time.Millisecond)
}

func TestPauseAndResume(t *testing.T) {
	store := &memStore{}
	remote := &fakeRemote{}
	svc, _ := newTestService(t, store, remote, true)

	svc.Pause()
	require.NoError(t, svc.Enqueue(context.Background(), testOp("event-1", models.OpCreate)))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, remote.callCount())

	svc.Resume()
	require.Eventually(t, func() bool {
		return svc.Status().Pending == 0
	}, waitFor, 5*time.Millisecond)
}

func TestRecoversPersistedQueue(t *testing.T) {
	store := &memStore{}
	seed := testOp("event-9", models.OpCreate)
	seed.ID = "op-1"
	seed.EnqueuedAt = time.Now().UTC()
	require.NoError(t, store.Append(context.Background(), seed))

	remote := &fakeRemote{}
	svc, _ := newTestService(t, store, remote, true)
	_ = svc

	require.Eventually(t, func() bool {
		return remote.upsertCount() == 1
	}, waitFor, 5*time.Millisecond)
}

func TestDeleteOperation(t *testing.T) {
	store := &memStore{}
	remote := &fakeRemote{}
	svc, _ := newTestService(t, store, remote, true)

	require.NoError(t, svc.Enqueue(context.Background(), testOp("event-1", models.OpDelete)))

	require.Eventually(t, func() bool {
		return svc.Status().Pending == 0
	}, waitFor, 5*time.Millisecond)

	remote.mu.Lock()
	defer remote.mu.Unlock()
	require.Len(t, remote.deletes, 1)
	assert.Equal(t, "event-1", remote.deletes[0].id)
	assert.Equal(t, models.TableEvents, remote.deletes[0].table)
}

func TestReseedOrder(t *testing.T) {
	store := &memStore{}
	svc, _ := newTestService(t, store, &fakeRemote{}, true)
	svc.Pause()

	decks := []*models.Deck{{ID: "deck-1", Title: "Burn", Game: models.GameMagic}}
	events := []*models.Event{{ID: "event-1", Name: "FNM", Game: models.GameMagic}}
	matches := []*models.Match{{ID: "match-1", EventID: "event-1", Result: models.ResultWin}}

	require.NoError(t, svc.Reseed(context.Background(), decks, events, matches))

	ops := store.snapshot()
	require.Len(t, ops, 3)
	assert.Equal(t, models.TableDecks, ops[0].Table, "decks go before anything referencing them")
	assert.Equal(t, models.TableEvents, ops[1].Table)
	assert.Equal(t, models.TableMatches, ops[2].Table, "matches go last")
	for _, op := range ops {
		assert.Equal(t, models.OpCreate, op.Kind)
	}
}

func TestStatusSnapshot(t *testing.T) {
	svc, _ := newTestService(t, &memStore{}, &fakeRemote{}, false)
	svc.Pause()

	require.NoError(t, svc.Enqueue(context.Background(), testOp("event-1", models.OpCreate)))

	status := svc.Status()
	assert.Equal(t, 1, status.Pending)
	assert.True(t, status.Paused)
	assert.False(t, status.Online)
	assert.False(t, status.Processing)
}
