package outbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/platform/db"
	"github.com/tillpoint/tillpoint/internal/store"
	_ "github.com/tillpoint/tillpoint/testing"
)

type fakeEnqueuer struct {
	mu      sync.Mutex
	entries []string
	fail    bool
}

func (f *fakeEnqueuer) EnqueueSyncDeliver(ctx context.Context, entryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return context.DeadlineExceeded
	}
	f.entries = append(f.entries, entryID)
	return nil
}

func newTestOutbox(t *testing.T, tasks TaskEnqueuer, syncURL string) (*Outbox, *store.Store) {
	t.Helper()
	conn, err := db.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	st := store.New(store.TableProducts, store.TableSales)
	box := New(conn, st, tasks, syncURL, nil)
	require.NoError(t, box.Init(context.Background()))
	return box, st
}

func seedTables(t *testing.T, st *store.Store) {
	t.Helper()
	require.NoError(t, st.SetRow(store.TableProducts, "p1", store.Row{
		"description": "Widget",
		"price":       float64(10),
		"quantity":    float64(97),
	}))
	require.NoError(t, st.SetRow(store.TableSales, "s1", store.Row{
		"productId": "p1",
		"quantity":  float64(3),
		"timestamp": int64(1700000000000),
	}))
}

func TestSnapshotCarriesFullTables(t *testing.T) {
	box, st := newTestOutbox(t, nil, "")
	seedTables(t, st)

	payload, err := box.Snapshot()
	require.NoError(t, err)
	require.Len(t, payload.Products, 1)
	require.Len(t, payload.Sales, 1)
	require.NotZero(t, payload.Timestamp)
	require.Equal(t, "Widget", payload.Products["p1"]["description"])
}

func TestConsecutiveSnapshotsIdenticalExceptTimestamp(t *testing.T) {
	box, st := newTestOutbox(t, nil, "")
	seedTables(t, st)

	first, err := box.Snapshot()
	require.NoError(t, err)
	second, err := box.Snapshot()
	require.NoError(t, err)

	first.Timestamp = 0
	second.Timestamp = 0
	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestEnqueueAppendsAndSchedules(t *testing.T) {
	tasks := &fakeEnqueuer{}
	box, st := newTestOutbox(t, tasks, "")
	seedTables(t, st)
	ctx := context.Background()

	require.NoError(t, box.Enqueue(ctx))
	require.NoError(t, box.Enqueue(ctx))

	count, err := box.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Len(t, tasks.entries, 2)
}

func TestEnqueueSurvivesSchedulingFailure(t *testing.T) {
	tasks := &fakeEnqueuer{fail: true}
	box, st := newTestOutbox(t, tasks, "")
	seedTables(t, st)
	ctx := context.Background()

	require.NoError(t, box.Enqueue(ctx), "a lost schedule leaves the entry pending, not lost")

	count, err := box.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestDeliverPostsPayloadWithIdempotencyKey(t *testing.T) {
	var (
		mu       sync.Mutex
		bodies   []Payload
		keys     []string
		requests int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		requests++
		keys = append(keys, r.Header.Get(IdempotencyHeader))
		var p Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		bodies = append(bodies, p)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	box, st := newTestOutbox(t, nil, server.URL)
	seedTables(t, st)
	ctx := context.Background()
	require.NoError(t, box.Enqueue(ctx))

	ids, err := box.PendingIDs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.NoError(t, box.Deliver(ctx, ids[0]))

	require.Equal(t, 1, requests)
	require.Equal(t, ids[0], keys[0])
	require.Len(t, bodies[0].Products, 1)
	require.Len(t, bodies[0].Sales, 1)

	// Redelivery of an already-delivered entry is a no-op.
	require.NoError(t, box.Deliver(ctx, ids[0]))
	require.Equal(t, 1, requests)

	count, err := box.PendingCount(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestDeliverMissingEntryIsNoop(t *testing.T) {
	box, _ := newTestOutbox(t, nil, "http://127.0.0.1:0")
	require.NoError(t, box.Deliver(context.Background(), "never-existed"))
}

func TestDeliverFailureStaysPending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	box, st := newTestOutbox(t, nil, server.URL)
	seedTables(t, st)
	ctx := context.Background()
	require.NoError(t, box.Enqueue(ctx))

	ids, err := box.PendingIDs(ctx, 10)
	require.NoError(t, err)
	require.Error(t, box.Deliver(ctx, ids[0]))
	require.Error(t, box.Deliver(ctx, ids[0]))

	count, err := box.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	var attempts int
	require.NoError(t, box.conn.QueryRowContext(ctx,
		`SELECT attempts FROM outbox WHERE id = ?`, ids[0]).Scan(&attempts))
	require.Equal(t, 2, attempts)
}

func TestSweepReenqueuesPending(t *testing.T) {
	tasks := &fakeEnqueuer{fail: true}
	box, st := newTestOutbox(t, tasks, "")
	seedTables(t, st)
	ctx := context.Background()

	require.NoError(t, box.Enqueue(ctx))
	require.NoError(t, box.Enqueue(ctx))
	require.Empty(t, tasks.entries)

	tasks.fail = false
	require.NoError(t, box.Sweep(ctx))
	require.Len(t, tasks.entries, 2)
}

func TestPruneRemovesOldDelivered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	box, st := newTestOutbox(t, nil, server.URL)
	seedTables(t, st)
	ctx := context.Background()

	past := time.Now().Add(-48 * time.Hour)
	box.now = func() time.Time { return past }
	require.NoError(t, box.Enqueue(ctx))
	ids, err := box.PendingIDs(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, box.Deliver(ctx, ids[0]))

	box.now = time.Now
	require.NoError(t, box.Prune(ctx, 24*time.Hour))

	var remaining int
	require.NoError(t, box.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox`).Scan(&remaining))
	require.Zero(t, remaining)
}
