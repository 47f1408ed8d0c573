// Package outbox implements the snapshot push to the remote backend as a
// durable outbox. Every locally meaningful mutation appends a full-table
// snapshot to a pending-operations log; a background worker delivers each
// entry with retries and an idempotency key. Local state stays authoritative
// regardless of delivery outcome.
package outbox

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint/internal/store"
)

// IdempotencyHeader carries the entry identifier so the receiver can drop
// replays after a partial failure.
const IdempotencyHeader = "X-Idempotency-Key"

// TaskEnqueuer schedules delivery of an outbox entry on the background queue.
type TaskEnqueuer interface {
	EnqueueSyncDeliver(ctx context.Context, entryID string) error
}

// ErrEntryNotFound indicates the outbox row does not exist.
var ErrEntryNotFound = errors.New("outbox: entry not found")

// Payload is the wire format of one snapshot push. It always carries the
// whole products and sales tables, never a diff.
type Payload struct {
	Products  store.Table `json:"products"`
	Sales     store.Table `json:"sales"`
	Timestamp int64       `json:"timestamp"`
}

// Outbox persists pending snapshot pushes and delivers them.
type Outbox struct {
	conn    *sql.DB
	store   *store.Store
	tasks   TaskEnqueuer
	syncURL string
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// New builds Outbox. tasks may be nil; entries then stay pending until a
// sweep re-enqueues them.
func New(conn *sql.DB, st *store.Store, tasks TaskEnqueuer, syncURL string, logger *slog.Logger) *Outbox {
	return &Outbox{
		conn:    conn,
		store:   st,
		tasks:   tasks,
		syncURL: syncURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		now:     time.Now,
	}
}

// Init creates the outbox table when missing.
func (o *Outbox) Init(ctx context.Context) error {
	// Entry ids are UUIDs generated at append time; no key constraint needed.
	_, err := o.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS outbox (
		id TEXT,
		payload TEXT,
		attempts INTEGER,
		created_at INTEGER,
		delivered_at INTEGER
	)`)
	if err != nil {
		return fmt.Errorf("outbox: init schema: %w", err)
	}
	return nil
}

// Snapshot builds the current push payload from the live tables.
func (o *Outbox) Snapshot() (Payload, error) {
	products, err := o.store.Snapshot(store.TableProducts)
	if err != nil {
		return Payload{}, err
	}
	salesRows, err := o.store.Snapshot(store.TableSales)
	if err != nil {
		return Payload{}, err
	}
	return Payload{
		Products:  products,
		Sales:     salesRows,
		Timestamp: o.now().UnixMilli(),
	}, nil
}

// Enqueue appends the current snapshot to the log and schedules its
// delivery. The entry survives a crash; scheduling failure leaves it pending
// for the sweep.
func (o *Outbox) Enqueue(ctx context.Context) error {
	payload, err := o.Snapshot()
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal payload: %w", err)
	}
	id := uuid.NewString()
	_, err = o.conn.ExecContext(ctx,
		`INSERT INTO outbox (id, payload, attempts, created_at) VALUES (?, ?, 0, ?)`,
		id, string(body), o.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("outbox: append entry: %w", err)
	}
	if o.tasks == nil {
		return nil
	}
	if err := o.tasks.EnqueueSyncDeliver(ctx, id); err != nil {
		if o.logger != nil {
			o.logger.Warn("enqueue sync delivery", slog.String("entry", id), slog.Any("error", err))
		}
	}
	return nil
}

// Deliver posts one entry to the sync endpoint. Already-delivered and
// missing entries are skipped so redelivery is harmless; any other failure
// returns an error for the queue to retry with backoff.
func (o *Outbox) Deliver(ctx context.Context, entryID string) error {
	var (
		payload   string
		delivered sql.NullInt64
	)
	err := o.conn.QueryRowContext(ctx,
		`SELECT payload, delivered_at FROM outbox WHERE id = ?`, entryID).
		Scan(&payload, &delivered)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("outbox: read entry %s: %w", entryID, err)
	}
	if delivered.Valid {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.syncURL, bytes.NewReader([]byte(payload)))
	if err != nil {
		return fmt.Errorf("outbox: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyHeader, entryID)

	resp, err := o.client.Do(req)
	if err != nil {
		o.bumpAttempts(ctx, entryID)
		return fmt.Errorf("outbox: push entry %s: %w", entryID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.bumpAttempts(ctx, entryID)
		return fmt.Errorf("outbox: push entry %s: unexpected status %d", entryID, resp.StatusCode)
	}

	_, err = o.conn.ExecContext(ctx,
		`UPDATE outbox SET delivered_at = ? WHERE id = ?`, o.now().UnixMilli(), entryID)
	if err != nil {
		return fmt.Errorf("outbox: mark delivered %s: %w", entryID, err)
	}
	return nil
}

func (o *Outbox) bumpAttempts(ctx context.Context, entryID string) {
	if _, err := o.conn.ExecContext(ctx,
		`UPDATE outbox SET attempts = attempts + 1 WHERE id = ?`, entryID); err != nil && o.logger != nil {
		o.logger.Warn("bump attempts", slog.String("entry", entryID), slog.Any("error", err))
	}
}

// PendingIDs lists undelivered entries oldest first.
func (o *Outbox) PendingIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := o.conn.QueryContext(ctx,
		`SELECT id FROM outbox WHERE delivered_at IS NULL ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: list pending: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PendingCount returns how many entries await delivery.
func (o *Outbox) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := o.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox WHERE delivered_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("outbox: count pending: %w", err)
	}
	return count, nil
}

// Sweep re-enqueues pending entries whose original scheduling was lost, e.g.
// when the queue was unreachable at mutation time.
func (o *Outbox) Sweep(ctx context.Context) error {
	if o.tasks == nil {
		return nil
	}
	ids, err := o.PendingIDs(ctx, 100)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := o.tasks.EnqueueSyncDeliver(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Prune removes delivered entries older than the retention window.
func (o *Outbox) Prune(ctx context.Context, olderThan time.Duration) error {
	cutoff := o.now().Add(-olderThan).UnixMilli()
	_, err := o.conn.ExecContext(ctx,
		`DELETE FROM outbox WHERE delivered_at IS NOT NULL AND delivered_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("outbox: prune: %w", err)
	}
	return nil
}
