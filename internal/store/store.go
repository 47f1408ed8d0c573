// Package store implements the in-memory reactive table store backing the
// point-of-sale engine. It holds named tables mapping string identifiers to
// rows of scalar fields and notifies subscribers with immutable snapshots
// whenever a commit touches their table.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Table names used across the application.
const (
	TableProducts = "products"
	TableSales    = "sales"
)

// ErrUnknownTable indicates an operation referenced a table the store does
// not hold.
var ErrUnknownTable = errors.New("store: unknown table")

// Row maps field names to scalar values.
type Row map[string]any

// Table maps row identifiers to rows.
type Table map[string]Row

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for id, row := range t {
		out[id] = row.Clone()
	}
	return out
}

// IDs returns the row identifiers in sorted order.
func (t Table) IDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Subscriber receives the full snapshot of a table after a commit changed it.
type Subscriber func(table string, snapshot Table)

// CommitHook observes every commit with snapshots of all touched tables.
// Hooks run before per-table subscribers so persistence sees the commit as a
// single unit.
type CommitHook func(touched map[string]Table)

// Store is the reactive table registry. All mutations go through a commit,
// and every commit delivers fresh snapshots to hooks and subscribers
// synchronously.
type Store struct {
	mu     sync.RWMutex
	tables map[string]Table

	subMu   sync.Mutex
	subs    map[string]map[int]Subscriber
	hooks   map[int]CommitHook
	nextSub int
}

// New constructs a Store holding the given tables.
func New(tables ...string) *Store {
	s := &Store{
		tables: make(map[string]Table, len(tables)),
		subs:   make(map[string]map[int]Subscriber),
		hooks:  make(map[int]CommitHook),
	}
	for _, name := range tables {
		s.tables[name] = make(Table)
	}
	return s
}

// Subscribe registers fn for snapshots of table. The returned function
// removes the subscription.
func (s *Store) Subscribe(table string, fn Subscriber) (func(), error) {
	s.mu.RLock()
	_, ok := s.tables[table]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	if s.subs[table] == nil {
		s.subs[table] = make(map[int]Subscriber)
	}
	s.subs[table][id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs[table], id)
	}, nil
}

// OnCommit registers a hook observing every commit. The returned function
// removes the hook.
func (s *Store) OnCommit(fn CommitHook) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.hooks[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.hooks, id)
	}
}

// Tx stages mutations for an atomic commit. Operations apply in order; the
// commit is all-or-nothing with respect to observers.
type Tx struct {
	store *Store
	ops   []op
	err   error
}

type opKind int

const (
	opSetRow opKind = iota
	opSetCell
	opDelRow
)

type op struct {
	kind  opKind
	table string
	id    string
	row   Row
	field string
	value any
}

func (tx *Tx) check(table string) bool {
	if tx.err != nil {
		return false
	}
	if _, ok := tx.store.tables[table]; !ok {
		tx.err = fmt.Errorf("%w: %s", ErrUnknownTable, table)
		return false
	}
	return true
}

// SetRow stages a wholesale row replacement. The row ends up exactly fields,
// with no merge against prior state.
func (tx *Tx) SetRow(table, id string, fields Row) {
	if !tx.check(table) {
		return
	}
	tx.ops = append(tx.ops, op{kind: opSetRow, table: table, id: id, row: fields.Clone()})
}

// SetCell stages a single-field update, implicitly creating the row.
func (tx *Tx) SetCell(table, id, field string, value any) {
	if !tx.check(table) {
		return
	}
	tx.ops = append(tx.ops, op{kind: opSetCell, table: table, id: id, field: field, value: value})
}

// DelRow stages removal of the row.
func (tx *Tx) DelRow(table, id string) {
	if !tx.check(table) {
		return
	}
	tx.ops = append(tx.ops, op{kind: opDelRow, table: table, id: id})
}

// GetRow reads the current committed row, staged operations excluded.
func (tx *Tx) GetRow(table, id string) (Row, bool) {
	return tx.store.GetRow(table, id)
}

// Apply runs fn against a transaction and commits its staged operations
// atomically. Observers are notified once per touched table after the commit
// lands. If fn returns an error nothing is applied.
func (s *Store) Apply(fn func(tx *Tx) error) error {
	tx := &Tx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.err != nil {
		return tx.err
	}
	if len(tx.ops) == 0 {
		return nil
	}

	s.mu.Lock()
	touched := make(map[string]bool)
	for _, o := range tx.ops {
		t := s.tables[o.table]
		switch o.kind {
		case opSetRow:
			t[o.id] = o.row.Clone()
		case opSetCell:
			row, ok := t[o.id]
			if !ok {
				row = make(Row)
				t[o.id] = row
			}
			row[o.field] = o.value
		case opDelRow:
			delete(t, o.id)
		}
		touched[o.table] = true
	}
	snapshots := make(map[string]Table, len(touched))
	for name := range touched {
		snapshots[name] = s.tables[name].Clone()
	}
	s.mu.Unlock()

	s.notify(snapshots)
	return nil
}

func (s *Store) notify(snapshots map[string]Table) {
	s.subMu.Lock()
	hooks := make([]CommitHook, 0, len(s.hooks))
	for _, h := range s.hooks {
		hooks = append(hooks, h)
	}
	type tableSub struct {
		table string
		fn    Subscriber
	}
	var subs []tableSub
	for name := range snapshots {
		for _, fn := range s.subs[name] {
			subs = append(subs, tableSub{table: name, fn: fn})
		}
	}
	s.subMu.Unlock()

	for _, h := range hooks {
		h(snapshots)
	}
	for _, ts := range subs {
		ts.fn(ts.table, snapshots[ts.table])
	}
}

// SetRow replaces or creates a row wholesale in a single-operation commit.
func (s *Store) SetRow(table, id string, fields Row) error {
	return s.Apply(func(tx *Tx) error {
		tx.SetRow(table, id, fields)
		return nil
	})
}

// SetCell updates one field in a single-operation commit.
func (s *Store) SetCell(table, id, field string, value any) error {
	return s.Apply(func(tx *Tx) error {
		tx.SetCell(table, id, field, value)
		return nil
	})
}

// DelRow removes a row in a single-operation commit.
func (s *Store) DelRow(table, id string) error {
	return s.Apply(func(tx *Tx) error {
		tx.DelRow(table, id)
		return nil
	})
}

// GetCell returns the current value of a field, reporting whether it exists.
func (s *Store) GetCell(table, id, field string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[table]
	if !ok {
		return nil, false
	}
	row, ok := t[id]
	if !ok {
		return nil, false
	}
	v, ok := row[field]
	return v, ok
}

// GetRow returns a copy of the row, reporting whether it exists.
func (s *Store) GetRow(table, id string) (Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[table]
	if !ok {
		return nil, false
	}
	row, ok := t[id]
	if !ok {
		return nil, false
	}
	return row.Clone(), true
}

// Snapshot returns an immutable copy of the whole table.
func (s *Store) Snapshot(table string) (Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return t.Clone(), nil
}
