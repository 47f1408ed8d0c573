// Package persist mirrors the reactive store to the on-device embedded
// database file so state survives restarts. Each store table maps 1:1 to a
// database table; every commit rewrites the affected tables in one
// transaction.
package persist

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/tillpoint/tillpoint/internal/platform/db"
	"github.com/tillpoint/tillpoint/internal/store"
)

// Adapter loads persisted rows on startup and saves table snapshots after
// every commit. Save failures are logged and dropped; the next commit
// rewrites the table anyway.
type Adapter struct {
	conn   *sql.DB
	store  *store.Store
	logger *slog.Logger
}

// NewAdapter builds Adapter.
func NewAdapter(conn *sql.DB, st *store.Store, logger *slog.Logger) *Adapter {
	return &Adapter{conn: conn, store: st, logger: logger}
}

// Init creates the persisted tables when missing.
func (a *Adapter) Init(ctx context.Context) error {
	stmts := []string{
		// Row identity is owned by the store's map keys; every save rewrites
		// the whole table, so the schema carries no key constraints.
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT,
			description TEXT,
			cost FLOAT,
			price FLOAT,
			quantity FLOAT,
			barcode TEXT,
			barcodes TEXT,
			image TEXT,
			ind_active BOOLEAN
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT,
			product_id TEXT,
			quantity FLOAT,
			recorded_at INTEGER
		)`,
	}
	for _, stmt := range stmts {
		if _, err := a.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("persist: init schema: %w", err)
		}
	}
	return nil
}

// Load reads all persisted rows into the store. Call before serving and
// before AutoSave is attached.
func (a *Adapter) Load(ctx context.Context) error {
	products, err := a.loadProducts(ctx)
	if err != nil {
		return err
	}
	salesRows, err := a.loadSales(ctx)
	if err != nil {
		return err
	}
	return a.store.Apply(func(tx *store.Tx) error {
		for id, row := range products {
			tx.SetRow(store.TableProducts, id, row)
		}
		for id, row := range salesRows {
			tx.SetRow(store.TableSales, id, row)
		}
		return nil
	})
}

func (a *Adapter) loadProducts(ctx context.Context) (store.Table, error) {
	rows, err := a.conn.QueryContext(ctx,
		`SELECT id, description, cost, price, quantity, barcode, barcodes, image, ind_active FROM products`)
	if err != nil {
		return nil, fmt.Errorf("persist: load products: %w", err)
	}
	defer rows.Close()

	table := make(store.Table)
	for rows.Next() {
		var (
			id          string
			description sql.NullString
			cost        sql.NullFloat64
			price       sql.NullFloat64
			quantity    sql.NullFloat64
			barcode     sql.NullString
			barcodes    sql.NullString
			image       sql.NullString
			active      sql.NullBool
		)
		if err := rows.Scan(&id, &description, &cost, &price, &quantity, &barcode, &barcodes, &image, &active); err != nil {
			return nil, fmt.Errorf("persist: scan product: %w", err)
		}
		row := store.Row{
			"description": description.String,
			"cost":        cost.Float64,
			"price":       price.Float64,
			"quantity":    quantity.Float64,
			"barcode":     barcode.String,
		}
		if barcodes.Valid && barcodes.String != "" {
			row["barcodes"] = barcodes.String
		}
		if image.Valid && image.String != "" {
			row["image"] = image.String
		}
		// A NULL flag stays absent here so the backfill migration can see it.
		if active.Valid {
			row["ind_active"] = active.Bool
		}
		table[id] = row
	}
	return table, rows.Err()
}

func (a *Adapter) loadSales(ctx context.Context) (store.Table, error) {
	rows, err := a.conn.QueryContext(ctx,
		`SELECT id, product_id, quantity, recorded_at FROM sales`)
	if err != nil {
		return nil, fmt.Errorf("persist: load sales: %w", err)
	}
	defer rows.Close()

	table := make(store.Table)
	for rows.Next() {
		var (
			id        string
			productID sql.NullString
			quantity  sql.NullFloat64
			timestamp sql.NullInt64
		)
		if err := rows.Scan(&id, &productID, &quantity, &timestamp); err != nil {
			return nil, fmt.Errorf("persist: scan sale: %w", err)
		}
		table[id] = store.Row{
			"productId": productID.String,
			"quantity":  quantity.Float64,
			"timestamp": timestamp.Int64,
		}
	}
	return table, rows.Err()
}

// BackfillActive marks products persisted before the soft-delete flag
// existed as active, in both the store and the database. Idempotent: rows
// already carrying the flag are untouched.
func (a *Adapter) BackfillActive(ctx context.Context) (int, error) {
	snapshot, err := a.store.Snapshot(store.TableProducts)
	if err != nil {
		return 0, err
	}
	missing := make([]string, 0)
	for _, id := range snapshot.IDs() {
		if _, ok := snapshot[id]["ind_active"]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	err = a.store.Apply(func(tx *store.Tx) error {
		for _, id := range missing {
			tx.SetCell(store.TableProducts, id, "ind_active", true)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if _, err := a.conn.ExecContext(ctx,
		`UPDATE products SET ind_active = true WHERE ind_active IS NULL`); err != nil {
		return 0, fmt.Errorf("persist: backfill: %w", err)
	}
	return len(missing), nil
}

// AutoSave subscribes to store commits and rewrites each touched table. All
// tables of one commit land in a single database transaction. The returned
// function detaches the subscription.
func (a *Adapter) AutoSave() func() {
	return a.store.OnCommit(func(touched map[string]store.Table) {
		if err := a.save(context.Background(), touched); err != nil && a.logger != nil {
			a.logger.Warn("autosave", slog.Any("error", err))
		}
	})
}

func (a *Adapter) save(ctx context.Context, touched map[string]store.Table) error {
	return db.WithTx(ctx, a.conn, func(tx *sql.Tx) error {
		for name, snapshot := range touched {
			switch name {
			case store.TableProducts:
				if err := saveProducts(tx, snapshot); err != nil {
					return err
				}
			case store.TableSales:
				if err := saveSales(tx, snapshot); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func saveProducts(tx *sql.Tx, snapshot store.Table) error {
	if _, err := tx.Exec(`DELETE FROM products`); err != nil {
		return fmt.Errorf("persist: clear products: %w", err)
	}
	for _, id := range snapshot.IDs() {
		row := snapshot[id]
		var active any
		if v, ok := row["ind_active"]; ok {
			active = v
		}
		_, err := tx.Exec(
			`INSERT INTO products (id, description, cost, price, quantity, barcode, barcodes, image, ind_active)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id,
			row["description"],
			numeric(row["cost"]),
			numeric(row["price"]),
			numeric(row["quantity"]),
			row["barcode"],
			optString(row["barcodes"]),
			optString(row["image"]),
			active,
		)
		if err != nil {
			return fmt.Errorf("persist: save product %s: %w", id, err)
		}
	}
	return nil
}

func saveSales(tx *sql.Tx, snapshot store.Table) error {
	if _, err := tx.Exec(`DELETE FROM sales`); err != nil {
		return fmt.Errorf("persist: clear sales: %w", err)
	}
	for _, id := range snapshot.IDs() {
		row := snapshot[id]
		_, err := tx.Exec(
			`INSERT INTO sales (id, product_id, quantity, recorded_at) VALUES (?, ?, ?, ?)`,
			id,
			row["productId"],
			numeric(row["quantity"]),
			integer(row["timestamp"]),
		)
		if err != nil {
			return fmt.Errorf("persist: save sale %s: %w", id, err)
		}
	}
	return nil
}

func numeric(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func integer(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func optString(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return s
}
