package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetRowReplacesWholesale(t *testing.T) {
	s := New(TableProducts)

	require.NoError(t, s.SetRow(TableProducts, "p1", Row{"description": "Widget", "price": 10.0, "cost": 5.0}))
	require.NoError(t, s.SetRow(TableProducts, "p1", Row{"description": "Widget v2"}))

	_, ok := s.GetCell(TableProducts, "p1", "price")
	require.False(t, ok, "setRow must not merge prior fields")

	v, ok := s.GetCell(TableProducts, "p1", "description")
	require.True(t, ok)
	require.Equal(t, "Widget v2", v)
}

func TestSetCellImplicitRow(t *testing.T) {
	s := New(TableProducts)

	require.NoError(t, s.SetCell(TableProducts, "p1", "quantity", 3.0))
	v, ok := s.GetCell(TableProducts, "p1", "quantity")
	require.True(t, ok)
	require.Equal(t, 3.0, v)
}

func TestDelRow(t *testing.T) {
	s := New(TableProducts)
	require.NoError(t, s.SetRow(TableProducts, "p1", Row{"description": "Widget"}))
	require.NoError(t, s.DelRow(TableProducts, "p1"))

	_, ok := s.GetRow(TableProducts, "p1")
	require.False(t, ok)
}

func TestUnknownTable(t *testing.T) {
	s := New(TableProducts)
	err := s.SetRow("customers", "c1", Row{})
	require.ErrorIs(t, err, ErrUnknownTable)

	_, err = s.Snapshot("customers")
	require.ErrorIs(t, err, ErrUnknownTable)
}

func TestSubscriberGetsSnapshots(t *testing.T) {
	s := New(TableProducts, TableSales)

	var got []Table
	unsub, err := s.Subscribe(TableProducts, func(table string, snapshot Table) {
		require.Equal(t, TableProducts, table)
		got = append(got, snapshot)
	})
	require.NoError(t, err)

	require.NoError(t, s.SetRow(TableProducts, "p1", Row{"description": "Widget"}))
	require.NoError(t, s.SetRow(TableSales, "s1", Row{"productId": "p1"}))
	require.Len(t, got, 1, "sales commit must not notify products subscriber")

	// Mutating the delivered snapshot must not leak into the store.
	got[0]["p1"]["description"] = "tampered"
	v, _ := s.GetCell(TableProducts, "p1", "description")
	require.Equal(t, "Widget", v)

	unsub()
	require.NoError(t, s.SetRow(TableProducts, "p2", Row{"description": "Gadget"}))
	require.Len(t, got, 1)
}

func TestApplyAtomicCommit(t *testing.T) {
	s := New(TableProducts, TableSales)
	require.NoError(t, s.SetRow(TableProducts, "p1", Row{"quantity": 10.0}))

	notifications := 0
	_, err := s.Subscribe(TableSales, func(string, Table) { notifications++ })
	require.NoError(t, err)

	err = s.Apply(func(tx *Tx) error {
		row, ok := tx.GetRow(TableProducts, "p1")
		require.True(t, ok)
		qty := row["quantity"].(float64)
		tx.SetCell(TableProducts, "p1", "quantity", qty-3)
		tx.SetRow(TableSales, "s1", Row{"productId": "p1", "quantity": 3.0})
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, notifications, "one commit, one notification per table")

	v, _ := s.GetCell(TableProducts, "p1", "quantity")
	require.Equal(t, 7.0, v)
}

func TestApplyErrorAppliesNothing(t *testing.T) {
	s := New(TableProducts)
	fired := false
	s.OnCommit(func(map[string]Table) { fired = true })

	err := s.Apply(func(tx *Tx) error {
		tx.SetRow(TableProducts, "p1", Row{"description": "Widget"})
		return ErrUnknownTable
	})
	require.Error(t, err)
	require.False(t, fired)
	_, ok := s.GetRow(TableProducts, "p1")
	require.False(t, ok)
}

func TestCommitHookSeesAllTouchedTables(t *testing.T) {
	s := New(TableProducts, TableSales)

	var touched map[string]Table
	s.OnCommit(func(snapshots map[string]Table) { touched = snapshots })

	err := s.Apply(func(tx *Tx) error {
		tx.SetRow(TableProducts, "p1", Row{"quantity": 1.0})
		tx.SetRow(TableSales, "s1", Row{"productId": "p1"})
		return nil
	})
	require.NoError(t, err)
	require.Contains(t, touched, TableProducts)
	require.Contains(t, touched, TableSales)
}
