package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/store"
)

type recordingSyncer struct {
	calls int
}

func (r *recordingSyncer) Enqueue(ctx context.Context) error {
	r.calls++
	return nil
}

func newTestService(t *testing.T) (*Service, *catalog.Service, *store.Store, *recordingSyncer) {
	t.Helper()
	st := store.New(store.TableProducts, store.TableSales)
	sync := &recordingSyncer{}
	products := catalog.NewService(st, nil, nil)
	return NewService(st, products, sync, nil), products, st, sync
}

func seedProduct(t *testing.T, products *catalog.Service, desc string, price, quantity float64) catalog.Product {
	t.Helper()
	p, err := products.Create(context.Background(), catalog.Input{
		Description: desc,
		Price:       price,
		Quantity:    quantity,
		Barcode:     desc,
	})
	require.NoError(t, err)
	return p
}

func TestRecordDecrementsStock(t *testing.T) {
	svc, products, st, sync := newTestService(t)
	widget := seedProduct(t, products, "Widget", 10, 100)

	sale, err := svc.Record(context.Background(), Input{ProductID: widget.ID, Quantity: 3})
	require.NoError(t, err)
	require.NotEmpty(t, sale.ID)
	require.NotZero(t, sale.Timestamp)

	stock, ok := st.GetCell(store.TableProducts, widget.ID, "quantity")
	require.True(t, ok)
	require.Equal(t, float64(97), stock)
	require.Equal(t, 1, sync.calls)
}

func TestRecordClampsStockAtZero(t *testing.T) {
	svc, products, st, _ := newTestService(t)
	widget := seedProduct(t, products, "Widget", 10, 2)

	_, err := svc.Record(context.Background(), Input{ProductID: widget.ID, Quantity: 5})
	require.NoError(t, err)

	stock, _ := st.GetCell(store.TableProducts, widget.ID, "quantity")
	require.Equal(t, float64(0), stock)
}

func TestRecordUnknownProductAppliesNothing(t *testing.T) {
	svc, _, st, sync := newTestService(t)

	_, err := svc.Record(context.Background(), Input{ProductID: "missing", Quantity: 1})
	require.ErrorIs(t, err, catalog.ErrProductNotFound)

	snapshot, snapErr := st.Snapshot(store.TableSales)
	require.NoError(t, snapErr)
	require.Empty(t, snapshot)
	require.Zero(t, sync.calls)
}

func TestRecordValidation(t *testing.T) {
	svc, products, _, _ := newTestService(t)
	widget := seedProduct(t, products, "Widget", 10, 100)

	_, err := svc.Record(context.Background(), Input{ProductID: widget.ID})
	require.Error(t, err, "quantity must be positive")

	_, err = svc.Record(context.Background(), Input{ProductID: widget.ID, Quantity: -1})
	require.Error(t, err)

	_, err = svc.Record(context.Background(), Input{Quantity: 1})
	require.Error(t, err, "product reference is required")
}

func TestSaleCommitsAtomically(t *testing.T) {
	svc, products, st, _ := newTestService(t)
	widget := seedProduct(t, products, "Widget", 10, 100)

	var productEvents, saleEvents int
	unsubProducts, err := st.Subscribe(store.TableProducts, func(string, store.Table) { productEvents++ })
	require.NoError(t, err)
	defer unsubProducts()
	unsubSales, err := st.Subscribe(store.TableSales, func(string, store.Table) { saleEvents++ })
	require.NoError(t, err)
	defer unsubSales()

	_, err = svc.Record(context.Background(), Input{ProductID: widget.ID, Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, 1, productEvents, "stock decrement and sale land in one commit")
	require.Equal(t, 1, saleEvents)
}

func TestListResolvesDanglingReference(t *testing.T) {
	svc, products, st, _ := newTestService(t)
	ctx := context.Background()
	widget := seedProduct(t, products, "Widget", 10, 100)

	_, err := svc.Record(ctx, Input{ProductID: widget.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, st.DelRow(store.TableProducts, widget.ID))

	list, err := svc.List(ListFilter{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	require.Equal(t, catalog.RemovedProductLabel, list.Data[0].ProductDescription)
}

func TestListNewestFirst(t *testing.T) {
	svc, products, _, _ := newTestService(t)
	ctx := context.Background()
	widget := seedProduct(t, products, "Widget", 10, 100)

	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		offset := time.Duration(i) * time.Hour
		svc.now = func() time.Time { return base.Add(offset) }
		_, err := svc.Record(ctx, Input{ProductID: widget.ID, Quantity: 1})
		require.NoError(t, err)
	}

	list, err := svc.List(ListFilter{})
	require.NoError(t, err)
	require.Len(t, list.Data, 3)
	require.Equal(t, base.Add(2*time.Hour).UnixMilli(), list.Data[0].Timestamp)
	require.Equal(t, base.UnixMilli(), list.Data[2].Timestamp)
}

func TestPeriodFilters(t *testing.T) {
	svc, products, _, _ := newTestService(t)
	ctx := context.Background()
	widget := seedProduct(t, products, "Widget", 10, 100)

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)
	record := func(at time.Time) {
		svc.now = func() time.Time { return at }
		_, err := svc.Record(ctx, Input{ProductID: widget.ID, Quantity: 1})
		require.NoError(t, err)
	}
	record(now)                     // today
	record(now.AddDate(0, 0, -3))   // this week and month
	record(now.AddDate(0, 0, -8))   // this month only
	record(now.AddDate(0, -2, 0))   // older

	svc.now = func() time.Time { return now }
	for _, tc := range []struct {
		period string
		want   int
	}{
		{PeriodDay, 1},
		{PeriodWeek, 2},
		{PeriodMonth, 3},
		{PeriodAll, 4},
		{"", 4},
	} {
		list, err := svc.List(ListFilter{Period: tc.period})
		require.NoError(t, err)
		require.Equal(t, tc.want, list.TotalCount, "period %q", tc.period)
	}

	_, err := svc.List(ListFilter{Period: "year"})
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestSummarize(t *testing.T) {
	svc, products, st, _ := newTestService(t)
	ctx := context.Background()
	widget := seedProduct(t, products, "Widget", 10, 100)
	gadget := seedProduct(t, products, "Gadget", 2.5, 50)

	_, err := svc.Record(ctx, Input{ProductID: widget.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = svc.Record(ctx, Input{ProductID: gadget.ID, Quantity: 2})
	require.NoError(t, err)

	sum, err := svc.Summarize("")
	require.NoError(t, err)
	require.Equal(t, PeriodAll, sum.Period)
	require.Equal(t, 2, sum.Count)
	require.Equal(t, float64(5), sum.TotalQuantity)
	require.Equal(t, float64(35), sum.TotalRevenue)
	require.Equal(t, "R$ 35,00", sum.FormattedRevenue)

	// A dangling product reference keeps the sale in the count but adds no
	// revenue.
	require.NoError(t, st.DelRow(store.TableProducts, gadget.ID))
	sum, err = svc.Summarize(PeriodAll)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Count)
	require.Equal(t, float64(30), sum.TotalRevenue)

	_, err = svc.Summarize("century")
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestDeleteKeepsStock(t *testing.T) {
	svc, products, st, _ := newTestService(t)
	ctx := context.Background()
	widget := seedProduct(t, products, "Widget", 10, 100)

	sale, err := svc.Record(ctx, Input{ProductID: widget.ID, Quantity: 3})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, sale.ID))

	_, ok := st.GetRow(store.TableSales, sale.ID)
	require.False(t, ok)
	stock, _ := st.GetCell(store.TableProducts, widget.ID, "quantity")
	require.Equal(t, float64(97), stock, "deleting a sale does not restore stock")

	require.ErrorIs(t, svc.Delete(ctx, sale.ID), ErrSaleNotFound)
}
