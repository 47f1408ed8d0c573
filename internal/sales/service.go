package sales

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/shared"
	"github.com/tillpoint/tillpoint/internal/store"
)

// Syncer schedules a snapshot push after locally meaningful mutations.
type Syncer interface {
	Enqueue(ctx context.Context) error
}

// ProductResolver resolves product references for display.
type ProductResolver interface {
	ResolveDescription(id string) string
}

// Service coordinates sale operations on the reactive store.
type Service struct {
	store    *store.Store
	products ProductResolver
	validate *validator.Validate
	sync     Syncer
	logger   *slog.Logger
	printer  *message.Printer
	now      func() time.Time
}

// NewService builds Service. sync may be nil when snapshot pushes are not
// configured.
func NewService(st *store.Store, products ProductResolver, sync Syncer, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		products: products,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		sync:     sync,
		logger:   logger,
		printer:  message.NewPrinter(language.BrazilianPortuguese),
		now:      time.Now,
	}
}

// Record validates input and commits the sale together with the referenced
// product's stock decrement in one transaction. Stock is clamped at zero and
// never goes negative.
func (s *Service) Record(ctx context.Context, in Input) (Sale, error) {
	if err := s.validate.Struct(in); err != nil {
		return Sale{}, fmt.Errorf("sales: %w", err)
	}
	sale := Sale{
		ID:        uuid.NewString(),
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Timestamp: s.now().UnixMilli(),
	}
	err := s.store.Apply(func(tx *store.Tx) error {
		row, ok := tx.GetRow(store.TableProducts, in.ProductID)
		if !ok {
			return catalog.ErrProductNotFound
		}
		stock := catalog.AsFloat(row["quantity"]) - in.Quantity
		if stock < 0 {
			stock = 0
		}
		tx.SetCell(store.TableProducts, in.ProductID, "quantity", stock)
		tx.SetRow(store.TableSales, sale.ID, sale.ToRow())
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	s.scheduleSync(ctx)
	return sale, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Period string
	Limit  int
	Offset int
}

// List returns sales newest first with product references resolved.
func (s *Service) List(filter ListFilter) (shared.ResultList[ListItem], error) {
	items, err := s.collect(filter.Period)
	if err != nil {
		return shared.ResultList[ListItem]{}, err
	}
	return shared.Page(items, filter.Limit, filter.Offset), nil
}

// Delete removes a sale row. Stock is not restored; the record simply goes
// away.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, ok := s.store.GetRow(store.TableSales, id); !ok {
		return ErrSaleNotFound
	}
	if err := s.store.DelRow(store.TableSales, id); err != nil {
		return err
	}
	s.scheduleSync(ctx)
	return nil
}

// Summarize aggregates count, units and revenue for the period. Revenue uses
// the product's current price; dangling references contribute nothing.
func (s *Service) Summarize(period string) (Summary, error) {
	items, err := s.collect(period)
	if err != nil {
		return Summary{}, err
	}
	if period == "" {
		period = PeriodAll
	}
	sum := Summary{Period: period, Count: len(items)}
	for _, item := range items {
		sum.TotalQuantity += item.Quantity
		if row, ok := s.store.GetRow(store.TableProducts, item.ProductID); ok {
			sum.TotalRevenue += item.Quantity * catalog.AsFloat(row["price"])
		}
	}
	sum.FormattedRevenue = s.printer.Sprintf("R$ %.2f", sum.TotalRevenue)
	return sum, nil
}

func (s *Service) collect(period string) ([]ListItem, error) {
	since, err := periodStart(s.now(), period)
	if err != nil {
		return nil, err
	}
	cutoff := int64(0)
	if !since.IsZero() {
		cutoff = since.UnixMilli()
	}
	snapshot, err := s.store.Snapshot(store.TableSales)
	if err != nil {
		return nil, err
	}
	items := make([]ListItem, 0, len(snapshot))
	for _, id := range snapshot.IDs() {
		sale := FromRow(id, snapshot[id])
		if sale.Timestamp < cutoff {
			continue
		}
		items = append(items, ListItem{
			Sale:               sale,
			ProductDescription: s.products.ResolveDescription(sale.ProductID),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Timestamp == items[j].Timestamp {
			return items[i].ID < items[j].ID
		}
		return items[i].Timestamp > items[j].Timestamp
	})
	return items, nil
}

func (s *Service) scheduleSync(ctx context.Context) {
	if s.sync == nil {
		return
	}
	if err := s.sync.Enqueue(ctx); err != nil && s.logger != nil {
		s.logger.Warn("schedule sync", slog.Any("error", err))
	}
}
