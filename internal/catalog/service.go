package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint/internal/shared"
	"github.com/tillpoint/tillpoint/internal/store"
)

// Syncer schedules a snapshot push after locally meaningful mutations.
type Syncer interface {
	Enqueue(ctx context.Context) error
}

// Service coordinates product operations on the reactive store.
type Service struct {
	store    *store.Store
	validate *validator.Validate
	sync     Syncer
	logger   *slog.Logger
}

// NewService builds Service. sync may be nil when snapshot pushes are not
// configured.
func NewService(st *store.Store, sync Syncer, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		sync:     sync,
		logger:   logger,
	}
}

// ListFilter narrows List results.
type ListFilter struct {
	Description     string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// Create validates input, assigns a fresh identifier and commits the row.
func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return Product{}, fmt.Errorf("catalog: %w", err)
	}
	if err := in.Normalize(); err != nil {
		return Product{}, err
	}
	p := Product{
		ID:          uuid.NewString(),
		Description: in.Description,
		Cost:        in.Cost,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Barcode:     in.Barcode,
		Barcodes:    in.Barcodes,
		Image:       in.Image,
		IndActive:   true,
	}
	if err := s.store.SetRow(store.TableProducts, p.ID, p.ToRow()); err != nil {
		return Product{}, err
	}
	s.scheduleSync(ctx)
	return p, nil
}

// Update replaces the stored row wholesale, keeping identity and the active
// flag.
func (s *Service) Update(ctx context.Context, id string, in Input) (Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return Product{}, fmt.Errorf("catalog: %w", err)
	}
	if err := in.Normalize(); err != nil {
		return Product{}, err
	}
	current, ok := s.store.GetRow(store.TableProducts, id)
	if !ok {
		return Product{}, ErrProductNotFound
	}
	p := Product{
		ID:          id,
		Description: in.Description,
		Cost:        in.Cost,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Barcode:     in.Barcode,
		Barcodes:    in.Barcodes,
		Image:       in.Image,
		IndActive:   FromRow(id, current).IndActive,
	}
	if err := s.store.SetRow(store.TableProducts, id, p.ToRow()); err != nil {
		return Product{}, err
	}
	s.scheduleSync(ctx)
	return p, nil
}

// Deactivate flips the soft-delete flag. The row stays in storage and keeps
// resolving for historical sales.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if _, ok := s.store.GetRow(store.TableProducts, id); !ok {
		return ErrProductNotFound
	}
	if err := s.store.SetCell(store.TableProducts, id, "ind_active", false); err != nil {
		return err
	}
	s.scheduleSync(ctx)
	return nil
}

// Get returns the product regardless of its active flag.
func (s *Service) Get(id string) (Product, error) {
	row, ok := s.store.GetRow(store.TableProducts, id)
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return FromRow(id, row), nil
}

// List returns products ordered by description. Inactive rows are filtered
// out unless the filter asks for them.
func (s *Service) List(filter ListFilter) (shared.ResultList[Product], error) {
	snapshot, err := s.store.Snapshot(store.TableProducts)
	if err != nil {
		return shared.ResultList[Product]{}, err
	}
	needle := strings.ToLower(filter.Description)
	items := make([]Product, 0, len(snapshot))
	for _, id := range snapshot.IDs() {
		p := FromRow(id, snapshot[id])
		if !p.IndActive && !filter.IncludeInactive {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Description == items[j].Description {
			return items[i].ID < items[j].ID
		}
		return items[i].Description < items[j].Description
	})
	return shared.Page(items, filter.Limit, filter.Offset), nil
}

// Search matches active products by description substring or any of their
// barcodes.
func (s *Service) Search(text string) ([]Product, error) {
	snapshot, err := s.store.Snapshot(store.TableProducts)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(text)
	var items []Product
	for _, id := range snapshot.IDs() {
		p := FromRow(id, snapshot[id])
		if !p.IndActive {
			continue
		}
		if strings.Contains(strings.ToLower(p.Description), needle) || matchesBarcode(p, text) {
			items = append(items, p)
		}
	}
	return items, nil
}

// ResolveDescription returns the product description for a sale reference,
// falling back to the removed-product label for dangling identifiers.
func (s *Service) ResolveDescription(id string) string {
	row, ok := s.store.GetRow(store.TableProducts, id)
	if !ok {
		return RemovedProductLabel
	}
	return FromRow(id, row).Description
}

func matchesBarcode(p Product, code string) bool {
	if code == "" {
		return false
	}
	for _, b := range p.Barcodes {
		if b == code {
			return true
		}
	}
	return p.Barcode == code
}

func (s *Service) scheduleSync(ctx context.Context) {
	if s.sync == nil {
		return
	}
	if err := s.sync.Enqueue(ctx); err != nil && s.logger != nil {
		s.logger.Warn("schedule sync", slog.Any("error", err))
	}
}
