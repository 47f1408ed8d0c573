// Package sales records point-of-sale transactions. Every sale commits
// together with its stock decrement; stock is floored at zero and historical
// sales survive product deactivation or removal.
package sales

import (
	"errors"
	"time"

	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/store"
)

// Sale is one recorded transaction. Timestamp is epoch milliseconds, set
// client-side at creation.
type Sale struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
	Timestamp int64   `json:"timestamp"`
}

// Input carries the caller-supplied fields for recording a sale.
type Input struct {
	ProductID string  `json:"productId" validate:"required"`
	Quantity  float64 `json:"quantity" validate:"gt=0"`
}

// ListItem is a sale with its product reference resolved for display. A
// dangling reference resolves to the removed-product label.
type ListItem struct {
	Sale
	ProductDescription string `json:"productDescription"`
}

// Summary aggregates sales over a period.
type Summary struct {
	Period           string  `json:"period"`
	Count            int     `json:"count"`
	TotalQuantity    float64 `json:"totalQuantity"`
	TotalRevenue     float64 `json:"totalRevenue"`
	FormattedRevenue string  `json:"formattedRevenue"`
}

// Period filters for listings and summaries.
const (
	PeriodAll   = "all"
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

var (
	// ErrSaleNotFound indicates the sale row does not exist.
	ErrSaleNotFound = errors.New("sales: sale not found")
	// ErrInvalidPeriod indicates an unsupported period filter.
	ErrInvalidPeriod = errors.New("sales: invalid period")
)

// ToRow flattens the sale into store row fields.
func (s Sale) ToRow() store.Row {
	return store.Row{
		"productId": s.ProductID,
		"quantity":  s.Quantity,
		"timestamp": s.Timestamp,
	}
}

// FromRow rebuilds a sale from its store row.
func FromRow(id string, row store.Row) Sale {
	return Sale{
		ID:        id,
		ProductID: rowString(row, "productId"),
		Quantity:  catalog.AsFloat(row["quantity"]),
		Timestamp: rowInt64(row, "timestamp"),
	}
}

func rowString(row store.Row, field string) string {
	s, _ := row[field].(string)
	return s
}

func rowInt64(row store.Row, field string) int64 {
	switch n := row[field].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// periodStart returns the inclusive lower bound for a period filter. Day is
// the local midnight, week the last seven days, month the first of the
// current month.
func periodStart(now time.Time, period string) (time.Time, error) {
	switch period {
	case "", PeriodAll:
		return time.Time{}, nil
	case PeriodDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	case PeriodWeek:
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return day.AddDate(0, 0, -6), nil
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	}
	return time.Time{}, ErrInvalidPeriod
}
