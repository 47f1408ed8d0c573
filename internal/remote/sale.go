package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// RemoteSaleProduct is one line of a backend sale.
type RemoteSaleProduct struct {
	SaleID    string         `json:"saleId,omitempty"`
	ProductID string         `json:"productId"`
	UnitPrice float64        `json:"unitPrice"`
	Quantity  float64        `json:"quantity"`
	Discount  float64        `json:"discount"`
	Product   *RemoteProduct `json:"product,omitempty"`
}

// RemoteSale is a backend sale resource.
type RemoteSale struct {
	ID              string              `json:"id,omitempty"`
	CheckoutID      string              `json:"checkoutId"`
	CashierID       string              `json:"cashierId"`
	TotalValue      float64             `json:"totalValue"`
	PaidValue       float64             `json:"paidValue"`
	ChangeValue     float64             `json:"changeValue"`
	OverallDiscount float64             `json:"overallDiscount"`
	PaymentFormID   string              `json:"paymentFormId"`
	CreatedAt       string              `json:"createdAt,omitempty"`
	SaleProducts    []RemoteSaleProduct `json:"saleProducts"`
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	Limit     int
	Offset    int
	UpdatedAt string
}

// ListSales fetches a sale page.
func (c *Client) ListSales(ctx context.Context, filter SaleFilter) (shared.ResultList[RemoteSale], error) {
	q := url.Values{}
	if filter.Limit > 0 {
		q.Set("Limit", itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("Offset", itoa(filter.Offset))
	}
	if filter.UpdatedAt != "" {
		q.Set("UpdatedAt", filter.UpdatedAt)
	}
	var out shared.ResultList[RemoteSale]
	err := c.do(ctx, http.MethodGet, "/Sale/ListSale", q, nil, &out)
	return out, err
}

// GetSale fetches one sale.
func (c *Client) GetSale(ctx context.Context, id string) (RemoteSale, error) {
	var out RemoteSale
	err := c.do(ctx, http.MethodGet, "/Sale/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// CreateSale records a sale on the backend.
func (c *Client) CreateSale(ctx context.Context, sale RemoteSale) (RemoteSale, error) {
	var out RemoteSale
	err := c.do(ctx, http.MethodPost, "/Sale", nil, sale, &out)
	return out, err
}

// DeleteSale removes a sale on the backend.
func (c *Client) DeleteSale(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/Sale/"+url.PathEscape(id), nil, nil, nil)
}
