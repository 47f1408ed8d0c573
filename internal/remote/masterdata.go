package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// Category groups products on the backend.
type Category struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// Cashier is an operator account on the backend.
type Cashier struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Checkout is a till on the backend.
type Checkout struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// PaymentForm is an accepted payment method on the backend.
type PaymentForm struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// The master-data resources share one CRUD shape; these helpers keep the
// per-entity methods flat.

func listResource[T any](ctx context.Context, c *Client, resource string, q url.Values) (shared.ResultList[T], error) {
	var out shared.ResultList[T]
	err := c.do(ctx, http.MethodGet, "/"+resource+"/List"+resource, q, nil, &out)
	return out, err
}

func getResource[T any](ctx context.Context, c *Client, resource, id string) (T, error) {
	var out T
	err := c.do(ctx, http.MethodGet, "/"+resource+"/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func createResource[T any](ctx context.Context, c *Client, resource string, body T) (T, error) {
	var out T
	err := c.do(ctx, http.MethodPost, "/"+resource, nil, body, &out)
	return out, err
}

func updateResource[T any](ctx context.Context, c *Client, resource, id string, body T) (T, error) {
	var out T
	err := c.do(ctx, http.MethodPut, "/"+resource+"/"+url.PathEscape(id), nil, body, &out)
	return out, err
}

func deleteResource(ctx context.Context, c *Client, resource, id string) error {
	return c.do(ctx, http.MethodDelete, "/"+resource+"/"+url.PathEscape(id), nil, nil, nil)
}

// MasterFilter narrows master-data listings by their label field.
type MasterFilter struct {
	Text   string
	Limit  int
	Offset int
}

// ListCategories fetches a category page.
func (c *Client) ListCategories(ctx context.Context, filter MasterFilter) (shared.ResultList[Category], error) {
	return listResource[Category](ctx, c, "Category", pageQuery(filter.Text, filter.Limit, filter.Offset))
}

// GetCategory fetches one category.
func (c *Client) GetCategory(ctx context.Context, id string) (Category, error) {
	return getResource[Category](ctx, c, "Category", id)
}

// CreateCategory creates a category.
func (c *Client) CreateCategory(ctx context.Context, category Category) (Category, error) {
	return createResource(ctx, c, "Category", category)
}

// UpdateCategory replaces a category.
func (c *Client) UpdateCategory(ctx context.Context, category Category) (Category, error) {
	return updateResource(ctx, c, "Category", category.ID, category)
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return deleteResource(ctx, c, "Category", id)
}

// ListCashiers fetches a cashier page.
func (c *Client) ListCashiers(ctx context.Context, filter MasterFilter) (shared.ResultList[Cashier], error) {
	q := url.Values{}
	if filter.Text != "" {
		q.Set("name", filter.Text)
	}
	if filter.Limit > 0 {
		q.Set("limit", itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", itoa(filter.Offset))
	}
	return listResource[Cashier](ctx, c, "Cashier", q)
}

// GetCashier fetches one cashier.
func (c *Client) GetCashier(ctx context.Context, id string) (Cashier, error) {
	return getResource[Cashier](ctx, c, "Cashier", id)
}

// CreateCashier creates a cashier.
func (c *Client) CreateCashier(ctx context.Context, cashier Cashier) (Cashier, error) {
	return createResource(ctx, c, "Cashier", cashier)
}

// UpdateCashier replaces a cashier.
func (c *Client) UpdateCashier(ctx context.Context, cashier Cashier) (Cashier, error) {
	return updateResource(ctx, c, "Cashier", cashier.ID, cashier)
}

// DeleteCashier removes a cashier.
func (c *Client) DeleteCashier(ctx context.Context, id string) error {
	return deleteResource(ctx, c, "Cashier", id)
}

// ListCheckouts fetches a checkout page.
func (c *Client) ListCheckouts(ctx context.Context, filter MasterFilter) (shared.ResultList[Checkout], error) {
	q := url.Values{}
	if filter.Text != "" {
		q.Set("name", filter.Text)
	}
	if filter.Limit > 0 {
		q.Set("limit", itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", itoa(filter.Offset))
	}
	return listResource[Checkout](ctx, c, "Checkout", q)
}

// GetCheckout fetches one checkout.
func (c *Client) GetCheckout(ctx context.Context, id string) (Checkout, error) {
	return getResource[Checkout](ctx, c, "Checkout", id)
}

// CreateCheckout creates a checkout.
func (c *Client) CreateCheckout(ctx context.Context, checkout Checkout) (Checkout, error) {
	return createResource(ctx, c, "Checkout", checkout)
}

// UpdateCheckout replaces a checkout.
func (c *Client) UpdateCheckout(ctx context.Context, checkout Checkout) (Checkout, error) {
	return updateResource(ctx, c, "Checkout", checkout.ID, checkout)
}

// DeleteCheckout removes a checkout.
func (c *Client) DeleteCheckout(ctx context.Context, id string) error {
	return deleteResource(ctx, c, "Checkout", id)
}

// ListPaymentForms fetches a payment-form page.
func (c *Client) ListPaymentForms(ctx context.Context, filter MasterFilter) (shared.ResultList[PaymentForm], error) {
	return listResource[PaymentForm](ctx, c, "PaymentForm", pageQuery(filter.Text, filter.Limit, filter.Offset))
}

// GetPaymentForm fetches one payment form.
func (c *Client) GetPaymentForm(ctx context.Context, id string) (PaymentForm, error) {
	return getResource[PaymentForm](ctx, c, "PaymentForm", id)
}

// CreatePaymentForm creates a payment form.
func (c *Client) CreatePaymentForm(ctx context.Context, form PaymentForm) (PaymentForm, error) {
	return createResource(ctx, c, "PaymentForm", form)
}

// UpdatePaymentForm replaces a payment form.
func (c *Client) UpdatePaymentForm(ctx context.Context, form PaymentForm) (PaymentForm, error) {
	return updateResource(ctx, c, "PaymentForm", form.ID, form)
}

// DeletePaymentForm removes a payment form.
func (c *Client) DeletePaymentForm(ctx context.Context, id string) error {
	return deleteResource(ctx, c, "PaymentForm", id)
}
