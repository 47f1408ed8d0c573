package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// ProductComposition references a component of a composite product.
type ProductComposition struct {
	ComponentProductID          string  `json:"componentProductId"`
	ComponentProductDescription string  `json:"componentProductDescription,omitempty"`
	Quantity                    float64 `json:"quantity"`
	ComponentProductPrice       float64 `json:"componentProductPrice,omitempty"`
	ComponentProductCost        float64 `json:"componentProductCost,omitempty"`
}

// ProductPayload is the create/update body for the backend's product
// resource. The backend uses isActive where the local store keeps
// ind_active.
type ProductPayload struct {
	Description       string               `json:"description"`
	Cost              float64              `json:"cost"`
	Price             float64              `json:"price"`
	Quantity          float64              `json:"quantity"`
	Barcodes          []string             `json:"barcodes"`
	CategoryID        string               `json:"categoryId,omitempty"`
	Unit              string               `json:"unit,omitempty"`
	Image             string               `json:"image,omitempty"`
	IsActive          *bool                `json:"isActive,omitempty"`
	Composite         bool                 `json:"composite,omitempty"`
	ComponentProducts []ProductComposition `json:"componentProducts,omitempty"`
}

// RemoteProduct is a backend product resource.
type RemoteProduct struct {
	ProductPayload
	ID string `json:"id"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Description string
	Limit       int
	Offset      int
}

// ListProducts fetches a product page.
func (c *Client) ListProducts(ctx context.Context, filter ProductFilter) (shared.ResultList[RemoteProduct], error) {
	var out shared.ResultList[RemoteProduct]
	err := c.do(ctx, http.MethodGet, "/Product/ListProduct",
		pageQuery(filter.Description, filter.Limit, filter.Offset), nil, &out)
	return out, err
}

// SearchProducts matches products by description or barcode.
func (c *Client) SearchProducts(ctx context.Context, text string) ([]RemoteProduct, error) {
	var out []RemoteProduct
	err := c.do(ctx, http.MethodGet,
		"/Product/GetProductByDescOrBarcode/"+url.PathEscape(text), nil, nil, &out)
	return out, err
}

// GetProduct fetches one product.
func (c *Client) GetProduct(ctx context.Context, id string) (RemoteProduct, error) {
	var out RemoteProduct
	err := c.do(ctx, http.MethodGet, "/product/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// CreateProduct creates a product.
func (c *Client) CreateProduct(ctx context.Context, payload ProductPayload) (RemoteProduct, error) {
	var out RemoteProduct
	err := c.do(ctx, http.MethodPost, "/product", nil, payload, &out)
	return out, err
}

// UpdateProduct replaces a product.
func (c *Client) UpdateProduct(ctx context.Context, id string, payload ProductPayload) (RemoteProduct, error) {
	var out RemoteProduct
	err := c.do(ctx, http.MethodPut, "/product/"+url.PathEscape(id), nil, payload, &out)
	return out, err
}

// DeactivateProduct soft-deletes a product on the backend.
func (c *Client) DeactivateProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/product/"+url.PathEscape(id), nil, nil, nil)
}
