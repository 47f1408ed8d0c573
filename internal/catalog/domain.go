// Package catalog manages the product table: creation, edits, soft
// deactivation and barcode lookup over the reactive store.
package catalog

import (
	"encoding/json"
	"errors"

	"github.com/tillpoint/tillpoint/internal/store"
)

// RemovedProductLabel is what historical sales show when their product row no
// longer exists.
const RemovedProductLabel = "Produto removido"

// Product is a catalog entry. Identifiers are generated client-side and never
// reused; rows are soft-deleted via IndActive and never physically removed.
type Product struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Cost        float64  `json:"cost"`
	Price       float64  `json:"price"`
	Quantity    float64  `json:"quantity"`
	Barcode     string   `json:"barcode"`
	Barcodes    []string `json:"barcodes,omitempty"`
	Image       string   `json:"image,omitempty"`
	IndActive   bool     `json:"ind_active"`
}

// Input carries the caller-supplied fields for create and update.
type Input struct {
	Description string   `json:"description" validate:"required"`
	Cost        float64  `json:"cost" validate:"gte=0"`
	Price       float64  `json:"price" validate:"gte=0"`
	Quantity    float64  `json:"quantity" validate:"gte=0"`
	Barcode     string   `json:"barcode"`
	Barcodes    []string `json:"barcodes,omitempty"`
	Image       string   `json:"image,omitempty"`
}

// ErrProductNotFound indicates the product row does not exist.
var ErrProductNotFound = errors.New("catalog: product not found")

// ErrBarcodeRequired indicates the primary barcode is missing.
var ErrBarcodeRequired = errors.New("catalog: primary barcode required")

// Normalize reconciles the single primary barcode with the barcode list: the
// primary is always the head of the list. Returns ErrBarcodeRequired when
// neither form carries a code.
func (in *Input) Normalize() error {
	if in.Barcode == "" && len(in.Barcodes) > 0 {
		in.Barcode = in.Barcodes[0]
	}
	if in.Barcode == "" {
		return ErrBarcodeRequired
	}
	if len(in.Barcodes) == 0 {
		in.Barcodes = []string{in.Barcode}
		return nil
	}
	if in.Barcodes[0] != in.Barcode {
		in.Barcodes = append([]string{in.Barcode}, in.Barcodes...)
	}
	return nil
}

// ToRow flattens the product into store row fields. The barcode list is kept
// as a JSON-encoded cell so row values stay scalar.
func (p Product) ToRow() store.Row {
	row := store.Row{
		"description": p.Description,
		"cost":        p.Cost,
		"price":       p.Price,
		"quantity":    p.Quantity,
		"barcode":     p.Barcode,
		"image":       p.Image,
		"ind_active":  p.IndActive,
	}
	if len(p.Barcodes) > 0 {
		if data, err := json.Marshal(p.Barcodes); err == nil {
			row["barcodes"] = string(data)
		}
	}
	return row
}

// FromRow rebuilds a product from its store row.
func FromRow(id string, row store.Row) Product {
	p := Product{
		ID:          id,
		Description: asString(row["description"]),
		Cost:        AsFloat(row["cost"]),
		Price:       AsFloat(row["price"]),
		Quantity:    AsFloat(row["quantity"]),
		Barcode:     asString(row["barcode"]),
		Image:       asString(row["image"]),
		IndActive:   asBool(row["ind_active"]),
	}
	if raw := asString(row["barcodes"]); raw != "" {
		var codes []string
		if err := json.Unmarshal([]byte(raw), &codes); err == nil {
			p.Barcodes = codes
		}
	}
	if len(p.Barcodes) == 0 && p.Barcode != "" {
		p.Barcodes = []string{p.Barcode}
	}
	return p
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// AsFloat coerces the numeric cell encodings found in store rows and
// database scans to float64.
func AsFloat(v any) float64 {
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

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
