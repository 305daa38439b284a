// internal/models/product.go
package models

import "github.com/shopspring/decimal"

// CanonicalProduct is the normalized, component-agnostic representation of a
// catalog item used by all UI builders. It is built once per request (or
// rehydrated from cache) and never mutated afterwards.
type CanonicalProduct struct {
	ID         string            `json:"id"`
	SKU        string            `json:"sku"`
	Title      string            `json:"title"`
	Price      decimal.Decimal   `json:"price"`
	Currency   string            `json:"currency"`
	InStock    bool              `json:"inStock"`
	StockQty   int               `json:"stockQty"`
	Material   string            `json:"material,omitempty"`
	Gauge      string            `json:"gauge,omitempty"`
	ImageURL   string            `json:"imageUrl,omitempty"`
	ProductURL string            `json:"productUrl,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// HasField reports whether the named attribute is populated on this product.
// Core columns are checked directly; anything else falls back to the
// free-form attribute mapping.
func (p *CanonicalProduct) HasField(field string) bool {
	switch field {
	case "id":
		return p.ID != ""
	case "sku":
		return p.SKU != ""
	case "title":
		return p.Title != ""
	case "price":
		return !p.Price.IsZero() || p.Currency != ""
	case "in_stock", "stock_qty":
		return true
	case "material":
		return p.Material != ""
	case "gauge":
		return p.Gauge != ""
	case "image_url":
		return p.ImageURL != ""
	case "product_url":
		return p.ProductURL != ""
	case "attributes":
		return len(p.Attributes) > 0
	default:
		_, ok := p.Attributes[field]
		return ok
	}
}

// ProductCard is a raw candidate returned by the catalog vector search,
// before canonicalization.
type ProductCard struct {
	ID         string  `json:"id"`
	SKU        string  `json:"sku"`
	Title      string  `json:"title"`
	Category   string  `json:"category,omitempty"`
	Price      string  `json:"price,omitempty"`
	Currency   string  `json:"currency,omitempty"`
	InStock    bool    `json:"inStock"`
	ImageURL   string  `json:"imageUrl,omitempty"`
	ProductURL string  `json:"productUrl,omitempty"`
	Distance   float64 `json:"distance"`
}
