package models

import (
	"sort"
	"time"
)

// Stock statuses derived from quantity and low-stock threshold
const (
	StatusInStock    = "in_stock"
	StatusLowStock   = "low_stock"
	StatusOutOfStock = "out_of_stock"
)

// Product represents a product in the catalog
type Product struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Price     int64     `db:"price" json:"price"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Variants  []Variant `db:"-" json:"variants,omitempty"`

	// Flat stock backs products sold without color/size variants.
	FlatStock *Stock `db:"-" json:"flat_stock,omitempty"`
}

// HasVariants reports whether the product carries a color/size matrix.
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// VariantByColor returns the variant for the given color, if present.
func (p *Product) VariantByColor(color string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].Color == color {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// TotalStock sums quantity over every (color, size) pair, or the flat
// stock for variant-less products.
func (p *Product) TotalStock() int {
	if !p.HasVariants() {
		if p.FlatStock != nil {
			return p.FlatStock.Quantity
		}
		return 0
	}

	total := 0
	for i := range p.Variants {
		for _, st := range p.Variants[i].Sizes {
			total += st.Quantity
		}
	}
	return total
}

// Variant is one color option of a product with its own size-to-stock map
type Variant struct {
	ID        int64            `db:"id" json:"id"`
	ProductID int64            `db:"product_id" json:"product_id"`
	Color     string           `db:"color" json:"color"`
	ColorHex  string           `db:"color_hex" json:"color_hex"`
	SKU       string           `db:"sku" json:"sku"`
	PhotoRef  string           `db:"photo_ref" json:"photo_ref,omitempty"`
	Sizes     map[string]Stock `db:"-" json:"sizes"`
}

// SortedSizes returns the variant's size labels in canonical apparel
// order (XS through 5XL), unrecognized labels after, lexically.
func (v *Variant) SortedSizes() []string {
	labels := make([]string, 0, len(v.Sizes))
	for label := range v.Sizes {
		labels = append(labels, label)
	}
	SortSizeLabels(labels)
	return labels
}

// Stock holds quantity on hand plus the low-stock threshold for one
// (color, size) pair
type Stock struct {
	Quantity          int `db:"quantity" json:"quantity"`
	LowStockThreshold int `db:"low_stock_threshold" json:"low_stock_threshold"`
}

// Status derives the stock status. Quantity zero wins over any
// threshold comparison.
func (s Stock) Status() string {
	if s.Quantity == 0 {
		return StatusOutOfStock
	}
	if s.Quantity <= s.LowStockThreshold {
		return StatusLowStock
	}
	return StatusInStock
}

// Selection is a shopper's in-progress, uncommitted choice. The zero
// value is the empty selection created on product-page load.
type Selection struct {
	Color    string `json:"color,omitempty"`
	Size     string `json:"size,omitempty"`
	Quantity int    `json:"quantity"`
}

// CartLine is a committed selection persisted in the shopping cart
type CartLine struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	ProductID   int64     `db:"product_id" json:"product_id"`
	Color       string    `db:"color" json:"color,omitempty"`
	Size        string    `db:"size" json:"size,omitempty"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitPrice   int64     `db:"unit_price" json:"unit_price"`
	Selected    bool      `db:"selected" json:"selected"`
	Saved       bool      `db:"saved" json:"saved"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	Unavailable bool      `db:"-" json:"unavailable"`
	MaxQuantity int       `db:"-" json:"max_quantity"`
}

// InventoryRow is the seller-facing view: one row per product with the
// matrix total
type InventoryRow struct {
	ID                int64  `db:"id" json:"id"`
	ProductID         int64  `db:"product_id" json:"product_id"`
	Name              string `db:"name" json:"name"`
	SKU               string `db:"sku" json:"sku"`
	TotalStock        int    `db:"total_stock" json:"stock"`
	LowStockThreshold int    `db:"low_stock_threshold" json:"low_stock_threshold"`
	Status            string `db:"-" json:"status"`
}

// DeriveStatus recomputes the row status from its current counts.
func (r *InventoryRow) DeriveStatus() {
	r.Status = Stock{Quantity: r.TotalStock, LowStockThreshold: r.LowStockThreshold}.Status()
}

// InventorySummary carries the aggregate counts shown above the
// seller's table. Always rebuilt by a full rescan, never patched.
type InventorySummary struct {
	TotalItems      int `json:"total_items"`
	InStockCount    int `json:"in_stock_count"`
	LowStockCount   int `json:"low_stock_count"`
	OutOfStockCount int `json:"out_of_stock_count"`
}

// Summarize rescans all rows and rebuilds the aggregate counts.
func Summarize(rows []InventoryRow) InventorySummary {
	sum := InventorySummary{TotalItems: len(rows)}
	for i := range rows {
		switch rows[i].Status {
		case StatusInStock:
			sum.InStockCount++
		case StatusLowStock:
			sum.LowStockCount++
		case StatusOutOfStock:
			sum.OutOfStockCount++
		}
	}
	return sum
}

var canonicalSizeRank = map[string]int{
	"XS":  0,
	"S":   1,
	"M":   2,
	"L":   3,
	"XL":  4,
	"XXL": 5,
	"3XL": 6,
	"4XL": 7,
	"5XL": 8,
}

// SortSizeLabels orders labels XS..5XL first, then unrecognized labels
// lexically after them.
func SortSizeLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		ri, iok := canonicalSizeRank[labels[i]]
		rj, jok := canonicalSizeRank[labels[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		default:
			return labels[i] < labels[j]
		}
	})
}
