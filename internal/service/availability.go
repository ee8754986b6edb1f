package service

import (
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"
)

// Required steps a shopper must complete before a selection is buyable
const (
	StepPickColor = "pick-color"
	StepPickSize  = "pick-size"
	StepReady     = "ready"
)

// Resolution describes what is currently purchasable for a partial
// selection against one product's variant matrix.
type Resolution struct {
	RequiredStep    string   `json:"required_step"`
	SizesForColor   []string `json:"sizes_for_color,omitempty"`
	QuantityCeiling int      `json:"quantity_ceiling"`
	StockStatus     string   `json:"stock_status,omitempty"`
}

// Resolve derives the resolution for a selection. It is pure: callers
// re-invoke it on every input change.
//
// Stock gates the buy action, not the selection UI: an out-of-stock
// (color, size) pair still resolves to "ready" with a zero ceiling,
// and the commit path is what rejects it.
func Resolve(product *models.Product, sel models.Selection) (Resolution, error) {
	if product == nil {
		return Resolution{}, fmt.Errorf("product is required: %w", models.ErrValidation)
	}

	// Flat-stock products have an implicit single color/size pair.
	if !product.HasVariants() {
		var st models.Stock
		if product.FlatStock != nil {
			st = *product.FlatStock
		}
		res := Resolution{
			RequiredStep:    StepReady,
			QuantityCeiling: st.Quantity,
			StockStatus:     st.Status(),
		}
		util.AvailabilityResolutionsTotal.WithLabelValues(res.RequiredStep).Inc()
		return res, nil
	}

	color := sel.Color
	if color == "" && len(product.Variants) == 1 {
		// A single-color matrix needs no explicit color pick.
		color = product.Variants[0].Color
	}

	if color == "" {
		res := Resolution{RequiredStep: StepPickColor}
		util.AvailabilityResolutionsTotal.WithLabelValues(res.RequiredStep).Inc()
		return res, nil
	}

	variant, ok := product.VariantByColor(color)
	if !ok {
		return Resolution{}, fmt.Errorf("color %q: %w", color, models.ErrUnknownVariant)
	}

	sizes := variant.SortedSizes()

	// No implicit size default, even when only one size exists: the
	// shopper must pick explicitly, so the ceiling stays at zero.
	if sel.Size == "" {
		res := Resolution{
			RequiredStep:  StepPickSize,
			SizesForColor: sizes,
		}
		util.AvailabilityResolutionsTotal.WithLabelValues(res.RequiredStep).Inc()
		return res, nil
	}

	st, ok := variant.Sizes[sel.Size]
	if !ok {
		// A size carried over from another color falls back to the
		// size-pick step rather than resolving ready.
		res := Resolution{
			RequiredStep:  StepPickSize,
			SizesForColor: sizes,
		}
		util.AvailabilityResolutionsTotal.WithLabelValues(res.RequiredStep).Inc()
		return res, nil
	}

	res := Resolution{
		RequiredStep:    StepReady,
		SizesForColor:   sizes,
		QuantityCeiling: st.Quantity,
		StockStatus:     st.Status(),
	}
	util.AvailabilityResolutionsTotal.WithLabelValues(res.RequiredStep).Inc()
	return res, nil
}
