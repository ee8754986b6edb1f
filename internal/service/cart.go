package service

import (
	"storefront-service/internal/models"
	"storefront-service/internal/util"
)

// Notice kinds emitted by reconciliation
const (
	NoticeQuantityReduced = "QUANTITY_REDUCED"
	NoticeUnavailable     = "UNAVAILABLE"
)

// Notice informs the shopper about a change made during reconciliation
type Notice struct {
	LineID  int64  `json:"line_id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// StockLookup answers the live quantity ceiling for a cart line
type StockLookup func(productID int64, color, size string) (int, error)

// ReconcileOptions carries the order-level pricing knobs
type ReconcileOptions struct {
	FreeShippingThreshold int64
	StandardShippingFee   int64
	Discount              int64
}

// ReconcileResult is the reconciled cart plus derived order totals
type ReconcileResult struct {
	Lines            []models.CartLine `json:"lines"`
	RemovedLineIDs   []int64           `json:"removed_line_ids"`
	Notices          []Notice          `json:"notices"`
	SelectedSubtotal int64             `json:"selected_subtotal"`
	DeliveryFee      int64             `json:"delivery_fee"`
	Total            int64             `json:"total"`
}

// Reconcile re-clamps every line's quantity against live stock and
// derives order totals from the selected, available lines. Lines whose
// ceiling dropped to zero are flagged unavailable and excluded from
// totals but never auto-removed; removal stays an explicit user
// action. Reconciling twice with unchanged stock yields an identical
// result.
func Reconcile(lines []models.CartLine, lookup StockLookup, opts ReconcileOptions) ReconcileResult {
	util.CartReconciliationsTotal.Inc()

	result := ReconcileResult{
		Lines:          make([]models.CartLine, len(lines)),
		RemovedLineIDs: []int64{},
		Notices:        []Notice{},
	}
	copy(result.Lines, lines)

	for i := range result.Lines {
		line := &result.Lines[i]

		ceiling, err := lookup(line.ProductID, line.Color, line.Size)
		if err != nil {
			// Unknown stock leaves the line untouched rather than
			// guessing; the next refresh settles it.
			line.MaxQuantity = line.Quantity
			continue
		}
		line.MaxQuantity = ceiling

		if ceiling == 0 {
			line.Unavailable = true
			util.CartLinesUnavailableTotal.Inc()
			result.Notices = append(result.Notices, Notice{
				LineID:  line.ID,
				Kind:    NoticeUnavailable,
				Message: "item is currently out of stock",
			})
			continue
		}

		if line.Quantity > ceiling {
			line.Quantity = ceiling
			util.CartQuantityClampsTotal.Inc()
			result.Notices = append(result.Notices, Notice{
				LineID:  line.ID,
				Kind:    NoticeQuantityReduced,
				Message: "quantity reduced to available stock",
			})
		}
	}

	result.SelectedSubtotal = selectedSubtotal(result.Lines)
	result.DeliveryFee = deliveryFee(result.SelectedSubtotal, opts)
	result.Total = result.SelectedSubtotal + result.DeliveryFee - opts.Discount
	if result.Total < 0 {
		result.Total = 0
	}
	return result
}

func selectedSubtotal(lines []models.CartLine) int64 {
	var subtotal int64
	for i := range lines {
		if lines[i].Selected && !lines[i].Unavailable {
			subtotal += lines[i].UnitPrice * int64(lines[i].Quantity)
		}
	}
	return subtotal
}

func deliveryFee(subtotal int64, opts ReconcileOptions) int64 {
	if subtotal == 0 || subtotal >= opts.FreeShippingThreshold {
		return 0
	}
	return opts.StandardShippingFee
}

// SelectAll sets every non-unavailable line to the same selected state
func SelectAll(lines []models.CartLine, selected bool) []models.CartLine {
	out := make([]models.CartLine, len(lines))
	copy(out, lines)
	for i := range out {
		if !out[i].Unavailable {
			out[i].Selected = selected
		}
	}
	return out
}
