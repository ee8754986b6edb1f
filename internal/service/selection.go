package service

import (
	"fmt"
	"sync"

	"storefront-service/internal/models"
	"storefront-service/internal/util"
)

// SelectionMachine drives a shopper's selection for one product. All
// transitions take the current Selection value and return the next
// one; invalid transitions return the input unchanged together with a
// SelectionError. The machine never mutates stock.
type SelectionMachine struct {
	product *models.Product
}

// NewSelectionMachine creates a selection machine over a product snapshot
func NewSelectionMachine(product *models.Product) *SelectionMachine {
	return &SelectionMachine{product: product}
}

// PickColor transitions to the given color. Any previously picked size
// is cleared, since size choices are not transferable across colors.
func (m *SelectionMachine) PickColor(sel models.Selection, color string) (models.Selection, Resolution, error) {
	if _, ok := m.product.VariantByColor(color); !ok {
		return sel, Resolution{}, fmt.Errorf("color %q: %w", color, models.ErrUnknownVariant)
	}

	next := models.Selection{Color: color, Quantity: 1}
	res, err := Resolve(m.product, next)
	if err != nil {
		return sel, Resolution{}, err
	}
	return next, res, nil
}

// PickSize transitions to the given size for the currently picked
// color. Requires a picked color unless the matrix has a single color.
func (m *SelectionMachine) PickSize(sel models.Selection, size string) (models.Selection, Resolution, error) {
	color := sel.Color
	if color == "" {
		if len(m.product.Variants) == 1 {
			color = m.product.Variants[0].Color
		} else {
			util.SelectionErrorsTotal.WithLabelValues(models.SelectionColorRequired).Inc()
			return sel, Resolution{}, models.NewSelectionError(
				models.SelectionColorRequired, "pick a color first")
		}
	}

	variant, ok := m.product.VariantByColor(color)
	if !ok {
		return sel, Resolution{}, models.NewSelectionError(
			models.SelectionColorRequired, "pick a color first")
	}
	if _, ok := variant.Sizes[size]; !ok {
		util.SelectionErrorsTotal.WithLabelValues(models.SelectionSizeNotAvailable).Inc()
		return sel, Resolution{}, models.NewSelectionError(
			models.SelectionSizeNotAvailable, "size is not available for this color")
	}

	next := models.Selection{Color: color, Size: size, Quantity: sel.Quantity}
	res, err := Resolve(m.product, next)
	if err != nil {
		return sel, Resolution{}, err
	}
	next.Quantity = clampQuantity(next.Quantity, res.QuantityCeiling)
	return next, res, nil
}

// ChangeQuantityBy applies a signed delta to the quantity, clamped to
// [1, ceiling]. Valid only once both color and size are picked.
func (m *SelectionMachine) ChangeQuantityBy(sel models.Selection, delta int) (models.Selection, error) {
	res, err := m.requireReady(sel)
	if err != nil {
		return sel, err
	}
	sel.Quantity = clampQuantity(sel.Quantity+delta, res.QuantityCeiling)
	return sel, nil
}

// SetQuantity sets an absolute quantity, clamped to [1, ceiling].
func (m *SelectionMachine) SetQuantity(sel models.Selection, quantity int) (models.Selection, error) {
	res, err := m.requireReady(sel)
	if err != nil {
		return sel, err
	}
	sel.Quantity = clampQuantity(quantity, res.QuantityCeiling)
	return sel, nil
}

// Commit turns a ready selection into a cart line. It fails with an
// OutOfStock selection error when the ceiling is zero; stock itself is
// only ever decremented by the backing store on order placement.
func (m *SelectionMachine) Commit(sel models.Selection, userID int64) (models.CartLine, error) {
	res, err := m.requireReady(sel)
	if err != nil {
		return models.CartLine{}, err
	}
	if res.QuantityCeiling < 1 {
		util.SelectionErrorsTotal.WithLabelValues(models.SelectionOutOfStock).Inc()
		return models.CartLine{}, models.NewSelectionError(
			models.SelectionOutOfStock, "this combination is out of stock")
	}

	return models.CartLine{
		UserID:    userID,
		ProductID: m.product.ID,
		Color:     sel.Color,
		Size:      sel.Size,
		Quantity:  clampQuantity(sel.Quantity, res.QuantityCeiling),
		UnitPrice: m.product.Price,
		Selected:  true,
	}, nil
}

func (m *SelectionMachine) requireReady(sel models.Selection) (Resolution, error) {
	res, err := Resolve(m.product, sel)
	if err != nil {
		return Resolution{}, err
	}
	switch res.RequiredStep {
	case StepPickColor:
		util.SelectionErrorsTotal.WithLabelValues(models.SelectionColorRequired).Inc()
		return Resolution{}, models.NewSelectionError(
			models.SelectionColorRequired, "pick a color first")
	case StepPickSize:
		util.SelectionErrorsTotal.WithLabelValues(models.SelectionSizeRequired).Inc()
		return Resolution{}, models.NewSelectionError(
			models.SelectionSizeRequired, "pick a size first")
	}
	return res, nil
}

// clampQuantity keeps quantity in [1, ceiling]. A zero ceiling forces
// quantity to 1; the commit path is what blocks the purchase.
func clampQuantity(quantity, ceiling int) int {
	if ceiling < 1 || quantity < 1 {
		return 1
	}
	if quantity > ceiling {
		return ceiling
	}
	return quantity
}

// SelectionSession guards async resolutions for one shopper session.
// A selection change bumps the sequence so a resolve that was already
// in flight cannot overwrite a newer result.
type SelectionSession struct {
	mu        sync.Mutex
	seq       uint64
	selection models.Selection
	res       Resolution
}

// NewSelectionSession creates an empty session
func NewSelectionSession() *SelectionSession {
	return &SelectionSession{}
}

// Begin records a selection change and returns the sequence number the
// caller must present when applying the matching resolution.
func (s *SelectionSession) Begin(sel models.Selection) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.selection = sel
	return s.seq
}

// ApplyResolution stores the resolution if seq is still current.
// Stale results are discarded and reported as false.
func (s *SelectionSession) ApplyResolution(seq uint64, res Resolution) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return false
	}
	s.res = res
	return true
}

// Current returns the session's selection and last applied resolution
func (s *SelectionSession) Current() (models.Selection, Resolution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection, s.res
}
