package service

import (
	"fmt"
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOpts = ReconcileOptions{
	FreeShippingThreshold: 1500,
	StandardShippingFee:   150,
}

func stockTable(stock map[string]int) StockLookup {
	return func(productID int64, color, size string) (int, error) {
		key := fmt.Sprintf("%d/%s/%s", productID, color, size)
		qty, ok := stock[key]
		if !ok {
			return 0, fmt.Errorf("no stock entry for %s", key)
		}
		return qty, nil
	}
}

func TestReconcileClampsQuantityAndKeepsSelected(t *testing.T) {
	lines := []models.CartLine{
		{ID: 1, ProductID: 7, Color: "Black", Size: "S", Quantity: 5, UnitPrice: 100, Selected: true},
	}
	lookup := stockTable(map[string]int{"7/Black/S": 3})

	result := Reconcile(lines, lookup, testOpts)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, 3, result.Lines[0].Quantity)
	assert.True(t, result.Lines[0].Selected)

	require.Len(t, result.Notices, 1)
	assert.Equal(t, NoticeQuantityReduced, result.Notices[0].Kind)
	assert.Equal(t, int64(1), result.Notices[0].LineID)
}

func TestReconcileUnavailableLineNotRemoved(t *testing.T) {
	lines := []models.CartLine{
		{ID: 1, ProductID: 7, Color: "Black", Size: "S", Quantity: 2, UnitPrice: 100, Selected: true},
		{ID: 2, ProductID: 7, Color: "Black", Size: "M", Quantity: 1, UnitPrice: 100, Selected: true},
	}
	lookup := stockTable(map[string]int{"7/Black/S": 2, "7/Black/M": 0})

	result := Reconcile(lines, lookup, testOpts)

	require.Len(t, result.Lines, 2)
	assert.True(t, result.Lines[1].Unavailable)
	assert.Empty(t, result.RemovedLineIDs)

	// excluded from totals but left in place for explicit removal
	assert.Equal(t, int64(200), result.SelectedSubtotal)
}

func TestReconcileIdempotent(t *testing.T) {
	lines := []models.CartLine{
		{ID: 1, ProductID: 7, Color: "Black", Size: "S", Quantity: 5, UnitPrice: 100, Selected: true},
		{ID: 2, ProductID: 8, Color: "", Size: "", Quantity: 1, UnitPrice: 900, Selected: false},
	}
	lookup := stockTable(map[string]int{"7/Black/S": 3, "8//": 4})

	first := Reconcile(lines, lookup, testOpts)
	second := Reconcile(first.Lines, lookup, testOpts)

	assert.Equal(t, first.Lines, second.Lines)
	assert.Equal(t, first.SelectedSubtotal, second.SelectedSubtotal)
	assert.Equal(t, first.DeliveryFee, second.DeliveryFee)
	assert.Equal(t, first.Total, second.Total)
	// the clamp already happened; no new notices on the second pass
	assert.Empty(t, second.Notices)
}

func TestDeliveryFeeRules(t *testing.T) {
	cases := []struct {
		subtotal int64
		fee      int64
	}{
		{1600, 0},
		{1500, 0},
		{800, 150},
		{0, 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.fee, deliveryFee(tc.subtotal, testOpts),
			"subtotal=%d", tc.subtotal)
	}
}

func TestReconcileTotals(t *testing.T) {
	lines := []models.CartLine{
		{ID: 1, ProductID: 7, Color: "Black", Size: "S", Quantity: 2, UnitPrice: 300, Selected: true},
		{ID: 2, ProductID: 8, Quantity: 1, UnitPrice: 500, Selected: true},
		{ID: 3, ProductID: 9, Quantity: 4, UnitPrice: 50, Selected: false},
	}
	lookup := stockTable(map[string]int{"7/Black/S": 5, "8//": 5, "9//": 5})

	result := Reconcile(lines, lookup, testOpts)

	// unselected lines contribute nothing
	assert.Equal(t, int64(1100), result.SelectedSubtotal)
	assert.Equal(t, int64(150), result.DeliveryFee)
	assert.Equal(t, int64(1250), result.Total)
}

func TestReconcileDiscountApplied(t *testing.T) {
	lines := []models.CartLine{
		{ID: 1, ProductID: 7, Quantity: 1, UnitPrice: 2000, Selected: true},
	}
	lookup := stockTable(map[string]int{"7//": 3})

	opts := testOpts
	opts.Discount = 250
	result := Reconcile(lines, lookup, opts)

	assert.Equal(t, int64(2000), result.SelectedSubtotal)
	assert.Equal(t, int64(0), result.DeliveryFee)
	assert.Equal(t, int64(1750), result.Total)
}

func TestReconcileLookupFailureLeavesLineUntouched(t *testing.T) {
	lines := []models.CartLine{
		{ID: 1, ProductID: 7, Quantity: 2, UnitPrice: 100, Selected: true},
	}
	lookup := stockTable(map[string]int{})

	result := Reconcile(lines, lookup, testOpts)

	assert.Equal(t, 2, result.Lines[0].Quantity)
	assert.False(t, result.Lines[0].Unavailable)
	assert.Empty(t, result.Notices)
}

func TestSelectAllSkipsUnavailable(t *testing.T) {
	lines := []models.CartLine{
		{ID: 1, Selected: false},
		{ID: 2, Selected: false, Unavailable: true},
		{ID: 3, Selected: true},
	}

	selected := SelectAll(lines, true)
	assert.True(t, selected[0].Selected)
	assert.False(t, selected[1].Selected)
	assert.True(t, selected[2].Selected)

	cleared := SelectAll(selected, false)
	assert.False(t, cleared[0].Selected)
	assert.False(t, cleared[2].Selected)
}

func TestSelectAllDeterministicTotals(t *testing.T) {
	lines := []models.CartLine{
		{ID: 1, ProductID: 7, Quantity: 1, UnitPrice: 700, Selected: false},
		{ID: 2, ProductID: 8, Quantity: 2, UnitPrice: 400, Selected: false},
	}
	lookup := stockTable(map[string]int{"7//": 5, "8//": 5})

	all := SelectAll(lines, true)
	result := Reconcile(all, lookup, testOpts)
	assert.Equal(t, int64(1500), result.SelectedSubtotal)
	assert.Equal(t, int64(0), result.DeliveryFee)

	none := SelectAll(lines, false)
	result = Reconcile(none, lookup, testOpts)
	assert.Equal(t, int64(0), result.SelectedSubtotal)
	assert.Equal(t, int64(0), result.DeliveryFee)
	assert.Equal(t, int64(0), result.Total)
}
