package service

import (
	"errors"
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProduct() *models.Product {
	return &models.Product{
		ID:    1,
		Name:  "Hoodie",
		Price: 400,
		Variants: []models.Variant{
			{ID: 10, Color: "Black", SKU: "HD-BLK", Sizes: map[string]models.Stock{
				"S": {Quantity: 2, LowStockThreshold: 3},
				"M": {Quantity: 0, LowStockThreshold: 3},
			}},
			{ID: 11, Color: "White", SKU: "HD-WHT", Sizes: map[string]models.Stock{
				"S": {Quantity: 5, LowStockThreshold: 3},
			}},
		},
	}
}

func TestResolveNeedsColorFirst(t *testing.T) {
	res, err := Resolve(testProduct(), models.Selection{})
	require.NoError(t, err)

	assert.Equal(t, StepPickColor, res.RequiredStep)
	assert.Equal(t, 0, res.QuantityCeiling)
}

func TestResolveColorPickedNeedsSize(t *testing.T) {
	res, err := Resolve(testProduct(), models.Selection{Color: "Black"})
	require.NoError(t, err)

	assert.Equal(t, StepPickSize, res.RequiredStep)
	assert.Equal(t, []string{"S", "M"}, res.SizesForColor)
	// no implicit default: ceiling stays zero until a size is picked
	assert.Equal(t, 0, res.QuantityCeiling)
}

func TestResolveReadyInStock(t *testing.T) {
	res, err := Resolve(testProduct(), models.Selection{Color: "Black", Size: "S"})
	require.NoError(t, err)

	assert.Equal(t, StepReady, res.RequiredStep)
	assert.Equal(t, 2, res.QuantityCeiling)
	assert.Equal(t, models.StatusLowStock, res.StockStatus)
}

func TestResolveReadyOutOfStock(t *testing.T) {
	// stock gates the buy action, not the selection: an out-of-stock
	// pair still resolves ready with a zero ceiling
	res, err := Resolve(testProduct(), models.Selection{Color: "Black", Size: "M"})
	require.NoError(t, err)

	assert.Equal(t, StepReady, res.RequiredStep)
	assert.Equal(t, 0, res.QuantityCeiling)
	assert.Equal(t, models.StatusOutOfStock, res.StockStatus)
}

func TestResolveUnknownColor(t *testing.T) {
	_, err := Resolve(testProduct(), models.Selection{Color: "Green"})
	assert.True(t, errors.Is(err, models.ErrUnknownVariant))
}

func TestResolveStaleSizeFallsBackToSizePick(t *testing.T) {
	// a size carried over from another color never resolves ready
	res, err := Resolve(testProduct(), models.Selection{Color: "White", Size: "M"})
	require.NoError(t, err)

	assert.Equal(t, StepPickSize, res.RequiredStep)
	assert.Equal(t, []string{"S"}, res.SizesForColor)
}

func TestResolveSingleColorSkipsColorPick(t *testing.T) {
	p := &models.Product{
		ID:    2,
		Price: 100,
		Variants: []models.Variant{
			{Color: "Navy", Sizes: map[string]models.Stock{
				"M": {Quantity: 4},
			}},
		},
	}

	res, err := Resolve(p, models.Selection{})
	require.NoError(t, err)
	assert.Equal(t, StepPickSize, res.RequiredStep)
	assert.Equal(t, []string{"M"}, res.SizesForColor)
}

func TestResolveFlatStockShortCircuits(t *testing.T) {
	p := &models.Product{
		ID:        3,
		Price:     250,
		FlatStock: &models.Stock{Quantity: 7, LowStockThreshold: 2},
	}

	res, err := Resolve(p, models.Selection{})
	require.NoError(t, err)
	assert.Equal(t, StepReady, res.RequiredStep)
	assert.Equal(t, 7, res.QuantityCeiling)
	assert.Equal(t, models.StatusInStock, res.StockStatus)
}

func TestResolveNeverReadyWithForeignSize(t *testing.T) {
	// resolve never returns ready with a size missing from the
	// currently selected color's size list
	p := testProduct()
	for _, color := range []string{"Black", "White"} {
		for _, size := range []string{"S", "M", "XL"} {
			res, err := Resolve(p, models.Selection{Color: color, Size: size})
			require.NoError(t, err)
			if res.RequiredStep == StepReady {
				assert.Contains(t, res.SizesForColor, size)
			}
		}
	}
}

func TestResolveCanonicalSizeOrder(t *testing.T) {
	p := &models.Product{
		ID:    4,
		Price: 100,
		Variants: []models.Variant{
			{Color: "Gray", Sizes: map[string]models.Stock{
				"L":    {Quantity: 1},
				"XS":   {Quantity: 1},
				"Tall": {Quantity: 1},
				"3XL":  {Quantity: 1},
				"M":    {Quantity: 1},
			}},
		},
	}

	res, err := Resolve(p, models.Selection{Color: "Gray"})
	require.NoError(t, err)
	assert.Equal(t, []string{"XS", "M", "L", "3XL", "Tall"}, res.SizesForColor)
}
