package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCartStore struct {
	lines    map[int64]*models.CartLine
	products map[int64]*models.Product
	stock    map[string]int
	nextID   int64
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{
		lines:    make(map[int64]*models.CartLine),
		products: make(map[int64]*models.Product),
		stock:    make(map[string]int),
		nextID:   1,
	}
}

func stockKey(productID int64, color, size string) string {
	return fmt.Sprintf("%d/%s/%s", productID, color, size)
}

func (f *fakeCartStore) GetCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	var out []models.CartLine
	for id := int64(1); id < f.nextID; id++ {
		if line, ok := f.lines[id]; ok && line.UserID == userID && !line.Saved {
			out = append(out, *line)
		}
	}
	return out, nil
}

func (f *fakeCartStore) GetCartLineByID(ctx context.Context, id int64) (*models.CartLine, error) {
	line, ok := f.lines[id]
	if !ok {
		return nil, fmt.Errorf("cart line %d: %w", id, models.ErrNotFound)
	}
	copied := *line
	return &copied, nil
}

func (f *fakeCartStore) InsertCartLine(ctx context.Context, line *models.CartLine) error {
	line.ID = f.nextID
	f.nextID++
	copied := *line
	f.lines[line.ID] = &copied
	return nil
}

func (f *fakeCartStore) UpdateCartLineQuantity(ctx context.Context, id int64, quantity int) error {
	line, ok := f.lines[id]
	if !ok {
		return fmt.Errorf("cart line %d: %w", id, models.ErrNotFound)
	}
	line.Quantity = quantity
	return nil
}

func (f *fakeCartStore) DeleteCartLine(ctx context.Context, id int64) error {
	if _, ok := f.lines[id]; !ok {
		return fmt.Errorf("cart line %d: %w", id, models.ErrNotFound)
	}
	delete(f.lines, id)
	return nil
}

func (f *fakeCartStore) SetSelectedLines(ctx context.Context, userID int64, ids []int64) error {
	selected := make(map[int64]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}
	for _, line := range f.lines {
		if line.UserID == userID {
			line.Selected = selected[line.ID]
		}
	}
	return nil
}

func (f *fakeCartStore) SetLineSaved(ctx context.Context, id int64, saved bool) error {
	line, ok := f.lines[id]
	if !ok {
		return fmt.Errorf("cart line %d: %w", id, models.ErrNotFound)
	}
	line.Saved = saved
	line.Selected = false
	return nil
}

func (f *fakeCartStore) GetLiveStock(ctx context.Context, productID int64, color, size string) (int, int, error) {
	qty, ok := f.stock[stockKey(productID, color, size)]
	if !ok {
		return 0, 0, fmt.Errorf("stock: %w", models.ErrNotFound)
	}
	return qty, 0, nil
}

func (f *fakeCartStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	return p, nil
}

// missCache always misses so the service falls back to the store
type missCache struct{}

func (missCache) GetStock(ctx context.Context, productID int64, color, size string) (int, int, bool, error) {
	return 0, 0, false, nil
}

func newTestCartService() (*CartService, *fakeCartStore) {
	store := newFakeCartStore()
	svc := NewCartService(store, missCache{}, testOpts)
	return svc, store
}

func TestGetCartReconcilesAgainstLiveStock(t *testing.T) {
	svc, store := newTestCartService()
	store.stock[stockKey(7, "Black", "S")] = 3
	store.lines[1] = &models.CartLine{ID: 1, UserID: 42, ProductID: 7, Color: "Black", Size: "S", Quantity: 5, UnitPrice: 100, Selected: true}
	store.nextID = 2

	result, err := svc.GetCart(context.Background(), 42)
	require.NoError(t, err)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, 3, result.Lines[0].Quantity)
	require.Len(t, result.Notices, 1)
	assert.Equal(t, NoticeQuantityReduced, result.Notices[0].Kind)
}

func TestUpdateQuantityRejectsAboveCeiling(t *testing.T) {
	svc, store := newTestCartService()
	store.stock[stockKey(7, "Black", "S")] = 3
	store.lines[1] = &models.CartLine{ID: 1, UserID: 42, ProductID: 7, Color: "Black", Size: "S", Quantity: 1, UnitPrice: 100}
	store.nextID = 2

	err := svc.UpdateQuantity(context.Background(), 1, 5)
	assert.True(t, errors.Is(err, models.ErrOutOfStock))
	// rejected: the stored quantity is unchanged
	assert.Equal(t, 1, store.lines[1].Quantity)

	err = svc.UpdateQuantity(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, store.lines[1].Quantity)
}

func TestUpdateQuantityValidation(t *testing.T) {
	svc, _ := newTestCartService()

	err := svc.UpdateQuantity(context.Background(), 1, 0)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestCommitSelectionPersistsCartLine(t *testing.T) {
	svc, store := newTestCartService()
	store.products[1] = &models.Product{
		ID:    1,
		Price: 400,
		Variants: []models.Variant{
			{Color: "Black", Sizes: map[string]models.Stock{"S": {Quantity: 2}}},
		},
	}

	line, err := svc.CommitSelection(context.Background(), 42, 1, models.Selection{Color: "Black", Size: "S", Quantity: 2})
	require.NoError(t, err)

	assert.NotZero(t, line.ID)
	assert.Equal(t, 2, store.lines[line.ID].Quantity)
	assert.Equal(t, int64(400), store.lines[line.ID].UnitPrice)
}

func TestCommitSelectionBlockedOutOfStock(t *testing.T) {
	svc, store := newTestCartService()
	store.products[1] = &models.Product{
		ID:    1,
		Price: 400,
		Variants: []models.Variant{
			{Color: "Black", Sizes: map[string]models.Stock{"M": {Quantity: 0}}},
		},
	}

	_, err := svc.CommitSelection(context.Background(), 42, 1, models.Selection{Color: "Black", Size: "M", Quantity: 1})
	se, ok := models.IsSelectionError(err)
	require.True(t, ok)
	assert.Equal(t, models.SelectionOutOfStock, se.Kind)
	assert.Empty(t, store.lines)
}

func TestSaveForLaterExcludesFromCart(t *testing.T) {
	svc, store := newTestCartService()
	store.stock[stockKey(7, "", "")] = 5
	store.lines[1] = &models.CartLine{ID: 1, UserID: 42, ProductID: 7, Quantity: 1, UnitPrice: 100, Selected: true}
	store.nextID = 2

	require.NoError(t, svc.SaveForLater(context.Background(), 1))

	result, err := svc.GetCart(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, result.Lines)
	assert.Equal(t, int64(0), result.Total)
}

func TestSetCheckoutItemsRecomputesTotals(t *testing.T) {
	svc, store := newTestCartService()
	store.stock[stockKey(7, "", "")] = 5
	store.stock[stockKey(8, "", "")] = 5
	store.lines[1] = &models.CartLine{ID: 1, UserID: 42, ProductID: 7, Quantity: 1, UnitPrice: 900, Selected: true}
	store.lines[2] = &models.CartLine{ID: 2, UserID: 42, ProductID: 8, Quantity: 1, UnitPrice: 800, Selected: true}
	store.nextID = 3

	result, err := svc.GetCart(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1700), result.SelectedSubtotal)
	assert.Equal(t, int64(0), result.DeliveryFee)

	require.NoError(t, svc.SetCheckoutItems(context.Background(), 42, []int64{1}))

	result, err = svc.GetCart(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(900), result.SelectedSubtotal)
	assert.Equal(t, int64(150), result.DeliveryFee)
	assert.Equal(t, int64(1050), result.Total)
}
