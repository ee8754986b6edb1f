package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CartStore is the persistence surface the cart service depends on
type CartStore interface {
	GetCartLines(ctx context.Context, userID int64) ([]models.CartLine, error)
	GetCartLineByID(ctx context.Context, id int64) (*models.CartLine, error)
	InsertCartLine(ctx context.Context, line *models.CartLine) error
	UpdateCartLineQuantity(ctx context.Context, id int64, quantity int) error
	DeleteCartLine(ctx context.Context, id int64) error
	SetSelectedLines(ctx context.Context, userID int64, ids []int64) error
	SetLineSaved(ctx context.Context, id int64, saved bool) error
	GetLiveStock(ctx context.Context, productID int64, color, size string) (int, int, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
}

// StockCache is the fast live-stock read path; a miss falls back to
// the store.
type StockCache interface {
	GetStock(ctx context.Context, productID int64, color, size string) (quantity, threshold int, found bool, err error)
}

// CartService keeps a user's cart consistent with live stock and
// derives the order summary from the selected lines.
type CartService struct {
	store  CartStore
	cache  StockCache
	opts   ReconcileOptions
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore, cache StockCache, opts ReconcileOptions) *CartService {
	return &CartService{
		store:  store,
		cache:  cache,
		opts:   opts,
		logger: util.GetLogger(),
	}
}

// liveCeiling resolves the quantity ceiling for one line, preferring
// the cache and falling back to the authoritative store.
func (cs *CartService) liveCeiling(ctx context.Context, productID int64, color, size string) (int, error) {
	if cs.cache != nil {
		qty, _, found, err := cs.cache.GetStock(ctx, productID, color, size)
		if err == nil && found {
			return qty, nil
		}
		if err != nil {
			cs.logger.Warn("Stock cache read failed, falling back to store",
				zap.Int64("product_id", productID),
				zap.Error(err))
		}
		util.StockCacheMissesTotal.Inc()
	}

	qty, _, err := cs.store.GetLiveStock(ctx, productID, color, size)
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// GetCart loads and reconciles the user's cart against live stock
func (cs *CartService) GetCart(ctx context.Context, userID int64) (ReconcileResult, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	lines, err := cs.store.GetCartLines(ctx, userID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("failed to load cart: %w", err)
	}

	lookup := func(productID int64, color, size string) (int, error) {
		return cs.liveCeiling(ctx, productID, color, size)
	}
	return Reconcile(lines, lookup, cs.opts), nil
}

// UpdateQuantity changes one line's requested quantity. Requests above
// the live ceiling are rejected rather than silently clamped; the
// periodic reconcile is what clamps lines after stock drops.
func (cs *CartService) UpdateQuantity(ctx context.Context, lineID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateQuantity")
	defer span.End()

	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1: %w", models.ErrValidation)
	}

	line, err := cs.store.GetCartLineByID(ctx, lineID)
	if err != nil {
		return err
	}

	ceiling, err := cs.liveCeiling(ctx, line.ProductID, line.Color, line.Size)
	if err != nil {
		return fmt.Errorf("failed to check live stock: %w", err)
	}
	if quantity > ceiling {
		return fmt.Errorf("requested %d, only %d in stock: %w", quantity, ceiling, models.ErrOutOfStock)
	}

	return cs.store.UpdateCartLineQuantity(ctx, lineID, quantity)
}

// Remove deletes a line from the cart
func (cs *CartService) Remove(ctx context.Context, lineID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.Remove")
	defer span.End()

	return cs.store.DeleteCartLine(ctx, lineID)
}

// SetCheckoutItems marks exactly the given lines as selected for checkout
func (cs *CartService) SetCheckoutItems(ctx context.Context, userID int64, lineIDs []int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.SetCheckoutItems")
	defer span.End()

	return cs.store.SetSelectedLines(ctx, userID, lineIDs)
}

// SaveForLater moves a line out of the cart into the saved list
func (cs *CartService) SaveForLater(ctx context.Context, lineID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.SaveForLater")
	defer span.End()

	return cs.store.SetLineSaved(ctx, lineID, true)
}

// CommitSelection turns a ready selection into a persisted cart line
// ("add to bag"). Stock is not decremented here; only the order
// placement path does that.
func (cs *CartService) CommitSelection(ctx context.Context, userID, productID int64, sel models.Selection) (*models.CartLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.CommitSelection")
	defer span.End()

	product, err := cs.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	machine := NewSelectionMachine(product)
	line, err := machine.Commit(sel, userID)
	if err != nil {
		return nil, err
	}

	if err := cs.store.InsertCartLine(ctx, &line); err != nil {
		return nil, err
	}

	cs.logger.Info("Selection committed to cart",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int64("line_id", line.ID))
	return &line, nil
}

// SizesForColor answers the size list and per-size availability for
// one color, backing the product page size picker.
func (cs *CartService) SizesForColor(ctx context.Context, productID int64, color string) (map[string]models.Stock, error) {
	ctx, span := util.StartSpan(ctx, "CartService.SizesForColor")
	defer span.End()

	product, err := cs.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	variant, ok := product.VariantByColor(color)
	if !ok {
		return nil, fmt.Errorf("color %q: %w", color, models.ErrUnknownVariant)
	}
	return variant.Sizes, nil
}

// ResolveSelection resolves a posted selection for the product page
func (cs *CartService) ResolveSelection(ctx context.Context, productID int64, sel models.Selection) (Resolution, error) {
	ctx, span := util.StartSpan(ctx, "CartService.ResolveSelection")
	defer span.End()

	product, err := cs.store.GetProductByID(ctx, productID)
	if err != nil {
		return Resolution{}, err
	}
	return Resolve(product, sel)
}
