package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Batch actions applied uniformly to quantity
const (
	BatchActionSet       = "set"
	BatchActionIncrement = "increment"
	BatchActionDecrement = "decrement"
)

// InventoryStore is the authoritative persistence surface for seller
// inventory rows. Its return values are the only state the service
// trusts after a mutation.
type InventoryStore interface {
	ListInventoryRows(ctx context.Context) ([]models.InventoryRow, error)
	GetInventoryItem(ctx context.Context, id int64) (*models.InventoryRow, error)
	InsertInventoryItem(ctx context.Context, productID int64, quantity, threshold int) (*models.InventoryRow, error)
	UpdateInventoryItem(ctx context.Context, id int64, quantity, threshold int) (*models.InventoryRow, error)
	UpdateInventoryQuantity(ctx context.Context, id int64, quantity int) (*models.InventoryRow, error)
	UpdateInventoryThreshold(ctx context.Context, id int64, threshold int) (*models.InventoryRow, error)
	BatchUpdateQuantity(ctx context.Context, ids []int64, action string, value int) ([]models.InventoryRow, []int64, error)
	BatchDelete(ctx context.Context, ids []int64) ([]models.InventoryRow, error)
}

// StockCacheWriter refreshes the live-stock cache after mutations
type StockCacheWriter interface {
	SetStock(ctx context.Context, productID int64, color, size string, quantity, threshold int) error
	DeleteStock(ctx context.Context, productID int64, color, size string) error
}

// InventoryPublisher publishes inventory domain events
type InventoryPublisher interface {
	PublishInventoryAdjusted(ctx context.Context, event *models.InventoryAdjustedEvent) error
	PublishInventoryDeleted(ctx context.Context, event *models.InventoryDeletedEvent) error
	PublishStockLow(ctx context.Context, event *models.StockLowEvent) error
	PublishStockDepleted(ctx context.Context, event *models.StockDepletedEvent) error
}

// RowLocker holds a distributed lock per inventory row so two seller
// sessions (or two service instances) cannot interleave edits to the
// same row.
type RowLocker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

const (
	rowLockTTL   = 5 * time.Second
	rowLockRetry = 50 * time.Millisecond
)

// InventoryService applies seller mutations against the backing store.
// Local state is only replaced with server-confirmed rows: a failed
// call changes nothing, and derived status always comes from the
// store's response, never from an optimistic guess.
type InventoryService struct {
	store     InventoryStore
	cache     StockCacheWriter
	publisher InventoryPublisher
	locker    RowLocker
	logger    *zap.Logger

	mu       sync.Mutex
	rowLocks map[int64]*sync.Mutex
}

// NewInventoryService creates a new inventory mutation service
func NewInventoryService(store InventoryStore, cache StockCacheWriter, publisher InventoryPublisher, locker RowLocker) *InventoryService {
	return &InventoryService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		locker:    locker,
		logger:    util.GetLogger(),
		rowLocks:  make(map[int64]*sync.Mutex),
	}
}

// lockRow serializes in-flight mutations touching the same row so a
// stale response can never overwrite a newer one. The local mutex
// orders edits within this process; the distributed lock extends the
// same guarantee across service instances.
func (is *InventoryService) lockRow(ctx context.Context, id int64) (func(), error) {
	is.mu.Lock()
	l, ok := is.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		is.rowLocks[id] = l
	}
	is.mu.Unlock()

	l.Lock()

	if is.locker == nil {
		return l.Unlock, nil
	}

	key := fmt.Sprintf("inventory-row:%d", id)
	for {
		acquired, err := is.locker.AcquireLock(ctx, key, rowLockTTL)
		if err != nil {
			l.Unlock()
			return nil, fmt.Errorf("failed to acquire row lock: %w", err)
		}
		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			l.Unlock()
			return nil, ctx.Err()
		case <-time.After(rowLockRetry):
		}
	}

	return func() {
		if err := is.locker.ReleaseLock(ctx, key); err != nil {
			is.logger.Warn("Failed to release row lock",
				zap.Int64("item_id", id),
				zap.Error(err))
		}
		l.Unlock()
	}, nil
}

// AddItemInput is the payload for adding an inventory row
type AddItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"stock"`
	Threshold int   `json:"low_stock_threshold"`
}

// Add validates and appends a new inventory row
func (is *InventoryService) Add(ctx context.Context, in AddItemInput) (*models.InventoryRow, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Add")
	defer span.End()
	defer observeMutation("add", time.Now())

	if in.ProductID <= 0 {
		return nil, failMutation("add", "invalid_product", "product_id is required")
	}
	if in.Quantity < 0 {
		return nil, failMutation("add", "invalid_quantity", "stock must not be negative")
	}
	if in.Threshold < 0 {
		return nil, failMutation("add", "invalid_threshold", "threshold must not be negative")
	}

	row, err := is.store.InsertInventoryItem(ctx, in.ProductID, in.Quantity, in.Threshold)
	if err != nil {
		util.InventoryMutationsFailedTotal.WithLabelValues("add", "store_error").Inc()
		return nil, err
	}

	util.InventoryMutationsTotal.WithLabelValues("add").Inc()
	is.afterMutation(ctx, []models.InventoryRow{*row})
	return row, nil
}

// Edit sets quantity and threshold on one row; status is recomputed
// from the store-confirmed values.
func (is *InventoryService) Edit(ctx context.Context, id int64, quantity, threshold int) (*models.InventoryRow, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Edit")
	defer span.End()
	defer observeMutation("edit", time.Now())

	if quantity < 0 {
		return nil, failMutation("edit", "invalid_quantity", "stock must not be negative")
	}
	if threshold < 0 {
		return nil, failMutation("edit", "invalid_threshold", "threshold must not be negative")
	}

	unlock, err := is.lockRow(ctx, id)
	if err != nil {
		util.InventoryMutationsFailedTotal.WithLabelValues("edit", "lock_error").Inc()
		return nil, err
	}
	defer unlock()

	row, err := is.store.UpdateInventoryItem(ctx, id, quantity, threshold)
	if err != nil {
		util.InventoryMutationsFailedTotal.WithLabelValues("edit", "store_error").Inc()
		return nil, err
	}

	util.InventoryMutationsTotal.WithLabelValues("edit").Inc()
	is.afterMutation(ctx, []models.InventoryRow{*row})
	return row, nil
}

// QuickEdit updates a single field ("stock" or "threshold") on one row
func (is *InventoryService) QuickEdit(ctx context.Context, id int64, field string, value int) (*models.InventoryRow, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.QuickEdit")
	defer span.End()
	defer observeMutation("quick_edit", time.Now())

	if value < 0 {
		return nil, failMutation("quick_edit", "invalid_value", "value must not be negative")
	}

	unlock, err := is.lockRow(ctx, id)
	if err != nil {
		util.InventoryMutationsFailedTotal.WithLabelValues("quick_edit", "lock_error").Inc()
		return nil, err
	}
	defer unlock()

	var row *models.InventoryRow
	switch field {
	case "stock":
		row, err = is.store.UpdateInventoryQuantity(ctx, id, value)
	case "threshold":
		row, err = is.store.UpdateInventoryThreshold(ctx, id, value)
	default:
		return nil, failMutation("quick_edit", "invalid_field",
			fmt.Sprintf("unknown field %q", field))
	}
	if err != nil {
		util.InventoryMutationsFailedTotal.WithLabelValues("quick_edit", "store_error").Inc()
		return nil, err
	}

	util.InventoryMutationsTotal.WithLabelValues("quick_edit").Inc()
	is.afterMutation(ctx, []models.InventoryRow{*row})
	return row, nil
}

// BatchResult reports a batch mutation: the server-confirmed rows plus
// the ids that were skipped because they no longer exist.
type BatchResult struct {
	Rows    []models.InventoryRow `json:"items"`
	Skipped []int64               `json:"skipped,omitempty"`
}

// BatchUpdate applies set/increment/decrement uniformly to the given
// rows. Missing ids are skipped and reported, not fatal to the batch.
func (is *InventoryService) BatchUpdate(ctx context.Context, ids []int64, action string, value int) (*BatchResult, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.BatchUpdate")
	defer span.End()
	defer observeMutation("batch_update", time.Now())

	if len(ids) == 0 {
		return nil, failMutation("batch_update", "empty_batch", "no ids given")
	}
	if action != BatchActionSet && action != BatchActionIncrement && action != BatchActionDecrement {
		return nil, failMutation("batch_update", "invalid_action",
			fmt.Sprintf("unknown action %q", action))
	}
	if value < 0 {
		return nil, failMutation("batch_update", "invalid_value", "value must not be negative")
	}

	rows, skipped, err := is.store.BatchUpdateQuantity(ctx, ids, action, value)
	if err != nil {
		util.InventoryMutationsFailedTotal.WithLabelValues("batch_update", "store_error").Inc()
		return nil, err
	}

	util.InventoryMutationsTotal.WithLabelValues("batch_update").Inc()
	util.InventoryBatchSkippedTotal.Add(float64(len(skipped)))
	if len(skipped) > 0 {
		is.logger.Warn("Batch update skipped missing ids",
			zap.Int64s("skipped", skipped))
	}

	is.afterMutation(ctx, rows)
	return &BatchResult{Rows: rows, Skipped: skipped}, nil
}

// BatchDelete removes all matching rows; missing ids are ignored
func (is *InventoryService) BatchDelete(ctx context.Context, ids []int64) ([]int64, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.BatchDelete")
	defer span.End()
	defer observeMutation("batch_delete", time.Now())

	if len(ids) == 0 {
		return nil, failMutation("batch_delete", "empty_batch", "no ids given")
	}

	deleted, err := is.store.BatchDelete(ctx, ids)
	if err != nil {
		util.InventoryMutationsFailedTotal.WithLabelValues("batch_delete", "store_error").Inc()
		return nil, err
	}

	util.InventoryMutationsTotal.WithLabelValues("batch_delete").Inc()

	deletedIDs := make([]int64, 0, len(deleted))
	productIDs := make([]int64, 0, len(deleted))
	for i := range deleted {
		deletedIDs = append(deletedIDs, deleted[i].ID)
		productIDs = append(productIDs, deleted[i].ProductID)

		if is.cache != nil {
			if err := is.cache.DeleteStock(ctx, deleted[i].ProductID, "", ""); err != nil {
				is.logger.Error("Failed to drop stock cache entry",
					zap.Int64("product_id", deleted[i].ProductID),
					zap.Error(err))
			}
		}
	}

	if is.publisher != nil && len(deleted) > 0 {
		event := &models.InventoryDeletedEvent{
			BaseEvent:  newBaseEvent(models.EventTypeInventoryDeleted),
			ItemIDs:    deletedIDs,
			ProductIDs: productIDs,
		}
		if err := is.publisher.PublishInventoryDeleted(ctx, event); err != nil {
			is.logger.Error("Failed to publish InventoryDeleted event", zap.Error(err))
		}
	}

	return deletedIDs, nil
}

// Snapshot returns the current rows plus aggregates. Aggregates are
// rebuilt by a full rescan after every mutation, never patched
// incrementally.
func (is *InventoryService) Snapshot(ctx context.Context) ([]models.InventoryRow, models.InventorySummary, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Snapshot")
	defer span.End()

	rows, err := is.store.ListInventoryRows(ctx)
	if err != nil {
		return nil, models.InventorySummary{}, err
	}
	return rows, models.Summarize(rows), nil
}

// afterMutation fans the server-confirmed rows out to the cache and
// the event stream. Failures here are logged, not propagated: the
// store already accepted the mutation and the worker path re-syncs
// the cache from the event stream.
func (is *InventoryService) afterMutation(ctx context.Context, rows []models.InventoryRow) {
	if len(rows) == 0 {
		return
	}

	eventRows := make([]models.InventoryRowData, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		eventRows = append(eventRows, models.InventoryRowData{
			ID:                row.ID,
			ProductID:         row.ProductID,
			Quantity:          row.TotalStock,
			LowStockThreshold: row.LowStockThreshold,
			Status:            row.Status,
		})

		if is.cache != nil {
			if err := is.cache.SetStock(ctx, row.ProductID, "", "", row.TotalStock, row.LowStockThreshold); err != nil {
				is.logger.Error("Failed to refresh stock cache",
					zap.Int64("product_id", row.ProductID),
					zap.Error(err))
			}
		}
	}

	if is.publisher == nil {
		return
	}

	event := &models.InventoryAdjustedEvent{
		BaseEvent: newBaseEvent(models.EventTypeInventoryAdjusted),
		Rows:      eventRows,
	}
	if err := is.publisher.PublishInventoryAdjusted(ctx, event); err != nil {
		is.logger.Error("Failed to publish InventoryAdjusted event", zap.Error(err))
	}

	for i := range rows {
		row := &rows[i]
		switch row.Status {
		case models.StatusLowStock:
			lowEvent := &models.StockLowEvent{
				BaseEvent: newBaseEvent(models.EventTypeStockLow),
				ItemID:    row.ID,
				ProductID: row.ProductID,
				Quantity:  row.TotalStock,
				Threshold: row.LowStockThreshold,
			}
			if err := is.publisher.PublishStockLow(ctx, lowEvent); err != nil {
				is.logger.Error("Failed to publish StockLow event", zap.Error(err))
			}
		case models.StatusOutOfStock:
			depletedEvent := &models.StockDepletedEvent{
				BaseEvent: newBaseEvent(models.EventTypeStockDepleted),
				ItemID:    row.ID,
				ProductID: row.ProductID,
			}
			if err := is.publisher.PublishStockDepleted(ctx, depletedEvent); err != nil {
				is.logger.Error("Failed to publish StockDepleted event", zap.Error(err))
			}
		}
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func failMutation(operation, reason, message string) error {
	util.InventoryMutationsFailedTotal.WithLabelValues(operation, reason).Inc()
	return fmt.Errorf("%s: %w", message, models.ErrValidation)
}

func observeMutation(operation string, start time.Time) {
	util.InventoryMutationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
