package worker

import (
	"context"
	"log"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
)

// EventStore provides idempotency bookkeeping for consumed events
type EventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// CacheWriter mirrors authoritative stock into the fast read path
type CacheWriter interface {
	SetStock(ctx context.Context, productID int64, color, size string, quantity, threshold int) error
	DeleteStock(ctx context.Context, productID int64, color, size string) error
}

// InventoryWorker consumes inventory events and refreshes the
// live-stock cache so shopper reads never depend on a stale local
// copy.
type InventoryWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        EventStore
	cache        CacheWriter
}

// NewInventoryWorker creates a new inventory worker
func NewInventoryWorker(consumer *broker.Consumer, store EventStore, cache CacheWriter) *InventoryWorker {
	w := &InventoryWorker{
		consumer: consumer,
		store:    store,
		cache:    cache,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnInventoryAdjusted(w.handleInventoryAdjusted)
	eventHandler.OnInventoryDeleted(w.handleInventoryDeleted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *InventoryWorker) Start(ctx context.Context) error {
	log.Println("Starting inventory worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *InventoryWorker) Stop() error {
	log.Println("Stopping inventory worker...")
	return w.consumer.Close()
}

func (w *InventoryWorker) handleInventoryAdjusted(ctx context.Context, event *models.InventoryAdjustedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		log.Printf("Event already processed: %s", event.EventID)
		return nil
	}

	for _, row := range event.Rows {
		if err := w.cache.SetStock(ctx, row.ProductID, "", "", row.Quantity, row.LowStockThreshold); err != nil {
			log.Printf("Failed to refresh cache for product %d: %v", row.ProductID, err)
		}
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *InventoryWorker) handleInventoryDeleted(ctx context.Context, event *models.InventoryDeletedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		log.Printf("Event already processed: %s", event.EventID)
		return nil
	}

	for _, productID := range event.ProductIDs {
		if err := w.cache.DeleteStock(ctx, productID, "", ""); err != nil {
			log.Printf("Failed to drop cache entry for product %d: %v", productID, err)
		}
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
