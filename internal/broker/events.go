package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"storefront-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishInventoryAdjusted publishes InventoryAdjusted event
func (ep *EventPublisher) PublishInventoryAdjusted(ctx context.Context, event *models.InventoryAdjustedEvent) error {
	key := eventKeyForRows(event.Rows)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishInventoryDeleted publishes InventoryDeleted event
func (ep *EventPublisher) PublishInventoryDeleted(ctx context.Context, event *models.InventoryDeletedEvent) error {
	return ep.producer.PublishEvent(ctx, "inventory-delete", event)
}

// PublishStockLow publishes StockLow event
func (ep *EventPublisher) PublishStockLow(ctx context.Context, event *models.StockLowEvent) error {
	key := fmt.Sprintf("item-%d", event.ItemID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishStockDepleted publishes StockDepleted event
func (ep *EventPublisher) PublishStockDepleted(ctx context.Context, event *models.StockDepletedEvent) error {
	key := fmt.Sprintf("item-%d", event.ItemID)
	return ep.producer.PublishEvent(ctx, key, event)
}

func eventKeyForRows(rows []models.InventoryRowData) string {
	if len(rows) == 1 {
		return fmt.Sprintf("item-%d", rows[0].ID)
	}
	return "inventory-batch"
}

// EventHandler routes incoming inventory events
type EventHandler struct {
	onInventoryAdjusted func(context.Context, *models.InventoryAdjustedEvent) error
	onInventoryDeleted  func(context.Context, *models.InventoryDeletedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnInventoryAdjusted registers a handler for InventoryAdjusted events
func (eh *EventHandler) OnInventoryAdjusted(handler func(context.Context, *models.InventoryAdjustedEvent) error) {
	eh.onInventoryAdjusted = handler
}

// OnInventoryDeleted registers a handler for InventoryDeleted events
func (eh *EventHandler) OnInventoryDeleted(handler func(context.Context, *models.InventoryDeletedEvent) error) {
	eh.onInventoryDeleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeInventoryAdjusted:
		if eh.onInventoryAdjusted != nil {
			var event models.InventoryAdjustedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal InventoryAdjusted event: %w", err)
			}
			return eh.onInventoryAdjusted(ctx, &event)
		}

	case models.EventTypeInventoryDeleted:
		if eh.onInventoryDeleted != nil {
			var event models.InventoryDeletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal InventoryDeleted event: %w", err)
			}
			return eh.onInventoryDeleted(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
