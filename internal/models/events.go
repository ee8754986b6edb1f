package models

import "time"

// Event types
const (
	EventTypeInventoryAdjusted = "INVENTORY_ADJUSTED"
	EventTypeInventoryDeleted  = "INVENTORY_DELETED"
	EventTypeStockLow          = "STOCK_LOW"
	EventTypeStockDepleted     = "STOCK_DEPLETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// InventoryRowData represents the authoritative state of one row as
// confirmed by the store
type InventoryRowData struct {
	ID                int64  `json:"id"`
	ProductID         int64  `json:"product_id"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	Status            string `json:"status"`
}

// InventoryAdjustedEvent published after any successful seller mutation
type InventoryAdjustedEvent struct {
	BaseEvent
	Rows []InventoryRowData `json:"rows"`
}

// InventoryDeletedEvent published after a batch delete
type InventoryDeletedEvent struct {
	BaseEvent
	ItemIDs    []int64 `json:"item_ids"`
	ProductIDs []int64 `json:"product_ids"`
}

// StockLowEvent published when a row crosses into low stock
type StockLowEvent struct {
	BaseEvent
	ItemID    int64 `json:"item_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Threshold int   `json:"threshold"`
}

// StockDepletedEvent published when a row hits zero quantity
type StockDepletedEvent struct {
	BaseEvent
	ItemID    int64 `json:"item_id"`
	ProductID int64 `json:"product_id"`
}
