package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// ListInventoryRows retrieves the seller's inventory view, one row per
// product. Total stock for matrix products is the sum over all
// (color, size) pairs; flat products report the row quantity itself.
func (s *Store) ListInventoryRows(ctx context.Context) ([]models.InventoryRow, error) {
	var rows []models.InventoryRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT ii.id, ii.product_id, p.name,
		        COALESCE(pv.sku, '') AS sku,
		        COALESCE(vs.total, ii.quantity) AS total_stock,
		        ii.low_stock_threshold
		 FROM inventory_items ii
		 JOIN products p ON p.id = ii.product_id
		 LEFT JOIN LATERAL (
		     SELECT sku FROM product_variants WHERE product_id = p.id ORDER BY id LIMIT 1
		 ) pv ON true
		 LEFT JOIN LATERAL (
		     SELECT SUM(vsz.quantity)::int AS total
		     FROM variant_sizes vsz
		     JOIN product_variants v ON v.id = vsz.variant_id
		     WHERE v.product_id = p.id
		 ) vs ON true
		 ORDER BY ii.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory rows: %w", err)
	}

	for i := range rows {
		rows[i].DeriveStatus()
	}
	return rows, nil
}

// GetInventoryItem retrieves one seller inventory row by id
func (s *Store) GetInventoryItem(ctx context.Context, id int64) (*models.InventoryRow, error) {
	var row models.InventoryRow
	err := s.db.GetContext(ctx, &row,
		`SELECT ii.id, ii.product_id, p.name, '' AS sku,
		        ii.quantity AS total_stock, ii.low_stock_threshold
		 FROM inventory_items ii
		 JOIN products p ON p.id = ii.product_id
		 WHERE ii.id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("inventory item %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	row.DeriveStatus()
	return &row, nil
}

// InsertInventoryItem appends a new row and returns it with its
// assigned identity.
func (s *Store) InsertInventoryItem(ctx context.Context, productID int64, quantity, threshold int) (*models.InventoryRow, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		`INSERT INTO inventory_items (product_id, quantity, low_stock_threshold, updated_at)
		 VALUES ($1, $2, $3, NOW()) RETURNING id`,
		productID, quantity, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to insert inventory item: %w", err)
	}
	return s.GetInventoryItem(ctx, id)
}

// UpdateInventoryItem sets quantity and threshold for one row and
// returns the confirmed state.
func (s *Store) UpdateInventoryItem(ctx context.Context, id int64, quantity, threshold int) (*models.InventoryRow, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE inventory_items
		 SET quantity = $1, low_stock_threshold = $2, updated_at = NOW()
		 WHERE id = $3`, quantity, threshold, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("inventory item %d: %w", id, models.ErrNotFound)
	}
	return s.GetInventoryItem(ctx, id)
}

// UpdateInventoryQuantity sets only the quantity for one row
func (s *Store) UpdateInventoryQuantity(ctx context.Context, id int64, quantity int) (*models.InventoryRow, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = $1, updated_at = NOW() WHERE id = $2`,
		quantity, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update quantity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("inventory item %d: %w", id, models.ErrNotFound)
	}
	return s.GetInventoryItem(ctx, id)
}

// UpdateInventoryThreshold sets only the low-stock threshold for one row
func (s *Store) UpdateInventoryThreshold(ctx context.Context, id int64, threshold int) (*models.InventoryRow, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE inventory_items SET low_stock_threshold = $1, updated_at = NOW() WHERE id = $2`,
		threshold, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update threshold: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("inventory item %d: %w", id, models.ErrNotFound)
	}
	return s.GetInventoryItem(ctx, id)
}

// BatchUpdateQuantity applies set/increment/decrement uniformly to the
// given rows inside one transaction with row locks. Ids that do not
// exist are skipped and reported, never fatal to the batch. Decrements
// floor at zero.
func (s *Store) BatchUpdateQuantity(ctx context.Context, ids []int64, action string, value int) ([]models.InventoryRow, []int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var updated []models.InventoryRow
	var skipped []int64

	for _, id := range ids {
		var current int
		err := tx.GetContext(ctx, &current,
			"SELECT quantity FROM inventory_items WHERE id = $1 FOR UPDATE", id)
		if err == sql.ErrNoRows {
			skipped = append(skipped, id)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to lock inventory item %d: %w", id, err)
		}

		next := current
		switch action {
		case "set":
			next = value
		case "increment":
			next = current + value
		case "decrement":
			next = current - value
		default:
			return nil, nil, fmt.Errorf("unknown batch action %q: %w", action, models.ErrValidation)
		}
		if next < 0 {
			next = 0
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE inventory_items SET quantity = $1, updated_at = NOW() WHERE id = $2",
			next, id)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to update inventory item %d: %w", id, err)
		}
	}

	query, args, err := sqlx.In(
		`SELECT ii.id, ii.product_id, p.name, '' AS sku,
		        ii.quantity AS total_stock, ii.low_stock_threshold
		 FROM inventory_items ii
		 JOIN products p ON p.id = ii.product_id
		 WHERE ii.id IN (?) ORDER BY ii.id`, ids)
	if err != nil {
		return nil, nil, err
	}
	query = tx.Rebind(query)
	if err := tx.SelectContext(ctx, &updated, query, args...); err != nil {
		return nil, nil, fmt.Errorf("failed to reload updated rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	for i := range updated {
		updated[i].DeriveStatus()
	}
	return updated, skipped, nil
}

// BatchDelete removes all matching rows; missing ids are ignored.
// Returns the rows actually deleted (id and product id only).
func (s *Store) BatchDelete(ctx context.Context, ids []int64) ([]models.InventoryRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(
		"DELETE FROM inventory_items WHERE id IN (?) RETURNING id, product_id", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var deleted []models.InventoryRow
	if err := s.db.SelectContext(ctx, &deleted, query, args...); err != nil {
		return nil, fmt.Errorf("failed to batch delete: %w", err)
	}
	return deleted, nil
}

// IsEventProcessed checks idempotency for consumed events
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM processed_events WHERE event_id = $1", eventID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkEventProcessed records a consumed event id for idempotency
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed_events (event_id, event_type, processed_at)
		 VALUES ($1, $2, NOW()) ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType)
	return err
}
