package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetCartLines retrieves a user's active cart lines (saved-for-later
// lines are excluded).
func (s *Store) GetCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := s.db.SelectContext(ctx, &lines,
		`SELECT id, user_id, product_id, color, size, quantity, unit_price, selected, saved, created_at
		 FROM cart_lines WHERE user_id = $1 AND saved = false ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart lines: %w", err)
	}
	return lines, nil
}

// GetCartLineByID retrieves one cart line
func (s *Store) GetCartLineByID(ctx context.Context, id int64) (*models.CartLine, error) {
	var line models.CartLine
	err := s.db.GetContext(ctx, &line,
		`SELECT id, user_id, product_id, color, size, quantity, unit_price, selected, saved, created_at
		 FROM cart_lines WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cart line %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// InsertCartLine persists a committed selection and returns its id
func (s *Store) InsertCartLine(ctx context.Context, line *models.CartLine) error {
	err := s.db.GetContext(ctx, &line.ID,
		`INSERT INTO cart_lines (user_id, product_id, color, size, quantity, unit_price, selected, saved, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, false, NOW()) RETURNING id`,
		line.UserID, line.ProductID, line.Color, line.Size, line.Quantity, line.UnitPrice, line.Selected)
	if err != nil {
		return fmt.Errorf("failed to insert cart line: %w", err)
	}
	return nil
}

// UpdateCartLineQuantity sets the quantity for one line
func (s *Store) UpdateCartLineQuantity(ctx context.Context, id int64, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_lines SET quantity = $1 WHERE id = $2", quantity, id)
	if err != nil {
		return fmt.Errorf("failed to update cart quantity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cart line %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// DeleteCartLine removes a line from the cart
func (s *Store) DeleteCartLine(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cart_lines WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cart line %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// SetSelectedLines marks exactly the given line ids as selected for
// checkout and clears the flag on every other line of the user.
func (s *Store) SetSelectedLines(ctx context.Context, userID int64, ids []int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"UPDATE cart_lines SET selected = false WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}

	if len(ids) > 0 {
		query, args, err := sqlx.In(
			"UPDATE cart_lines SET selected = true WHERE user_id = ? AND id IN (?)", userID, ids)
		if err != nil {
			return err
		}
		query = tx.Rebind(query)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to set selection: %w", err)
		}
	}

	return tx.Commit()
}

// SetLineSaved moves a line to or from the saved-for-later list
func (s *Store) SetLineSaved(ctx context.Context, id int64, saved bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_lines SET saved = $1, selected = false WHERE id = $2", saved, id)
	if err != nil {
		return fmt.Errorf("failed to move cart line: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cart line %d: %w", id, models.ErrNotFound)
	}
	return nil
}
