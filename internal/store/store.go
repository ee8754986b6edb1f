package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product with its full variant matrix
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT id, name, price, created_at FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	variants, err := s.getVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Variants = variants

	if len(variants) == 0 {
		flat, err := s.getFlatStock(ctx, id)
		if err != nil {
			return nil, err
		}
		product.FlatStock = flat
	}

	return &product, nil
}

func (s *Store) getVariants(ctx context.Context, productID int64) ([]models.Variant, error) {
	var variants []models.Variant
	err := s.db.SelectContext(ctx, &variants,
		`SELECT id, product_id, color, color_hex, sku, photo_ref
		 FROM product_variants WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}

	for i := range variants {
		sizes, err := s.getVariantSizes(ctx, variants[i].ID)
		if err != nil {
			return nil, err
		}
		variants[i].Sizes = sizes
	}

	return variants, nil
}

type sizeRow struct {
	SizeLabel         string `db:"size_label"`
	Quantity          int    `db:"quantity"`
	LowStockThreshold int    `db:"low_stock_threshold"`
}

func (s *Store) getVariantSizes(ctx context.Context, variantID int64) (map[string]models.Stock, error) {
	var rows []sizeRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT size_label, quantity, low_stock_threshold
		 FROM variant_sizes WHERE variant_id = $1`, variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load variant sizes: %w", err)
	}

	sizes := make(map[string]models.Stock, len(rows))
	for _, r := range rows {
		sizes[r.SizeLabel] = models.Stock{
			Quantity:          r.Quantity,
			LowStockThreshold: r.LowStockThreshold,
		}
	}
	return sizes, nil
}

func (s *Store) getFlatStock(ctx context.Context, productID int64) (*models.Stock, error) {
	var st models.Stock
	err := s.db.GetContext(ctx, &st,
		`SELECT quantity, low_stock_threshold
		 FROM inventory_items WHERE product_id = $1`, productID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// GetLiveStock looks up the authoritative quantity and threshold for a
// (product, color, size) pair. Empty color and size address flat stock.
func (s *Store) GetLiveStock(ctx context.Context, productID int64, color, size string) (int, int, error) {
	if color == "" && size == "" {
		st, err := s.getFlatStock(ctx, productID)
		if err != nil {
			return 0, 0, err
		}
		if st == nil {
			return 0, 0, fmt.Errorf("stock for product %d: %w", productID, models.ErrNotFound)
		}
		return st.Quantity, st.LowStockThreshold, nil
	}

	var row sizeRow
	err := s.db.GetContext(ctx, &row,
		`SELECT vs.size_label, vs.quantity, vs.low_stock_threshold
		 FROM variant_sizes vs
		 JOIN product_variants pv ON pv.id = vs.variant_id
		 WHERE pv.product_id = $1 AND pv.color = $2 AND vs.size_label = $3`,
		productID, color, size)
	if err == sql.ErrNoRows {
		return 0, 0, fmt.Errorf("stock for product %d %s/%s: %w", productID, color, size, models.ErrNotFound)
	}
	if err != nil {
		return 0, 0, err
	}
	return row.Quantity, row.LowStockThreshold, nil
}
