package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/set_stock.lua
var setStockScript string

type Client struct {
	rdb       *redis.Client
	setScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:       rdb,
		setScript: redis.NewScript(setStockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID int64, color, size string) string {
	if color == "" && size == "" {
		return fmt.Sprintf("stock:%d", productID)
	}
	return fmt.Sprintf("stock:%d:%s:%s", productID, color, size)
}

// SetStock atomically writes the authoritative quantity and threshold
// for a (product, color, size) pair. Negative quantities are floored
// at zero by the script.
func (c *Client) SetStock(ctx context.Context, productID int64, color, size string, quantity, threshold int) error {
	key := stockKey(productID, color, size)

	_, err := c.setScript.Run(ctx, c.rdb, []string{key}, quantity, threshold).Result()
	if err != nil {
		return fmt.Errorf("set stock script failed: %w", err)
	}
	return nil
}

// GetStock retrieves the cached quantity and threshold for a
// (product, color, size) pair. found is false on a cache miss.
func (c *Client) GetStock(ctx context.Context, productID int64, color, size string) (quantity, threshold int, found bool, err error) {
	key := stockKey(productID, color, size)

	result, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, 0, false, err
	}
	if len(result) == 0 {
		return 0, 0, false, nil
	}

	quantity, _ = strconv.Atoi(result["quantity"])
	threshold, _ = strconv.Atoi(result["threshold"])
	return quantity, threshold, true, nil
}

// DeleteStock removes cached stock entries for a product row.
func (c *Client) DeleteStock(ctx context.Context, productID int64, color, size string) error {
	return c.rdb.Del(ctx, stockKey(productID, color, size)).Err()
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
