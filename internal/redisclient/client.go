package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_stock.lua
var reserveStockScript string

//go:embed scripts/release_stock.lua
var releaseStockScript string

//go:embed scripts/commit_stock.lua
var commitStockScript string

// Client caches ledger availability per product x location so frequent
// availability checks stay off the database. The database remains the
// source of truth; cache updates are best-effort mirrors applied after
// the enclosing transaction commits.
type Client struct {
	rdb           *redis.Client
	reserveScript *redis.Script
	releaseScript *redis.Script
	commitScript  *redis.Script
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
		rdb:           rdb,
		reserveScript: redis.NewScript(reserveStockScript),
		releaseScript: redis.NewScript(releaseStockScript),
		commitScript:  redis.NewScript(commitStockScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID, locationID string) string {
	return fmt.Sprintf("stock:%s:%s", productID, locationID)
}

// MirrorReserve applies a reservation delta to the cached hash
func (c *Client) MirrorReserve(ctx context.Context, productID, locationID string, quantity int) error {
	_, err := c.reserveScript.Run(ctx, c.rdb, []string{stockKey(productID, locationID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("reserve mirror script failed: %w", err)
	}
	return nil
}

// MirrorRelease applies a release delta to the cached hash
func (c *Client) MirrorRelease(ctx context.Context, productID, locationID string, quantity int) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{stockKey(productID, locationID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("release mirror script failed: %w", err)
	}
	return nil
}

// MirrorCommit applies a committed deduction to the cached hash
func (c *Client) MirrorCommit(ctx context.Context, productID, locationID string, quantity int) error {
	_, err := c.commitScript.Run(ctx, c.rdb, []string{stockKey(productID, locationID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("commit mirror script failed: %w", err)
	}
	return nil
}

// SetStock overwrites the cached hash for a ledger row
func (c *Client) SetStock(ctx context.Context, productID, locationID string, onHand, reserved int) error {
	pipe := c.rdb.Pipeline()
	key := stockKey(productID, locationID)
	pipe.HSet(ctx, key, "on_hand", onHand)
	pipe.HSet(ctx, key, "reserved", reserved)

	_, err := pipe.Exec(ctx)
	return err
}

// GetStock retrieves cached counts for a ledger row. found is false on
// a cache miss; callers then fall back to the database.
func (c *Client) GetStock(ctx context.Context, productID, locationID string) (onHand, reserved int, found bool, err error) {
	result, err := c.rdb.HGetAll(ctx, stockKey(productID, locationID)).Result()
	if err != nil {
		return 0, 0, false, err
	}
	if len(result) == 0 {
		return 0, 0, false, nil
	}

	onHand, err = strconv.Atoi(result["on_hand"])
	if err != nil {
		return 0, 0, false, fmt.Errorf("corrupt cached on_hand: %w", err)
	}
	reserved, err = strconv.Atoi(result["reserved"])
	if err != nil {
		return 0, 0, false, fmt.Errorf("corrupt cached reserved: %w", err)
	}
	return onHand, reserved, true, nil
}

// Invalidate drops the cached hash for a ledger row
func (c *Client) Invalidate(ctx context.Context, productID, locationID string) error {
	return c.rdb.Del(ctx, stockKey(productID, locationID)).Err()
}

// AcquireCountLock takes the per-warehouse count session lock. Only one
// count may run against a warehouse at a time.
func (c *Client) AcquireCountLock(ctx context.Context, warehouseID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:count:%s", warehouseID), "1", ttl).Result()
}

// ReleaseCountLock releases the per-warehouse count session lock
func (c *Client) ReleaseCountLock(ctx context.Context, warehouseID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:count:%s", warehouseID)).Err()
}
