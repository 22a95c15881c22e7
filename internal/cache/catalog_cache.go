package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crateside/shop_api/internal/config"
	"github.com/crateside/shop_api/internal/models"
)

// Snapshot is the denormalized storefront view stored in Redis. It is
// rebuilt wholesale after each sync cycle; readers never see a partial list.
type Snapshot struct {
	Products    []models.Product `json:"products"`
	Count       int              `json:"count"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// CatalogCache stores the catalog snapshot under a single namespaced key.
type CatalogCache struct {
	redis     kvStore
	namespace string
	ttl       time.Duration
}

// NewCatalogCache creates a CatalogCache.
func NewCatalogCache(redis *RedisClient, cfg *config.CacheConfig) *CatalogCache {
	return &CatalogCache{
		redis:     redis,
		namespace: cfg.Namespace,
		ttl:       cfg.SnapshotTTL,
	}
}

func (c *CatalogCache) key() string {
	return fmt.Sprintf("catalog:snapshot:%s", c.namespace)
}

// WriteSnapshot replaces the stored snapshot with the given product list.
func (c *CatalogCache) WriteSnapshot(ctx context.Context, products []models.Product) error {
	snap := Snapshot{
		Products:    products,
		Count:       len(products),
		GeneratedAt: time.Now().UTC(),
	}

	jsonData, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog snapshot: %w", err)
	}

	if err := c.redis.Set(ctx, c.key(), string(jsonData), c.ttl); err != nil {
		return fmt.Errorf("failed to store catalog snapshot: %w", err)
	}

	return nil
}

// ReadSnapshot returns the stored snapshot, or (nil, nil) when no snapshot
// exists so callers can fall through to the database.
func (c *CatalogCache) ReadSnapshot(ctx context.Context) (*Snapshot, error) {
	jsonData, err := c.redis.Get(ctx, c.key())
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(jsonData), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog snapshot: %w", err)
	}

	return &snap, nil
}

// Invalidate drops the snapshot so the next rebuild starts from the mirror.
// Deleting a missing key is not an error.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.redis.Delete(ctx, c.key())
}

// SnapshotExists reports whether a snapshot is currently stored, without
// paying to read it. Used by the health surface.
func (c *CatalogCache) SnapshotExists(ctx context.Context) (bool, error) {
	return c.redis.Exists(ctx, c.key())
}
