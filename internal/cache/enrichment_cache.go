package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// searchOutcomeTTL bounds how long a search result is trusted. Empty results
// expire too: the vendor database grows, so a miss today can match later.
const searchOutcomeTTL = 7 * 24 * time.Hour

// SearchOutcome remembers one Discogs search per catalog item.
type SearchOutcome struct {
	ItemID    string    `json:"itemId"`
	Query     string    `json:"query"`
	ReleaseID int64     `json:"releaseId"` // 0 when the search came back empty
	CachedAt  time.Time `json:"cachedAt"`
}

// EnrichmentCache remembers recent Discogs search outcomes so refresh cycles
// do not re-spend rate-limited quota on items that already came back empty,
// or re-search items whose match just needs its release fetched.
type EnrichmentCache struct {
	redis kvStore
}

// NewEnrichmentCache creates a new EnrichmentCache.
func NewEnrichmentCache(redis *RedisClient) *EnrichmentCache {
	return &EnrichmentCache{
		redis: redis,
	}
}

func (c *EnrichmentCache) key(itemID string) string {
	return fmt.Sprintf("enrichment:search:%s", itemID)
}

// SetOutcome stores the result of one search.
func (c *EnrichmentCache) SetOutcome(ctx context.Context, outcome *SearchOutcome) error {
	outcome.CachedAt = time.Now().UTC()

	jsonData, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal search outcome: %w", err)
	}

	if err := c.redis.Set(ctx, c.key(outcome.ItemID), string(jsonData), searchOutcomeTTL); err != nil {
		return fmt.Errorf("failed to store search outcome: %w", err)
	}

	return nil
}

// GetOutcome returns the remembered search for an item, or (nil, nil) when
// nothing fresh is stored.
func (c *EnrichmentCache) GetOutcome(ctx context.Context, itemID string) (*SearchOutcome, error) {
	jsonData, err := c.redis.Get(ctx, c.key(itemID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var outcome SearchOutcome
	if err := json.Unmarshal([]byte(jsonData), &outcome); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search outcome: %w", err)
	}

	return &outcome, nil
}
