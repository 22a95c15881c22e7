package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichmentCacheRemembersEmptySearches(t *testing.T) {
	store := newFakeStore()
	c := &EnrichmentCache{redis: store}

	require.NoError(t, c.SetOutcome(context.Background(), &SearchOutcome{
		ItemID: "item_1",
		Query:  "Kind of Blue Columbia",
	}))

	got, err := c.GetOutcome(context.Background(), "item_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(0), got.ReleaseID, "an empty search is remembered so quota is not re-spent on it")
	assert.Equal(t, "Kind of Blue Columbia", got.Query)
	assert.False(t, got.CachedAt.IsZero())
	assert.Equal(t, searchOutcomeTTL, store.ttls["enrichment:search:item_1"], "search outcomes expire so vendor growth is picked up")
}

func TestEnrichmentCacheMissReturnsNil(t *testing.T) {
	c := &EnrichmentCache{redis: newFakeStore()}

	got, err := c.GetOutcome(context.Background(), "item_unseen")
	assert.NoError(t, err)
	assert.Nil(t, got)
}
