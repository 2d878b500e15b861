package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/bancanet/bancanet/internal/commission/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyCacheTTLAndInvalidate(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ownerID := node.Generate()

	t.Run("expires after TTL", func(t *testing.T) {
		cache := newPolicyCache(10 * time.Millisecond)
		cache.Put(domain.OriginSeller, ownerID, &domain.Policy{Version: 1})

		policy, ok := cache.Get(domain.OriginSeller, ownerID)
		require.True(t, ok)
		assert.Equal(t, 1, policy.Version)

		time.Sleep(20 * time.Millisecond)
		_, ok = cache.Get(domain.OriginSeller, ownerID)
		assert.False(t, ok)
	})

	t.Run("caches absent policy", func(t *testing.T) {
		cache := newPolicyCache(time.Minute)
		cache.Put(domain.OriginBank, ownerID, nil)

		policy, ok := cache.Get(domain.OriginBank, ownerID)
		assert.True(t, ok)
		assert.Nil(t, policy)
	})

	t.Run("invalidate drops one entry", func(t *testing.T) {
		cache := newPolicyCache(time.Minute)
		other := node.Generate()
		cache.Put(domain.OriginSeller, ownerID, &domain.Policy{Version: 1})
		cache.Put(domain.OriginSeller, other, &domain.Policy{Version: 2})

		cache.Invalidate(domain.OriginSeller, ownerID)
		_, ok := cache.Get(domain.OriginSeller, ownerID)
		assert.False(t, ok)
		_, ok = cache.Get(domain.OriginSeller, other)
		assert.True(t, ok)
	})
}
