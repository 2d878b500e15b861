package service

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/bancanet/bancanet/internal/commission/domain"
)

// policyCache keeps parsed policy documents per (kind, owner) with a
// short TTL so a sale burst does not re-read identical documents.
// A nil policy (absent or malformed document) is cached too.
type policyCache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[policyCacheKey]policyCacheEntry
}

type policyCacheKey struct {
	kind    domain.Origin
	ownerID snowflake.ID
}

type policyCacheEntry struct {
	expiresAt time.Time
	policy    *domain.Policy
}

func newPolicyCache(ttl time.Duration) *policyCache {
	return &policyCache{
		ttl:   ttl,
		items: make(map[policyCacheKey]policyCacheEntry),
	}
}

func (c *policyCache) Get(kind domain.Origin, ownerID snowflake.ID) (*domain.Policy, bool) {
	key := policyCacheKey{kind: kind, ownerID: ownerID}
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().UTC().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.policy, true
}

func (c *policyCache) Put(kind domain.Origin, ownerID snowflake.ID, policy *domain.Policy) {
	c.mu.Lock()
	c.items[policyCacheKey{kind: kind, ownerID: ownerID}] = policyCacheEntry{
		expiresAt: time.Now().UTC().Add(c.ttl),
		policy:    policy,
	}
	c.mu.Unlock()
}

func (c *policyCache) Invalidate(kind domain.Origin, ownerID snowflake.ID) {
	c.mu.Lock()
	delete(c.items, policyCacheKey{kind: kind, ownerID: ownerID})
	c.mu.Unlock()
}
