// Package cache implements a content addressed cache of deserialized vote
// account state, so that unchanged accounts are parsed once per content
// rather than once per fork choice round.
package cache

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/hashutil"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/params"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/votestate"
)

var (
	voteAccountCacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vote_account_cache_hit",
		Help: "The total number of cache hits on the vote account cache.",
	})
	voteAccountCacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vote_account_cache_miss",
		Help: "The total number of cache misses on the vote account cache.",
	})
)

// VoteAccountCache caches vote histories keyed by the hash of the raw
// account bytes they were parsed from. Entries are shared between callers
// and must be treated as read only; simulate on a clone instead.
type VoteAccountCache struct {
	cache *lru.Cache
}

// NewVoteAccountCache creates a cache sized by the active tower config.
func NewVoteAccountCache() *VoteAccountCache {
	cache, err := lru.New(params.TowerConfig().VoteAccountCacheSize)
	if err != nil {
		panic(err)
	}
	return &VoteAccountCache{cache: cache}
}

// Get returns the parsed history for the given account bytes, if cached.
func (c *VoteAccountCache) Get(data []byte) (*votestate.VoteHistory, bool) {
	item, exists := c.cache.Get(hashutil.Hash(data))
	if exists && item != nil {
		voteAccountCacheHit.Inc()
		return item.(*votestate.VoteHistory), true
	}
	voteAccountCacheMiss.Inc()
	return nil, false
}

// Put stores a parsed history under the hash of the bytes it came from.
func (c *VoteAccountCache) Put(data []byte, history *votestate.VoteHistory) {
	c.cache.Add(hashutil.Hash(data), history)
}

// Len returns the number of cached entries.
func (c *VoteAccountCache) Len() int {
	return c.cache.Len()
}
