// Package confidence aggregates, per bank, how much stake is locked in at
// each confirmation depth, and serves the resulting view to consumers such
// as RPC without touching the replay path.
package confidence

import (
	"fmt"
	"sync"

	"github.com/yosuke-kuroki/jito-solana-sub003/validator/votestate"
)

// BankConfidence counts the stake observed voting on one bank at each
// confirmation depth. Index i holds the stake whose vote for the bank
// carried confirmation count i+1; the last index holds rooted stake.
type BankConfidence struct {
	confidence [votestate.MaxLockoutHistory]uint64
}

// IncreaseConfirmationStake adds stake at the given confirmation count.
// Counts outside [1, MaxLockoutHistory] are a programming error.
func (b *BankConfidence) IncreaseConfirmationStake(confirmationCount int, stake uint64) {
	if confirmationCount <= 0 || confirmationCount > votestate.MaxLockoutHistory {
		panic(fmt.Sprintf("confirmation count %d out of range", confirmationCount))
	}
	b.confidence[confirmationCount-1] += stake
}

// ConfirmationStakeAtDepth returns the stake recorded at the given
// confirmation count.
func (b *BankConfidence) ConfirmationStakeAtDepth(confirmationCount int) uint64 {
	if confirmationCount <= 0 || confirmationCount > votestate.MaxLockoutHistory {
		panic(fmt.Sprintf("confirmation count %d out of range", confirmationCount))
	}
	return b.confidence[confirmationCount-1]
}

// stakeAtOrBeyondDepth sums the stake at every confirmation count past the
// given zero based depth.
func (b *BankConfidence) stakeAtOrBeyondDepth(depth int) uint64 {
	total := uint64(0)
	for i := depth; i < votestate.MaxLockoutHistory; i++ {
		total += b.confidence[i]
	}
	return total
}

// ForkConfidenceCache holds the most recently aggregated confidence view:
// one BankConfidence per live fork slot plus the total staked lamports it
// was computed against. The whole view is replaced atomically after each
// aggregation round.
type ForkConfidenceCache struct {
	mu         sync.RWMutex
	confidence map[uint64]*BankConfidence
	totalStake uint64
}

// NewForkConfidenceCache returns an empty cache.
func NewForkConfidenceCache() *ForkConfidenceCache {
	return &ForkConfidenceCache{confidence: make(map[uint64]*BankConfidence)}
}

// Set replaces the cached view. The caller hands over ownership of the map.
func (c *ForkConfidenceCache) Set(confidence map[uint64]*BankConfidence, totalStake uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confidence = confidence
	c.totalStake = totalStake
}

// Get returns the confidence recorded for the slot, if any.
func (c *ForkConfidenceCache) Get(slot uint64) (*BankConfidence, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.confidence[slot]
	return entry, ok
}

// TotalStake returns the total staked lamports behind the cached view.
func (c *ForkConfidenceCache) TotalStake() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalStake
}

// BestSlotWithDepthConfidence returns the highest slot whose stake at or
// beyond minimumDepth reaches minimumConfidence of the total stake. Unlike
// the tower's vote threshold this comparison is inclusive: a consumer asking
// for two thirds is served a slot carrying exactly two thirds.
func (c *ForkConfidenceCache) BestSlotWithDepthConfidence(minimumDepth int, minimumConfidence float64) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.totalStake == 0 {
		return 0, false
	}
	best := uint64(0)
	found := false
	for slot, entry := range c.confidence {
		fraction := float64(entry.stakeAtOrBeyondDepth(minimumDepth)) / float64(c.totalStake)
		if fraction < minimumConfidence {
			continue
		}
		if !found || slot > best {
			best = slot
			found = true
		}
	}
	return best, found
}

// BestRootedSlot returns the highest slot whose rooted stake reaches
// minimumConfidence of the total stake.
func (c *ForkConfidenceCache) BestRootedSlot(minimumConfidence float64) (uint64, bool) {
	return c.BestSlotWithDepthConfidence(votestate.MaxLockoutHistory-1, minimumConfidence)
}
