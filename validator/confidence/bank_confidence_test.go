package confidence

import (
	"testing"

	"github.com/yosuke-kuroki/jito-solana-sub003/shared/testutil/assert"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/votestate"
)

func TestBankConfidence_AccumulatesStake(t *testing.T) {
	entry := &BankConfidence{}
	assert.Equal(t, uint64(0), entry.ConfirmationStakeAtDepth(1))
	entry.IncreaseConfirmationStake(1, 10)
	assert.Equal(t, uint64(10), entry.ConfirmationStakeAtDepth(1))
	entry.IncreaseConfirmationStake(1, 20)
	assert.Equal(t, uint64(30), entry.ConfirmationStakeAtDepth(1))
}

func TestBankConfidence_PanicsBelowRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for confirmation count 0")
		}
	}()
	entry := &BankConfidence{}
	entry.IncreaseConfirmationStake(0, 10)
}

func TestBankConfidence_PanicsAboveRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for confirmation count past the window")
		}
	}()
	entry := &BankConfidence{}
	entry.ConfirmationStakeAtDepth(votestate.MaxLockoutHistory + 1)
}

func TestBestSlotWithDepthConfidence(t *testing.T) {
	entry0 := &BankConfidence{}
	entry0.IncreaseConfirmationStake(1, 15)
	entry0.IncreaseConfirmationStake(2, 25)
	entry1 := &BankConfidence{}
	entry1.IncreaseConfirmationStake(1, 10)
	entry1.IncreaseConfirmationStake(2, 20)

	cache := NewForkConfidenceCache()
	cache.Set(map[uint64]*BankConfidence{0: entry0, 1: entry1}, 50)

	// Neither slot has rooted votes.
	_, ok := cache.BestRootedSlot(0.1)
	assert.Equal(t, false, ok)
	// Neither slot reaches 0.6 at depth 1.
	_, ok = cache.BestSlotWithDepthConfidence(1, 0.6)
	assert.Equal(t, false, ok)
	// Only slot 0 reaches 0.5 at depth 1; the comparison is inclusive.
	slot, ok := cache.BestSlotWithDepthConfidence(1, 0.5)
	assert.Equal(t, true, ok)
	assert.Equal(t, uint64(0), slot)
	// When both slots qualify the most recent wins.
	slot, ok = cache.BestSlotWithDepthConfidence(0, 0.4)
	assert.Equal(t, true, ok)
	assert.Equal(t, uint64(1), slot)
	slot, ok = cache.BestSlotWithDepthConfidence(0, 0.6)
	assert.Equal(t, true, ok)
	assert.Equal(t, uint64(1), slot)
	// Neither slot reaches 0.9 at depth 0.
	_, ok = cache.BestSlotWithDepthConfidence(0, 0.9)
	assert.Equal(t, false, ok)
}

func TestBestRootedSlot(t *testing.T) {
	entry0 := &BankConfidence{}
	entry0.IncreaseConfirmationStake(votestate.MaxLockoutHistory, 40)
	entry0.IncreaseConfirmationStake(votestate.MaxLockoutHistory-1, 10)
	entry1 := &BankConfidence{}
	entry1.IncreaseConfirmationStake(votestate.MaxLockoutHistory, 30)
	entry1.IncreaseConfirmationStake(votestate.MaxLockoutHistory-1, 10)
	entry1.IncreaseConfirmationStake(votestate.MaxLockoutHistory-2, 10)

	cache := NewForkConfidenceCache()
	cache.Set(map[uint64]*BankConfidence{0: entry0, 1: entry1}, 50)

	// Only slot 0 is rooted by 0.66 of the stake.
	slot, ok := cache.BestRootedSlot(0.66)
	assert.Equal(t, true, ok)
	assert.Equal(t, uint64(0), slot)
	// Both qualify at 0.6; the most recent wins.
	slot, ok = cache.BestRootedSlot(0.6)
	assert.Equal(t, true, ok)
	assert.Equal(t, uint64(1), slot)
	_, ok = cache.BestRootedSlot(0.9)
	assert.Equal(t, false, ok)
}

func TestForkConfidenceCache_Empty(t *testing.T) {
	cache := NewForkConfidenceCache()
	_, ok := cache.Get(0)
	assert.Equal(t, false, ok)
	assert.Equal(t, uint64(0), cache.TotalStake())
	_, ok = cache.BestSlotWithDepthConfidence(0, 0.0)
	assert.Equal(t, false, ok)
}
