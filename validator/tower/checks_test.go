package tower

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/params"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/testutil/assert"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/testutil/require"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/votestate"
)

func TestIsSlotConfirmed_NotEnoughStake(t *testing.T) {
	tower := newTestTower(t, 1, 0.67)
	stakes := map[uint64]StakeLockout{0: {Stake: 1, Lockout: 8}}
	assert.Equal(t, false, tower.IsSlotConfirmed(0, stakes, 2))
}

func TestIsSlotConfirmed_UnknownSlot(t *testing.T) {
	tower := newTestTower(t, 1, 0.67)
	assert.Equal(t, false, tower.IsSlotConfirmed(0, map[uint64]StakeLockout{}, 2))
}

func TestIsSlotConfirmed_Pass(t *testing.T) {
	tower := newTestTower(t, 1, 0.67)
	stakes := map[uint64]StakeLockout{0: {Stake: 2, Lockout: 8}}
	assert.Equal(t, true, tower.IsSlotConfirmed(0, stakes, 2))
}

func TestIsSlotConfirmed_ZeroTotalStake(t *testing.T) {
	tower := newTestTower(t, 1, 0.67)
	stakes := map[uint64]StakeLockout{0: {Stake: 1, Lockout: 8}}
	assert.Equal(t, false, tower.IsSlotConfirmed(0, stakes, 0))
}

func TestIsSlotConfirmed_MonotonicInStake(t *testing.T) {
	tower := newTestTower(t, 1, 0.67)
	// Once a slot confirms, more supporting stake never unconfirms it.
	for stake := uint64(2); stake <= 10; stake++ {
		stakes := map[uint64]StakeLockout{0: {Stake: stake, Lockout: 8}}
		assert.Equal(t, true, tower.IsSlotConfirmed(0, stakes, 2), "stake %d", stake)
	}
}

func TestIsLockedOut_Empty(t *testing.T) {
	tower := newTestTower(t, 0, 0.67)
	assert.Equal(t, false, tower.IsLockedOut(0, map[uint64]map[uint64]bool{}))
}

func TestIsLockedOut_RootSlotChild(t *testing.T) {
	tower := newTestTower(t, 0, 0.67)
	tower.lockouts = votestate.Restore(solana.PublicKey{}, nil, 0, true)
	descendants := map[uint64]map[uint64]bool{0: slots(1)}
	assert.Equal(t, false, tower.IsLockedOut(1, descendants))
}

func TestIsLockedOut_RootSlotSibling(t *testing.T) {
	tower := newTestTower(t, 0, 0.67)
	tower.lockouts = votestate.Restore(solana.PublicKey{}, nil, 0, true)
	descendants := map[uint64]map[uint64]bool{0: slots(1)}
	assert.Equal(t, true, tower.IsLockedOut(2, descendants))
}

func TestIsLockedOut_DoubleVote(t *testing.T) {
	tower := newTestTower(t, 0, 0.67)
	descendants := map[uint64]map[uint64]bool{0: slots(1), 1: {}}
	tower.RecordVote(0, solana.Hash{})
	tower.RecordVote(1, solana.Hash{})
	assert.Equal(t, true, tower.IsLockedOut(0, descendants))
}

func TestIsLockedOut_Child(t *testing.T) {
	tower := newTestTower(t, 0, 0.67)
	descendants := map[uint64]map[uint64]bool{0: slots(1)}
	tower.RecordVote(0, solana.Hash{})
	assert.Equal(t, false, tower.IsLockedOut(1, descendants))
}

func TestIsLockedOut_Sibling(t *testing.T) {
	tower := newTestTower(t, 0, 0.67)
	descendants := map[uint64]map[uint64]bool{0: slots(1, 2), 1: {}, 2: {}}
	tower.RecordVote(0, solana.Hash{})
	tower.RecordVote(1, solana.Hash{})
	assert.Equal(t, true, tower.IsLockedOut(2, descendants))
}

func TestIsLockedOut_LastVoteExpired(t *testing.T) {
	tower := newTestTower(t, 0, 0.67)
	descendants := map[uint64]map[uint64]bool{0: slots(1, 4), 1: {}}
	tower.RecordVote(0, solana.Hash{})
	tower.RecordVote(1, solana.Hash{})
	// The vote for slot 1 expires under the simulated vote, so 4 needs to
	// descend only from slot 0.
	assert.Equal(t, false, tower.IsLockedOut(4, descendants))

	tower.RecordVote(4, solana.Hash{})
	votes := tower.lockouts.Votes()
	require.Equal(t, 2, len(votes))
	assert.Equal(t, uint64(0), votes[0].Slot)
	assert.Equal(t, uint32(2), votes[0].ConfirmationCount)
	assert.Equal(t, uint64(4), votes[1].Slot)
	assert.Equal(t, uint32(1), votes[1].ConfirmationCount)
}

func TestIsLockedOut_MissingDescendantsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for a descendants view missing a voted slot")
		}
	}()
	tower := newTestTower(t, 0, 0.67)
	tower.RecordVote(0, solana.Hash{})
	tower.RecordVote(1, solana.Hash{})
	// Slot 1 is live in the tower but missing from the view.
	tower.IsLockedOut(2, map[uint64]map[uint64]bool{0: slots(1, 2)})
}

func TestCheckVoteStakeThreshold_WithoutVotes(t *testing.T) {
	tower := newTestTower(t, 1, 0.67)
	stakes := map[uint64]StakeLockout{0: {Stake: 1, Lockout: 8}}
	assert.Equal(t, true, tower.CheckVoteStakeThreshold(0, stakes, 2))
}

func TestCheckVoteStakeThreshold_BelowThreshold(t *testing.T) {
	tower := newTestTower(t, 1, 0.67)
	stakes := map[uint64]StakeLockout{0: {Stake: 1, Lockout: 8}}
	tower.RecordVote(0, solana.Hash{})
	assert.Equal(t, false, tower.CheckVoteStakeThreshold(1, stakes, 2))
}

func TestCheckVoteStakeThreshold_AboveThreshold(t *testing.T) {
	tower := newTestTower(t, 1, 0.67)
	stakes := map[uint64]StakeLockout{0: {Stake: 2, Lockout: 8}}
	tower.RecordVote(0, solana.Hash{})
	assert.Equal(t, true, tower.CheckVoteStakeThreshold(1, stakes, 2))
}

func TestCheckVoteStakeThreshold_StrictAtBoundary(t *testing.T) {
	tower := newTestTower(t, 1, 0.67)
	tower.RecordVote(0, solana.Hash{})
	// Exactly two thirds does not clear a 0.67 threshold; the comparison is
	// strictly greater.
	stakes := map[uint64]StakeLockout{0: {Stake: 2, Lockout: 8}}
	assert.Equal(t, false, tower.CheckVoteStakeThreshold(1, stakes, 3))
}

func TestCheckVoteStakeThreshold_AboveThresholdAfterPop(t *testing.T) {
	tower := newTestTower(t, 1, 0.67)
	stakes := map[uint64]StakeLockout{0: {Stake: 2, Lockout: 8}}
	tower.RecordVote(0, solana.Hash{})
	tower.RecordVote(1, solana.Hash{})
	tower.RecordVote(2, solana.Hash{})
	assert.Equal(t, true, tower.CheckVoteStakeThreshold(6, stakes, 2))
}

func TestCheckVoteStakeThreshold_NoStake(t *testing.T) {
	tower := newTestTower(t, 1, 0.67)
	tower.RecordVote(0, solana.Hash{})
	assert.Equal(t, false, tower.CheckVoteStakeThreshold(1, map[uint64]StakeLockout{}, 2))
}

func TestCheckVoteStakeThreshold_Forks(t *testing.T) {
	depth := int(params.TowerConfig().VoteThresholdDepth)
	ancestors := linearAncestors(uint64(depth) + 1)

	// Three quarters of the stake voted once, on the slot two below the
	// threshold depth; the remaining quarter voted the whole window.
	totalStake := uint64(4)
	thresholdStake := uint64(3)
	towerVotes := make([]uint64, depth)
	for i := range towerVotes {
		towerVotes[i] = uint64(i)
	}
	accounts := genStakes(t, []stakedVotes{
		{lamports: thresholdStake, votes: []uint64{uint64(depth) - 2}},
		{lamports: totalStake - thresholdStake, votes: towerVotes},
	})

	tower := newTestTower(t, depth, 0.67)
	for _, slot := range towerVotes {
		tower.RecordVote(slot, solana.Hash{})
	}

	// Evaluating a vote at the threshold depth lands the nth recent vote on
	// slot 0, common to every account, and passes.
	evaluate := uint64(depth)
	stakeLockouts, totalStaked := tower.CollectVoteLockouts(context.Background(), evaluate, accounts, ancestors)
	require.Equal(t, totalStake, totalStaked)
	assert.Equal(t, true, tower.CheckVoteStakeThreshold(evaluate, stakeLockouts, totalStaked))

	// One slot further expires the majority's only vote, so its stake drops
	// out of the window and the check fails.
	evaluate = uint64(depth) + 1
	stakeLockouts, totalStaked = tower.CollectVoteLockouts(context.Background(), evaluate, accounts, ancestors)
	assert.Equal(t, false, tower.CheckVoteStakeThreshold(evaluate, stakeLockouts, totalStaked))
}
