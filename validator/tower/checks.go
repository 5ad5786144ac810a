package tower

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// IsSlotConfirmed reports whether the slot's supporting stake strictly
// exceeds the tower's threshold fraction of the total stake. An absent slot
// or a zero total is never confirmed.
func (t *Tower) IsSlotConfirmed(slot uint64, stakeLockouts map[uint64]StakeLockout, totalStaked uint64) bool {
	if totalStaked == 0 {
		return false
	}
	entry, ok := stakeLockouts[slot]
	if !ok {
		return false
	}
	return float64(entry.Stake)/float64(totalStaked) > t.thresholdSize
}

// CheckVoteStakeThreshold reports whether voting for the slot would leave
// the vote at the tower's threshold depth backed by more than the threshold
// fraction of total stake. Voting for a bank the cluster is not behind
// would otherwise push an old, lightly supported vote past the point of no
// return. A tower too short to hold a vote at that depth passes vacuously.
func (t *Tower) CheckVoteStakeThreshold(slot uint64, stakeLockouts map[uint64]StakeLockout, totalStaked uint64) bool {
	simulated := t.lockouts.Simulate(slot)
	vote, ok := simulated.NthRecentVote(t.thresholdDepth)
	if !ok {
		return true
	}
	if entry, ok := stakeLockouts[vote.Slot]; ok && totalStaked != 0 {
		if float64(entry.Stake)/float64(totalStaked) > t.thresholdSize {
			return true
		}
	}
	log.WithFields(logrus.Fields{
		"slot":          slot,
		"thresholdSlot": vote.Slot,
	}).Debug("Vote stake threshold failed")
	t.sink.ThresholdFailed(slot)
	return false
}

// IsLockedOut reports whether voting for the slot would violate a lockout
// the tower already committed to: after voting, every remaining vote and
// the root must count the slot among their descendants. Every slot the
// tower holds must be a key of descendants; a missing key means the caller
// handed an inconsistent fork tree snapshot and panics.
func (t *Tower) IsLockedOut(slot uint64, descendants map[uint64]map[uint64]bool) bool {
	simulated := t.lockouts.Simulate(slot)
	for _, vote := range simulated.Votes() {
		if vote.Slot == slot {
			continue
		}
		set, ok := descendants[vote.Slot]
		if !ok {
			panic(fmt.Sprintf("no descendants entry for voted slot %d", vote.Slot))
		}
		if !set[slot] {
			t.sink.LockedOut(slot)
			return true
		}
	}
	if root, ok := simulated.Root(); ok {
		set, ok := descendants[root]
		if !ok {
			panic(fmt.Sprintf("no descendants entry for root slot %d", root))
		}
		if !set[slot] {
			t.sink.LockedOut(slot)
			return true
		}
	}
	return false
}
