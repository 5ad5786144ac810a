package tower

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/votestate"
	"go.opencensus.io/trace"
)

// StakeLockout accumulates, for one slot, the lockout weighted support and
// the raw stake backing it across all validators. It is rebuilt from
// scratch every fork choice round and never persisted.
type StakeLockout struct {
	Lockout uint64
	Stake   uint64
}

// CollectVoteLockouts walks every vote account visible on the bank at
// bankSlot and folds each validator's lockouts into a per slot map. Every
// history is evaluated as if its owner had also just voted for bankSlot:
// that is how the rest of the cluster will see the validator once it votes,
// and it lets an expiring stack shed votes before they are credited.
//
// Lockout credits flow from every simulated vote to the vote's slot and all
// of its ancestors; a changed root credits the old root at maximal lockout,
// and the current root is always credited maximally. Stake credits flow
// from the last real vote only, since the simulated vote itself is
// hypothetical. Slots absent from ancestors credit themselves alone: a
// foreign validator's stack may legally reach below the local fork tree
// window.
func (t *Tower) CollectVoteLockouts(
	ctx context.Context,
	bankSlot uint64,
	voteAccounts map[solana.PublicKey]votestate.Account,
	ancestors map[uint64]map[uint64]bool,
) (map[uint64]StakeLockout, uint64) {
	_, span := trace.StartSpan(ctx, "tower.CollectVoteLockouts")
	defer span.End()

	stakeLockouts := make(map[uint64]StakeLockout)
	totalStake := uint64(0)
	for pubkey, account := range voteAccounts {
		if account.Lamports == 0 {
			continue
		}
		history, err := t.parseVoteAccount(account.Data)
		if err != nil {
			log.WithError(err).WithField("pubkey", pubkey).Warn("Could not read vote state from account")
			t.sink.VoteAccountUnreadable(pubkey)
			continue
		}
		if pubkey == t.nodePubkey || history.NodePubkey() == t.nodePubkey {
			slot := uint64(0)
			if vote, ok := history.NthRecentVote(0); ok {
				slot = vote.Slot
			}
			root, _ := history.Root()
			log.WithFields(logrus.Fields{
				"slot": slot,
				"root": root,
			}).Debug("Observed own vote state")
			t.sink.OwnStateObserved(slot, root)
		}
		startRoot, hadStartRoot := history.Root()

		simulated := history.Simulate(bankSlot)

		for _, vote := range simulated.Votes() {
			updateAncestorLockouts(stakeLockouts, vote, ancestors)
		}
		root, hasRoot := simulated.Root()
		if hadStartRoot && (startRoot != root || !hasRoot) {
			// A vote fell off the bottom of the stack: the displaced root
			// represents maximal, irrevocable confirmation.
			rooted := votestate.Lockout{Slot: startRoot, ConfirmationCount: votestate.MaxLockoutHistory}
			updateAncestorLockouts(stakeLockouts, rooted, ancestors)
		}
		if hasRoot {
			rooted := votestate.Lockout{Slot: root, ConfirmationCount: votestate.MaxLockoutHistory}
			updateAncestorLockouts(stakeLockouts, rooted, ancestors)
		}

		// No vote state reachable from this bank may hold a vote at or past
		// the bank's own slot, so the newest entry of the simulated stack
		// must be the vote added above. Anything else means the caller
		// handed a torn fork tree view.
		tip, ok := simulated.NthRecentVote(0)
		if !ok || tip.Slot != bankSlot {
			panic(fmt.Sprintf("vote state for %s holds a vote at or past bank slot %d", pubkey, bankSlot))
		}
		if vote, ok := simulated.NthRecentVote(1); ok {
			updateAncestorStakes(stakeLockouts, vote.Slot, account.Lamports, ancestors)
		}
		totalStake += account.Lamports
	}
	return stakeLockouts, totalStake
}

// updateAncestorLockouts credits the vote's lockout to its slot and every
// ancestor of that slot.
func updateAncestorLockouts(stakeLockouts map[uint64]StakeLockout, vote votestate.Lockout, ancestors map[uint64]map[uint64]bool) {
	entry := stakeLockouts[vote.Slot]
	entry.Lockout += vote.Lockout()
	stakeLockouts[vote.Slot] = entry
	for slot := range ancestors[vote.Slot] {
		entry := stakeLockouts[slot]
		entry.Lockout += vote.Lockout()
		stakeLockouts[slot] = entry
	}
}

// updateAncestorStakes credits the account's stake to the slot and every
// ancestor of it. The stake is the same along the whole branch.
func updateAncestorStakes(stakeLockouts map[uint64]StakeLockout, slot uint64, lamports uint64, ancestors map[uint64]map[uint64]bool) {
	entry := stakeLockouts[slot]
	entry.Stake += lamports
	stakeLockouts[slot] = entry
	for ancestor := range ancestors[slot] {
		entry := stakeLockouts[ancestor]
		entry.Stake += lamports
		stakeLockouts[ancestor] = entry
	}
}
