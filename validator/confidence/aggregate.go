package confidence

import (
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/forks"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/votestate"
)

// AggregateConfidence builds the per slot confidence table for one bank by
// folding in every vote account visible on it. The ancestors slice must
// hold the bank's ancestry, the bank's own slot included, sorted ascending
// and non empty; anything else is a programming error on the caller's side.
//
// Accounts whose state does not parse contribute nothing. Unlike the tower
// aggregation this is off the voting path, so an unreadable account is not
// worth more than a debug line.
func AggregateConfidence(ancestors []uint64, bank *forks.Bank) map[uint64]*BankConfidence {
	if len(ancestors) == 0 {
		panic("ancestors must not be empty")
	}
	for i := 1; i < len(ancestors); i++ {
		if ancestors[i-1] >= ancestors[i] {
			panic("ancestors must be sorted ascending")
		}
	}
	confidence := make(map[uint64]*BankConfidence)
	for pubkey, account := range bank.VoteAccounts() {
		if account.Lamports == 0 {
			continue
		}
		history, err := votestate.ParseVoteAccount(account.Data)
		if err != nil {
			log.WithError(err).WithField("pubkey", pubkey).Debug("Skipping unreadable vote account")
			continue
		}
		aggregateAccountConfidence(confidence, history, ancestors, account.Lamports)
	}
	return confidence
}

// aggregateAccountConfidence folds one validator's history into the table.
// Ancestors at or below the account's root are credited at the maximal
// depth; the rest are credited at the confirmation count of the first vote
// at or above them, walking votes oldest to newest in step with the sorted
// ancestors.
func aggregateAccountConfidence(
	confidence map[uint64]*BankConfidence,
	history *votestate.VoteHistory,
	ancestors []uint64,
	lamports uint64,
) {
	if len(ancestors) == 0 {
		panic("ancestors must not be empty")
	}
	index := 0
	if root, ok := history.Root(); ok {
		for i, ancestor := range ancestors {
			if ancestor <= root {
				entryFor(confidence, ancestor).IncreaseConfirmationStake(votestate.MaxLockoutHistory, lamports)
			} else {
				index = i
				break
			}
		}
	}
	for _, vote := range history.Votes() {
		for ancestors[index] <= vote.Slot {
			entryFor(confidence, ancestors[index]).IncreaseConfirmationStake(int(vote.ConfirmationCount), lamports)
			index++
			if index == len(ancestors) {
				return
			}
		}
	}
}

func entryFor(confidence map[uint64]*BankConfidence, slot uint64) *BankConfidence {
	entry, ok := confidence[slot]
	if !ok {
		entry = &BankConfidence{}
		confidence[slot] = entry
	}
	return entry
}
