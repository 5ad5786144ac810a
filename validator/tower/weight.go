package tower

import (
	"context"
	"sort"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/forks"
	"go.opencensus.io/trace"
)

// CalculateWeight sums lockout times stake over every slot strictly above
// the tower's root. A single product of two uint64 values already needs up
// to 128 bits and forks accumulate many of them, so weights are carried in
// 256 bit integers from the start.
func (t *Tower) CalculateWeight(stakeLockouts map[uint64]StakeLockout) *uint256.Int {
	sum := uint256.NewInt(0)
	product := new(uint256.Int)
	root, hasRoot := t.lockouts.Root()
	for slot, entry := range stakeLockouts {
		if hasRoot && slot <= root {
			continue
		}
		product.Mul(uint256.NewInt(entry.Lockout), uint256.NewInt(entry.Stake))
		sum.Add(sum, product)
	}
	return sum
}

// AggregateStakeLockouts re-expresses point lockouts as cumulative weights
// along each fork: every slot's lockout times stake lands on the slot
// itself and on each of its ancestors at or above the root. The result is
// monotonically non increasing along any root to tip path, which makes
// forks directly comparable.
func AggregateStakeLockouts(
	root uint64,
	hasRoot bool,
	ancestors map[uint64]map[uint64]bool,
	stakeLockouts map[uint64]StakeLockout,
) map[uint64]*uint256.Int {
	stakeWeighted := make(map[uint64]*uint256.Int)
	for fork, entry := range stakeLockouts {
		if hasRoot && fork < root {
			continue
		}
		weight := new(uint256.Int).Mul(uint256.NewInt(entry.Lockout), uint256.NewInt(entry.Stake))
		addWeight(stakeWeighted, fork, weight)
		for slot := range ancestors[fork] {
			if hasRoot && slot < root {
				continue
			}
			addWeight(stakeWeighted, slot, weight)
		}
	}
	return stakeWeighted
}

func addWeight(weights map[uint64]*uint256.Int, slot uint64, weight *uint256.Int) {
	if entry, ok := weights[slot]; ok {
		entry.Add(entry, weight)
		return
	}
	weights[slot] = new(uint256.Int).Set(weight)
}

// BankWeight computes one bank's fork weight under the current votes view.
func (t *Tower) BankWeight(ctx context.Context, bank *forks.Bank, ancestors map[uint64]map[uint64]bool) *uint256.Int {
	stakeLockouts, _ := t.CollectVoteLockouts(ctx, bank.Slot(), bank.VoteAccounts(), ancestors)
	return t.CalculateWeight(stakeLockouts)
}

// FindHeaviestBank returns the frozen bank carrying the greatest stake
// weighted lockout support, or nil when no bank has frozen yet. Weight ties
// break to the fork with more ancestors and then to the higher slot, a
// total order, so validators sharing a votes view select the same bank.
func (t *Tower) FindHeaviestBank(ctx context.Context, bankForks *forks.BankForks) *forks.Bank {
	ctx, span := trace.StartSpan(ctx, "tower.FindHeaviestBank")
	defer span.End()

	ancestors := bankForks.Ancestors()
	frozen := bankForks.FrozenBanks()
	if len(frozen) == 0 {
		return nil
	}
	type bankWeight struct {
		weight  *uint256.Int
		parents int
		bank    *forks.Bank
	}
	weights := make([]bankWeight, 0, len(frozen))
	for _, bank := range frozen {
		weights = append(weights, bankWeight{
			weight:  t.BankWeight(ctx, bank, ancestors),
			parents: len(bank.Parents()),
			bank:    bank,
		})
	}
	sort.Slice(weights, func(i, j int) bool {
		if cmp := weights[i].weight.Cmp(weights[j].weight); cmp != 0 {
			return cmp < 0
		}
		if weights[i].parents != weights[j].parents {
			return weights[i].parents < weights[j].parents
		}
		return weights[i].bank.Slot() < weights[j].bank.Slot()
	})
	heaviest := weights[len(weights)-1]
	log.WithFields(logrus.Fields{
		"slot":   heaviest.bank.Slot(),
		"weight": heaviest.weight,
	}).Debug("Selected heaviest bank")
	t.sink.HeaviestBankChosen(heaviest.bank.Slot(), heaviest.weight)
	return heaviest.bank
}
