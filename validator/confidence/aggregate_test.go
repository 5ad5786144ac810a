package confidence

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/testutil/assert"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/testutil/require"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/forks"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/votestate"
)

func testPubkey(b byte) solana.PublicKey {
	var pubkey solana.PublicKey
	pubkey[0] = b
	return pubkey
}

func makeAccount(t testing.TB, lamports uint64, voteSlots []uint64) votestate.Account {
	history := votestate.New(solana.PublicKey{})
	for _, slot := range voteSlots {
		history.ProcessVote(slot)
	}
	data, err := history.Serialize()
	require.NoError(t, err)
	return votestate.Account{Lamports: lamports, Data: data}
}

func confidenceAt(counts map[int]uint64) *BankConfidence {
	entry := &BankConfidence{}
	for confirmationCount, stake := range counts {
		entry.IncreaseConfirmationStake(confirmationCount, stake)
	}
	return entry
}

func TestAggregateAccountConfidence_RootOnly(t *testing.T) {
	ancestors := []uint64{3, 4, 5, 7, 9, 11}
	confidence := make(map[uint64]*BankConfidence)
	history := votestate.Restore(solana.PublicKey{}, nil, 11, true)

	aggregateAccountConfidence(confidence, history, ancestors, 5)
	for _, ancestor := range ancestors {
		expected := confidenceAt(map[int]uint64{votestate.MaxLockoutHistory: 5})
		assert.DeepEqual(t, expected, confidence[ancestor], "ancestor %d", ancestor)
	}
}

func TestAggregateAccountConfidence_RootAndVote(t *testing.T) {
	ancestors := []uint64{3, 4, 5, 7, 9, 11}
	confidence := make(map[uint64]*BankConfidence)
	history := votestate.Restore(solana.PublicKey{}, []votestate.Lockout{
		{Slot: 11, ConfirmationCount: 1},
	}, 5, true)

	aggregateAccountConfidence(confidence, history, ancestors, 5)
	for _, ancestor := range ancestors {
		var expected *BankConfidence
		if ancestor <= 5 {
			expected = confidenceAt(map[int]uint64{votestate.MaxLockoutHistory: 5})
		} else {
			expected = confidenceAt(map[int]uint64{1: 5})
		}
		assert.DeepEqual(t, expected, confidence[ancestor], "ancestor %d", ancestor)
	}
}

func TestAggregateAccountConfidence_MultipleVotes(t *testing.T) {
	ancestors := []uint64{3, 4, 5, 7, 9, 10, 11}
	confidence := make(map[uint64]*BankConfidence)
	history := votestate.Restore(solana.PublicKey{}, []votestate.Lockout{
		{Slot: 9, ConfirmationCount: 2},
		{Slot: 11, ConfirmationCount: 1},
	}, 5, true)

	aggregateAccountConfidence(confidence, history, ancestors, 5)
	for i, ancestor := range ancestors {
		var expected *BankConfidence
		switch {
		case ancestor <= 5:
			expected = confidenceAt(map[int]uint64{votestate.MaxLockoutHistory: 5})
		case i <= 4:
			expected = confidenceAt(map[int]uint64{2: 5})
		default:
			expected = confidenceAt(map[int]uint64{1: 5})
		}
		assert.DeepEqual(t, expected, confidence[ancestor], "ancestor %d", ancestor)
	}
}

func TestAggregateConfidence_Validity(t *testing.T) {
	ancestors := []uint64{3, 4, 5, 7, 9, 10, 11}
	bank := forks.NewBank(11)
	// A: 100 lamports, voted 3 then 5. B: 50 lamports, voted 9 then 10.
	require.NoError(t, bank.SetVoteAccount(testPubkey(1), makeAccount(t, 100, []uint64{3, 5})))
	require.NoError(t, bank.SetVoteAccount(testPubkey(2), makeAccount(t, 50, []uint64{9, 10})))

	confidence := AggregateConfidence(ancestors, bank)
	for _, ancestor := range ancestors {
		switch {
		case ancestor <= 3:
			assert.DeepEqual(t, confidenceAt(map[int]uint64{2: 150}), confidence[ancestor], "ancestor %d", ancestor)
		case ancestor <= 5:
			assert.DeepEqual(t, confidenceAt(map[int]uint64{1: 100, 2: 50}), confidence[ancestor], "ancestor %d", ancestor)
		case ancestor <= 9:
			assert.DeepEqual(t, confidenceAt(map[int]uint64{2: 50}), confidence[ancestor], "ancestor %d", ancestor)
		case ancestor <= 10:
			assert.DeepEqual(t, confidenceAt(map[int]uint64{1: 50}), confidence[ancestor], "ancestor %d", ancestor)
		default:
			_, ok := confidence[ancestor]
			assert.Equal(t, false, ok, "ancestor %d", ancestor)
		}
	}
}

func TestAggregateConfidence_SkipsZeroStakeAndUnreadable(t *testing.T) {
	bank := forks.NewBank(2)
	require.NoError(t, bank.SetVoteAccount(testPubkey(1), votestate.Account{Lamports: 0, Data: nil}))
	require.NoError(t, bank.SetVoteAccount(testPubkey(2), votestate.Account{Lamports: 3, Data: []byte("torn")}))

	confidence := AggregateConfidence([]uint64{0, 1, 2}, bank)
	assert.Equal(t, 0, len(confidence))
}

func TestAggregateConfidence_PanicsOnEmptyAncestors(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty ancestors")
		}
	}()
	AggregateConfidence(nil, forks.NewBank(0))
}

func TestAggregateConfidence_PanicsOnUnsortedAncestors(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unsorted ancestors")
		}
	}()
	AggregateConfidence([]uint64{3, 2}, forks.NewBank(3))
}
