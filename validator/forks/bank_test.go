package forks

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/testutil/assert"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/testutil/require"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/votestate"
)

func TestBank_FreezeDerivesHash(t *testing.T) {
	genesis := NewBank(0)
	assert.Equal(t, false, genesis.IsFrozen())
	assert.Equal(t, solana.Hash{}, genesis.Hash())

	genesis.Freeze()
	require.Equal(t, true, genesis.IsFrozen())
	first := genesis.Hash()
	assert.NotEqual(t, solana.Hash{}, first)

	// Freezing again leaves the hash untouched.
	genesis.Freeze()
	assert.Equal(t, first, genesis.Hash())

	child := NewBankFromParent(genesis, 1)
	child.Freeze()
	assert.NotEqual(t, first, child.Hash())
}

func TestBank_SameSlotDifferentParentDiffers(t *testing.T) {
	genesis := NewBank(0)
	genesis.Freeze()
	left := NewBankFromParent(genesis, 1)
	left.Freeze()
	right := NewBankFromParent(left, 2)
	right.Freeze()

	onGenesis := NewBankFromParent(genesis, 3)
	onGenesis.Freeze()
	onRight := NewBankFromParent(right, 3)
	onRight.Freeze()
	assert.NotEqual(t, onGenesis.Hash(), onRight.Hash())
}

func TestBank_FrozenRejectsVoteAccountUpdates(t *testing.T) {
	bank := NewBank(0)
	var voter solana.PublicKey
	voter[0] = 1
	require.NoError(t, bank.SetVoteAccount(voter, votestate.Account{Lamports: 10, Data: []byte{1, 2, 3}}))

	bank.Freeze()
	require.ErrorContains(t, "frozen", bank.SetVoteAccount(voter, votestate.Account{Lamports: 20}))
}

func TestBank_ChildInheritsVoteAccounts(t *testing.T) {
	parent := NewBank(0)
	var voter solana.PublicKey
	voter[0] = 7
	require.NoError(t, parent.SetVoteAccount(voter, votestate.Account{Lamports: 100, Data: []byte{9}}))
	parent.Freeze()

	child := NewBankFromParent(parent, 5)
	accounts := child.VoteAccounts()
	require.Equal(t, 1, len(accounts))
	assert.Equal(t, uint64(100), accounts[voter].Lamports)

	// Writes to the child stay out of the parent.
	var other solana.PublicKey
	other[0] = 8
	require.NoError(t, child.SetVoteAccount(other, votestate.Account{Lamports: 50}))
	assert.Equal(t, 1, len(parent.VoteAccounts()))
	assert.Equal(t, 2, len(child.VoteAccounts()))
}

func TestBank_ParentsWalkToGenesis(t *testing.T) {
	genesis := NewBank(0)
	a := NewBankFromParent(genesis, 1)
	b := NewBankFromParent(a, 3)

	parents := b.Parents()
	require.Equal(t, 2, len(parents))
	assert.Equal(t, uint64(1), parents[0].Slot())
	assert.Equal(t, uint64(0), parents[1].Slot())
	assert.DeepEqual(t, []uint64{1, 0}, b.properAncestors())

	b.squash()
	assert.Equal(t, 0, len(b.Parents()))
	assert.Equal(t, true, b.Parent() == nil)
}
