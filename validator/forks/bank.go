// Package forks maintains the in-memory tree of banks the tower reasons
// about: every live fork, its lineage, and the root the tree is pruned to.
package forks

import (
	"encoding/binary"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/hashutil"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/votestate"
)

// Bank is one checkpoint of ledger state at a slot. Vote accounts land on a
// bank while it is live; freezing seals it with a hash and makes it eligible
// for fork choice.
type Bank struct {
	mu           sync.RWMutex
	slot         uint64
	parent       *Bank
	hash         solana.Hash
	frozen       bool
	voteAccounts map[solana.PublicKey]votestate.Account
}

// NewBank returns a parentless bank, the genesis of a fork tree.
func NewBank(slot uint64) *Bank {
	return &Bank{
		slot:         slot,
		voteAccounts: make(map[solana.PublicKey]votestate.Account),
	}
}

// NewBankFromParent returns a live child bank of parent at the given slot.
func NewBankFromParent(parent *Bank, slot uint64) *Bank {
	bank := NewBank(slot)
	bank.parent = parent
	// Children start from the parent's view of the vote accounts.
	for pubkey, account := range parent.VoteAccounts() {
		bank.voteAccounts[pubkey] = account
	}
	return bank
}

// Slot returns the slot this bank checkpoints.
func (b *Bank) Slot() uint64 {
	return b.slot
}

// Hash returns the bank hash. It is the zero hash until the bank freezes.
func (b *Bank) Hash() solana.Hash {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hash
}

// Parent returns the bank this one descends from, nil for a root.
func (b *Bank) Parent() *Bank {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.parent
}

// Parents returns the ancestor chain, nearest parent first.
func (b *Bank) Parents() []*Bank {
	var parents []*Bank
	for parent := b.Parent(); parent != nil; parent = parent.Parent() {
		parents = append(parents, parent)
	}
	return parents
}

// properAncestors returns the slots of every ancestor, nearest first.
func (b *Bank) properAncestors() []uint64 {
	var ancestors []uint64
	for parent := b.Parent(); parent != nil; parent = parent.Parent() {
		ancestors = append(ancestors, parent.slot)
	}
	return ancestors
}

// IsFrozen reports whether the bank has been sealed.
func (b *Bank) IsFrozen() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frozen
}

// Freeze seals the bank and derives its hash from the slot and the parent
// hash. Freezing twice is a no-op.
func (b *Bank) Freeze() {
	parentHash := solana.Hash{}
	if parent := b.Parent(); parent != nil {
		parentHash = parent.Hash()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return
	}
	var preimage [8 + 32]byte
	binary.LittleEndian.PutUint64(preimage[:8], b.slot)
	copy(preimage[8:], parentHash[:])
	b.hash = solana.Hash(hashutil.Hash(preimage[:]))
	b.frozen = true
}

// SetVoteAccount records the stake-weighted vote account observed on this
// bank. Frozen banks reject updates.
func (b *Bank) SetVoteAccount(pubkey solana.PublicKey, account votestate.Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return errFrozenBank
	}
	b.voteAccounts[pubkey] = account
	return nil
}

// VoteAccounts returns a copy of the bank's vote-account view. The account
// data slices are shared and must be treated as read-only.
func (b *Bank) VoteAccounts() map[solana.PublicKey]votestate.Account {
	b.mu.RLock()
	defer b.mu.RUnlock()
	accounts := make(map[solana.PublicKey]votestate.Account, len(b.voteAccounts))
	for pubkey, account := range b.voteAccounts {
		accounts[pubkey] = account
	}
	return accounts
}

// squash detaches the bank from its lineage once everything below it has
// been rooted.
func (b *Bank) squash() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = nil
}
