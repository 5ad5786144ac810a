// Package votestate models a validator's vote history: the ordered stack of
// exponentially escalating lockouts, the root slot promoted off its front,
// and the bincode codec used to read a history out of raw vote-account data.
package votestate

import (
	"math"

	"github.com/gagliardetto/solana-go"
)

const (
	// MaxLockoutHistory is the depth of the vote stack. Once a vote gathers
	// this many confirmations it is popped off the front and its slot
	// becomes the root.
	MaxLockoutHistory = 32

	// InitialLockout is the base of the exponential lockout escalation.
	InitialLockout = 2
)

// Vote pairs a voted slot with the ledger hash the vote commits to.
type Vote struct {
	Slot uint64
	Hash solana.Hash
}

// Lockout is one entry of the vote stack: a voted slot together with the
// number of times later votes have confirmed it.
type Lockout struct {
	Slot              uint64
	ConfirmationCount uint32
}

// Lockout returns the duration in slots the vote is locked out for,
// InitialLockout^ConfirmationCount.
func (l Lockout) Lockout() uint64 {
	return uint64(math.Pow(InitialLockout, float64(l.ConfirmationCount)))
}

// ExpirationSlot is the last slot at which the lockout still forbids a vote
// on a conflicting fork.
func (l Lockout) ExpirationSlot() uint64 {
	return l.Slot + l.Lockout()
}

// VoteHistory is the per-validator record of votes and their lockouts.
// Votes are ordered oldest first with strictly increasing slots. The zero
// value is an empty history.
type VoteHistory struct {
	nodePubkey solana.PublicKey
	votes      []Lockout
	root       uint64
	hasRoot    bool
}

// New returns an empty history owned by the given validator identity.
func New(nodePubkey solana.PublicKey) *VoteHistory {
	return &VoteHistory{nodePubkey: nodePubkey}
}

// Restore reconstitutes a history from parts recorded elsewhere, such as a
// snapshotted vote account. The votes must be ordered oldest first with
// strictly increasing slots.
func Restore(nodePubkey solana.PublicKey, votes []Lockout, root uint64, hasRoot bool) *VoteHistory {
	h := &VoteHistory{nodePubkey: nodePubkey, root: root, hasRoot: hasRoot}
	h.votes = make([]Lockout, len(votes))
	copy(h.votes, votes)
	return h
}

// NodePubkey returns the identity of the validator the history belongs to.
func (h *VoteHistory) NodePubkey() solana.PublicKey {
	return h.nodePubkey
}

// Root returns the slot most recently promoted to root, if any. Once set the
// root only ever moves forward.
func (h *VoteHistory) Root() (uint64, bool) {
	return h.root, h.hasRoot
}

// Votes returns a copy of the lockout stack, oldest vote first.
func (h *VoteHistory) Votes() []Lockout {
	votes := make([]Lockout, len(h.votes))
	copy(votes, h.votes)
	return votes
}

// LastVotedSlot returns the slot of the most recent vote on the stack.
func (h *VoteHistory) LastVotedSlot() (uint64, bool) {
	if len(h.votes) == 0 {
		return 0, false
	}
	return h.votes[len(h.votes)-1].Slot, true
}

// NthRecentVote returns the vote n places back from the most recent one, so
// n=0 is the latest vote.
func (h *VoteHistory) NthRecentVote(n int) (Lockout, bool) {
	if n < 0 || n >= len(h.votes) {
		return Lockout{}, false
	}
	return h.votes[len(h.votes)-1-n], true
}

// ProcessVote records a vote for the given slot: conflicting expired votes
// are popped, the oldest vote is promoted to root when the stack is at
// capacity, and every lockout the new stack depth covers escalates. Votes
// for slots at or below the last voted slot are ignored.
func (h *VoteHistory) ProcessVote(slot uint64) {
	if last, ok := h.LastVotedSlot(); ok && slot <= last {
		return
	}
	h.popExpiredVotes(slot)
	if len(h.votes) == MaxLockoutHistory {
		rooted := h.votes[0]
		copy(h.votes, h.votes[1:])
		h.votes = h.votes[:len(h.votes)-1]
		h.root, h.hasRoot = rooted.Slot, true
	}
	h.votes = append(h.votes, Lockout{Slot: slot, ConfirmationCount: 1})
	h.doubleLockouts()
}

// Clone returns a deep copy of the history.
func (h *VoteHistory) Clone() *VoteHistory {
	clone := *h
	clone.votes = make([]Lockout, len(h.votes))
	copy(clone.votes, h.votes)
	return &clone
}

// Simulate returns the history as it would look after one additional vote
// for the given slot. The receiver is never mutated.
func (h *VoteHistory) Simulate(slot uint64) *VoteHistory {
	simulated := h.Clone()
	simulated.ProcessVote(slot)
	return simulated
}

// popExpiredVotes pops votes off the back of the stack while their lockout
// no longer reaches the new slot.
func (h *VoteHistory) popExpiredVotes(slot uint64) {
	for len(h.votes) > 0 {
		if h.votes[len(h.votes)-1].ExpirationSlot() >= slot {
			break
		}
		h.votes = h.votes[:len(h.votes)-1]
	}
}

// doubleLockouts escalates the confirmation count of every vote whose
// current lockout the new stack depth exceeds.
func (h *VoteHistory) doubleLockouts() {
	depth := len(h.votes)
	for i := range h.votes {
		if depth > i+int(h.votes[i].ConfirmationCount) {
			h.votes[i].ConfirmationCount++
		}
	}
}
