// Package tower implements the fork choice and vote lockout core of the
// validator. A Tower owns the local vote history, folds every validator's
// simulated lockouts into per slot stake support, weighs the competing
// forks, and guards new votes against the lockouts already committed to.
package tower

import (
	"context"

	"github.com/edwingeng/deque/v2"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/params"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/cache"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/forks"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/votestate"
)

// Tower is the per validator fork choice state machine. One Tower exists
// per validator process; the caller serializes RecordVote against the read
// side, and everything else is a pure function over snapshots it is handed.
type Tower struct {
	nodePubkey     solana.PublicKey
	thresholdDepth int
	thresholdSize  float64
	lockouts       *votestate.VoteHistory
	recentVotes    *deque.Deque[votestate.Vote]
	sink           EventSink
	accounts       *cache.VoteAccountCache
}

// Config options for constructing a Tower.
type Config struct {
	// NodePubkey is the local validator identity.
	NodePubkey solana.PublicKey
	// VoteAccountPubkey addresses the validator's own vote account when
	// restoring lockouts at boot.
	VoteAccountPubkey solana.PublicKey
	// BankForks, when set, is searched for the heaviest bank to restore the
	// tower's lockouts from.
	BankForks *forks.BankForks
	// Sink receives the tower's observability events. Nil means discard.
	Sink EventSink
	// AccountCache, when set, memoizes parsed vote accounts by content.
	AccountCache *cache.VoteAccountCache
}

// New creates a tower for the given identity. When bank forks are supplied
// the tower initializes its lockouts from the validator's vote account on
// the heaviest bank, so a restarted validator resumes under the lockouts
// the cluster already holds it to.
func New(ctx context.Context, cfg *Config) (*Tower, error) {
	t := &Tower{
		nodePubkey:     cfg.NodePubkey,
		thresholdDepth: int(params.TowerConfig().VoteThresholdDepth),
		thresholdSize:  params.TowerConfig().VoteThresholdSize,
		lockouts:       votestate.New(cfg.NodePubkey),
		recentVotes:    deque.NewDeque[votestate.Vote](),
		sink:           cfg.Sink,
		accounts:       cfg.AccountCache,
	}
	if t.sink == nil {
		t.sink = NoopSink{}
	}
	if cfg.BankForks != nil {
		if err := t.initializeLockouts(ctx, cfg.BankForks, cfg.VoteAccountPubkey); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// initializeLockouts adopts the vote history held by the validator's own
// vote account on the heaviest bank. Third party accounts failing to parse
// are skipped during aggregation, but the validator's own account being
// unreadable means voting could double cross existing lockouts, so it is an
// error here.
func (t *Tower) initializeLockouts(ctx context.Context, bankForks *forks.BankForks, voteAccountPubkey solana.PublicKey) error {
	bank := t.FindHeaviestBank(ctx, bankForks)
	if bank == nil {
		return nil
	}
	account, ok := bank.VoteAccounts()[voteAccountPubkey]
	if !ok {
		return nil
	}
	history, err := votestate.ParseVoteAccount(account.Data)
	if err != nil {
		return errors.Wrap(err, "could not restore own vote account")
	}
	if history.NodePubkey() != t.nodePubkey {
		return errNodePubkeyMismatch
	}
	t.lockouts = history
	root, _ := history.Root()
	log.WithFields(logrus.Fields{
		"slot":  bank.Slot(),
		"votes": len(history.Votes()),
		"root":  root,
	}).Debug("Restored tower lockouts from heaviest bank")
	return nil
}

// RecordVote adds a vote for the given slot to the tower. It returns the
// new root and true when the vote pushed the oldest lockout out the bottom
// of the stack.
func (t *Tower) RecordVote(slot uint64, hash solana.Hash) (uint64, bool) {
	prevRoot, hadRoot := t.lockouts.Root()
	t.lockouts.ProcessVote(slot)

	// The lockout stack does not retain hashes, so live slot and hash pairs
	// ride in the recent votes ring for the submission path.
	t.recentVotes.PushBack(votestate.Vote{Slot: slot, Hash: hash})
	live := make(map[uint64]bool)
	votes := t.lockouts.Votes()
	start := len(votes) - int(params.TowerConfig().MaxRecentVotes)
	if start < 0 {
		start = 0
	}
	for _, vote := range votes[start:] {
		live[vote.Slot] = true
	}
	for n := t.recentVotes.Len(); n > 0; n-- {
		vote := t.recentVotes.PopFront()
		if live[vote.Slot] {
			t.recentVotes.PushBack(vote)
		}
	}

	root, hasRoot := t.lockouts.Root()
	t.sink.VoteRecorded(slot, root)
	if hasRoot && (!hadRoot || root != prevRoot) {
		log.WithFields(logrus.Fields{
			"slot": slot,
			"root": root,
		}).Info("Tower root advanced")
		t.sink.RootAdvanced(root)
		return root, true
	}
	return 0, false
}

// RecentVotes returns the slot and hash pairs whose slots are still live in
// the lockout stack, oldest first.
func (t *Tower) RecentVotes() []votestate.Vote {
	votes := make([]votestate.Vote, 0, t.recentVotes.Len())
	t.recentVotes.Range(func(_ int, vote votestate.Vote) bool {
		votes = append(votes, vote)
		return true
	})
	return votes
}

// Root returns the tower's root slot. Once set the root only moves forward.
func (t *Tower) Root() (uint64, bool) {
	return t.lockouts.Root()
}

// HasVoted reports whether the tower holds a live vote for the slot.
func (t *Tower) HasVoted(slot uint64) bool {
	for _, vote := range t.lockouts.Votes() {
		if vote.Slot == slot {
			return true
		}
	}
	return false
}

// parseVoteAccount reads a vote history out of raw account data, through
// the content addressed cache when one is configured. Cached histories are
// shared between rounds and must not be mutated; simulation clones.
func (t *Tower) parseVoteAccount(data []byte) (*votestate.VoteHistory, error) {
	if t.accounts == nil {
		return votestate.ParseVoteAccount(data)
	}
	if history, ok := t.accounts.Get(data); ok {
		return history, nil
	}
	history, err := votestate.ParseVoteAccount(data)
	if err != nil {
		return nil, err
	}
	t.accounts.Put(data, history)
	return history, nil
}
