package tower

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// EventSink receives the named consensus events the tower emits while it
// works. The tower calls implementations inline, so they must be cheap and
// must not block.
type EventSink interface {
	// VoteRecorded fires after every vote lands in the tower, with the
	// voted slot and the current root (zero while unset).
	VoteRecorded(slot, root uint64)
	// RootAdvanced fires when a vote pushes the tower root forward.
	RootAdvanced(root uint64)
	// HeaviestBankChosen fires when fork choice selects a bank.
	HeaviestBankChosen(slot uint64, weight *uint256.Int)
	// ThresholdFailed fires when the stake threshold check rejects a
	// candidate slot.
	ThresholdFailed(slot uint64)
	// LockedOut fires when the lockout guard rejects a candidate slot.
	LockedOut(slot uint64)
	// OwnStateObserved fires when lockout aggregation encounters the local
	// validator's own vote account (zero values while absent).
	OwnStateObserved(slot, root uint64)
	// VoteAccountUnreadable fires when an account's vote state cannot be
	// deserialized and the validator is skipped for the round.
	VoteAccountUnreadable(pubkey solana.PublicKey)
}

// NoopSink discards every event, for callers with no collector wired up.
type NoopSink struct{}

// VoteRecorded implements EventSink.
func (NoopSink) VoteRecorded(_, _ uint64) {}

// RootAdvanced implements EventSink.
func (NoopSink) RootAdvanced(_ uint64) {}

// HeaviestBankChosen implements EventSink.
func (NoopSink) HeaviestBankChosen(_ uint64, _ *uint256.Int) {}

// ThresholdFailed implements EventSink.
func (NoopSink) ThresholdFailed(_ uint64) {}

// LockedOut implements EventSink.
func (NoopSink) LockedOut(_ uint64) {}

// OwnStateObserved implements EventSink.
func (NoopSink) OwnStateObserved(_, _ uint64) {}

// VoteAccountUnreadable implements EventSink.
func (NoopSink) VoteAccountUnreadable(_ solana.PublicKey) {}
