package votestate

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// Account is a raw vote account paired with the stake lamports backing it.
type Account struct {
	Lamports uint64
	Data     []byte
}

// Vote accounts hold a bincode layout: the node pubkey, the vote stack as a
// u64 count of {slot u64, confirmation u32} entries, then the root as a bool
// tag followed by the slot when present.

// UnmarshalWithDecoder reads a vote history from its bincode layout.
func (h *VoteHistory) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	nodePk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(h.nodePubkey[:], nodePk)

	numVotes, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	if numVotes > MaxLockoutHistory {
		return errVoteStackTooDeep
	}
	h.votes = make([]Lockout, 0, numVotes)
	for count := uint64(0); count < numVotes; count++ {
		var lockout Lockout
		lockout.Slot, err = decoder.ReadUint64(bin.LE)
		if err != nil {
			return err
		}
		lockout.ConfirmationCount, err = decoder.ReadUint32(bin.LE)
		if err != nil {
			return err
		}
		h.votes = append(h.votes, lockout)
	}

	hasRoot, err := decoder.ReadBool()
	if err != nil {
		return err
	}
	if hasRoot {
		root, err := decoder.ReadUint64(bin.LE)
		if err != nil {
			return err
		}
		h.root, h.hasRoot = root, true
	}
	return nil
}

// MarshalWithEncoder writes the history in the layout UnmarshalWithDecoder
// reads.
func (h *VoteHistory) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(h.nodePubkey[:], false)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(uint64(len(h.votes)), bin.LE)
	if err != nil {
		return err
	}
	for _, lockout := range h.votes {
		err = encoder.WriteUint64(lockout.Slot, bin.LE)
		if err != nil {
			return err
		}
		err = encoder.WriteUint32(lockout.ConfirmationCount, bin.LE)
		if err != nil {
			return err
		}
	}
	err = encoder.WriteBool(h.hasRoot)
	if err != nil {
		return err
	}
	if h.hasRoot {
		err = encoder.WriteUint64(h.root, bin.LE)
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseVoteAccount decodes a vote history out of raw vote-account data.
func ParseVoteAccount(data []byte) (*VoteHistory, error) {
	history := new(VoteHistory)
	if err := history.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, errors.Wrap(err, "could not deserialize vote account")
	}
	return history, nil
}

// Serialize returns the bincode encoding of the history.
func (h *VoteHistory) Serialize() ([]byte, error) {
	buffer := new(bytes.Buffer)
	if err := h.MarshalWithEncoder(bin.NewBinEncoder(buffer)); err != nil {
		return nil, errors.Wrap(err, "could not serialize vote history")
	}
	return buffer.Bytes(), nil
}

// SerializeInto writes the bincode encoding into a fixed-size account
// buffer, as vote programs do when updating an account in place.
func (h *VoteHistory) SerializeInto(data []byte) error {
	encoded, err := h.Serialize()
	if err != nil {
		return err
	}
	if len(encoded) > len(data) {
		return errAccountDataTooSmall
	}
	copy(data, encoded)
	return nil
}
