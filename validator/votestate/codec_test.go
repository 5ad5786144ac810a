package votestate

import (
	"bytes"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/testutil/assert"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/testutil/require"
)

func TestVoteAccountRoundTrip(t *testing.T) {
	var pk solana.PublicKey
	pk[0] = 7
	h := New(pk)
	for slot := uint64(0); slot <= MaxLockoutHistory; slot++ {
		h.ProcessVote(slot)
	}
	data := make([]byte, 1024)
	require.NoError(t, h.SerializeInto(data))

	parsed, err := ParseVoteAccount(data)
	require.NoError(t, err)
	assert.Equal(t, pk, parsed.NodePubkey())
	assert.DeepEqual(t, h.Votes(), parsed.Votes())
	root, ok := parsed.Root()
	require.Equal(t, true, ok)
	wantRoot, _ := h.Root()
	assert.Equal(t, wantRoot, root)
}

func TestParseVoteAccount_EmptyAccount(t *testing.T) {
	// A zero-filled account decodes as a fresh history with no votes.
	parsed, err := ParseVoteAccount(make([]byte, 1024))
	require.NoError(t, err)
	assert.Equal(t, 0, len(parsed.Votes()))
	_, ok := parsed.Root()
	assert.Equal(t, false, ok)
}

func TestParseVoteAccount_Truncated(t *testing.T) {
	_, err := ParseVoteAccount([]byte{1, 2, 3})
	assert.ErrorContains(t, "could not deserialize vote account", err)
}

func TestParseVoteAccount_StackTooDeep(t *testing.T) {
	buffer := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buffer)
	var pk solana.PublicKey
	require.NoError(t, encoder.WriteBytes(pk[:], false))
	require.NoError(t, encoder.WriteUint64(MaxLockoutHistory+1, bin.LE))
	_, err := ParseVoteAccount(buffer.Bytes())
	assert.ErrorContains(t, "vote stack exceeds the lockout history bound", err)
}

func TestSerializeInto_TooSmall(t *testing.T) {
	h := New(solana.PublicKey{})
	for slot := uint64(0); slot < 8; slot++ {
		h.ProcessVote(slot)
	}
	err := h.SerializeInto(make([]byte, 16))
	assert.ErrorContains(t, "account data too small", err)
}

func TestSerializedLayout(t *testing.T) {
	h := New(solana.PublicKey{})
	h.ProcessVote(5)
	encoded, err := h.Serialize()
	require.NoError(t, err)
	// pubkey | u64 vote count | {u64 slot, u32 confirmations} | bool root tag.
	require.Equal(t, 32+8+8+4+1, len(encoded))
	assert.Equal(t, byte(1), encoded[32], "vote count")
	assert.Equal(t, byte(5), encoded[40], "slot")
	assert.Equal(t, byte(1), encoded[48], "confirmation count")
	assert.Equal(t, byte(0), encoded[52], "root tag")
}
