package hashutil_test

import (
	"testing"

	"github.com/yosuke-kuroki/jito-solana-sub003/shared/hashutil"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/testutil/assert"
)

func TestHash(t *testing.T) {
	hashOf0 := hashutil.Hash([]byte{0})
	hashOf1 := hashutil.Hash([]byte{1})
	assert.NotEqual(t, hashOf0, hashOf1)

	// Identical input must produce an identical digest.
	assert.Equal(t, hashOf0, hashutil.Hash([]byte{0}))

	// The digest is not the zero value.
	assert.NotEqual(t, [32]byte{}, hashOf0)
	assert.NotEqual(t, [32]byte{}, hashutil.Hash(nil))
}
