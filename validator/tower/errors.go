package tower

import "github.com/pkg/errors"

var errNodePubkeyMismatch = errors.New("vote account's node pubkey does not match the tower identity")
