package votestate

import "github.com/pkg/errors"

var (
	errVoteStackTooDeep    = errors.New("vote stack exceeds the lockout history bound")
	errAccountDataTooSmall = errors.New("account data too small for the serialized vote history")
)
