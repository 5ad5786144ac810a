package forks

import "github.com/pkg/errors"

var (
	errSlotAlreadyExists = errors.New("bank already exists for slot")
	errFrozenBank        = errors.New("cannot update a frozen bank")
	errUnknownRootBank   = errors.New("root bank does not exist in bank forks")
)
