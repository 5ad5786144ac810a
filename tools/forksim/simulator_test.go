package main

import (
	"context"
	"testing"

	"github.com/yosuke-kuroki/jito-solana-sub003/shared/testutil/assert"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/testutil/require"
)

func TestNewSimulator_RequiresValidators(t *testing.T) {
	_, err := NewSimulator(context.Background(), &SimulatorConfig{})
	require.ErrorContains(t, "at least one validator", err)
}

func TestSimulator_EqualStakeWithZeroSkew(t *testing.T) {
	sim, err := NewSimulator(context.Background(), &SimulatorConfig{Validators: 4, StakeSkew: 0, Seed: 9})
	require.NoError(t, err)
	for _, validator := range sim.validators[1:] {
		assert.Equal(t, sim.validators[0].stake, validator.stake)
	}
}

func TestSimulator_LinearChainAdvancesRoot(t *testing.T) {
	ctx := context.Background()
	sim, err := NewSimulator(ctx, &SimulatorConfig{
		Validators: 8,
		Rounds:     40,
		ForkRate:   0,
		StakeSkew:  1,
		Seed:       1,
	})
	require.NoError(t, err)
	require.NoError(t, sim.Run(ctx))

	// Without fork events every round extends the same chain and the local
	// validator votes all 40 times, pushing eight roots out of the tower.
	assert.Equal(t, uint64(40), sim.votesCast)
	assert.Equal(t, uint64(0), sim.withheldVotes)
	assert.Equal(t, uint64(0), sim.forkEvents)
	assert.Equal(t, uint64(8), sim.rootAdvances)
	assert.Equal(t, uint64(8), sim.bankForks.Root())
	root, hasRoot := sim.tower.Root()
	require.Equal(t, true, hasRoot)
	assert.Equal(t, uint64(8), root)
	assert.Equal(t, uint64(40), sim.lastDecision.HeaviestSlot)
	assert.Equal(t, sim.totalStake, sim.confidence.Cache().TotalStake())
}

func TestSimulator_ForkEventsKeepTheStackAlive(t *testing.T) {
	ctx := context.Background()
	sim, err := NewSimulator(ctx, &SimulatorConfig{
		Validators: 16,
		Rounds:     64,
		ForkRate:   0.25,
		StakeSkew:  2,
		Seed:       7,
	})
	require.NoError(t, err)
	require.NoError(t, sim.Run(ctx))

	assert.Equal(t, uint64(65), sim.nextSlot)
	assert.Equal(t, uint64(64), sim.votesCast+sim.withheldVotes)
	assert.Equal(t, sim.totalStake, sim.confidence.Cache().TotalStake())
}
