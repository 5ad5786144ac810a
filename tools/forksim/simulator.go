package main

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/params"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/confidence"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/forks"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/replay"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/tower"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/votestate"
)

// maxStakeLamports bounds a single synthetic validator's stake.
const maxStakeLamports = 1 << 32

// SimulatorConfig sizes the synthetic cluster.
type SimulatorConfig struct {
	// Validators is the number of staked validators, the local one included.
	Validators int
	// Rounds is the number of banks to grow and run fork choice over.
	Rounds uint64
	// ForkRate is the per-round probability that the next bank builds on a
	// parent other than the heaviest one.
	ForkRate float64
	// StakeSkew is the exponent of the stake distribution. Zero hands every
	// validator the same stake; larger values concentrate it.
	StakeSkew float64
	// Seed feeds the simulation's random source.
	Seed int64
}

type simValidator struct {
	pubkey  solana.PublicKey
	stake   uint64
	history *votestate.VoteHistory
}

// Simulator drives the fork-choice stack against a synthetic cluster. The
// first validator runs the production tower; every other validator follows
// the heaviest fork with its stake one bank behind, the way vote propagation
// lags a live cluster.
type Simulator struct {
	cfg        *SimulatorConfig
	rng        *rand.Rand
	validators []*simValidator
	totalStake uint64

	bankForks  *forks.BankForks
	tower      *tower.Tower
	replay     *replay.Service
	confidence *confidence.Service

	nextSlot      uint64
	votesCast     uint64
	withheldVotes uint64
	rootAdvances  uint64
	forkEvents    uint64
	lastDecision  replay.VoteDecision
}

// NewSimulator synthesizes the validator population and genesis bank and
// wires the tower, replay, and confidence services around them.
func NewSimulator(ctx context.Context, cfg *SimulatorConfig) (*Simulator, error) {
	if cfg.Validators < 1 {
		return nil, errors.New("simulator requires at least one validator")
	}
	s := &Simulator{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		nextSlot: 1,
	}
	for i := 0; i < cfg.Validators; i++ {
		var pubkey solana.PublicKey
		s.rng.Read(pubkey[:])
		stake := 1 + uint64(float64(maxStakeLamports)*math.Pow(s.rng.Float64(), cfg.StakeSkew))
		s.validators = append(s.validators, &simValidator{
			pubkey:  pubkey,
			stake:   stake,
			history: votestate.New(pubkey),
		})
		s.totalStake += stake
	}

	genesis := forks.NewBank(0)
	if err := s.writeVoteAccounts(genesis); err != nil {
		return nil, err
	}
	genesis.Freeze()
	s.bankForks = forks.New(genesis)

	localTower, err := tower.New(ctx, &tower.Config{
		NodePubkey:        s.validators[0].pubkey,
		VoteAccountPubkey: s.validators[0].pubkey,
		BankForks:         s.bankForks,
		Sink:              replay.NewPrometheusSink(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create tower")
	}
	s.tower = localTower
	s.confidence = confidence.NewService(ctx, &confidence.Config{})
	replayService, err := replay.NewService(ctx, &replay.Config{
		Tower:      localTower,
		BankForks:  s.bankForks,
		Confidence: s.confidence,
		Submitter:  s,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create replay service")
	}
	s.replay = replayService
	return s, nil
}

// SubmitVote receives the local validator's votes; the simulator only counts
// them, there is no cluster to gossip to.
func (s *Simulator) SubmitVote(_ context.Context, _ []votestate.Vote) error {
	s.votesCast++
	return nil
}

// Run grows one bank per round and runs a full fork-choice round over it.
func (s *Simulator) Run(ctx context.Context) error {
	s.confidence.Start()
	defer func() {
		if err := s.confidence.Stop(); err != nil {
			log.WithError(err).Error("Could not stop confidence service")
		}
	}()

	for round := uint64(0); round < s.cfg.Rounds; round++ {
		if err := s.growFork(ctx); err != nil {
			return errors.Wrapf(err, "round %d", round)
		}
		decision, ok := s.replay.RunRound(ctx)
		if !ok {
			continue
		}
		s.lastDecision = decision
		if decision.Voted {
			s.validators[0].history.ProcessVote(decision.Vote.Slot)
		} else {
			s.withheldVotes++
		}
		if decision.RootChanged {
			s.rootAdvances++
		}
		// The rest of the cluster trails the heaviest fork.
		for _, validator := range s.validators[1:] {
			validator.history.ProcessVote(decision.HeaviestSlot)
		}
	}
	s.logSummary()
	return nil
}

// growFork freezes the next bank, attached to the heaviest tip or, on a fork
// event, to a random other live bank.
func (s *Simulator) growFork(ctx context.Context) error {
	parent := s.tower.FindHeaviestBank(ctx, s.bankForks)
	if s.rng.Float64() < s.cfg.ForkRate {
		if alternative, ok := s.alternativeParent(parent.Slot()); ok {
			parent = alternative
			s.forkEvents++
			log.WithFields(logrus.Fields{
				"slot":   s.nextSlot,
				"parent": parent.Slot(),
			}).Debug("Forking off a non-heaviest parent")
		}
	}
	bank := forks.NewBankFromParent(parent, s.nextSlot)
	s.nextSlot++
	if err := s.writeVoteAccounts(bank); err != nil {
		return err
	}
	bank.Freeze()
	return s.bankForks.Insert(bank)
}

func (s *Simulator) alternativeParent(heaviest uint64) (*forks.Bank, bool) {
	frozen := s.bankForks.FrozenBanks()
	slots := make([]uint64, 0, len(frozen))
	for slot := range frozen {
		if slot != heaviest {
			slots = append(slots, slot)
		}
	}
	if len(slots) == 0 {
		return nil, false
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return frozen[slots[s.rng.Intn(len(slots))]], true
}

func (s *Simulator) writeVoteAccounts(bank *forks.Bank) error {
	for _, validator := range s.validators {
		data, err := validator.history.Serialize()
		if err != nil {
			return errors.Wrap(err, "could not serialize vote history")
		}
		account := votestate.Account{Lamports: validator.stake, Data: data}
		if err := bank.SetVoteAccount(validator.pubkey, account); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) logSummary() {
	cache := s.confidence.Cache()
	if s.cfg.Rounds > 0 {
		deadline := time.Now().Add(5 * time.Second)
		for cache.TotalStake() != s.totalStake && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
	}
	fields := logrus.Fields{
		"rounds":       s.cfg.Rounds,
		"validators":   len(s.validators),
		"totalStake":   s.totalStake,
		"heaviestSlot": s.lastDecision.HeaviestSlot,
		"votesCast":    s.votesCast,
		"withheld":     s.withheldVotes,
		"rootAdvances": s.rootAdvances,
		"forkEvents":   s.forkEvents,
		"liveBanks":    len(s.bankForks.FrozenBanks()),
		"bankRoot":     s.bankForks.Root(),
	}
	if root, ok := s.tower.Root(); ok {
		fields["towerRoot"] = root
	}
	threshold := params.TowerConfig().VoteThresholdSize
	if slot, ok := cache.BestRootedSlot(threshold); ok {
		fields["rootedSlot"] = slot
	}
	if slot, ok := cache.BestSlotWithDepthConfidence(0, threshold); ok {
		fields["confirmedSlot"] = slot
	}
	log.WithFields(fields).Info("Simulation complete")
}
