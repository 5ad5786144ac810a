// Package replay drives the validator's fork choice rounds: on every tick
// it selects the heaviest bank, decides whether voting on it is safe under
// the tower's lockouts, records the vote, advances the root, and feeds the
// confidence service and the vote submission path.
package replay

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/async"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/params"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/confidence"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/forks"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/tower"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/votestate"
	"go.opencensus.io/trace"
)

// VoteSubmitter carries a legal vote out of the replay loop, typically into
// a signed vote transaction. Submission failures are logged and the round
// goes on; the vote is retained in the tower's recent ring for the next
// attempt.
type VoteSubmitter interface {
	SubmitVote(ctx context.Context, votes []votestate.Vote) error
}

// VoteDecision is the outcome of one fork choice round.
type VoteDecision struct {
	// HeaviestSlot is the slot of the bank fork choice selected.
	HeaviestSlot uint64
	// Vote is the vote cast this round. Only meaningful when Voted is set.
	Vote votestate.Vote
	// Voted reports whether the tower allowed a vote for the heaviest bank.
	Voted bool
	// NewRoot is the root the vote advanced to, when RootChanged is set.
	NewRoot     uint64
	RootChanged bool
}

// Service runs the fork choice loop. All tower access happens on the
// service's goroutine; collaborators only see snapshots and decisions.
type Service struct {
	ctx        context.Context
	cancel     context.CancelFunc
	tower      *tower.Tower
	bankForks  *forks.BankForks
	confidence *confidence.Service
	submitter  VoteSubmitter
	interval   time.Duration
}

// Config options for the replay service.
type Config struct {
	// Tower decides votes. Required.
	Tower *tower.Tower
	// BankForks supplies the fork tree. Required.
	BankForks *forks.BankForks
	// Confidence, when set, receives the voted bank after every round.
	Confidence *confidence.Service
	// Submitter, when set, receives the recent votes after a vote is cast.
	Submitter VoteSubmitter
	// Interval between fork choice rounds. Zero means the configured
	// default.
	Interval time.Duration
}

// NewService instantiates the replay service.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg.Tower == nil {
		return nil, errors.New("replay service requires a tower")
	}
	if cfg.BankForks == nil {
		return nil, errors.New("replay service requires bank forks")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Duration(params.TowerConfig().ForkChoiceIntervalMillis) * time.Millisecond
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:        ctx,
		cancel:     cancel,
		tower:      cfg.Tower,
		bankForks:  cfg.BankForks,
		confidence: cfg.Confidence,
		submitter:  cfg.Submitter,
		interval:   interval,
	}, nil
}

// Start the fork choice loop.
func (s *Service) Start() {
	async.RunEvery(s.ctx, s.interval, func() {
		s.RunRound(s.ctx)
	})
}

// Stop the fork choice loop.
func (s *Service) Stop() error {
	defer s.cancel()
	return nil
}

// Status always returns nil.
func (s *Service) Status() error {
	return nil
}

// RunRound performs one fork choice round and reports its decision. The
// second return is false when no frozen bank exists to choose from.
func (s *Service) RunRound(ctx context.Context) (VoteDecision, bool) {
	ctx, span := trace.StartSpan(ctx, "replay.RunRound")
	defer span.End()

	heaviest := s.tower.FindHeaviestBank(ctx, s.bankForks)
	if heaviest == nil {
		return VoteDecision{}, false
	}
	slot := heaviest.Slot()
	ancestors := s.bankForks.Ancestors()
	descendants := s.bankForks.Descendants()
	stakeLockouts, totalStaked := s.tower.CollectVoteLockouts(ctx, slot, heaviest.VoteAccounts(), ancestors)

	decision := VoteDecision{HeaviestSlot: slot}
	votable := !s.tower.HasVoted(slot) &&
		!s.tower.IsLockedOut(slot, descendants) &&
		s.tower.CheckVoteStakeThreshold(slot, stakeLockouts, totalStaked)
	if votable {
		root, rootChanged := s.tower.RecordVote(slot, heaviest.Hash())
		decision.Vote = votestate.Vote{Slot: slot, Hash: heaviest.Hash()}
		decision.Voted = true
		decision.NewRoot, decision.RootChanged = root, rootChanged
		if rootChanged {
			if err := s.bankForks.SetRoot(root); err != nil {
				log.WithError(err).WithField("root", root).Error("Could not move bank forks to new root")
			}
		}
		if s.submitter != nil {
			if err := s.submitter.SubmitVote(ctx, s.tower.RecentVotes()); err != nil {
				log.WithError(err).Error("Could not submit vote")
			}
		}
	}
	if s.confidence != nil {
		s.confidence.Submit(confidence.Request{Bank: heaviest, TotalStaked: totalStaked})
	}
	replayRounds.Inc()
	log.WithFields(logrus.Fields{
		"heaviestSlot": slot,
		"voted":        decision.Voted,
		"totalStaked":  totalStaked,
	}).Debug("Completed fork choice round")
	return decision, true
}
