package replay

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	replayRounds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replay_fork_choice_rounds",
		Help: "The number of fork choice rounds completed.",
	})
	votesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tower_votes_recorded",
		Help: "The number of votes recorded into the tower.",
	})
	lastVoteSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tower_last_vote_slot",
		Help: "The slot of the most recent vote recorded into the tower.",
	})
	rootSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tower_root_slot",
		Help: "The tower's current root slot.",
	})
	rootAdvances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tower_root_advances",
		Help: "The number of times a vote advanced the tower root.",
	})
	heaviestBankSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fork_choice_heaviest_slot",
		Help: "The slot of the bank most recently selected by fork choice.",
	})
	heaviestBankWeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fork_choice_heaviest_weight",
		Help: "The stake weighted lockout sum of the selected bank.",
	})
	thresholdFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tower_threshold_failures",
		Help: "The number of votes withheld because the stake threshold was not met.",
	})
	lockoutRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tower_lockout_rejections",
		Help: "The number of votes withheld because a lockout would be violated.",
	})
	ownVoteStateSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tower_observed_own_vote_slot",
		Help: "The last vote slot observed in the validator's own on-chain vote account.",
	})
	unreadableVoteAccounts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tower_unreadable_vote_accounts",
		Help: "The number of vote accounts skipped because their state did not parse.",
	})
)

// PrometheusSink exports the tower's events as Prometheus metrics. It is
// the production EventSink; the tower core itself never touches a metrics
// registry.
type PrometheusSink struct{}

// NewPrometheusSink returns the metrics-backed tower event sink.
func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{}
}

// VoteRecorded counts a recorded vote.
func (*PrometheusSink) VoteRecorded(slot, _ uint64) {
	votesRecorded.Inc()
	lastVoteSlot.Set(float64(slot))
}

// RootAdvanced tracks the tower root.
func (*PrometheusSink) RootAdvanced(root uint64) {
	rootAdvances.Inc()
	rootSlot.Set(float64(root))
}

// HeaviestBankChosen tracks the fork choice outcome. Weights wider than a
// float64 mantissa lose precision here; the gauge is for dashboards, not
// consensus.
func (*PrometheusSink) HeaviestBankChosen(slot uint64, weight *uint256.Int) {
	heaviestBankSlot.Set(float64(slot))
	weightFloat, _ := new(big.Float).SetInt(weight.ToBig()).Float64()
	heaviestBankWeight.Set(weightFloat)
}

// ThresholdFailed counts a withheld vote.
func (*PrometheusSink) ThresholdFailed(_ uint64) {
	thresholdFailures.Inc()
}

// LockedOut counts a withheld vote.
func (*PrometheusSink) LockedOut(_ uint64) {
	lockoutRejections.Inc()
}

// OwnStateObserved tracks the validator's own on-chain vote state.
func (*PrometheusSink) OwnStateObserved(slot, _ uint64) {
	ownVoteStateSlot.Set(float64(slot))
}

// VoteAccountUnreadable counts skipped vote accounts.
func (*PrometheusSink) VoteAccountUnreadable(_ solana.PublicKey) {
	unreadableVoteAccounts.Inc()
}
