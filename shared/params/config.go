// Package params defines the configurable parameters of the tower consensus
// core and the fork-choice services built around it.
package params

// TowerChainConfig contains constant configs for a validator to run tower
// fork choice.
type TowerChainConfig struct {
	// Tower constants.
	VoteThresholdDepth uint64  `yaml:"VOTE_THRESHOLD_DEPTH"` // VoteThresholdDepth is how many votes back the stake threshold is enforced.
	VoteThresholdSize  float64 `yaml:"VOTE_THRESHOLD_SIZE"`  // VoteThresholdSize is the fraction of total stake a slot must exceed to count as confirmed.
	MaxRecentVotes     uint64  `yaml:"MAX_RECENT_VOTES"`     // MaxRecentVotes bounds the ring of slot/hash pairs retained for vote submission.

	// Service constants.
	VoteAccountCacheSize     int    `yaml:"VOTE_ACCOUNT_CACHE_SIZE"`     // VoteAccountCacheSize is the number of parsed vote accounts kept in the LRU cache.
	ForkChoiceIntervalMillis uint64 `yaml:"FORK_CHOICE_INTERVAL_MILLIS"` // ForkChoiceIntervalMillis is the period of the replay service's fork-choice rounds.
	ConfidenceQueueSize      int    `yaml:"CONFIDENCE_QUEUE_SIZE"`       // ConfidenceQueueSize is the buffer of pending confidence aggregation requests.
}

var towerConfig = MainnetConfig()

// TowerConfig retrieves the current tower chain config.
func TowerConfig() *TowerChainConfig {
	return towerConfig
}

// OverrideTowerConfig by replacing the config. The preferred pattern is to
// call this with a modified copy of a config obtained from MainnetConfig(),
// not a fresh struct, so that unset fields keep their defaults.
func OverrideTowerConfig(c *TowerChainConfig) {
	towerConfig = c
}
