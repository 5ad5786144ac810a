package params

// MainnetConfig returns the configuration to be used in the main network.
func MainnetConfig() *TowerChainConfig {
	return mainnetTowerConfig
}

// UseMainnetConfig for the tower services.
func UseMainnetConfig() {
	towerConfig = MainnetConfig()
}

var mainnetTowerConfig = &TowerChainConfig{
	// Tower constants.
	VoteThresholdDepth: 8,
	VoteThresholdSize:  2.0 / 3.0,
	MaxRecentVotes:     16,

	// Service constants.
	VoteAccountCacheSize:     4096,
	ForkChoiceIntervalMillis: 100,
	ConfidenceQueueSize:      1024,
}
