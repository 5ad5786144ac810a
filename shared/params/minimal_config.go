package params

// MinimalSpecConfig returns the reduced parameter set used in local
// simulation and tests.
func MinimalSpecConfig() *TowerChainConfig {
	minimal := *mainnetTowerConfig
	minimal.VoteAccountCacheSize = 64
	minimal.ForkChoiceIntervalMillis = 10
	minimal.ConfidenceQueueSize = 16
	return &minimal
}

// UseMinimalConfig for the tower services.
func UseMinimalConfig() {
	towerConfig = MinimalSpecConfig()
}
