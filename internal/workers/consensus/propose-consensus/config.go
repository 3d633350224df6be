// internal/workers/consensus/propose-consensus/config.go
package proposeconsensus

import (
	"time"

	"evaluation-workers/internal/engine/consensus"
	"evaluation-workers/internal/engine/scoring"
)

type Config struct {
	Timeout   time.Duration
	Consensus consensus.Config
	Scoring   scoring.Config
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   10 * time.Second,
		Consensus: consensus.DefaultConfig(),
		Scoring:   scoring.DefaultConfig(),
	}
}
