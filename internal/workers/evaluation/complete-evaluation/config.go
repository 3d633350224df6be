// internal/workers/evaluation/complete-evaluation/config.go
package completeevaluation

import (
	"time"

	"evaluation-workers/internal/engine/scoring"
)

type Config struct {
	Timeout            time.Duration
	CompetencyCacheTTL time.Duration
	Scoring            scoring.Config
}

func LoadConfig() *Config {
	return &Config{
		Timeout:            15 * time.Second,
		CompetencyCacheTTL: 10 * time.Minute,
		Scoring:            scoring.DefaultConfig(),
	}
}
