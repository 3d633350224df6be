// internal/workers/evaluation/validate-evaluation-data/config.go
package validateevaluationdata

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
