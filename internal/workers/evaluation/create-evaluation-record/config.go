// internal/workers/evaluation/create-evaluation-record/config.go
package createevaluationrecord

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
