// internal/workers/infrastructure/validate-cohort-readiness/config.go
package validatecohortreadiness

import "time"

type Config struct {
	Timeout       time.Duration
	CacheTTL      time.Duration
	MinSampleSize int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       10 * time.Second,
		CacheTTL:      5 * time.Minute,
		MinSampleSize: 30,
	}
}
