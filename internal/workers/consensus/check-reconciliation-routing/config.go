// internal/workers/consensus/check-reconciliation-routing/config.go
package checkreconciliationrouting

import "time"

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  10 * time.Second,
		CacheTTL: 60 * time.Second,
	}
}
