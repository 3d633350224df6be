// internal/workers/consensus/confirm-consensus/config.go
package confirmconsensus

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
