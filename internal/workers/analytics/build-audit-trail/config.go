// internal/workers/analytics/build-audit-trail/config.go
package buildaudittrail

import (
	"time"

	"evaluation-workers/internal/engine/audit"
)

// Config holds worker-specific configuration
type Config struct {
	Timeout     time.Duration
	TrailsIndex string
	Audit       audit.Config
}

// LoadConfig loads worker configuration
func LoadConfig() *Config {
	return &Config{
		Timeout:     15 * time.Second,
		TrailsIndex: "audit-trails",
		Audit:       audit.DefaultConfig(),
	}
}
