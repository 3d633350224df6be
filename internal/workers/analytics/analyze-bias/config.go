// internal/workers/analytics/analyze-bias/config.go
package analyzebias

import (
	"time"

	"evaluation-workers/internal/engine/bias"
)

// Config holds worker-specific configuration
type Config struct {
	Timeout        time.Duration
	ReportCacheTTL time.Duration
	ReportsIndex   string
	Bias           bias.Config
}

// LoadConfig loads worker configuration
func LoadConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		ReportCacheTTL: 15 * time.Minute,
		ReportsIndex:   "bias-reports",
		Bias:           bias.DefaultConfig(),
	}
}
