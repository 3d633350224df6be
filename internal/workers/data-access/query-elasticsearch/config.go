// internal/workers/data-access/query-elasticsearch/config.go
package queryelasticsearch

import "time"

type Config struct {
	Timeout      time.Duration
	ReportsIndex string
	TrailsIndex  string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		ReportsIndex: "bias-reports",
		TrailsIndex:  "audit-trails",
	}
}
