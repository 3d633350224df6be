// internal/workers/infrastructure/build-report-response/config.go
package buildreportresponse

import "time"

type Config struct {
	TemplateRegistry string
	CacheTTL         time.Duration
	AppVersion       string
	Timeout          time.Duration
}

func LoadConfig() *Config {
	return &Config{
		TemplateRegistry: "configs/response-templates.json",
		CacheTTL:         5 * time.Minute,
		Timeout:          10 * time.Second,
	}
}
