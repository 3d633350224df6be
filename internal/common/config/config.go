// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Engine   EngineConfig            `mapstructure:"engine"`
	Template TemplateConfig          `mapstructure:"template"`
	Registry RegistryConfig          `mapstructure:"registry"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Tracing  TracingConfig           `mapstructure:"tracing"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Engine Configuration ---

// EngineConfig centralizes every scoring/consensus/bias/audit threshold.
// Handlers receive these values; nothing threshold-like is hard-coded.
type EngineConfig struct {
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Bias      BiasConfig      `mapstructure:"bias"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

// ScoringConfig drives the aggregator. Thresholds apply to the normalized
// [0,1] aggregate before scaling.
type ScoringConfig struct {
	AcceptThreshold     float64 `mapstructure:"accept_threshold"`
	BorderlineThreshold float64 `mapstructure:"borderline_threshold"`
	ScaleFactor         float64 `mapstructure:"scale_factor"`
	CompetencyCap       float64 `mapstructure:"competency_cap"`
	CompetencyCacheTTL  int     `mapstructure:"competency_cache_ttl"` // milliseconds
}

type ConsensusConfig struct {
	HighVarianceThreshold float64 `mapstructure:"high_variance_threshold"`
	MinEvaluations        int     `mapstructure:"min_evaluations"`
}

type BiasConfig struct {
	MinSampleSize       int     `mapstructure:"min_sample_size"`
	HighRiskDeviation   float64 `mapstructure:"high_risk_deviation"`
	MediumRiskDeviation float64 `mapstructure:"medium_risk_deviation"`
	ReportCacheTTL      int     `mapstructure:"report_cache_ttl"` // milliseconds
	ReportIndex         string  `mapstructure:"report_index"`
}

type AuditConfig struct {
	DefaultLimit     int    `mapstructure:"default_limit"`
	MaxLimit         int    `mapstructure:"max_limit"`
	TopReviewers     int    `mapstructure:"top_reviewers"`
	RapidFireMinutes int    `mapstructure:"rapid_fire_minutes"`
	SnapshotIndex    string `mapstructure:"snapshot_index"`
}

// --- Supporting Sections ---

// TemplateConfig holds settings for the build-report-response worker.
type TemplateConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
	CacheTTL     int    `mapstructure:"cache_ttl"` // milliseconds
}

// RegistryConfig points at the activity registry consumed by tooling.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// TracingConfig holds Jaeger exporter settings.
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
