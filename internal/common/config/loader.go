// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like CAMUNDA_BROKER_ADDRESS
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, e.g. config.production.yaml
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from several locations so workers and tests behave
// the same regardless of working directory.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders left in yaml values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Camunda.BrokerAddress == "" {
		if val := os.Getenv("CAMUNDA_BROKER_ADDRESS"); val != "" {
			cfg.Camunda.BrokerAddress = val
		}
	}

	// Database overrides
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Database.Elasticsearch.Username == "" {
		if val := os.Getenv("ELASTICSEARCH_USERNAME"); val != "" {
			cfg.Database.Elasticsearch.Username = val
		}
	}
	if cfg.Database.Elasticsearch.Password == "" {
		if val := os.Getenv("ELASTICSEARCH_PASSWORD"); val != "" {
			cfg.Database.Elasticsearch.Password = val
		}
	}

	if cfg.Tracing.JaegerEndpoint == "" {
		if val := os.Getenv("JAEGER_ENDPOINT"); val != "" {
			cfg.Tracing.JaegerEndpoint = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// Elasticsearch URL fallback
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	// Engine defaults. These mirror the documented policy defaults; deployments
	// override them per event programme.
	if cfg.Engine.Scoring.AcceptThreshold == 0 {
		cfg.Engine.Scoring.AcceptThreshold = 0.75
	}
	if cfg.Engine.Scoring.BorderlineThreshold == 0 {
		cfg.Engine.Scoring.BorderlineThreshold = 0.40
	}
	if cfg.Engine.Scoring.ScaleFactor == 0 {
		cfg.Engine.Scoring.ScaleFactor = 100
	}
	if cfg.Engine.Scoring.CompetencyCap == 0 {
		cfg.Engine.Scoring.CompetencyCap = 3.0
	}
	if cfg.Engine.Scoring.CompetencyCacheTTL == 0 {
		cfg.Engine.Scoring.CompetencyCacheTTL = 300000
	}
	if cfg.Engine.Consensus.HighVarianceThreshold == 0 {
		cfg.Engine.Consensus.HighVarianceThreshold = 15.0
	}
	if cfg.Engine.Consensus.MinEvaluations == 0 {
		cfg.Engine.Consensus.MinEvaluations = 2
	}
	if cfg.Engine.Bias.MinSampleSize == 0 {
		cfg.Engine.Bias.MinSampleSize = 30
	}
	if cfg.Engine.Bias.HighRiskDeviation == 0 {
		cfg.Engine.Bias.HighRiskDeviation = 0.30
	}
	if cfg.Engine.Bias.MediumRiskDeviation == 0 {
		cfg.Engine.Bias.MediumRiskDeviation = 0.15
	}
	if cfg.Engine.Bias.ReportCacheTTL == 0 {
		cfg.Engine.Bias.ReportCacheTTL = 600000
	}
	if cfg.Engine.Bias.ReportIndex == "" {
		cfg.Engine.Bias.ReportIndex = "bias-reports"
	}
	if cfg.Engine.Audit.DefaultLimit == 0 {
		cfg.Engine.Audit.DefaultLimit = 100
	}
	if cfg.Engine.Audit.MaxLimit == 0 {
		cfg.Engine.Audit.MaxLimit = 1000
	}
	if cfg.Engine.Audit.TopReviewers == 0 {
		cfg.Engine.Audit.TopReviewers = 5
	}
	if cfg.Engine.Audit.RapidFireMinutes == 0 {
		cfg.Engine.Audit.RapidFireMinutes = 5
	}
	if cfg.Engine.Audit.SnapshotIndex == "" {
		cfg.Engine.Audit.SnapshotIndex = "audit-trails"
	}

	// Template defaults
	if cfg.Template.RegistryPath == "" {
		cfg.Template.RegistryPath = "configs/response-templates.json"
	}
	if cfg.Template.CacheTTL == 0 {
		cfg.Template.CacheTTL = 300000
	}
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/activity-registry.json"
	}

	// Tracing defaults
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1.0
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Worker defaults
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if len(cfg.Database.Elasticsearch.Addresses) == 0 && cfg.Database.Elasticsearch.URL == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	s := cfg.Engine.Scoring
	if s.BorderlineThreshold >= s.AcceptThreshold {
		return fmt.Errorf("engine.scoring.borderline_threshold must be below accept_threshold")
	}
	if s.AcceptThreshold > 1 || s.BorderlineThreshold <= 0 {
		return fmt.Errorf("engine.scoring thresholds must fall inside (0,1]")
	}
	if s.CompetencyCap < 1 {
		return fmt.Errorf("engine.scoring.competency_cap must be at least 1")
	}
	if cfg.Engine.Consensus.HighVarianceThreshold <= 0 {
		return fmt.Errorf("engine.consensus.high_variance_threshold must be positive")
	}
	b := cfg.Engine.Bias
	if b.MediumRiskDeviation >= b.HighRiskDeviation {
		return fmt.Errorf("engine.bias.medium_risk_deviation must be below high_risk_deviation")
	}
	if cfg.Engine.Audit.DefaultLimit > cfg.Engine.Audit.MaxLimit {
		return fmt.Errorf("engine.audit.default_limit cannot exceed max_limit")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
