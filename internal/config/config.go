package config

import (
	"fmt"
	"strings"

	"github.com/onco-evidence-engine/internal/domain"
	"github.com/spf13/viper"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/onco-evidence-engine/")

	// Set environment variable prefix and enable automatic env binding
	viper.SetEnvPrefix("ONCO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "onco_evidence")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.min_open_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.conn_max_idle_time", "1m")
	viper.SetDefault("database.migrations_path", "./migrations")
	viper.SetDefault("database.rate_limit", 50)

	// Cache defaults
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.default_ttl", "24h")
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")

	// Embedding service defaults
	viper.SetDefault("embedding.base_url", "http://localhost:8090/v1")
	viper.SetDefault("embedding.model", "bge-small-en-v1.5")
	viper.SetDefault("embedding.timeout", "15s")

	// Reasoning backbone defaults
	viper.SetDefault("reasoning.model", "claude-sonnet-4-20250514")
	viper.SetDefault("reasoning.max_tokens", 2048)
	viper.SetDefault("reasoning.timeout", "60s")
	viper.SetDefault("reasoning.enabled", true)

	// Retrieval defaults
	viper.SetDefault("retrieval.top_k", 8)
	viper.SetDefault("retrieval.max_evidence", 30)
	viper.SetDefault("retrieval.max_parallelism", 8)
	viper.SetDefault("retrieval.search_timeout", "10s")

	// Ranking defaults
	defaults := domain.DefaultRankingWeights()
	viper.SetDefault("ranking.weights.variant_match", defaults.VariantMatch)
	viper.SetDefault("ranking.weights.guideline_concordance", defaults.GuidelineConcordance)
	viper.SetDefault("ranking.weights.resistance_penalty", defaults.ResistancePenalty)
	viper.SetDefault("ranking.weights.outcome_support", defaults.OutcomeSupport)
	viper.SetDefault("ranking.weights.trial_availability", defaults.TrialAvailability)

	// Trial matching defaults
	viper.SetDefault("trials.eligibility_threshold", 0.5)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetRetrievalConfig returns retrieval engine configuration
func (m *Manager) GetRetrievalConfig() *domain.RetrievalConfig {
	return &m.config.Retrieval
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate database configuration
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}

	// Validate embedding service configuration
	if config.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding service base URL is required")
	}

	// Validate cache configuration
	if config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required")
	}

	// Validate retrieval configuration
	if config.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive")
	}
	if config.Retrieval.MaxParallelism <= 0 {
		return fmt.Errorf("retrieval max_parallelism must be positive")
	}

	// Ranking weights must form a valid convex combination, otherwise
	// composite scores are meaningless. Fail fast at startup.
	if err := config.Ranking.Weights.Validate(); err != nil {
		return err
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the migration-compatible database URL
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.Username, db.Password, db.Host, db.Port, db.Database, db.SSLMode)
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(viper.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
