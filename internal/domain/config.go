package domain

import (
	"fmt"
	"math"
	"time"
)

// EmbeddingDim is the dimensionality of every collection's vector index.
const EmbeddingDim = 384

// QueryInstruction is prepended to query text (not document text) before
// embedding, matching how the retrieval model was trained.
const QueryInstruction = "Represent this sentence for searching relevant passages: "

// Config represents the main application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Reasoning ReasoningConfig `mapstructure:"reasoning"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Ranking   RankingConfig   `mapstructure:"ranking"`
	Trials    TrialsConfig    `mapstructure:"trials"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig represents the Postgres connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MinOpenConns    int           `mapstructure:"min_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	RateLimit       int           `mapstructure:"rate_limit"`
}

// CacheConfig represents the Redis cache configuration.
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// EmbeddingConfig represents the external embedding service configuration.
type EmbeddingConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ReasoningConfig represents the narrative synthesis backbone configuration.
type ReasoningConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Enabled   bool          `mapstructure:"enabled"`
}

// RetrievalConfig tunes the multi-collection retrieval engine.
type RetrievalConfig struct {
	TopK              int                `mapstructure:"top_k"`
	MaxEvidence       int                `mapstructure:"max_evidence"`
	MaxParallelism    int                `mapstructure:"max_parallelism"`
	SearchTimeout     time.Duration      `mapstructure:"search_timeout"`
	CollectionWeights map[string]float64 `mapstructure:"collection_weights"`
}

// Weights resolves the configured collection weights, falling back to the
// defaults for any collection left unset.
func (c *RetrievalConfig) Weights() map[Collection]float64 {
	weights := DefaultCollectionWeights()
	for name, w := range c.CollectionWeights {
		col := Collection(name)
		if col.IsValid() {
			weights[col] = w
		}
	}
	return weights
}

// RankingWeights are the component weights of the therapy composite score.
type RankingWeights struct {
	VariantMatch         float64 `mapstructure:"variant_match"`
	GuidelineConcordance float64 `mapstructure:"guideline_concordance"`
	ResistancePenalty    float64 `mapstructure:"resistance_penalty"`
	OutcomeSupport       float64 `mapstructure:"outcome_support"`
	TrialAvailability    float64 `mapstructure:"trial_availability"`
}

// DefaultRankingWeights returns the shipped component weights. Absolute
// values sum to 1.0.
func DefaultRankingWeights() RankingWeights {
	return RankingWeights{
		VariantMatch:         0.30,
		GuidelineConcordance: 0.25,
		ResistancePenalty:    0.20,
		OutcomeSupport:       0.15,
		TrialAvailability:    0.10,
	}
}

// Validate rejects weight sets whose absolute values do not sum to 1.0.
// An invalid set makes composite scores incomparable across runs, so this
// fails configuration loading rather than individual analyses.
func (w RankingWeights) Validate() error {
	sum := math.Abs(w.VariantMatch) + math.Abs(w.GuidelineConcordance) +
		math.Abs(w.ResistancePenalty) + math.Abs(w.OutcomeSupport) +
		math.Abs(w.TrialAvailability)
	if math.Abs(sum-1.0) > 1e-9 {
		return NewAnalysisError(ErrRankingInconsistent,
			"ranking weights must sum to 1.0",
			fmt.Sprintf("absolute weight sum is %.9f", sum))
	}
	return nil
}

// RankingConfig tunes the therapy ranking engine.
type RankingConfig struct {
	Weights RankingWeights `mapstructure:"weights"`
}

// TrialsConfig tunes the trial matching engine.
type TrialsConfig struct {
	// EligibilityThreshold is the minimum confidence for a match to count
	// toward a therapy's trial availability component.
	EligibilityThreshold float64 `mapstructure:"eligibility_threshold"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
