// Package setup wires the engine's components together from configuration.
// Both the HTTP server and the CLI build the same App; they differ only in
// which pieces they use.
package setup

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/onco-evidence-engine/internal/audit"
	"github.com/onco-evidence-engine/internal/config"
	"github.com/onco-evidence-engine/internal/database"
	"github.com/onco-evidence-engine/internal/domain"
	"github.com/onco-evidence-engine/internal/expansion"
	"github.com/onco-evidence-engine/internal/metrics"
	"github.com/onco-evidence-engine/internal/orchestrator"
	"github.com/onco-evidence-engine/internal/ranking"
	"github.com/onco-evidence-engine/internal/report"
	"github.com/onco-evidence-engine/internal/retrieval"
	"github.com/onco-evidence-engine/internal/store"
	"github.com/onco-evidence-engine/internal/trials"
	"github.com/onco-evidence-engine/pkg/external"
)

// App holds every wired component of the engine.
type App struct {
	ConfigManager *config.Manager
	Log           *logrus.Logger
	DB            *database.DB
	Store         domain.EvidenceStore
	Embedder      domain.Embedder
	Cache         *external.EmbeddingCache
	Audit         domain.AuditStore
	Orchestrator  *orchestrator.Orchestrator
	Metrics       *metrics.Collector
}

// Options controls which optional components Build wires.
type Options struct {
	// SkipReasoner disables narrative synthesis even when configured.
	SkipReasoner bool
	// SkipCache disables the Redis embedding cache; embeddings are
	// recomputed on every call.
	SkipCache bool
}

// Build loads configuration and constructs the full engine.
func Build(ctx context.Context, opts Options) (*App, error) {
	configManager, err := config.NewManager()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := configManager.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	cfg := configManager.GetConfig()

	logger := NewLogger(cfg.Logging)

	db, err := database.NewConnection(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		Database:    cfg.Database.Database,
		Username:    cfg.Database.Username,
		Password:    cfg.Database.Password,
		MaxConns:    int32(cfg.Database.MaxOpenConns),
		MinConns:    int32(cfg.Database.MinOpenConns),
		MaxConnLife: cfg.Database.ConnMaxLifetime,
		MaxConnIdle: cfg.Database.ConnMaxIdleTime,
		SSLMode:     cfg.Database.SSLMode,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	evidenceStore := store.NewPgVectorStore(db, cfg.Database.RateLimit, logger)
	if err := evidenceStore.EnsureCollections(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("checking collections: %w", err)
	}

	var embeddingCache *external.EmbeddingCache
	if !opts.SkipCache {
		embeddingCache, err = external.NewEmbeddingCache(cfg.Cache)
		if err != nil {
			// The engine works without the cache, just slower.
			logger.WithError(err).Warn("Embedding cache unavailable, continuing without it")
			embeddingCache = nil
		}
	}
	embedder := external.NewEmbeddingClient(cfg.Embedding, embeddingCache, logger)

	var reasoner domain.Reasoner
	if cfg.Reasoning.Enabled && !opts.SkipReasoner {
		reasoner = external.NewReasoningClient(cfg.Reasoning, logger)
	}

	auditStore, err := audit.NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit store: %w", err)
	}

	collector := metrics.NewCollector()

	ranker, err := ranking.NewRanker(cfg.Ranking, cfg.Trials, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ranker: %w", err)
	}

	orch, err := orchestrator.New(
		expansion.NewExpander(logger),
		retrieval.NewEngine(evidenceStore, embedder, cfg.Retrieval, logger),
		trials.NewMatcher(cfg.Trials, logger),
		ranker,
		report.NewBuilder(logger),
		reasoner,
		auditStore,
		collector,
		logger,
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	return &App{
		ConfigManager: configManager,
		Log:           logger,
		DB:            db,
		Store:         evidenceStore,
		Embedder:      embedder,
		Cache:         embeddingCache,
		Audit:         auditStore,
		Orchestrator:  orch,
		Metrics:       collector,
	}, nil
}

// Close releases held connections.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Log.WithError(err).Warn("Failed to close embedding cache")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Migrate applies pending schema migrations.
func (a *App) Migrate() error {
	cfg := a.ConfigManager.GetConfig()
	runner, err := database.NewMigrationRunner(
		a.ConfigManager.GetDatabaseURL(), cfg.Database.MigrationsPath, a.Log)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.Up()
}

// NewLogger builds a logrus logger from the logging configuration.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch cfg.Output {
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		logger.SetOutput(os.Stdout)
	}
	return logger
}
