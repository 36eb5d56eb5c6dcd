package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/onco-evidence-engine/internal/api"
	"github.com/onco-evidence-engine/internal/setup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := setup.Build(ctx, setup.Options{})
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}
	defer app.Close()

	if err := app.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	cfg := app.ConfigManager.GetConfig()
	app.Log.Infof("Starting evidence engine on %s:%d", cfg.Server.Host, cfg.Server.Port)

	server := api.NewServer(app.ConfigManager, app.Orchestrator, app.Store, app.Metrics, app.Log)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Log.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	app.Log.Info("Server stopped")
}
