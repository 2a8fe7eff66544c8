package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reef-labs/reefd/internal/api"
	"github.com/reef-labs/reefd/internal/auth"
	"github.com/reef-labs/reefd/internal/cluster"
	"github.com/reef-labs/reefd/internal/config"
	"github.com/reef-labs/reefd/internal/logging"
	"github.com/reef-labs/reefd/internal/orchestrator"
	"github.com/reef-labs/reefd/internal/storage"
	"github.com/reef-labs/reefd/internal/topology"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	logger := logging.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Initialize database
	db, err := storage.NewDatabase(cfg.Database)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Run migrations
	if err := db.Migrate(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Cluster state cache and control socket client
	state := cluster.NewStateStore()

	client, err := cluster.NewClient(cluster.ClientConfig{
		Cluster: cfg.Cluster,
		Store:   state,
		Logger:  logger,
	})
	if err != nil {
		slog.Error("Failed to initialize cluster client", "error", err)
		os.Exit(1)
	}

	// Request registry dispatches through the cluster client; the router
	// feeds completions back into the registry.
	registry, err := orchestrator.NewRegistry(orchestrator.RegistryConfig{
		Dispatcher: client,
		Logger:     logger,
	})
	if err != nil {
		slog.Error("Failed to initialize request registry", "error", err)
		os.Exit(1)
	}

	router, err := orchestrator.NewRouter(orchestrator.RouterConfig{
		Registry: registry,
		Logger:   logger,
	})
	if err != nil {
		slog.Error("Failed to initialize notification router", "error", err)
		os.Exit(1)
	}
	client.OnCompletion(router.OnCompletion)

	topo, err := topology.NewService(topology.ServiceConfig{
		State:  state,
		Logger: logger,
	})
	if err != nil {
		slog.Error("Failed to initialize topology service", "error", err)
		os.Exit(1)
	}

	// API key auth; the enabled flag follows the persisted settings row
	middleware := auth.NewMiddleware(keyLookup(db), logger, cfg.Auth.Enabled)
	middleware.SetAuthEnabledFunc(func() bool {
		settings, err := db.GetSettings(context.Background())
		if err != nil {
			slog.Warn("Failed to read auth settings, keeping auth on", "error", err)
			return true
		}
		return settings.AuthEnabled
	})

	server := api.NewServer(cfg, registry, topo, state, db, middleware, logger)

	// Connect to the cluster manager in the background; the read loop
	// reconnects with backoff until shutdown.
	clusterCtx, stopCluster := context.WithCancel(context.Background())
	defer stopCluster()
	go client.Start(clusterCtx)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port)

		var err error
		if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
			err = httpServer.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	stopCluster()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

// keyLookup resolves presented API keys against the stored ones in constant
// time per comparison.
func keyLookup(db *storage.Database) auth.KeyLookup {
	return func(ctx context.Context, presented string) (string, bool, error) {
		keys, err := db.ListAPIKeys(ctx)
		if err != nil {
			return "", false, err
		}
		for _, key := range keys {
			if auth.KeysEqual(key.Key, presented) {
				return key.Name, true, nil
			}
		}
		return "", false, nil
	}
}
