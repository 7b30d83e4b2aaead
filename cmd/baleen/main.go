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

	"github.com/seralin/baleen/internal/api"
	"github.com/seralin/baleen/internal/api/middleware"
	"github.com/seralin/baleen/internal/config"
	"github.com/seralin/baleen/internal/database"
	"github.com/seralin/baleen/internal/event"
	"github.com/seralin/baleen/internal/index"
	"github.com/seralin/baleen/internal/logging"
	"github.com/seralin/baleen/internal/provider/local"
	"github.com/seralin/baleen/internal/scan"
	"github.com/seralin/baleen/internal/version"
	"github.com/seralin/baleen/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("BL_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	schemaVersion, err := database.SchemaVersion(db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	logger.Info("database ready",
		slog.String("path", cfg.Database.Path),
		slog.Int64("schema_version", schemaVersion))

	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	store := scan.NewStore(db)

	// Seed the persisted scope from config on first run.
	if scope, err := store.LoadScope(context.Background()); err == nil &&
		len(scope.Directories) == 0 && len(cfg.Scan.Directories) > 0 {
		if err := store.SaveScope(context.Background(), cfg.Scan.Scope()); err != nil {
			logger.Warn("seeding scan scope from config", "error", err)
		}
	}

	provider := local.NewScanner(0, logger)
	session := scan.NewSession(provider, store, eventBus, logger)

	// A restart keeps the last completed scan visible.
	if record, files, err := store.LoadRecord(context.Background()); err != nil {
		logger.Warn("restoring last scan", "error", err)
	} else if record != nil {
		session.Restore(record, files)
		logger.Info("restored last scan",
			slog.Int("files", len(files)),
			slog.Time("completed_at", record.CompletedAt))
	}

	indexClient := index.NewClient(cfg.Indexer.BaseURL, logger)
	cache := index.NewCache(indexClient, cfg.Indexer.PageSize, logger)
	coordinator := index.NewCoordinator(indexClient, cache, eventBus, logger)

	auth, err := middleware.NewTokenAuth(cfg.Auth.APIToken)
	if err != nil {
		return fmt.Errorf("configuring auth: %w", err)
	}

	logger.Info("starting baleen",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	router := api.NewRouter(api.RouterDeps{
		Session:     session,
		Browser:     scan.NewBrowser(),
		Store:       store,
		Coordinator: coordinator,
		Cache:       cache,
		Auth:        auth,
		Logger:      logger,
		BasePath:    cfg.Server.BasePath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Warm the indexed cache in the background; failure is tolerated and
	// retried on demand.
	go func() {
		if cfg.Indexer.BaseURL == "" {
			return
		}
		if err := cache.Refresh(ctx); err != nil {
			logger.Warn("initial indexed cache refresh failed", "error", err)
		} else {
			eventBus.Publish(event.Event{Type: event.CacheRefreshed, Data: map[string]any{"indexed": cache.Len()}})
		}
	}()

	if cfg.Watcher.Enabled {
		skip := func(path string) bool {
			for _, dir := range coordinator.ManualDirs() {
				if dir == path {
					return true
				}
			}
			return false
		}
		debounce := time.Duration(cfg.Watcher.DebounceSeconds) * time.Second
		watcherService := watcher.NewService(store, skip, eventBus, logger, debounce)
		go watcherService.Start(ctx)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	session.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
