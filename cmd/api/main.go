package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/monsignal/signal-engine/internal/config"
	"github.com/monsignal/signal-engine/internal/directory"
	"github.com/monsignal/signal-engine/internal/engine"
	"github.com/monsignal/signal-engine/internal/graph"
	"github.com/monsignal/signal-engine/internal/notify"
	"github.com/monsignal/signal-engine/internal/server"
	"github.com/monsignal/signal-engine/internal/store"
	"github.com/monsignal/signal-engine/internal/trades"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the API server
// It initializes all dependencies and starts the HTTP server with graceful shutdown
func main() {
	// Initialize structured logger with custom formatting
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Initialize Redis client for dedup, cooldowns, and the social graph
	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0, // Use default database for main application
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	st, err := store.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create store")
	}

	// Outbound HTTP clients share one configured timeout
	dirClient := directory.NewClient(cfg.DirectoryBaseURL, cfg.DirectoryAPIKey, cfg.HTTPTimeout)
	tradesClient := trades.NewClient(cfg.IndexerGraphQLURL, cfg.IndexerSecret, cfg.HTTPTimeout)
	notifyClient := notify.NewClient(cfg.NotifyBaseURL, cfg.NotifyAPIKey, cfg.HTTPTimeout)

	graphService := graph.NewService(graph.ServiceConfig{
		Store:    st,
		Dir:      dirClient,
		Logger:   logger,
		GraphTTL: cfg.GraphTTL,
		MaxPages: cfg.MaxFollowPages,
	})

	dispatcher := engine.NewDispatcher(engine.DispatcherConfig{
		Store:    st,
		Dir:      dirClient,
		Graph:    graphService,
		Sink:     notifyClient,
		Logger:   logger,
		AppURL:   cfg.AppURL,
		DedupTTL: cfg.DedupTTL,
		Cooldown: cfg.Cooldown,
	})

	batch := engine.NewBatchProcessor(engine.BatchProcessorConfig{
		Store:      st,
		Source:     tradesClient,
		Dispatcher: dispatcher,
		Logger:     logger,
		Limit:      cfg.BatchLimit,
	})

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Graph:           graphService,
		Batch:           batch,
		Dispatcher:      dispatcher,
		Store:           st,
		Trades:          tradesClient,
		Directory:       dirClient,
		Notify:          notifyClient,
		Logger:          logger,
		DevMode:         cfg.DevMode,
		WebhookDedupTTL: cfg.WebhookDedupTTL,
	}

	// Create HTTP server with configuration and handlers
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:          cfg.APIAddr,
			DevMode:       cfg.DevMode,
			APIKey:        cfg.APIKey,
			TriggerSecret: cfg.TriggerSecret,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()                               // Cancel context to stop ongoing operations
		_ = srv.Shutdown(context.Background()) // Gracefully shutdown HTTP server
	}()

	// Start the HTTP server
	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		// "http: Server closed" is expected during graceful shutdown
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
