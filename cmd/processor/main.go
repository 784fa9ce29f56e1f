package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/monsignal/signal-engine/internal/config"
	"github.com/monsignal/signal-engine/internal/directory"
	"github.com/monsignal/signal-engine/internal/engine"
	"github.com/monsignal/signal-engine/internal/graph"
	"github.com/monsignal/signal-engine/internal/notify"
	"github.com/monsignal/signal-engine/internal/store"
	"github.com/monsignal/signal-engine/internal/trades"
)

func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main runs the standalone poll loop: one batch pass per tick. The same pass
// is reachable over HTTP via the trigger endpoint, so running both is safe;
// the dedup store absorbs any overlap.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	st, err := store.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create store")
	}
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

	logger.WithField("interval", cfg.PollInterval.String()).Info("signal processor starting")

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	runOnce := func() {
		passCtx, passCancel := context.WithTimeout(ctx, cfg.PollInterval)
		defer passCancel()

		result, err := batch.Run(passCtx)
		if err != nil {
			logger.WithError(err).Error("batch pass failed")
			return
		}
		if result.NoOp {
			return
		}
		logger.WithFields(logrus.Fields{
			"fetched":    result.Fetched,
			"processed":  result.Processed,
			"dispatched": result.Dispatched,
			"sent":       result.NotificationsSent,
			"lastBlock":  result.LastBlock,
		}).Info("batch pass complete")
	}

	// Run immediately on startup, then on every tick
	runOnce()

	for {
		select {
		case <-sigCh:
			logger.Info("shutting down")
			cancel()
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
