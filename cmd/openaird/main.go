package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"openair-backend/config"
	"openair-backend/internal/access"
	"openair-backend/internal/api"
	"openair-backend/internal/dashboard"
	"openair-backend/internal/db"
	"openair-backend/internal/ledger"
	"openair-backend/internal/logging"
	"openair-backend/internal/metrics"
	"openair-backend/internal/mock"
	"openair-backend/internal/notification"
	"openair-backend/internal/source"
	"openair-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	usingDefaults := false
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err, usingDefaults = config.Default(), nil, true
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if usingDefaults {
		logger.Warn("configuration file not found, using defaults", zap.String("path", configPath))
	} else {
		logger.Info("configuration loaded", zap.String("path", configPath))
	}

	collector := metrics.New("openair")

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	appStore := store.NewGormStore(gormDB)

	flags, err := newFlagBackend(cfg, appStore)
	if err != nil {
		logger.Fatal("failed to initialize flag store", zap.String("backend", cfg.Flags.Backend), zap.Error(err))
	}
	logger.Info("flag store initialized", zap.String("backend", cfg.Flags.Backend))

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	genOpts := []mock.Option{}
	if cfg.Mock.Jitter > 0 {
		genOpts = append(genOpts, mock.WithJitter(cfg.Mock.Jitter, cfg.Mock.Seed))
	}
	gen := mock.NewGenerator(genOpts...)

	var upstream source.Source
	switch cfg.Source.Kind {
	case "http":
		upstream = source.NewHTTP(cfg.Source, logger)
	default:
		upstream = source.NewMock(gen, cfg.Mock.Latency)
	}
	src := source.NewFallback(upstream, source.PoliciesFrom(cfg.Source), gen, logger, collector)
	logger.Info("data source initialized", zap.String("kind", cfg.Source.Kind))

	sessions := access.NewSessions(flags, cfg.Server.SessionTTL, logger)

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	var alerter dashboard.Alerter
	if cfg.Push.Enabled() {
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, &webpushOptions, logger, collector)
		workerPool.Start(ctx)
		alerter = workerPool
	} else {
		logger.Warn("VAPID keys are not configured, band alerts are disabled")
	}

	dash := dashboard.New(dashboard.Intervals{
		Readings: cfg.Poller.ReadingsInterval,
		Balance:  cfg.Poller.BalanceInterval,
	}, src, src, sessions, alerter, logger, collector)
	dash.Start(ctx)

	router := api.NewRouter(cfg.Server, api.Deps{
		Store:     appStore,
		Sessions:  sessions,
		Dashboard: dash,
		Ledger:    ledger.New(src, logger),
		Sensors:   gen,
		WebPush:   &webpushOptions,
	}, logger, collector)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}
	dash.Stop()
	cancel()

	logger.Info("server gracefully stopped")
}

func newFlagBackend(cfg *config.Config, s store.Store) (access.FlagBackend, error) {
	switch cfg.Flags.Backend {
	case "redis":
		client, err := store.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return store.NewRedisFlags(client), nil
	case "memory":
		return access.NewMemoryFlags(), nil
	default:
		return store.NewFlags(s), nil
	}
}
