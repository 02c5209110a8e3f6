package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Quinventa/Buddy-sub001/internal/api"
	"github.com/Quinventa/Buddy-sub001/internal/config"
	"github.com/Quinventa/Buddy-sub001/internal/database"
	"github.com/Quinventa/Buddy-sub001/internal/extract"
	"github.com/Quinventa/Buddy-sub001/internal/google"
	"github.com/Quinventa/Buddy-sub001/internal/metrics"
	"github.com/Quinventa/Buddy-sub001/internal/reminders"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Provider API keys and OAuth secrets come from the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("BUDDY_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var providers []extract.CompletionProvider
	for _, pc := range cfg.Extract.Providers {
		providers = append(providers, extract.NewChatClient(pc))
	}
	extractor := extract.NewExtractor(providers, cfg.Extract.RatePerSecond, cfg.Extract.RateBurst, &logger)
	if rdb != nil && cfg.Extract.CacheTTLSeconds > 0 {
		extractor.UseRedisCache(rdb, cfg.ExtractCacheTTL())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	var notifier reminders.Notifier
	if rdb != nil {
		notifier = reminders.NewRedisNotifier(rdb)
	} else {
		notifier = reminders.NewLogNotifier(&logger)
	}

	poller := reminders.NewService(&reminders.Config{
		CheckInterval:              cfg.CheckInterval(),
		MaxConcurrentNotifications: cfg.Reminders.MaxConcurrentNotify,
		Retention:                  cfg.Retention(),
	}, db, db, notifier, &logger)
	poller.Start()
	defer poller.Stop()

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(db, cfg.Backup.Dir,
			cfg.BackupInterval(), cfg.BackupRetention(), &logger)
		go backup.Start(ctx)
	}

	var gcal *google.Client
	var googleLink api.GoogleLink
	if cfg.Google.ClientID != "" && cfg.Google.ClientSecret != "" {
		gcal = google.NewClient(cfg.Google.ClientID, cfg.Google.ClientSecret,
			cfg.Google.RedirectURL, db, &logger)
		googleLink = gcal

		syncer := google.NewSyncer(gcal, db, cfg.SyncInterval(), cfg.SyncHorizon(), &logger)
		syncer.Start(ctx)
		defer syncer.Stop()
	} else {
		logger.Warn().Msg("google oauth not configured, calendar sync disabled")
	}

	server := api.NewServer(db, extractor, googleLink, api.HeaderSessionProvider{}, &logger)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Handler(),
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("buddy backend started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
