package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notes_service/internal/auth"
	"notes_service/internal/config"
	httpServer "notes_service/internal/http_server"
	"notes_service/internal/janitor"
	"notes_service/internal/lib/jwt"
	sl "notes_service/internal/lib/logger/sl"
	"notes_service/internal/lib/otp"
	"notes_service/internal/notes"
	"notes_service/internal/notifier"
	"notes_service/internal/rabbitmq"
	"notes_service/internal/ratelimit"
	"notes_service/internal/storage/memory"
	"notes_service/internal/storage/postgres"
	"notes_service/internal/storage/redis"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type repository interface {
	auth.UserSaver
	auth.UserProvider
	notes.Store
	janitor.CodeCleaner
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting notes service", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := setupStorage(ctx, cfg)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}
	defer closeRepo()

	var counter ratelimit.Counter
	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, per-email code limits disabled", sl.Err(err))
		} else {
			defer rdb.Close()
			counter = rdb
		}
	}

	var publisher notifier.Publisher
	if cfg.Notifier.Driver == config.NotifierRabbitMQ {
		msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Error("failed to connect rabbitmq", sl.Err(err))
			os.Exit(1)
		}
		defer msgBroker.Close()
		publisher = msgBroker
	}

	n, err := notifier.New(cfg, log, publisher)
	if err != nil {
		log.Error("failed to init notifier", sl.Err(err))
		os.Exit(1)
	}

	authService := auth.New(
		log,
		repo,
		repo,
		otp.New(cfg.OTP.Length, cfg.OTP.TTL, cfg.OTP.HashCost),
		jwt.NewIssuer(cfg.Tokens.SessionTokenSecret, cfg.Tokens.SessionTokenTTL),
		n,
		ratelimit.New(log, counter, cfg.OTP.MaxPerWindow, cfg.OTP.Window),
		cfg.Notifier.Timeout,
	)

	notesService := notes.New(log, repo)

	if cfg.Janitor.Enabled {
		j, err := janitor.New(log, repo, cfg.Janitor.Schedule)
		if err != nil {
			log.Error("failed to schedule janitor", sl.Err(err))
			os.Exit(1)
		}
		j.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			j.Stop(stopCtx)
		}()
	}

	router := httpServer.NewRouter(httpServer.Deps{
		Log:            log,
		Auth:           authService,
		Notes:          notesService,
		RequestTimeout: cfg.HTTPServer.RequestTimeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		IPRateLimit:    cfg.HTTPServer.IPRateLimit,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout + cfg.HTTPServer.RequestTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	if err := authService.Shutdown(shutdownCtx); err != nil {
		log.Warn("pending OTP deliveries abandoned", sl.Err(err))
	}

	log.Info("Main service stopped")
}

func setupStorage(ctx context.Context, cfg *config.Config) (repository, func(), error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return memory.New(), func() {}, nil
	default:
		pg, err := postgres.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
