package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/Bhardin04/brianhardin.info/internal/config"
	"github.com/Bhardin04/brianhardin.info/internal/database"
	"github.com/Bhardin04/brianhardin.info/internal/demo"
	"github.com/Bhardin04/brianhardin.info/internal/logging"
	"github.com/Bhardin04/brianhardin.info/internal/mailer"
	"github.com/Bhardin04/brianhardin.info/internal/redis"
	"github.com/Bhardin04/brianhardin.info/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *redis.Client {
	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupMailer(cfg *config.Config) *mailer.Mailer {
	m, err := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.ContactFrom,
		To:       cfg.ContactTo,
	})
	if err != nil {
		slog.Error("Failed to create mailer", "error", err)
		os.Exit(1)
	}
	return m
}

func runGracefulShutdown(srv *server.Server, engine *demo.Engine, pool *pgxpool.Pool, redisClient *redis.Client) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		engine.Stop()
		pool.Close()
		if err := redisClient.Close(); err != nil {
			slog.Error("Failed to close Redis client", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	redisClient := setupRedis(cfg)

	contacts := database.NewContactRepo(pool)
	blog := database.NewBlogRepo(pool)
	throttle := redis.NewContactThrottle(redisClient, cfg.ContactCooloff)

	engine := demo.NewEngine(demo.Config{
		MaxSessions:        cfg.DemoMaxSessions,
		SessionTTL:         cfg.DemoSessionTTL,
		MaxConnections:     cfg.DemoMaxConnections,
		MaxConnsPerSession: cfg.DemoMaxConnsPerSession,
		TickInterval:       cfg.DemoTickInterval,
		ReaperInterval:     cfg.DemoReaperInterval,
	}, clockwork.NewRealClock())
	engine.Start(context.Background())

	healthChecks := []server.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "redis", Check: redisClient.Ping},
	}

	// Pass nil explicitly when SMTP is not configured to avoid a typed-nil
	// interface.
	var (
		srv    *server.Server
		srvErr error
	)
	if cfg.SMTPHost != "" {
		srv, srvErr = server.NewServer(cfg, engine, contacts, blog, throttle, setupMailer(cfg), healthChecks)
	} else {
		slog.Warn("SMTP not configured, contact notifications disabled")
		srv, srvErr = server.NewServer(cfg, engine, contacts, blog, throttle, nil, healthChecks)
	}
	if srvErr != nil {
		slog.Error("Failed to create server", "error", srvErr)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, engine, pool, redisClient)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
