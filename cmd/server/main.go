// SkillsMapper - SMS job-matching platform server
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/skillsmapper/skillsmapper/internal/api"
	"github.com/skillsmapper/skillsmapper/internal/config"
	"github.com/skillsmapper/skillsmapper/internal/dialogue"
	"github.com/skillsmapper/skillsmapper/internal/matching"
	"github.com/skillsmapper/skillsmapper/internal/middleware"
	"github.com/skillsmapper/skillsmapper/internal/session"
	"github.com/skillsmapper/skillsmapper/internal/sms"
	"github.com/skillsmapper/skillsmapper/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "session_backend", cfg.SessionBackend)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	if err := repo.Seed(context.Background()); err != nil {
		slog.Error("Failed to seed catalog", "error", err)
		os.Exit(1)
	}

	// Session store: SQLite by default, Redis when configured.
	var sessions session.Store
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			slog.Error("Redis health check failed", "error", err)
			os.Exit(1)
		}
		sessions = session.NewRedisStore(client, cfg.SessionTTL)
		slog.Info("Redis session store connected", "addr", cfg.RedisAddr)
	default:
		sessions = session.NewSQLStore(repo, cfg.SessionTTL)
	}

	// Delivery engine: both gateways are registered statically; missing
	// credentials leave a provider disabled.
	engine := sms.NewEngine(cfg.SMS.EnableRealSMS,
		sms.NewAfricasTalking(cfg.SMS.AfricasTalkingUsername, cfg.SMS.AfricasTalkingAPIKey, cfg.SMS.AfricasTalkingSenderID),
		sms.NewSafaricom(cfg.SMS.SafaricomConsumerKey, cfg.SMS.SafaricomConsumerSecret, cfg.SMS.SafaricomSenderID),
	)
	engine.LogStatus()

	matcher := matching.NewEngine(repo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller := dialogue.New(ctx, sessions, repo, engine, matcher)

	smsHandler := api.NewSMSHandler(controller, repo)
	jobsHandler := api.NewJobsHandler(repo)
	usersHandler := api.NewUsersHandler(repo)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	smsHandler.RegisterRoutes(r)
	jobsHandler.RegisterRoutes(r)
	usersHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	session.StartSweeper(ctx, sessions, cfg.SweepInterval)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
