package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/nextgendevs/ng-backend/internal/auth"
	"github.com/nextgendevs/ng-backend/internal/config"
	"github.com/nextgendevs/ng-backend/internal/database"
	"github.com/nextgendevs/ng-backend/internal/handlers"
	"github.com/nextgendevs/ng-backend/internal/logging"
	"github.com/nextgendevs/ng-backend/internal/metrics"
	"github.com/nextgendevs/ng-backend/internal/middleware"
	"github.com/nextgendevs/ng-backend/internal/routes"
	"github.com/nextgendevs/ng-backend/internal/services"
	"github.com/nextgendevs/ng-backend/pkg/utils"
)

// build is overridden at link time: -ldflags "-X main.build=v1.2.3"
var build = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	// Load env
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using the process environment")
	}
	cfg := config.Load()

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("service", "ng-backend", "build", build)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and bring the schema up to date
	db, err := database.OpenPostgres(ctx, cfg.PostgresURI, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI, logger)
	if err != nil {
		return err
	}
	defer rdb.Close()

	key, err := utils.ParseEncryptionKey(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	cipher, err := utils.NewCipher(key)
	if err != nil {
		return err
	}

	m := metrics.New()
	signer := auth.NewSigner(cfg.JWTSecret)
	cache := services.NewRedisCache(rdb)
	feed := services.NewRedisFeed(rdb, logger)
	users := database.NewUserRepository(db)
	devices := database.NewDeviceRepository(db)

	var mailer services.Mailer
	if cfg.MailEnabled() {
		mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, logger)
	} else {
		logger.Warn("MAIL_HOST not set, verification links are logged instead of mailed")
		mailer = services.NewLogMailer(logger)
	}

	sessions := services.NewSessionStore(rdb, cfg.SessionTTL)
	authSvc := services.NewAuthService(users, devices, cache, sessions, mailer, signer, m, logger, services.AuthConfig{
		BaseURL:    cfg.BaseURL,
		SessionTTL: cfg.SessionTTL,
		SignupTTL:  cfg.SignupTTL,
	})
	userSvc := services.NewUserService(users, devices, cache, sessions, logger)
	deviceSvc := services.NewDeviceService(devices, cipher, signer, feed, m, logger)

	go services.NewPurger(users, cfg.PurgeInterval, cfg.RetentionWindow, m, logger).Run(ctx)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(m.Middleware)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: security headers, host check, per-IP and login limits.
	// Otherwise the shared Redis window limiter.
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(ctx, baseHost(cfg.BaseURL), cfg.TrustProxy, m) {
			r.Use(mw)
		}
		logger.Info("production security enabled")
	} else {
		r.Use(middleware.NewRateLimiter(rdb, cfg.RateLimitWindow, cfg.RateLimitTokens, cfg.TrustProxy, m, logger).Handler)
	}

	authHandler := handlers.NewAuthHandler(authSvc, cfg.IsProduction())
	routes.SetupRoutes(r, routes.Handlers{
		System:  handlers.NewSystemHandler(cfg.Environment, build, db, rdb),
		Auth:    authHandler,
		Users:   handlers.NewUserHandler(userSvc, authHandler),
		Devices: handlers.NewDeviceHandler(deviceSvc),
		Live:    handlers.NewLiveHandler(feed, cfg.AllowedOrigins, m, logger),
		Guard:   middleware.NewGuard(authSvc, userSvc, deviceSvc),
		Metrics: m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func baseHost(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
