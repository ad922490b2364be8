package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linguahub/linguahub/internal/auth"
	"github.com/linguahub/linguahub/internal/chat"
	"github.com/linguahub/linguahub/internal/config"
	"github.com/linguahub/linguahub/internal/event"
	handler "github.com/linguahub/linguahub/internal/handler/http"
	"github.com/linguahub/linguahub/internal/mail"
	"github.com/linguahub/linguahub/internal/media"
	"github.com/linguahub/linguahub/internal/oauth"
	"github.com/linguahub/linguahub/internal/repository/postgres"
	"github.com/linguahub/linguahub/internal/service"
	"github.com/linguahub/linguahub/migrations"
	"github.com/linguahub/linguahub/pkg/database"
	"github.com/linguahub/linguahub/pkg/health"
	"github.com/linguahub/linguahub/pkg/httpclient"
	pkgkafka "github.com/linguahub/linguahub/pkg/kafka"
)

// App wires together all dependencies and runs the service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	producer   *pkgkafka.Producer
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize PostgreSQL connection pool.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Outbound HTTP clients, one circuit breaker per upstream.
	baseClient := httpclient.New(httpclient.DefaultConfig())
	mailClient := httpclient.NewCircuitBreakerClient(baseClient, httpclient.DefaultCircuitBreakerConfig("mail"), logger)
	chatClient := httpclient.NewCircuitBreakerClient(baseClient, httpclient.DefaultCircuitBreakerConfig("chat"), logger)
	googleClient := httpclient.NewCircuitBreakerClient(baseClient, httpclient.DefaultCircuitBreakerConfig("google"), logger)
	mediaClient := httpclient.NewCircuitBreakerClient(baseClient, httpclient.DefaultCircuitBreakerConfig("media"), logger)

	// Delivery of verification and login codes. Without a configured mail
	// API the codes are written to the log, which is enough for local work.
	var mailSender mail.Sender
	if cfg.MailAPIURL != "" {
		mailSender = mail.NewAPISender(mailClient, cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailSender)
	} else {
		logger.Warn("MAIL_API_URL not set, codes will be logged instead of emailed")
		mailSender = mail.NewLogSender(logger)
	}

	chatProvider := chat.NewClient(chatClient, cfg.ChatAPIURL, cfg.ChatAPIKey, cfg.ChatAPISecret)
	googleVerifier := oauth.NewGoogleVerifier(googleClient, cfg.GoogleTokenInfoURL, cfg.GoogleClientID)
	avatarUploader := media.NewUploader(mediaClient, cfg.MediaAPIURL, cfg.MediaAPIKey)

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL())
	userRepo := postgres.NewUserRepository(pool)
	friendRepo := postgres.NewFriendRepository(pool)
	eventProducer := event.NewProducer(producer, logger)

	userService := service.NewUserService(
		userRepo,
		jwtManager,
		eventProducer,
		mailSender,
		chatProvider,
		googleVerifier,
		avatarUploader,
		cfg.MailAppName,
		cfg.OTPTTL(),
		logger,
	)
	friendService := service.NewFriendService(userRepo, friendRepo, eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(
		userService,
		friendService,
		handler.SessionCookieConfig{
			Secure: cfg.Environment == "production",
			MaxAge: cfg.SessionTTL(),
		},
		healthHandler,
		logger,
		handler.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		producer:   producer,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Kafka producer
// 3. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
