package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	_ "github.com/01Justinnguyen/chirper-api/docs" // Swagger docs (generated)
	"github.com/01Justinnguyen/chirper-api/internal/auth"
	"github.com/01Justinnguyen/chirper-api/internal/config"
	"github.com/01Justinnguyen/chirper-api/internal/database"
	"github.com/01Justinnguyen/chirper-api/internal/email"
	httpServer "github.com/01Justinnguyen/chirper-api/internal/http"
	"github.com/01Justinnguyen/chirper-api/internal/logging"
	"github.com/01Justinnguyen/chirper-api/internal/ratelimit"
	"github.com/01Justinnguyen/chirper-api/internal/social"
	"github.com/01Justinnguyen/chirper-api/internal/user"
)

// @title           Chirper API
// @version         1.0
// @description     A social API with token-based sessions, email verification, password recovery and a follow graph.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_backend", cfg.Auth.Backend,
		"refresh_store", cfg.Auth.Store,
	)

	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Repositories
	userRepo := user.NewRepository(db)
	socialRepo := social.NewRepository(db)

	var refreshStore auth.RefreshTokenRepository
	switch cfg.Auth.Store {
	case "redis":
		refreshStore = auth.NewRedisRepository(redisClient, cfg.Auth.RefreshTokenDuration)
	default:
		refreshStore = auth.NewRepository(db)
	}

	rateLimiter := ratelimit.NewLimiter(redisClient)

	codec, err := newTokenCodec(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}

	emailService := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FrontendURL,
	)

	// Services
	authService := auth.NewService(userRepo, refreshStore, codec, emailService, logger)
	userService := user.NewService(userRepo)
	socialService := social.NewService(socialRepo, userRepo)

	// HTTP layer
	gate := auth.NewMiddleware(codec, refreshStore)
	authHandler := auth.NewHandler(
		authService,
		gate,
		rateLimiter,
		logger,
		!cfg.Server.IsDevelopment(), // isProduction
		cfg.Auth.AccessTokenDuration,
		cfg.Auth.RefreshTokenDuration,
	)
	userHandler := user.NewHandler(userService, logger)
	socialHandler := social.NewHandler(socialService, logger)

	router := httpServer.NewRouter(cfg, authHandler, userHandler, socialHandler, gate, logger)

	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Printf("Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// newTokenCodec builds the configured codec with one secret and lifetime per
// token purpose.
func newTokenCodec(cfg config.AuthConfig) (auth.TokenCodec, error) {
	purposes := map[auth.TokenPurpose]auth.TokenConfig{
		auth.PurposeAccess:         {Secret: cfg.AccessSecret, Lifetime: cfg.AccessTokenDuration},
		auth.PurposeRefresh:        {Secret: cfg.RefreshSecret, Lifetime: cfg.RefreshTokenDuration},
		auth.PurposeEmailVerify:    {Secret: cfg.EmailVerifySecret, Lifetime: cfg.EmailVerifyTokenDuration},
		auth.PurposeForgotPassword: {Secret: cfg.ForgotPasswordSecret, Lifetime: cfg.ForgotPasswordTokenDuration},
	}

	if cfg.Backend == "paseto" {
		return auth.NewPasetoCodec(purposes)
	}
	return auth.NewJWTCodec(purposes), nil
}

// initDB initializes the database connection and returns a Bun DB instance
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
