package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/config"
	"foodhub-gateway/internal/handlers"
	"foodhub-gateway/internal/loaders"
	"foodhub-gateway/internal/middleware"
	"foodhub-gateway/internal/observability"
	"foodhub-gateway/internal/repository"
	"foodhub-gateway/internal/services"
	"foodhub-gateway/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	if cfg.OTEL.Enabled {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up tracing")
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("Failed to flush traces")
			}
		}()
	}
	metrics, err := observability.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create metrics")
	}

	healthChecks := make(map[string]handlers.HealthCheck)

	// Coin ledger store
	var ledgerStore services.LedgerStore
	if cfg.Database.Host != "" {
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if err := db.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping database")
		}
		if err := repository.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
		log.Info().Msg("Database connection established")

		ledgerStore = repository.NewLedgerRepository(db)
		healthChecks["postgres"] = db.Ping
	} else {
		log.Warn().Msg("No database configured, coin balances are kept in memory")
		ledgerStore = repository.NewMemoryLedger()
	}

	// Draft store
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis is unreachable, drafts will fail until it is back")
	}
	healthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

	// Backend clients
	httpClient := &http.Client{Timeout: cfg.Services.Timeout}
	agentClient := &http.Client{Timeout: cfg.Services.AgentTimeout}

	reviewClient := clients.NewReviewClient(cfg.Services.Review, httpClient)
	userClient := clients.NewUserClient(cfg.Services.User, httpClient)
	foodClient := clients.NewFoodClient(cfg.Services.Food, httpClient)
	restaurantClient := clients.NewRestaurantClient(cfg.Services.Restaurant, httpClient)
	visitClient := clients.NewVisitClient(cfg.Services.Visit, httpClient)
	hangoutClient := clients.NewHangoutClient(cfg.Services.Hangout, httpClient)
	recommendationClient := clients.NewRecommendationClient(cfg.Services.Recommendation, agentClient)
	nutritionClient := clients.NewNutritionClient(cfg.Services.Nutrition, agentClient)

	// Initialize services
	memo := loaders.NewUserMemo(cfg.Aggregator.MemoSize, cfg.Aggregator.MemoTTL, metrics)
	factory := loaders.NewFactory(userClient, foodClient, restaurantClient, memo, cfg.Aggregator.FanoutLimit, metrics)
	hub := services.NewNotificationHub()
	toggler := services.NewToggler(metrics)

	ledgerService := services.NewLedgerService(ledgerStore, userClient, cfg.Ledger.StartingBalance, cfg.Ledger.ReservationTTL, metrics)
	paidOperations := services.NewPaidOperations(ledgerService, recommendationClient, nutritionClient, foodClient, factory, services.Costs{
		Recommendation: cfg.Ledger.RecommendationCost,
		Nutrition:      cfg.Ledger.NutritionCost,
	})
	draftService := services.NewDraftService(repository.NewDraftRepository(rdb, cfg.Drafts.TTL))
	feedService := services.NewFeedService(reviewClient, factory)
	reviewService := services.NewReviewService(reviewClient, toggler, hub)
	hangoutService := services.NewHangoutService(hangoutClient, feedService, hub)
	profileService := services.NewProfileService(userClient, reviewClient, feedService, hangoutService, ledgerService, memo, toggler, hub)
	restaurantService := services.NewRestaurantService(restaurantClient, foodClient, factory, cfg.Aggregator.FanoutLimit)
	visitService := services.NewVisitService(visitClient, userClient, toggler)
	foodService := services.NewFoodService(foodClient)

	uploadService, err := services.NewUploadService(ctx, services.UploadConfig{
		Region:    cfg.AWS.Region,
		Bucket:    cfg.AWS.S3Bucket,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
		Endpoint:  cfg.AWS.Endpoint,
		PublicURL: cfg.AWS.PublicURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create upload service")
	}

	// Authentication
	var refresher session.Refresher
	if cfg.Auth.TokenURL != "" {
		refresher = session.NewOAuthRefresher(cfg.Auth.TokenURL, cfg.Auth.LogoutURL, cfg.Auth.ClientID, cfg.Auth.ClientSecret, httpClient)
	}
	auth, err := middleware.NewAuthenticator(cfg.Auth, refresher)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure authentication")
	}

	go ledgerService.RunSweeper(ctx, cfg.Ledger.SweepInterval)

	router := &handlers.Router{
		Auth:           auth,
		Loaders:        factory,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthChecks:   healthChecks,

		Reviews:     handlers.NewReviewHandler(feedService, reviewService),
		Users:       handlers.NewUserHandler(profileService),
		Restaurants: handlers.NewRestaurantHandler(restaurantService, draftService),
		Visits:      handlers.NewVisitHandler(visitService),
		Foods:       handlers.NewFoodHandler(foodService, paidOperations, draftService),
		Hangouts:    handlers.NewHangoutHandler(hangoutService),
		Coins:       handlers.NewCoinHandler(ledgerService, paidOperations),
		Drafts:      handlers.NewDraftHandler(draftService),
		Uploads:     handlers.NewUploadHandler(uploadService),
		WebSocket:   handlers.NewWebSocketHandler(hub, auth, cfg.Server.AllowedOrigins),
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router.Handler(),
		ReadTimeout: 15 * time.Second,
		// agent calls outlive the default request budget
		WriteTimeout: cfg.Services.AgentTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
