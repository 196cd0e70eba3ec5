package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/debate-tournament/brackets"
	"github.com/Dosada05/debate-tournament/config"
	"github.com/Dosada05/debate-tournament/db"
	"github.com/Dosada05/debate-tournament/debates"
	"github.com/Dosada05/debate-tournament/handlers"
	"github.com/Dosada05/debate-tournament/notifications"
	"github.com/Dosada05/debate-tournament/repositories"
	api "github.com/Dosada05/debate-tournament/routes"
	"github.com/Dosada05/debate-tournament/services"
	"github.com/Dosada05/debate-tournament/storage"
	"github.com/go-chi/chi/v5"
)

// @title Debate Tournament API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(ctx, cfg.DatabaseURL, 5*time.Second, db.DefaultPool, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	if err := db.EnsureSchema(ctx, dbConn); err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection established")

	// Инициализация репозиториев
	repos := services.Repositories{
		Transactor:   repositories.NewTransactor(dbConn),
		Tournaments:  repositories.NewPostgresTournamentRepository(dbConn),
		Participants: repositories.NewPostgresParticipantRepository(dbConn),
		Rounds:       repositories.NewPostgresRoundRepository(dbConn),
		Matches:      repositories.NewPostgresMatchRepository(dbConn),
		JudgeScores:  repositories.NewPostgresJudgeScoreRepository(dbConn),
	}
	logger.Info("Repositories initialized")

	// Внешние сервисы дебатов, судей и поясов
	debateClient := debates.NewHTTPDebateClient(cfg.DebateServiceURL, cfg.DebateServiceToken, logger)
	judgePool := debates.NewHTTPJudgePool(cfg.JudgeServiceURL, cfg.DebateServiceToken, logger)
	var beltHook debates.BeltHook = debates.NopBeltHook{}
	if cfg.BeltWebhookURL != "" {
		beltHook = debates.NewHTTPBeltHook(cfg.BeltWebhookURL, cfg.DebateServiceToken, logger)
	} else {
		logger.Warn("BELT_WEBHOOK_URL is not set, belt updates are disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := notifications.NewHub(logger)
	go wsHub.Run(ctx)
	notifier := notifications.NewHubNotifier(wsHub)
	logger.Info("WebSocket Hub started")

	// Архив результатов в Cloudflare R2 (опционально)
	var archiver services.Archiver
	if cfg.R2.Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = services.NewResultArchiver(uploader, logger)
		logger.Info("Cloudflare R2 uploader initialized")
	}

	// Инициализация сервисов
	tiebreaker := brackets.NewTiebreaker(nil, logger)
	seedingService := services.NewSeedingService(repos, nil, logger)
	judgingService := services.NewJudgingService(judgePool, repos.JudgeScores, nil, logger)
	completionService := services.NewCompletionService(repos, beltHook, notifier, archiver, tiebreaker, logger)
	advancementService := services.NewAdvancementService(
		repos,
		judgingService,
		seedingService,
		completionService,
		debateClient,
		notifier,
		tiebreaker,
		cfg.MaxCascadeDepth,
		logger,
	)
	tournamentService := services.NewTournamentService(repos, seedingService, advancementService, notifier, tiebreaker, logger)
	logger.Info("Services initialized")

	// Периодическая сверка турниров после потерянных событий
	sweeper, err := services.NewSweeper(repos.Tournaments, advancementService, cfg.SweepInterval, logger)
	if err != nil {
		logger.Error("failed to create sweeper", slog.Any("error", err))
		os.Exit(1)
	}
	sweeper.Start()
	defer func() {
		if err := sweeper.Shutdown(); err != nil {
			logger.Error("failed to stop sweeper", slog.Any("error", err))
		}
	}()

	// Инициализация обработчиков HTTP
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	webhookHandler := handlers.NewWebhookHandler(advancementService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, cfg.AllowedOrigins, logger)
	healthHandler := handlers.NewHealthHandler(dbConn)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{
			JWTSecret:         []byte(cfg.JWTSecretKey),
			WebhookSecretHash: cfg.WebhookSecretHash,
			AllowedOrigins:    cfg.AllowedOrigins,
		},
		tournamentHandler,
		webhookHandler,
		webSocketHandler,
		healthHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
			return
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	stop()
	logger.Info("application exited")
}
