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

	"github.com/Dosada05/tundra-matches/config"
	"github.com/Dosada05/tundra-matches/db"
	"github.com/Dosada05/tundra-matches/handlers"
	"github.com/Dosada05/tundra-matches/realtime"
	"github.com/Dosada05/tundra-matches/repositories"
	api "github.com/Dosada05/tundra-matches/routes"
	"github.com/Dosada05/tundra-matches/services"
	"github.com/Dosada05/tundra-matches/storage"
	"github.com/go-chi/chi/v5"
	"github.com/itbasis/go-clock"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
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
	logger.Info("database connection established")

	if cfg.ApplySchema {
		schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.ApplySchema(schemaCtx, dbConn)
		cancel()
		if err != nil {
			logger.Error("failed to apply schema", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("database schema applied")
	}

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(appCtx)
	notifier := realtime.NewMatchNotifier(wsHub)
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	repos := services.Repositories{
		Matches:     matchRepo,
		Clans:       repositories.NewPostgresClanRepository(dbConn),
		Proposals:   repositories.NewPostgresProposalRepository(dbConn),
		Submissions: repositories.NewPostgresSubmissionRepository(dbConn),
		Rosters:     repositories.NewPostgresRosterRepository(dbConn),
		PlayerStats: repositories.NewPostgresPlayerStatsRepository(dbConn),
	}
	logger.Info("Repositories initialized")

	clk := clock.New()
	opts := []services.Option{services.WithNotifier(notifier)}

	// Архив решений по конфликтам (Cloudflare R2), если настроен
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(appCtx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		opts = append(opts, services.WithArchiver(storage.NewResolutionArchiver(uploader)))
		logger.Info("Cloudflare R2 resolution archive enabled", slog.String("bucket", cfg.R2BucketName))
	}

	matchService := services.NewMatchService(repositories.NewTxRunner(dbConn, logger), repos, clk, logger, opts...)
	logger.Info("Services initialized")

	// Объявление начавшихся матчей
	sweeper := services.NewActivationSweeper(matchRepo, clk, notifier, logger)
	scheduler, err := sweeper.Start(appCtx, cfg.ActivationSweepInterval)
	if err != nil {
		logger.Error("failed to start activation scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("activation scheduler started", slog.Duration("interval", cfg.ActivationSweepInterval))

	// Инициализация обработчиков HTTP
	matchHandler := handlers.NewMatchHandler(matchService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Health:         handlers.HealthHandler(dbConn),
	}, matchHandler, webSocketHandler)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
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

	exitCode := 0
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			exitCode = 1
		} else {
			logger.Info("server stopped gracefully")
		}
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
			exitCode = 1
		} else {
			logger.Info("server shutdown complete")
		}
	}

	if err := scheduler.Shutdown(); err != nil {
		logger.Error("failed to stop activation scheduler", slog.Any("error", err))
	}
	stopApp()
	logger.Info("application exited")
	if exitCode != 0 {
		dbConn.Close()
		os.Exit(exitCode)
	}
}
