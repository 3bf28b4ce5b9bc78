package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/crowdfunding-backend/internal/config"
	"github.com/ignatzorin/crowdfunding-backend/internal/db"
	"github.com/ignatzorin/crowdfunding-backend/internal/events"
	"github.com/ignatzorin/crowdfunding-backend/internal/gateway"
	"github.com/ignatzorin/crowdfunding-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/crowdfunding-backend/internal/http/handlers"
	"github.com/ignatzorin/crowdfunding-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/crowdfunding-backend/internal/http/router"
	"github.com/ignatzorin/crowdfunding-backend/internal/logger"
	"github.com/ignatzorin/crowdfunding-backend/internal/repository"
	"github.com/ignatzorin/crowdfunding-backend/internal/service"
	"github.com/ignatzorin/crowdfunding-backend/internal/ws"
)

const (
	accessTokenTTL       = 15 * time.Minute
	closeExpiredInterval = 10 * time.Minute
	shutdownTimeout      = 10 * time.Second
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.L().WithError(err).Fatal("ошибка загрузки конфигурации")
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}
	log := logger.Component("main")

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPoolOptions)
	if err != nil {
		log.WithError(err).Fatal("ошибка подключения к базе")
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.WithError(err).Fatal("ошибка миграций")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("некорректный REDIS_URL")
		}
		rdb = redis.NewClient(opts)
		defer func() {
			if err := rdb.Close(); err != nil {
				log.WithError(err).Warn("ошибка закрытия redis")
			}
		}()
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	campaignRepo := repository.NewCampaignRepository(dbConn)
	donationRepo := repository.NewDonationRepository(dbConn)
	ledgerRepo := repository.NewLedgerRepository(dbConn)
	withdrawalRepo := repository.NewWithdrawalRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGo("ws-hub", func() { hub.Run(ctx) })

	// События после коммита.
	notificationService := service.NewNotificationService(notificationRepo, hub)
	dispatcher := events.NewDispatcher(true)
	dispatcher.Subscribe("notifications", events.NewNotificationListener(notificationService))
	if rdb != nil {
		dispatcher.Subscribe("redis", events.NewRedisPublisher(rdb, cfg.EventsChannel))
	}

	// Сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, accessTokenTTL)
	snap := gateway.NewSnapClient(cfg.GatewaySnapURL, cfg.GatewayServerKey, cfg.GatewayProduction, cfg.GatewayTimeout)
	settlementService := service.NewSettlementService(ledgerRepo, gateway.NewVerifier(cfg.GatewayServerKey), dispatcher)
	ledgerService := service.NewLedgerService(ledgerRepo)
	campaignService := service.NewCampaignService(campaignRepo)
	donationService := service.NewDonationService(donationRepo, campaignRepo, userRepo, snap, service.NewOrderIDGenerator(cfg.OrderIDPrefix), cfg.GatewayTimeout)
	withdrawalService := service.NewWithdrawalService(withdrawalRepo, campaignRepo, ledgerRepo, notificationService)

	if _, err := ledgerService.EnsureMasterAccount(ctx); err != nil {
		log.WithError(err).Fatal("не удалось подготовить мастер-счёт")
	}

	// Фоновые задачи.
	goroutine.Every(ctx, "reconcile-collected", cfg.ReconcileInterval, func(ctx context.Context) {
		if _, err := campaignService.ReconcileAll(ctx); err != nil {
			log.WithError(err).Warn("сверка кампаний прервана")
		}
	})
	goroutine.Every(ctx, "close-expired-campaigns", closeExpiredInterval, func(ctx context.Context) {
		if _, err := campaignService.CloseExpired(ctx); err != nil {
			log.WithError(err).Warn("не удалось закрыть кампании")
		}
	})

	// HTTP.
	healthChecks := map[string]httpHandlers.HealthCheck{"database": dbConn.PingContext}
	if rdb != nil {
		healthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	limitStore, err := middleware.NewRateLimitStore(rdb)
	if err != nil {
		log.WithError(err).Fatal("не удалось подготовить rate limit")
	}

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Health:       httpHandlers.NewHealthHandler(healthChecks),
		Payment:      httpHandlers.NewPaymentHandler(settlementService),
		Donation:     httpHandlers.NewDonationHandler(donationService, settlementService),
		Wallet:       httpHandlers.NewWalletHandler(ledgerService),
		Campaign:     httpHandlers.NewCampaignHandler(campaignService),
		Withdrawal:   httpHandlers.NewWithdrawalHandler(withdrawalService),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		WS:           httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
	}, tokenManager, limitStore)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo("http-shutdown", func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("ошибка остановки http сервера")
		}
	})

	log.WithField("port", cfg.HTTPPort).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("сервер завершился с ошибкой")
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Component("main").WithError(err).Warn("ошибка закрытия базы")
	}
}
