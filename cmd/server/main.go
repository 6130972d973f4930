package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop-payment-service/config"
	"shop-payment-service/internal/channel"
	"shop-payment-service/internal/handler"
	"shop-payment-service/internal/provider/daraja"
	"shop-payment-service/internal/repository"
	"shop-payment-service/internal/router"
	"shop-payment-service/internal/usecase"
	"shop-payment-service/pkg/client"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting payment service")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port))

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("connected to database",
		zap.String("database", cfg.Database.DBName))

	// Repositories
	ledgerRepo := repository.NewLedgerRepository(dbPool)
	refundRepo := repository.NewRefundRepository(dbPool)
	reportRepo := repository.NewReportRepository(dbPool)

	// Collaborators and providers
	orderClient := client.NewOrderClient(cfg.Orders, logger)
	darajaClient := daraja.NewClient(cfg.Mpesa)

	var reportCache *redis.Client
	if cfg.Redis.Addr != "" {
		reportCache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer reportCache.Close()
	}

	// Usecases
	engine := usecase.NewReconcileUsecase(ledgerRepo, orderClient, logger)
	refundUC := usecase.NewRefundUsecase(refundRepo, logger)
	reportUC := usecase.NewReportUsecase(reportRepo, reportCache, logger)

	// Channel adapters
	callbackURL := cfg.BaseCallbackURL + "/api/v1/callbacks/mpesa/stk"
	mobilePush := channel.NewMobilePushAdapter(engine, darajaClient, orderClient, callbackURL, logger)
	paybill := channel.NewPaybillAdapter(engine, logger)
	cod := channel.NewCODAdapter(engine, orderClient, logger)
	bank := channel.NewBankTransferAdapter(engine, orderClient, cfg.Bank, logger)

	// Handlers
	checkoutHandler := handler.NewCheckoutHandler(mobilePush, bank, logger)
	callbackHandler := handler.NewCallbackHandler(mobilePush, logger)
	adminHandler := handler.NewAdminHandler(paybill, cod, bank, engine, refundUC, cfg.StalePendingAfter, logger)
	reportHandler := handler.NewReportHandler(reportUC, logger)

	r := router.SetupRoutes(checkoutHandler, callbackHandler, adminHandler, reportHandler, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("payment service started successfully",
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
