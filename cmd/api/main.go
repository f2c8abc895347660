package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/apexmarkets/crm-backend/api/routes"
	"github.com/apexmarkets/crm-backend/internal/accounts"
	authsvc "github.com/apexmarkets/crm-backend/internal/auth"
	"github.com/apexmarkets/crm-backend/internal/deposits"
	"github.com/apexmarkets/crm-backend/internal/kyc"
	"github.com/apexmarkets/crm-backend/internal/ledger"
	"github.com/apexmarkets/crm-backend/internal/paymentmethods"
	"github.com/apexmarkets/crm-backend/internal/users"
	cregiswebhook "github.com/apexmarkets/crm-backend/internal/webhooks/cregis"
	"github.com/apexmarkets/crm-backend/internal/withdrawals"
	"github.com/apexmarkets/crm-backend/pkg/config"
	"github.com/apexmarkets/crm-backend/pkg/cregis"
	"github.com/apexmarkets/crm-backend/pkg/db"
	"github.com/apexmarkets/crm-backend/pkg/logger"
	"github.com/apexmarkets/crm-backend/pkg/metrics"
	"github.com/apexmarkets/crm-backend/pkg/migrate"
	"github.com/apexmarkets/crm-backend/pkg/mt5"
	"github.com/apexmarkets/crm-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	cregisClient, err := cregis.NewClient(cfg.Cregis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cregis client", err)
		os.Exit(1)
	}
	mt5Client, err := mt5.NewClient(cfg.MT5, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mt5 client", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	accountsRepo := accounts.NewRepository(dbClient.DB())
	depositsRepo := deposits.NewRepository(dbClient.DB())
	withdrawalsRepo := withdrawals.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	kycRepo := kyc.NewRepository(dbClient.DB())
	methodsRepo := paymentmethods.NewRepository(dbClient.DB())

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UsersRepo: usersRepo,
		Sessions:  redisClient,
		KYC:       kycRepo,
		JWT:       cfg.JWT,
		Password:  cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}
	accountsService, err := accounts.NewService(accountsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}
	depositsService, err := deposits.NewService(depositsRepo, accountsRepo, cregisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create deposits service", err)
		os.Exit(1)
	}
	withdrawalsService, err := withdrawals.NewService(withdrawalsRepo, accountsRepo, methodsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create withdrawals service", err)
		os.Exit(1)
	}
	kycService, err := kyc.NewService(kycRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create kyc service", err)
		os.Exit(1)
	}
	methodsService, err := paymentmethods.NewService(methodsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment methods service", err)
		os.Exit(1)
	}
	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	replayGuard, err := cregiswebhook.NewReplayGuard(redisClient, cfg.Cregis.ReplayGuardTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create replay guard", err)
		os.Exit(1)
	}
	webhookService, err := cregiswebhook.NewService(cregiswebhook.ServiceParams{
		DepositsRepo: depositsRepo,
		LedgerRepo:   ledgerRepo,
		Accounts:     accountsRepo,
		Crediter:     mt5Client,
		Guard:        replayGuard,
		Metrics:      webhookMetrics,
		Logger:       logg,
		Config:       cfg.Cregis,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Auth:           authService,
			Users:          usersService,
			Accounts:       accountsService,
			Deposits:       depositsService,
			Withdrawals:    withdrawalsService,
			KYC:            kycService,
			PaymentMethods: methodsService,
			Ledger:         ledgerService,
			CregisWebhook:  webhookService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
