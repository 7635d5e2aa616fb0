package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vantagefund/wallet-engine/api/routes"
	"github.com/vantagefund/wallet-engine/internal/audit"
	"github.com/vantagefund/wallet-engine/internal/conversions"
	"github.com/vantagefund/wallet-engine/internal/deposits"
	"github.com/vantagefund/wallet-engine/internal/ledger"
	"github.com/vantagefund/wallet-engine/internal/positions"
	"github.com/vantagefund/wallet-engine/internal/withdrawals"
	"github.com/vantagefund/wallet-engine/pkg/config"
	"github.com/vantagefund/wallet-engine/pkg/db"
	"github.com/vantagefund/wallet-engine/pkg/logger"
	"github.com/vantagefund/wallet-engine/pkg/migrate"
	"github.com/vantagefund/wallet-engine/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	svcs, err := buildServices(cfg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, prometheus.DefaultGatherer, svcs),
	}

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
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "error during shutdown", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func buildServices(cfg *config.Config, dbClient *db.Client) (routes.Services, error) {
	conn := dbClient.DB()

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	auditRec := audit.NewRecorder(conn)

	depositSvc, err := deposits.NewService(deposits.NewRepository(conn), dbClient, ledgerSvc, auditRec)
	if err != nil {
		return routes.Services{}, err
	}

	withdrawalSvc, err := withdrawals.NewService(withdrawals.NewRepository(conn), dbClient, ledgerSvc, auditRec, cfg.Withdrawals)
	if err != nil {
		return routes.Services{}, err
	}

	conversionSvc, err := conversions.NewService(conversions.NewRepository(conn), dbClient, ledgerSvc, cfg.Conversion)
	if err != nil {
		return routes.Services{}, err
	}

	positionSvc, err := positions.NewService(positions.NewRepository(conn), dbClient, ledgerSvc, auditRec)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Ledger:      ledgerSvc,
		Deposits:    depositSvc,
		Withdrawals: withdrawalSvc,
		Conversions: conversionSvc,
		Positions:   positionSvc,
	}, nil
}
