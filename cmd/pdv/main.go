package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/balcao-pdv/balcao-pdv/internal/app"
	"github.com/balcao-pdv/balcao-pdv/internal/auth"
	"github.com/balcao-pdv/balcao-pdv/internal/cashbox"
	"github.com/balcao-pdv/balcao-pdv/internal/catalog"
	"github.com/balcao-pdv/balcao-pdv/internal/customers"
	"github.com/balcao-pdv/balcao-pdv/internal/ledger"
	"github.com/balcao-pdv/balcao-pdv/internal/observability"
	"github.com/balcao-pdv/balcao-pdv/internal/platform/cache"
	"github.com/balcao-pdv/balcao-pdv/internal/platform/db"
	"github.com/balcao-pdv/balcao-pdv/internal/quotes"
	"github.com/balcao-pdv/balcao-pdv/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, product cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	jobsInspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobsHandler := jobs.NewHandler(jobsInspector, logger)

	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService)

	catalogRepo := catalog.NewRepository(pool)
	catalogCache := catalog.NewCache(redisClient, cfg.ProductCacheTTL)
	catalogService := catalog.NewService(catalogRepo, catalogCache)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService)

	cashboxRepo := cashbox.NewRepository(pool)
	cashboxService := cashbox.NewService(cashboxRepo)
	cashboxHandler := cashbox.NewHandler(logger, cashboxService)

	ledgerStore := ledger.NewStore(pool)
	ledgerService := ledger.NewService(logger, ledgerStore, queueClient, metrics, cfg.AllowNegativeStock)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	quotesRepo := quotes.NewRepository(pool)
	quotesService := quotes.NewService(quotesRepo)
	quotesHandler := quotes.NewHandler(logger, quotesService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      authHandler,
		CatalogHandler:   catalogHandler,
		CustomersHandler: customersHandler,
		CashboxHandler:   cashboxHandler,
		LedgerHandler:    ledgerHandler,
		QuotesHandler:    quotesHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pdv listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("pdv stopped")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
