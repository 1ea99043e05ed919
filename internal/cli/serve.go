package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/internal/api"
	"github.com/d60-Lab/storefront/internal/api/handler"
	"github.com/d60-Lab/storefront/internal/cache"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/database"
	"github.com/d60-Lab/storefront/pkg/logger"
	"github.com/d60-Lab/storefront/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			SampleRate:       cfg.Sentry.SampleRate,
			AttachStacktrace: true,
		}); err != nil {
			return fmt.Errorf("failed to init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	db, err := database.InitDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer database.Close(db)
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
	}

	var rdb *redis.Client
	if cfg.Cache.Enabled {
		rdb = cache.NewClient(cfg.Redis)
		defer rdb.Close()
	}
	catalog := cache.New(rdb, cfg.Cache.Enabled)

	invalidator := service.NewCacheInvalidator(catalog, cfg.Cache.InvalidQueue)
	stopInvalidator := invalidator.Start(cfg.Cache.InvalidWorker)

	store := repository.NewStore(db)
	auth := service.NewAuthService(cfg.JWT, cfg.Admin)
	h := handler.NewHandler(
		service.NewOrderService(store, invalidator),
		service.NewCatalogService(store, catalog, invalidator, service.CacheTTL{List: cfg.Cache.ListTTL, Detail: cfg.Cache.DetailTTL}),
		auth,
		func(ctx context.Context) error { return database.Ping(ctx, db, time.Second) },
		catalog.Ping,
	)
	if err := handler.RegisterValidators(); err != nil {
		return err
	}

	srv := newHTTPServer(cfg.Server, api.SetupRouter(cfg, h, auth))
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	// 先停 HTTP 再排空失效队列
	if err := stopInvalidator(sctx); err != nil {
		logger.Warn("cache invalidator shutdown", zap.Error(err))
	}
	logger.Info("stopped", zap.Int("invalidations_pending", invalidator.QueueLen()))
	return nil
}

func newHTTPServer(cfg config.ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
}
