package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/finance-core/internal/config"
	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/handler"
	"github.com/boddenberg/finance-core/internal/infra/blob"
	"github.com/boddenberg/finance-core/internal/infra/cache"
	"github.com/boddenberg/finance-core/internal/infra/client"
	"github.com/boddenberg/finance-core/internal/infra/device"
	"github.com/boddenberg/finance-core/internal/infra/localstore"
	"github.com/boddenberg/finance-core/internal/infra/observability"
	"github.com/boddenberg/finance-core/internal/infra/resilience"
	"github.com/boddenberg/finance-core/internal/infra/supabase"
	"github.com/boddenberg/finance-core/internal/port"
	"github.com/boddenberg/finance-core/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// blobBackend is a BlobStore that can be probed and released.
type blobBackend interface {
	port.BlobStore
	handler.Pinger
}

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFile)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("remote_api_url", cfg.RemoteAPIURL),
		zap.Duration("remote_timeout", cfg.RemoteTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("jwt_enabled", cfg.JWTSecret != ""),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("finance core stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finance-core")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Local store ---
	blobs, closeBlobs, err := openBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBlobs()
	local := localstore.New(blobs, cfg.StoreKey)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("remote-transactions", nil)

	// --- Clients ---
	httpClient := &http.Client{}

	var remote port.RemoteTransactions
	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase as remote backend",
			zap.String("supabase_url", cfg.SupabaseURL),
			zap.String("table", cfg.SupabaseTable),
		)
		remote = supabase.NewClient(httpClient, supabase.Config{
			URL:        cfg.SupabaseURL,
			AnonKey:    cfg.SupabaseAnonKey,
			ServiceKey: cfg.SupabaseServiceKey,
			Table:      cfg.SupabaseTable,
			Timeout:    cfg.RemoteTimeout,
		}, cb, resilienceCfg, logger)
	} else {
		logger.Info("using HTTP API as remote backend")
		remote = client.NewTransactionsClient(httpClient, cfg.RemoteAPIURL, cfg.RemoteTimeout, cb, resilienceCfg)
	}

	// --- Device bridges ---
	battery := batterySource(ctx, cfg, logger)
	calendar := device.NewCalendar(cfg.CalendarAutoGrant)

	// --- Cache ---
	snapshots := cache.New[*domain.Result[[]domain.Transaction]](cfg.AnalyticsCacheTTL)
	defer snapshots.Close()

	// --- Services ---
	txSvc := service.NewTransactionService(remote, local, metrics, logger)
	batterySvc := service.NewBatteryService(battery, cfg.BatteryPollInterval, metrics, logger)
	svcs := handler.Services{
		Transactions: txSvc,
		Analytics:    service.NewAnalyticsService(txSvc, cfg.ListMaxLimit).WithSnapshotCache(snapshots),
		Battery:      batterySvc,
		Calendar:     service.NewCalendarService(calendar, metrics, logger),
		Store:        blobs,
	}

	// --- Router ---
	router := handler.NewRouter(svcs, handler.Options{
		JWTSecret:        cfg.JWTSecret,
		ListDefaultLimit: cfg.ListDefaultLimit,
		ListMaxLimit:     cfg.ListMaxLimit,
	}, metrics, logger)

	// --- Server ---
	srv := newServer(cfg.Port, router, batterySvc)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	// --- Graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newServer builds the HTTP server. Shutdown closes the battery service so
// open event streams return instead of holding the drain until its deadline.
func newServer(port int, router http.Handler, battery *service.BatteryService) *http.Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	srv.RegisterOnShutdown(battery.Close)
	return srv
}

func openBlobStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (blobBackend, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		logger.Warn("using in-memory local store, offline changes are lost on restart")
		return blob.NewMemory(), func() {}, nil
	case config.StoreRedis:
		r, err := blob.NewRedis(ctx, blob.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "finance:",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		logger.Info("using Redis local store", zap.String("addr", cfg.RedisAddr))
		return r, func() { _ = r.Close() }, nil
	case config.StoreSQLite:
		s, err := blob.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("using SQLite local store", zap.String("path", cfg.SQLitePath))
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// batterySource prefers the host battery and falls back to a mains-powered
// static source on hosts without one.
func batterySource(ctx context.Context, cfg *config.Config, logger *zap.Logger) port.BatterySource {
	sysfs := device.NewSysfs(cfg.BatterySysfsPath)
	if _, err := sysfs.ReadBattery(ctx); err != nil {
		logger.Info("no readable battery, reporting mains power", zap.Error(err))
		return device.NewStatic(domain.BatteryInfo{LevelPercent: 100, IsCharging: true})
	}
	return sysfs
}
