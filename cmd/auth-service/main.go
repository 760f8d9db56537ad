package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/account-auth/internal/cache"
	"github.com/pribylovaa/account-auth/internal/config"
	"github.com/pribylovaa/account-auth/internal/hasher"
	"github.com/pribylovaa/account-auth/internal/metrics"
	"github.com/pribylovaa/account-auth/internal/service"
	"github.com/pribylovaa/account-auth/internal/storage"
	"github.com/pribylovaa/account-auth/internal/storage/mongo"
	"github.com/pribylovaa/account-auth/internal/storage/postgres"
	"github.com/pribylovaa/account-auth/internal/storage/sqlite"
	"github.com/pribylovaa/account-auth/internal/token"
	httptransport "github.com/pribylovaa/account-auth/internal/transport/http"
	"github.com/pribylovaa/account-auth/internal/transport/http/handlers"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// migrator — хранилище со встроенными миграциями.
type migrator interface {
	Migrate(ctx context.Context) (int, error)
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	codec, err := token.New(cfg.Auth)
	if err != nil {
		return err
	}

	h, err := hasher.New(cfg.Password)
	if err != nil {
		return err
	}

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := openStorage(dbCtx, cfg.DB)
	dbCancel()
	if err != nil {
		return err
	}
	defer str.Close()
	log.Info("storage_connected", slog.String("driver", cfg.DB.Driver))

	if m, ok := str.(migrator); ok && !cfg.DB.SkipMigrations {
		migCtx, migCancel := context.WithTimeout(rootCtx, 30*time.Second)
		applied, err := m.Migrate(migCtx)
		migCancel()
		if err != nil {
			return err
		}
		log.Info("migrations_applied", slog.Int("count", applied))
	}

	var audit storage.AuditStorage = str
	if cfg.Audit.Backend == config.AuditMongo {
		mCtx, mCancel := context.WithTimeout(rootCtx, 10*time.Second)
		m, err := mongo.New(mCtx, cfg.Audit.MongoURL)
		mCancel()
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			_ = m.Close(closeCtx)
		}()
		audit = m
		log.Info("audit_mongo_connected")
	}

	mtr := metrics.New(prometheus.DefaultRegisterer)

	// Сервис.
	srvc := service.New(str, audit, codec, h, service.WithAuditQueue(cfg.Audit.QueueSize, cfg.Audit.WriteTimeout))
	defer srvc.Close() // после остановки HTTP, до закрытия хранилищ
	srvc.SetMetrics(mtr)

	rotation, err := openRotationCache(rootCtx, cfg)
	if err != nil {
		return err
	}
	if rotation != nil {
		defer func() { _ = rotation.Close() }()
		srvc.SetRotationCache(rotation)
	}
	log.Info("service_initialized", slog.String("rotation", cfg.Auth.Rotation))

	var ready int32 // 0 — not ready; 1 — ready

	api := httptransport.NewRouter(srvc, httptransport.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Service,
		BasePath: httptransport.DefaultBasePath,
		Cookie:   handlers.CookieFromConfig(cfg.Cookie, codec.RefreshTTL()),
		Metrics:  mtr,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	var serveErr error
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
	}

	// Снимаем ready и останавливаем HTTP с таймаутом.
	atomic.StoreInt32(&ready, 0)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	} else {
		log.Info("http_stopped")
	}

	if serveErr != nil {
		return fmt.Errorf("http serve: %w", serveErr)
	}

	return nil
}

// openStorage открывает хранилище аккаунтов по db.driver.
func openStorage(ctx context.Context, cfg config.DBConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.New(ctx, cfg.DatabaseURL)
	default:
		return postgres.New(ctx, cfg.DatabaseURL)
	}
}

// openRotationCache возвращает кэш ротации refresh-токенов по auth.rotation
// (nil для "none").
func openRotationCache(ctx context.Context, cfg *config.Config) (cache.RotationCache, error) {
	switch cfg.Auth.Rotation {
	case config.RotationMemory:
		return cache.NewMemoryCache(time.Now), nil
	case config.RotationRedis:
		rCtx, rCancel := context.WithTimeout(ctx, 5*time.Second)
		defer rCancel()
		return cache.NewRedisCache(rCtx, cfg.Redis.RedisURL, "")
	default:
		return nil, nil
	}
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
