package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arena/internal/api"
	"arena/internal/calendar"
	"arena/internal/config"
	"arena/internal/database"
	"arena/internal/domain"
	"arena/internal/events"
	"arena/internal/filestore"
	"arena/internal/logging"
	"arena/internal/metrics"
	"arena/internal/repository"
	"arena/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}
	cal := calendar.New(loc)

	repo, sqlDB, err := openStorage(cfg, loc, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	coord := initCoordinator(redisClient, logger)

	bus := events.NewEventBus(logging.Component(logger, "events"))
	audit := events.AuditLogger(logging.Component(logger, "audit"))
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingCancelled,
		events.EventBookingStatusChanged,
		events.EventContactSubmitted,
	} {
		bus.Subscribe(eventType, audit)
	}

	svc := api.Services{
		Bookings: service.NewBookingService(repo, coord, bus, cal, cfg.Booking, logging.Component(logger, "bookings")),
		Slots:    service.NewSlotService(repo, cal, cfg.Booking.InitOnList, logging.Component(logger, "slots")),
		Admin:    service.NewAdminService(repo, cal, cfg.Admin, cfg.Booking.MaxAdvanceDays, logging.Component(logger, "admin")),
		Contacts: service.NewContactService(repo, bus, logging.Component(logger, "contacts")),
		Ready:    repo.Ping,
	}
	httpServer := api.NewHTTPServer(cfg.API, cfg.Admin, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sqlDB != nil {
		backup := database.NewBackupService(sqlDB, cfg.Backup, logging.Component(logger, "backup"))
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg, logger)

	return startServers(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(baseLogger, "api-main")

	return cfg, logger, closer, nil
}

// openStorage picks the backend once. The *database.DB is non-nil only for SQLite.
func openStorage(cfg *config.Config, loc *time.Location, logger *zerolog.Logger) (domain.Repository, *database.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverFile:
		store, err := openFileStore(cfg, loc, logger)
		return store, nil, err
	case config.DriverSQLite, config.DriverAuto:
		db, err := database.NewDB(cfg.Database.Path, loc, logging.Component(logger, "sqlite"))
		if err == nil {
			logger.Info().Str("db_path", cfg.Database.Path).Msg("using sqlite storage")
			return db, db, nil
		}
		if cfg.Database.Driver == config.DriverSQLite {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, nil, err
		}
		logger.Warn().Err(err).Str("db_path", cfg.Database.Path).Msg("sqlite unavailable, falling back to file storage")
		store, ferr := openFileStore(cfg, loc, logger)
		if ferr != nil {
			return nil, nil, errors.Join(err, ferr)
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func openFileStore(cfg *config.Config, loc *time.Location, logger *zerolog.Logger) (*filestore.Store, error) {
	store, err := filestore.New(cfg.Database.FilePath, loc, logging.Component(logger, "filestore"))
	if err != nil {
		logger.Error().Err(err).Str("file_path", cfg.Database.FilePath).Msg("init file store")
		return nil, err
	}
	return store, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initCoordinator prefers redis with in-process fallback.
func initCoordinator(client *redis.Client, logger *zerolog.Logger) domain.Coordinator {
	memory := repository.NewMemoryCoordinator()
	if client == nil {
		return memory
	}
	return repository.NewFailoverCoordinator(
		repository.NewRedisCoordinator(client, "arena"),
		memory,
		logging.Component(logger, "coordinator"),
	)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("driver", cfg.Database.Driver).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
