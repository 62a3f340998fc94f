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

	"medcenter/internal/api"
	"medcenter/internal/config"
	"medcenter/internal/database"
	"medcenter/internal/domain"
	"medcenter/internal/events"
	"medcenter/internal/google"
	"medcenter/internal/logging"
	"medcenter/internal/metrics"
	"medcenter/internal/pages"
	"medcenter/internal/payment"
	"medcenter/internal/repository"
	"medcenter/internal/service"
	"medcenter/internal/wizard"
	"medcenter/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	catalogRefreshInterval = 5 * time.Minute
	sheetsCacheInterval    = 30 * time.Minute
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

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	registry, err := pages.Load(cfg.PagesPath)
	if err != nil {
		logger.Error().Err(err).Str("pages_path", cfg.PagesPath).Msg("load department pages")
		return err
	}

	rules, err := bookingRules(cfg)
	if err != nil {
		return err
	}

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	sessions := initSessions(cfg, redisClient, logger)

	eventBus := events.NewEventBus()
	eventBus.OnError(func(ev *events.Event, err error) {
		logger.Error().Err(err).Str("event", ev.Type).Msg("event handler failed")
	})
	if amqpConn := initMessaging(cfg, eventBus, logger); amqpConn != nil {
		defer amqpConn.Close()
	}

	var syncer domain.SyncWorker
	if sheetsWorker := initSheetsWorker(ctx, cfg, db, redisClient, logger); sheetsWorker != nil {
		go sheetsWorker.Start(ctx)
		syncer = sheetsWorker
	}

	catalog := service.NewCatalogService(db, cfg.Booking.TimeSlots, logging.Component(logger, "catalog"))
	if err := catalog.Refresh(ctx); err != nil {
		logger.Error().Err(err).Msg("load catalog")
		return err
	}
	go refreshCatalog(ctx, catalog, logger)

	appointments := service.NewAppointmentService(db, eventBus, syncer, rules, cfg.Booking.MaxBookingDays, logging.Component(logger, "appointments"))
	diagnostics := service.NewDiagnosticsService(db, catalog, payment.NewGateway(cfg.Payments), eventBus, rules, cfg.Booking.MaxBookingDays, logging.Component(logger, "diagnostics"))
	contact := service.NewContactService(db, sessions, eventBus, 0, 0, logging.Component(logger, "contact"))
	wizards := service.NewWizardService(sessions, catalog, rules, appointments.Creator(), diagnostics.Creator(), cfg.Booking.ListingRoute, logging.Component(logger, "wizard"))

	grpcServer, err := api.NewGRPCServer(&cfg.API, catalog, logger)
	if err != nil {
		logger.Error().Err(err).Msg("create grpc server")
		return err
	}

	httpServer := api.NewHTTPServer(cfg.API, api.Services{
		Catalog:      catalog,
		Appointments: appointments,
		Diagnostics:  diagnostics,
		Contact:      contact,
		Wizards:      wizards,
		Pages:        registry,
		Sync:         syncer,
	}, logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, logging.Component(logger, "backup"))
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, logger)

	return startServers(ctx, grpcServer, httpServer, cfg, logger)
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
	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

// initDatabase opens the database and seeds an empty catalog from
// cfg.Catalog when that file exists.
func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	existing, err := db.LoadCatalog(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(existing.Doctors) > 0 {
		return db, nil
	}

	c, err := config.LoadCatalog(cfg.Catalog)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn().Str("catalog_path", cfg.Catalog).Msg("catalog is empty and no seed file found")
		return db, nil
	}
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.ImportCatalog(ctx, c); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	logger.Info().Int("doctors", len(c.Doctors)).Int("tests", len(c.Tests)).Msg("catalog seeded")
	return db, nil
}

func bookingRules(cfg *config.Config) (wizard.Rules, error) {
	loc, err := cfg.Booking.Location()
	if err != nil {
		return wizard.Rules{}, err
	}
	return wizard.Rules{
		ServiceTypes: cfg.Booking.ServiceTypes,
		TimeSlots:    cfg.Booking.TimeSlots,
		Now:          func() time.Time { return time.Now().In(loc) },
	}, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initSessions(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.SessionRepository {
	ttl := time.Duration(cfg.Wizard.SessionTTL) * time.Second
	memory := repository.NewMemorySessionRepository(ttl)
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverSessionRepository(repository.NewRedisSessionRepository(redisClient, ttl), memory, logger)
}

// initMessaging forwards every bus event to the broker. A broker that cannot
// be reached disables forwarding.
func initMessaging(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) *amqp.Connection {
	if !cfg.Messaging.Enabled {
		return nil
	}

	conn, ch, err := events.DialAMQP(cfg.Messaging.URL, cfg.Messaging.Exchange)
	if err != nil {
		logger.Warn().Err(err).Msg("amqp connection failed, continuing without event forwarding")
		return nil
	}

	events.NewAMQPForwarder(ch, cfg.Messaging.Exchange).Attach(bus)
	logger.Info().Str("exchange", cfg.Messaging.Exchange).Msg("amqp forwarding enabled")
	return conn
}

func initSheetsWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) *worker.SheetsWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.AppointmentSpreadsheetID == "" {
		return nil
	}

	sheetsLogger := logging.Component(logger, "sheets")
	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.AppointmentSpreadsheetID, sheetsLogger)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}
	go sheetsService.RefreshCacheEvery(ctx, sheetsCacheInterval)

	logger.Info().Msg("google sheets connected")
	return worker.NewSheetsWorker(db, sheetsService, redisClient, worker.DefaultRetryPolicy(), logging.Component(logger, "sheets-worker"))
}

// refreshCatalog picks up catalog changes made by the seed command.
func refreshCatalog(ctx context.Context, catalog *service.CatalogService, logger *zerolog.Logger) {
	ticker := time.NewTicker(catalogRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := catalog.Refresh(ctx); err != nil {
				logger.Error().Err(err).Msg("catalog refresh failed")
			}
		}
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	go func() {
		if !cfg.API.GRPC.Enabled {
			return
		}
		if err := grpcServer.Serve(); err != nil {
			logger.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Str("grpc_addr", grpcServer.Addr()).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Shutdown(shutdownCtx)
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
