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
	"medcenter/internal/bot"
	"medcenter/internal/config"
	"medcenter/internal/domain"
	"medcenter/internal/events"
	"medcenter/internal/logging"
	"medcenter/internal/repository"
	"medcenter/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const catalogCacheTTL = 5 * time.Minute

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
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := cfg.ValidateBot(); err != nil {
		logger.Error().Err(err).Msg("bot config is incomplete")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, sessions := initSessions(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	client := api.NewClient(cfg.Bot.APIBaseURL, cfg.Bot.APIKey)
	if redisClient != nil {
		client.UseRedisCache(redisClient, catalogCacheTTL)
	}

	loc, err := cfg.Booking.Location()
	if err != nil {
		return err
	}
	rules := wizard.Rules{
		ServiceTypes: cfg.Booking.ServiceTypes,
		TimeSlots:    cfg.Booking.TimeSlots,
		Now:          func() time.Time { return time.Now().In(loc) },
	}

	eventBus := events.NewEventBus()
	eventBus.OnError(func(ev *events.Event, err error) {
		logger.Error().Err(err).Str("event", ev.Type).Msg("event handler failed")
	})

	// Бронирования с сайта и из бота приходят из брокера, если он настроен.
	amqpConn, err := relayBrokerEvents(ctx, cfg, eventBus, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("amqp relay unavailable, staff chat gets bot bookings only")
	}
	if amqpConn != nil {
		defer amqpConn.Close()
	}

	registry := prometheus.NewRegistry()
	metrics := bot.NewMetrics(registry)
	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, registry, logger)
	}

	return startBot(ctx, cfg, client, sessions, rules, eventBus, amqpConn == nil, metrics, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logging.Component(baseLogger, "bot-main"), closer, nil
}

func initSessions(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.SessionRepository) {
	ttl := time.Duration(cfg.Wizard.SessionTTL) * time.Second
	memory := repository.NewMemorySessionRepository(ttl)
	if cfg.Redis.Address == "" {
		return nil, memory
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if errPing := repository.Ping(ctx, redisClient); errPing != nil {
		logger.Warn().Err(errPing).Msg("Redis unavailable")
	}

	primaryRepo := repository.NewRedisSessionRepository(redisClient, ttl)
	return redisClient, repository.NewFailoverSessionRepository(primaryRepo, memory, logger)
}

// relayBrokerEvents feeds booking_created from the broker into bus.
func relayBrokerEvents(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) (*amqp.Connection, error) {
	if !cfg.Messaging.Enabled || cfg.Bot.StaffChatID == 0 {
		return nil, nil
	}

	conn, ch, err := events.DialAMQP(cfg.Messaging.URL, cfg.Messaging.Exchange)
	if err != nil {
		return nil, err
	}
	deliveries, err := events.BindQueue(ch, cfg.Messaging.Exchange, events.EventBookingCreated)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	go events.Relay(ctx, deliveries, bus)
	logger.Info().Str("exchange", cfg.Messaging.Exchange).Msg("amqp relay started")
	return conn, nil
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	client *api.Client,
	sessions domain.SessionRepository,
	rules wizard.Rules,
	eventBus *events.EventBus,
	publishLocally bool,
	metrics *bot.Metrics,
	logger *zerolog.Logger,
) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	botWrapper := bot.NewBotWrapper(botAPI)
	logger.Info().Str("username", botWrapper.GetSelf().UserName).Msg("authorized on telegram")

	telegramBot, err := bot.NewBot(
		botWrapper, client, client.AppointmentCreator(), sessions, rules, eventBus,
		bot.Options{
			StaffChatID:       cfg.Bot.StaffChatID,
			RateLimitMessages: cfg.Bot.RateLimitMessages,
			RateLimitWindow:   time.Duration(cfg.Bot.RateLimitWindow) * time.Second,
			MaxBookingDays:    cfg.Booking.MaxBookingDays,
			ListingRoute:      cfg.Booking.ListingRoute,
			PublishBookings:   publishLocally,
		},
		metrics, logging.Component(logger, "bot"),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания бота")
		return err
	}

	go func() {
		<-ctx.Done()
		telegramBot.Stop()
	}()

	logger.Info().Msg("Бот запущен...")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func startMetricsServer(ctx context.Context, port int, registry *prometheus.Registry, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

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
