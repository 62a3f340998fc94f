package bot

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"medcenter/internal/domain"
	"medcenter/internal/events"
	"medcenter/internal/models"
	"medcenter/internal/service"
	"medcenter/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CatalogClient is the read side of the clinic API the assistant uses.
type CatalogClient interface {
	Doctors(ctx context.Context, query, department string) ([]models.Doctor, error)
	Tests(ctx context.Context, query, category string) ([]models.DiagnosticTest, error)
	FirstAid(ctx context.Context, query, category string) ([]models.FirstAidEntry, error)
	AvailableSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, error)
}

type Options struct {
	StaffChatID       int64
	RateLimitMessages int
	RateLimitWindow   time.Duration
	// MaxBookingDays ограничивает календарь
	MaxBookingDays int
	ListingRoute   string
	// PublishBookings публикует booking_created в локальную шину. Выключается,
	// когда события приходят из брокера от API.
	PublishBookings bool
}

type Bot struct {
	tgService *service.TelegramService
	catalog   CatalogClient
	gate      *wizard.Gate[*models.AppointmentDraft, models.AppointmentRequest]
	sessions  domain.SessionRepository
	rules     wizard.Rules
	eventBus  *events.EventBus
	opts      Options
	metrics   *Metrics
	logger    *zerolog.Logger
}

func NewBot(
	sender domain.TelegramSender,
	catalog CatalogClient,
	creator wizard.Creator[models.AppointmentRequest],
	sessions domain.SessionRepository,
	rules wizard.Rules,
	eventBus *events.EventBus,
	opts Options,
	metrics *Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if sender == nil || catalog == nil || creator == nil || sessions == nil {
		return nil, errors.New("bot: sender, catalog, creator and sessions are required")
	}

	if eventBus == nil {
		eventBus = events.NewEventBus()
	}

	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	if opts.MaxBookingDays <= 0 {
		opts.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if opts.ListingRoute == "" {
		opts.ListingRoute = models.DefaultListingRoute
	}

	b := &Bot{
		tgService: service.NewTelegramService(sender),
		catalog:   catalog,
		gate:      wizard.NewAppointmentGate(creator, opts.ListingRoute),
		sessions:  sessions,
		rules:     rules,
		eventBus:  eventBus,
		opts:      opts,
		metrics:   metrics,
		logger:    logger,
	}
	if opts.StaffChatID != 0 {
		eventBus.Subscribe(events.EventBookingCreated, b.notifyStaff)
	}
	return b, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates (best-effort).
func (b *Bot) Stop() {
	if b == nil || b.tgService == nil {
		return
	}
	b.tgService.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	// Создаем контекст для обработки каждого обновления
	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID, chatID int64
		switch {
		case update.Message != nil && update.Message.From != nil:
			userID, chatID = update.Message.From.ID, update.Message.Chat.ID
		case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
			userID, chatID = update.CallbackQuery.From.ID, update.CallbackQuery.Message.Chat.ID
		}
		if userID == 0 {
			return
		}

		if !b.allow(updateCtx, userID) {
			b.logger.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
			if update.Message != nil {
				b.sendMessage(chatID, msgSlowDown)
			}
			return
		}

		if update.CallbackQuery != nil {
			b.countUpdate("callback")
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
			return
		}
		b.countUpdate("message")
		b.handleMessage(updateCtx, update.Message)
	})
}

func (b *Bot) countUpdate(kind string) {
	if b.metrics != nil {
		b.metrics.UpdatesProcessed.WithLabelValues(kind).Inc()
	}
}

func sessionID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message failed")
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.tgService.Send(c); err != nil {
		b.logger.Error().Err(err).Msg("telegram send failed")
	}
}
