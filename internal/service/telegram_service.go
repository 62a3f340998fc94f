package service

import (
	"fmt"
	"strings"

	"medcenter/internal/domain"
	"medcenter/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramService wraps the bot API with the message shapes the assistant
// sends.
type TelegramService struct {
	bot domain.TelegramSender
}

func NewTelegramService(bot domain.TelegramSender) *TelegramService {
	return &TelegramService{bot: bot}
}

func (s *TelegramService) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return s.bot.Send(c)
}

func (s *TelegramService) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	return s.bot.Send(tgbotapi.NewMessage(chatID, text))
}

func (s *TelegramService) SendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeMarkdown
	return s.bot.Send(msg)
}

func (s *TelegramService) SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return s.bot.Send(msg)
}

// EditMessage replaces the text (and keyboard, if given) of a sent message.
func (s *TelegramService) EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	if keyboard != nil {
		return s.bot.Send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *keyboard))
	}
	return s.bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
}

func (s *TelegramService) AnswerCallback(callbackID, text string) error {
	_, err := s.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// NotifyAppointment posts a new-booking card to the staff chat.
func (s *TelegramService) NotifyAppointment(chatID int64, a *models.Appointment) error {
	if chatID == 0 || a == nil {
		return nil
	}
	_, err := s.SendMessage(chatID, FormatAppointment(a))
	return err
}

func (s *TelegramService) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return s.bot.GetUpdatesChan(config)
}

func (s *TelegramService) StopReceivingUpdates() {
	s.bot.StopReceivingUpdates()
}

// FormatAppointment renders an appointment as plain text for chats.
func FormatAppointment(a *models.Appointment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🩺 Appointment #%d (%s)\n", a.ID, a.Status)
	fmt.Fprintf(&sb, "Doctor: %s\n", a.DoctorName)
	fmt.Fprintf(&sb, "Service: %s\n", a.ServiceType)
	fmt.Fprintf(&sb, "When: %s, %s\n", a.Date.Format(models.DateLayout), a.TimeSlot)
	if a.PatientName != "" {
		fmt.Fprintf(&sb, "Patient: %s\n", a.PatientName)
	}
	fmt.Fprintf(&sb, "Phone: %s\n", a.Phone)
	if a.City != "" {
		fmt.Fprintf(&sb, "City: %s\n", a.City)
	}
	if a.Reason != "" {
		fmt.Fprintf(&sb, "Reason: %s", a.Reason)
	}
	return strings.TrimRight(sb.String(), "\n")
}
