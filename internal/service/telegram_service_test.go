package service

import (
	"testing"
	"time"

	"medcenter/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestTelegramService(t *testing.T) {
	mockSender := new(mockTelegramSender)
	svc := NewTelegramService(mockSender)

	t.Run("SendMessage", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.Text == "hello" && msg.ChatID == 123
		})).Return(tgbotapi.Message{}, nil).Once()

		_, err := svc.SendMessage(123, "hello")
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("SendMarkdown", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.ParseMode == models.ParseModeMarkdown
		})).Return(tgbotapi.Message{}, nil).Once()

		_, err := svc.SendMarkdown(123, "*bold*")
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("AnswerCallback", func(t *testing.T) {
		mockSender.On("Request", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			_, ok := c.(tgbotapi.CallbackConfig)
			return ok
		})).Return(&tgbotapi.APIResponse{Ok: true}, nil).Once()

		err := svc.AnswerCallback("cb123", "ok")
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("NotifyAppointment", func(t *testing.T) {
		a := &models.Appointment{
			ID: 7, DoctorName: "Dr. Meera Nair", ServiceType: models.ServiceConsultation,
			Date: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), TimeSlot: "10:00 AM",
			Phone: "+91 98450 12345", Status: models.StatusPending,
		}
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.ChatID == -100 && assert.ObjectsAreEqual(FormatAppointment(a), msg.Text)
		})).Return(tgbotapi.Message{}, nil).Once()

		assert.NoError(t, svc.NotifyAppointment(-100, a))
		assert.NoError(t, svc.NotifyAppointment(0, a), "no staff chat configured")
		mockSender.AssertExpectations(t)
	})
}

func TestFormatAppointment(t *testing.T) {
	text := FormatAppointment(&models.Appointment{
		ID: 3, Status: models.StatusConfirmed, DoctorName: "Dr. Arjun Rao",
		ServiceType: models.ServiceFollowUp, Date: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		TimeSlot: "02:30 PM", Phone: "555-0101",
	})
	assert.Contains(t, text, "#3 (confirmed)")
	assert.Contains(t, text, "2026-04-01, 02:30 PM")
	assert.NotContains(t, text, "City:")
}
