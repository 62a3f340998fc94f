package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medcenter/internal/events"
	"medcenter/internal/models"
	"medcenter/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	stepService = "service"
	stepDoctor  = "doctor"
	stepDate    = "date"
	stepTime    = "time"
	stepContact = "contact"
	stepReview  = "review"
)

const (
	fieldPhone  = "phone"
	fieldCity   = "city"
	fieldReason = "reason"
)

// booking is a chat's appointment draft together with its cursor.
type booking struct {
	sess  *models.WizardSession
	seq   *wizard.Sequencer[*models.AppointmentDraft]
	draft *models.AppointmentDraft
}

func (bk *booking) step() string { return bk.seq.Step().Name }

func (b *Bot) startBooking(ctx context.Context, chatID int64, from *tgbotapi.User) {
	var identity wizard.StaticIdentity
	if from != nil {
		identity.Name = strings.TrimSpace(from.FirstName + " " + from.LastName)
		if identity.Name == "" {
			identity.Name = from.UserName
		}
	}

	now := time.Now()
	bk := &booking{
		sess: &models.WizardSession{
			ID:        sessionID(chatID),
			Flow:      models.FlowAppointment,
			CreatedAt: now,
		},
		seq:   wizard.NewAppointmentSequencer(b.rules),
		draft: wizard.StartAppointment(ctx, identity),
	}
	if !b.save(ctx, chatID, bk) {
		return
	}
	b.renderStep(ctx, chatID, 0, bk)
}

// load returns the chat's booking, or nil when none is in progress.
func (b *Bot) load(ctx context.Context, chatID int64) (*booking, error) {
	sess, err := b.sessions.GetSession(ctx, sessionID(chatID))
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Flow != models.FlowAppointment || sess.Appointment == nil {
		return nil, nil
	}
	seq := wizard.NewAppointmentSequencer(b.rules)
	seq.Restore(sess.Step)
	return &booking{sess: sess, seq: seq, draft: sess.Appointment}, nil
}

func (b *Bot) save(ctx context.Context, chatID int64, bk *booking) bool {
	bk.sess.Step = bk.seq.Current()
	bk.sess.Appointment = bk.draft
	bk.sess.UpdatedAt = time.Now()
	if err := b.sessions.SaveSession(ctx, bk.sess); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("save booking session failed")
		b.sendMessage(chatID, msgUnavailable)
		return false
	}
	return true
}

// loadOrReply loads the booking and tells the user when there is none.
func (b *Bot) loadOrReply(ctx context.Context, chatID int64, msgID int) *booking {
	bk, err := b.load(ctx, chatID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("load booking session failed")
		b.sendMessage(chatID, msgUnavailable)
		return nil
	}
	if bk == nil {
		b.reply(chatID, msgID, msgNoBooking, nil)
	}
	return bk
}

func (b *Bot) back(ctx context.Context, chatID int64, msgID int) {
	bk := b.loadOrReply(ctx, chatID, msgID)
	if bk == nil {
		return
	}
	bk.seq.Retreat()
	if !b.save(ctx, chatID, bk) {
		return
	}
	b.renderStep(ctx, chatID, msgID, bk)
}

func (b *Bot) cancelBooking(ctx context.Context, chatID int64, msgID int) {
	if err := b.sessions.DeleteSession(ctx, sessionID(chatID)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("delete booking session failed")
	}
	const text = "Booking cancelled. Send /book to start again."
	if msgID != 0 {
		b.reply(chatID, msgID, text, nil)
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	b.send(msg)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if err := b.tgService.AnswerCallback(cq.ID, ""); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("answer callback failed")
	}

	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID
	action, value, _ := strings.Cut(cq.Data, ":")

	zerolog.Ctx(ctx).Debug().
		Int64("user_id", cq.From.ID).
		Str("data", cq.Data).
		Msg("Handling callback")

	switch action {
	case cbNoop:
		return
	case cbBack:
		b.back(ctx, chatID, msgID)
		return
	case cbCancel:
		b.cancelBooking(ctx, chatID, msgID)
		return
	}

	bk := b.loadOrReply(ctx, chatID, msgID)
	if bk == nil {
		return
	}

	if expected := callbackStep(action); expected == "" || expected != bk.step() {
		b.sendMessage(chatID, msgStaleButton)
		b.renderStep(ctx, chatID, 0, bk)
		return
	}

	switch action {
	case cbService:
		types := b.rules.AllowedServiceTypes()
		i, err := strconv.Atoi(value)
		if err == nil && i >= 0 && i < len(types) {
			bk.draft.ServiceType = types[i]
		}
		b.advance(ctx, chatID, msgID, bk)
	case cbDoctorsPage:
		page, _ := strconv.Atoi(value)
		b.renderDoctors(ctx, chatID, msgID, bk, page)
	case cbDoctor:
		id, _ := strconv.ParseInt(value, 10, 64)
		b.selectDoctor(ctx, chatID, msgID, bk, id)
	case cbCalendar:
		page, _ := strconv.Atoi(value)
		b.renderCalendar(chatID, msgID, bk, page)
	case cbDay:
		day, err := time.ParseInLocation(models.DateLayout, value, b.today().Location())
		if err == nil {
			if !day.Equal(bk.draft.Date) {
				bk.draft.TimeSlot = ""
			}
			bk.draft.Date = day
		}
		b.advance(ctx, chatID, msgID, bk)
	case cbSlot:
		bk.draft.TimeSlot = value
		b.advance(ctx, chatID, msgID, bk)
	case cbNext:
		b.advance(ctx, chatID, msgID, bk)
	case cbRedo:
		bk.draft.Phone, bk.draft.City, bk.draft.Reason = "", "", ""
		if b.save(ctx, chatID, bk) {
			b.renderStep(ctx, chatID, msgID, bk)
		}
	case cbConfirm:
		b.confirm(ctx, chatID, msgID, bk)
	}
}

// callbackStep returns the step a button belongs to.
func callbackStep(action string) string {
	switch action {
	case cbService:
		return stepService
	case cbDoctor, cbDoctorsPage:
		return stepDoctor
	case cbDay, cbCalendar:
		return stepDate
	case cbSlot:
		return stepTime
	case cbNext, cbRedo:
		return stepContact
	case cbConfirm:
		return stepReview
	}
	return ""
}

func (b *Bot) selectDoctor(ctx context.Context, chatID int64, msgID int, bk *booking, id int64) {
	doctors, err := b.catalog.Doctors(ctx, "", "")
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("load doctors failed")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	for _, d := range doctors {
		if d.ID == id {
			if bk.draft.Doctor == nil || bk.draft.Doctor.ID != id {
				bk.draft.TimeSlot = ""
			}
			bk.draft.Doctor = d.Ref()
			break
		}
	}
	b.advance(ctx, chatID, msgID, bk)
}

// advance validates the current step and moves on. A blocked step is
// re-rendered with its message.
func (b *Bot) advance(ctx context.Context, chatID int64, msgID int, bk *booking) {
	if err := bk.seq.Advance(bk.draft); err != nil {
		b.sendMessage(chatID, "⚠️ "+wizard.UserMessage(err))
		b.renderStep(ctx, chatID, 0, bk)
		return
	}
	if !b.save(ctx, chatID, bk) {
		return
	}
	b.renderStep(ctx, chatID, msgID, bk)
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	bk := b.loadOrReply(ctx, chatID, 0)
	if bk == nil {
		return
	}
	if bk.step() != stepContact {
		b.sendMessage(chatID, "Please use the buttons to choose.")
		b.renderStep(ctx, chatID, 0, bk)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch nextContactField(bk.draft) {
	case fieldPhone:
		raw := text
		if msg.Contact != nil {
			raw = msg.Contact.PhoneNumber
		}
		phone, ok := cleanPhone(raw)
		if !ok {
			b.sendMessage(chatID, "⚠️ Please send a valid phone number, e.g. +91 98765 43210.")
			return
		}
		bk.draft.Phone = phone
	case fieldCity:
		if text == "" {
			return
		}
		bk.draft.City = text
	case fieldReason:
		if text == "" {
			return
		}
		bk.draft.Reason = text
	default:
		b.renderStep(ctx, chatID, 0, bk)
		return
	}

	if nextContactField(bk.draft) == "" {
		b.advance(ctx, chatID, 0, bk)
		return
	}
	if b.save(ctx, chatID, bk) {
		b.renderStep(ctx, chatID, 0, bk)
	}
}

func (b *Bot) confirm(ctx context.Context, chatID int64, msgID int, bk *booking) {
	l := zerolog.Ctx(ctx)

	outcome, err := b.gate.Submit(ctx, bk.seq, bk.draft)
	if err != nil {
		// Отказ не меняет ни шаг, ни черновик: пользователь может повторить
		// отправку или вернуться кнопкой Back.
		var refused *wizard.ApplicationError
		var invalid *wizard.ValidationError
		switch {
		case errors.As(err, &refused) && refused.StatusCode == http.StatusConflict:
			b.countRefused("slot_taken")
		case errors.As(err, &invalid):
			b.countRefused("validation")
		default:
			b.countRefused("error")
			l.Error().Err(err).Int64("chat_id", chatID).Msg("appointment submission failed")
		}
		b.sendMessage(chatID, b.getErrorMessage(err))
		b.renderStep(ctx, chatID, 0, bk)
		return
	}

	if err := b.sessions.DeleteSession(ctx, bk.sess.ID); err != nil {
		l.Error().Err(err).Int64("chat_id", chatID).Msg("delete booking session failed")
	}
	if b.metrics != nil {
		b.metrics.BookingsCreated.Inc()
	}
	l.Info().Int64("chat_id", chatID).Int64("appointment_id", outcome.ID).Msg("appointment booked")

	b.reply(chatID, msgID, fmt.Sprintf("✅ %s\nAppointment #%d\n\n%s", outcome.Message, outcome.ID, reviewText(bk.draft)), nil)

	if b.opts.PublishBookings {
		b.publishBooking(ctx, outcome.ID, bk.draft)
	}
}

func (b *Bot) publishBooking(ctx context.Context, id int64, d *models.AppointmentDraft) {
	payload := events.AppointmentEventPayload{
		AppointmentID: id,
		ServiceType:   d.ServiceType,
		Date:          d.Date,
		TimeSlot:      d.TimeSlot,
		PatientName:   d.PatientName,
		Phone:         d.Phone,
		Status:        models.StatusPending,
		ChangedBy:     "telegram",
	}
	if d.Doctor != nil {
		payload.DoctorID = d.Doctor.ID
		payload.DoctorName = d.Doctor.Name
	}
	if err := b.eventBus.PublishJSON(events.EventBookingCreated, payload); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("appointment_id", id).Msg("publish booking event failed")
	}
}

func (b *Bot) countRefused(reason string) {
	if b.metrics != nil {
		b.metrics.BookingsRefused.WithLabelValues(reason).Inc()
	}
}

func (b *Bot) renderStep(ctx context.Context, chatID int64, msgID int, bk *booking) {
	switch bk.step() {
	case stepService:
		kb := serviceKeyboard(b.rules.AllowedServiceTypes())
		b.reply(chatID, msgID, b.header(bk, "Which service do you need?"), &kb)
	case stepDoctor:
		b.renderDoctors(ctx, chatID, msgID, bk, 0)
	case stepDate:
		b.renderCalendar(chatID, msgID, bk, 0)
	case stepTime:
		b.renderSlots(ctx, chatID, msgID, bk)
	case stepContact:
		b.renderContact(chatID, msgID, bk)
	case stepReview:
		kb := reviewKeyboard()
		b.reply(chatID, msgID, b.header(bk, "Please review your appointment:\n\n"+reviewText(bk.draft)), &kb)
	}
}

func (b *Bot) header(bk *booking, text string) string {
	return fmt.Sprintf("Step %d/%d\n%s", bk.seq.Current(), bk.seq.Len(), text)
}

func (b *Bot) renderDoctors(ctx context.Context, chatID int64, msgID int, bk *booking, page int) {
	doctors, err := b.catalog.Doctors(ctx, "", "")
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("load doctors failed")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(doctors) == 0 {
		kb := tgbotapi.NewInlineKeyboardMarkup(navRow(true))
		b.reply(chatID, msgID, b.header(bk, "No doctors are available right now."), &kb)
		return
	}
	kb := doctorsKeyboard(doctors, page)
	b.reply(chatID, msgID, b.header(bk, "Choose a doctor:"), &kb)
}

func (b *Bot) renderCalendar(chatID int64, msgID int, bk *booking, page int) {
	kb := calendarKeyboard(b.today(), b.opts.MaxBookingDays, page)
	b.reply(chatID, msgID, b.header(bk, "Choose a date:"), &kb)
}

func (b *Bot) renderSlots(ctx context.Context, chatID int64, msgID int, bk *booking) {
	var doctorID int64
	if bk.draft.Doctor != nil {
		doctorID = bk.draft.Doctor.ID
	}
	slots, err := b.catalog.AvailableSlots(ctx, doctorID, bk.draft.Date)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("doctor_id", doctorID).Msg("load slots failed")
		b.sendMessage(chatID, b.getErrorMessage(err))
		kb := tgbotapi.NewInlineKeyboardMarkup(navRow(true))
		b.reply(chatID, 0, b.header(bk, "Choose another date or doctor."), &kb)
		return
	}
	if len(slots) == 0 {
		kb := tgbotapi.NewInlineKeyboardMarkup(navRow(true))
		b.reply(chatID, msgID, b.header(bk, fmt.Sprintf("No free slots on %s. Please go back and choose another date.",
			bk.draft.Date.Format("Mon, 02 Jan"))), &kb)
		return
	}
	kb := slotsKeyboard(slots)
	b.reply(chatID, msgID, b.header(bk, fmt.Sprintf("Choose a time on %s:", bk.draft.Date.Format("Mon, 02 Jan"))), &kb)
}

// renderContact asks for the first missing contact field. Prompts go out as
// new messages because reply keyboards cannot be attached by editing.
func (b *Bot) renderContact(chatID int64, msgID int, bk *booking) {
	field := nextContactField(bk.draft)
	if field == "" {
		kb := contactDoneKeyboard()
		text := fmt.Sprintf("Phone: %s\nCity: %s\nReason: %s", bk.draft.Phone, bk.draft.City, bk.draft.Reason)
		b.reply(chatID, msgID, b.header(bk, "Your contact details:\n"+text), &kb)
		return
	}

	if msgID != 0 {
		b.reply(chatID, msgID, b.header(bk, "Contact details"), nil)
	}

	var msg tgbotapi.MessageConfig
	switch field {
	case fieldPhone:
		msg = tgbotapi.NewMessage(chatID, "📱 Send your phone number or tap the button below.")
		msg.ReplyMarkup = phoneRequestKeyboard()
	case fieldCity:
		msg = tgbotapi.NewMessage(chatID, "🏙 Which city are you in?")
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	case fieldReason:
		msg = tgbotapi.NewMessage(chatID, "📝 Briefly describe the reason for your visit.")
	}
	b.send(msg)
}

// reply edits msgID when set and sends a new message otherwise.
func (b *Bot) reply(chatID int64, msgID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if msgID != 0 {
		if _, err := b.tgService.EditMessage(chatID, msgID, text, kb); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("edit message failed")
		}
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	b.send(msg)
}

func (b *Bot) today() time.Time {
	now := time.Now()
	if b.rules.Now != nil {
		now = b.rules.Now()
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func nextContactField(d *models.AppointmentDraft) string {
	switch {
	case strings.TrimSpace(d.Phone) == "":
		return fieldPhone
	case strings.TrimSpace(d.City) == "":
		return fieldCity
	case strings.TrimSpace(d.Reason) == "":
		return fieldReason
	}
	return ""
}

// cleanPhone keeps a leading plus and the digits. Numbers must have 7 to 15
// digits.
func cleanPhone(raw string) (string, bool) {
	var sb strings.Builder
	digits := 0
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", false
		}
	}
	if digits < 7 || digits > 15 {
		return "", false
	}
	return sb.String(), true
}

func reviewText(d *models.AppointmentDraft) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Service: %s\n", d.ServiceType)
	if d.Doctor != nil {
		fmt.Fprintf(&sb, "Doctor: %s", d.Doctor.Name)
		if d.Doctor.Specialty != "" {
			fmt.Fprintf(&sb, " (%s)", d.Doctor.Specialty)
		}
		sb.WriteString("\n")
	}
	if !d.Date.IsZero() {
		fmt.Fprintf(&sb, "Date: %s\n", d.Date.Format("Mon, 02 Jan 2006"))
	}
	fmt.Fprintf(&sb, "Time: %s\n", d.TimeSlot)
	if d.PatientName != "" {
		fmt.Fprintf(&sb, "Patient: %s\n", d.PatientName)
	}
	fmt.Fprintf(&sb, "Phone: %s\n", d.Phone)
	fmt.Fprintf(&sb, "City: %s\n", d.City)
	fmt.Fprintf(&sb, "Reason: %s", d.Reason)
	return sb.String()
}
