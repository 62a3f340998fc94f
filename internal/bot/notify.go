package bot

import (
	"encoding/json"
	"fmt"

	"medcenter/internal/events"
	"medcenter/internal/models"
)

// notifyStaff posts a new booking to the staff chat.
func (b *Bot) notifyStaff(event *events.Event) error {
	var p events.AppointmentEventPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	a := &models.Appointment{
		ID:          p.AppointmentID,
		ServiceType: p.ServiceType,
		DoctorID:    p.DoctorID,
		DoctorName:  p.DoctorName,
		Date:        p.Date,
		TimeSlot:    p.TimeSlot,
		PatientName: p.PatientName,
		Phone:       p.Phone,
		Status:      p.Status,
	}
	if err := b.tgService.NotifyAppointment(b.opts.StaffChatID, a); err != nil {
		return fmt.Errorf("notify staff chat %d: %w", b.opts.StaffChatID, err)
	}
	return nil
}
