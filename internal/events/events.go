package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated           = "booking_created"
	EventBookingStatusChanged     = "booking_status_changed"
	EventDiagnosticBookingCreated = "diagnostic_booking_created"
	EventContactReceived          = "contact_received"
)

// AppointmentEventPayload is the appointment snapshot sent to consumers.
type AppointmentEventPayload struct {
	AppointmentID int64     `json:"appointment_id"`
	ServiceType   string    `json:"service_type"`
	DoctorID      int64     `json:"doctor_id"`
	DoctorName    string    `json:"doctor_name"`
	Date          time.Time `json:"date"`
	TimeSlot      string    `json:"time_slot"`
	PatientName   string    `json:"patient_name"`
	Phone         string    `json:"phone"`
	Status        string    `json:"status"`
	ChangedBy     string    `json:"changed_by,omitempty"`
}

type DiagnosticEventPayload struct {
	BookingID        int64     `json:"booking_id"`
	PatientName      string    `json:"patient_name"`
	Phone            string    `json:"phone"`
	Date             time.Time `json:"date"`
	TimeSlot         string    `json:"time_slot"`
	HomeCollection   bool      `json:"home_collection"`
	TotalPrice       float64   `json:"total_price"`
	PaymentStatus    string    `json:"payment_status"`
	PaymentReference string    `json:"payment_reference"`
}

type ContactEventPayload struct {
	MessageID int64  `json:"message_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// ErrorHandler receives errors returned by handlers.
type ErrorHandler func(event *Event, err error)

// EventBus provides in-process pub/sub for events. Handlers run
// synchronously in subscription order.
type EventBus struct {
	subscribers map[string][]EventHandler
	wildcard    []EventHandler
	onError     ErrorHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError sets the callback for failing handlers.
func (b *EventBus) OnError(h ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = h
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, handler)
}

// Publish notifies subscribers of the event type, then wildcard subscribers.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.wildcard...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
