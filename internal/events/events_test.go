package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received []*Event
	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = append(received, event)
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventBookingCreated, AppointmentEventPayload{AppointmentID: 7, Status: "pending"}))
	require.NoError(t, bus.PublishJSON(EventContactReceived, ContactEventPayload{MessageID: 1}))

	require.Len(t, received, 1)
	assert.Equal(t, EventBookingCreated, received[0].Type)
	assert.False(t, received[0].CreatedAt.IsZero())

	var decoded AppointmentEventPayload
	require.NoError(t, json.Unmarshal(received[0].Payload, &decoded))
	assert.Equal(t, int64(7), decoded.AppointmentID)
}

func TestEventBus_WildcardAndErrors(t *testing.T) {
	bus := NewEventBus()

	var order []string
	bus.Subscribe("x", func(*Event) error { order = append(order, "typed"); return errors.New("boom") })
	bus.SubscribeAll(func(*Event) error { order = append(order, "all"); return nil })

	var failed error
	bus.OnError(func(_ *Event, err error) { failed = err })

	require.NoError(t, bus.PublishJSON("x", nil))
	assert.Equal(t, []string{"typed", "all"}, order)
	assert.EqualError(t, failed, "boom")
}

func TestEventBus_NilSafeAndBadPayload(t *testing.T) {
	var nilBus *EventBus
	assert.NoError(t, nilBus.PublishJSON("x", 1))

	assert.Error(t, NewEventBus().PublishJSON("x", make(chan int)))
}

type fakePublisher struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestAMQPForwarder(t *testing.T) {
	pub := &fakePublisher{}
	bus := NewEventBus()
	NewAMQPForwarder(pub, "medcenter.events").Attach(bus)

	require.NoError(t, bus.PublishJSON(EventDiagnosticBookingCreated, DiagnosticEventPayload{BookingID: 3}))

	assert.Equal(t, "medcenter.events", pub.exchange)
	assert.Equal(t, EventDiagnosticBookingCreated, pub.key)
	assert.Equal(t, "application/json", pub.msg.ContentType)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)
	assert.JSONEq(t, `{"booking_id":3,"patient_name":"","phone":"","date":"0001-01-01T00:00:00Z","time_slot":"","home_collection":false,"total_price":0,"payment_status":"","payment_reference":""}`, string(pub.msg.Body))
}

func TestAMQPForwarder_Error(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	err := NewAMQPForwarder(pub, "ex").Handle(&Event{Type: EventContactReceived})
	assert.ErrorContains(t, err, "channel closed")
}

type ackRecorder struct {
	acked []uint64
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(uint64, bool, bool) error { return nil }

func (a *ackRecorder) Reject(uint64, bool) error { return nil }

func TestRelay(t *testing.T) {
	bus := NewEventBus()
	var got []string
	bus.SubscribeAll(func(e *Event) error {
		got = append(got, e.Type+":"+string(e.Payload))
		return nil
	})

	acks := &ackRecorder{}
	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, Type: EventBookingCreated, Body: []byte(`{"appointment_id":1}`)}
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 2, RoutingKey: EventContactReceived, Body: []byte(`{}`)}
	close(deliveries)

	Relay(context.Background(), deliveries, bus)

	assert.Equal(t, []string{
		EventBookingCreated + `:{"appointment_id":1}`,
		EventContactReceived + ":{}",
	}, got)
	assert.Equal(t, []uint64{1, 2}, acks.acked)
}

func TestRelay_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	Relay(ctx, make(chan amqp.Delivery), NewEventBus())
}
