package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Publisher is the part of *amqp.Channel the forwarder needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPForwarder republishes bus events to a topic exchange, using the event
// type as routing key.
type AMQPForwarder struct {
	publisher Publisher
	exchange  string
}

func NewAMQPForwarder(p Publisher, exchange string) *AMQPForwarder {
	return &AMQPForwarder{publisher: p, exchange: exchange}
}

// Attach subscribes the forwarder to every event on bus.
func (f *AMQPForwarder) Attach(bus *EventBus) {
	bus.SubscribeAll(f.Handle)
}

func (f *AMQPForwarder) Handle(event *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt,
		Type:         event.Type,
		Body:         event.Payload,
		Headers: amqp.Table{
			"message_type": "JSON",
		},
	}
	if err := f.publisher.PublishWithContext(ctx, f.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, f.exchange, err)
	}
	return nil
}

// DialAMQP opens a connection and a channel and declares the exchange.
func DialAMQP(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return conn, ch, nil
}

// BindQueue declares a private queue bound to keys on exchange and starts
// consuming it. Deliveries must be acked by the reader.
func BindQueue(ch *amqp.Channel, exchange string, keys ...string) (<-chan amqp.Delivery, error) {
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for _, key := range keys {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return nil, fmt.Errorf("bind %s to %s: %w", key, exchange, err)
		}
	}
	deliveries, err := ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", q.Name, err)
	}
	return deliveries, nil
}

// Relay republishes deliveries onto bus until ctx ends or deliveries closes.
// The routing key stands in for a missing message type.
func Relay(ctx context.Context, deliveries <-chan amqp.Delivery, bus *EventBus) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			eventType := d.Type
			if eventType == "" {
				eventType = d.RoutingKey
			}
			bus.Publish(&Event{Type: eventType, Payload: d.Body, CreatedAt: d.Timestamp})
			if d.Acknowledger != nil {
				_ = d.Ack(false)
			}
		}
	}
}
