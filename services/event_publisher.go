package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/kendall-kelly/foodcourt-api/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	orderEventsExchange = "orders_topic"
	publishTimeout      = 5 * time.Second
)

// Routing keys of published order events
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventPaymentCompleted   = "payment.completed"
	EventPaymentFailed      = "payment.failed"
)

// OrderEvent is the message published after an order change is committed
type OrderEvent struct {
	Type          string               `json:"type"`
	OrderID       string               `json:"orderId"`
	OrderNumber   string               `json:"orderNumber,omitempty"`
	RestaurantID  string               `json:"restaurantId,omitempty"`
	Status        models.OrderStatus   `json:"status,omitempty"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus,omitempty"`
	Message       string               `json:"message,omitempty"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// EventPublisher delivers order events to back-office consumers
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// amqpChannel is the subset of *amqp.Channel used for publishing
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes order events to a RabbitMQ topic exchange
type AMQPPublisher struct {
	mu      sync.Mutex
	channel amqpChannel
	log     *log.Helper
}

// NewAMQPPublisher opens a channel on conn and declares the order exchange
func NewAMQPPublisher(conn *amqp.Connection, logger log.Logger) (*AMQPPublisher, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return newAMQPPublisher(channel, logger)
}

func newAMQPPublisher(channel amqpChannel, logger log.Logger) (*AMQPPublisher, error) {
	err := channel.ExchangeDeclare(
		orderEventsExchange, // name
		"topic",             // type
		true,                // durable
		false,               // auto-deleted
		false,               // internal
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", orderEventsExchange, err)
	}

	return &AMQPPublisher{
		channel: channel,
		log:     log.NewHelper(log.With(logger, "module", "services/events")),
	}, nil
}

// Publish sends the event with the event type as routing key
func (p *AMQPPublisher) Publish(ctx context.Context, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx,
		orderEventsExchange, // exchange
		event.Type,          // routing key
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    event.OrderID,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.log.Debugf("published %s for order %s", event.Type, event.OrderID)
	return nil
}

// Close closes the underlying channel
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.Close()
}

// NoopPublisher drops every event; used when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, OrderEvent) error {
	return nil
}
