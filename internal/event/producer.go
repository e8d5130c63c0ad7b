package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crispydelights/storefront/internal/domain"
	pkgkafka "github.com/crispydelights/storefront/pkg/kafka"
)

// Kafka topics for storefront domain events.
var (
	TopicCartUpdated         = pkgkafka.Topic("cart", "updated")
	TopicCartCleared         = pkgkafka.Topic("cart", "cleared")
	TopicOrderConfirmed      = pkgkafka.Topic("order", "confirmed")
	TopicNotificationCreated = pkgkafka.Topic("notification", "created")
)

// AggregateTypeCart is the aggregate type of every storefront event; the
// aggregate ID is the session ID.
const AggregateTypeCart = "cart"

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	SessionID  string            `json:"session_id"`
	Items      []domain.LineItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice string            `json:"total_price"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	SessionID string `json:"session_id"`
}

// OrderConfirmedData is the payload for an order.confirmed event. Contact
// details of the shipping form are deliberately left out.
type OrderConfirmedData struct {
	SessionID   string            `json:"session_id"`
	OrderNumber int               `json:"order_number"`
	ShipToName  string            `json:"ship_to_name"`
	ShipToCity  string            `json:"ship_to_city"`
	Items       []domain.LineItem `json:"items"`
	TotalItems  int               `json:"total_items"`
	TotalPrice  string            `json:"total_price"`
}

// NotificationData is the payload for a notification.created event.
type NotificationData struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Level       string    `json:"level"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Publisher is the part of pkg/kafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event with the current items.
func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID string, items []domain.LineItem) error {
	data := CartUpdatedData{
		SessionID:  sessionID,
		Items:      items,
		TotalItems: domain.TotalItems(items),
		TotalPrice: domain.TotalPrice(items).StringFixed(2),
	}
	return p.publish(ctx, TopicCartUpdated, sessionID, data)
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID string) error {
	return p.publish(ctx, TopicCartCleared, sessionID, CartClearedData{SessionID: sessionID})
}

// PublishOrderConfirmed publishes an order.confirmed event.
func (p *Producer) PublishOrderConfirmed(ctx context.Context, sessionID string, c domain.Confirmation) error {
	data := OrderConfirmedData{
		SessionID:   sessionID,
		OrderNumber: c.OrderNumber,
		ShipToName:  c.ShipTo.FullName,
		ShipToCity:  c.ShipTo.City,
		Items:       c.Items,
		TotalItems:  c.TotalItems,
		TotalPrice:  c.TotalPrice.StringFixed(2),
	}
	return p.publish(ctx, TopicOrderConfirmed, sessionID, data)
}

// PublishNotification publishes a notification.created event.
func (p *Producer) PublishNotification(ctx context.Context, data NotificationData) error {
	return p.publish(ctx, TopicNotificationCreated, data.SessionID, data)
}

func (p *Producer) publish(ctx context.Context, topic, sessionID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, sessionID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("session_id", sessionID),
	)
	return nil
}
