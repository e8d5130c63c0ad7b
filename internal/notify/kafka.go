package notify

import (
	"context"

	"github.com/crispydelights/storefront/internal/event"
)

// NotificationEvents is implemented by event.Producer.
type NotificationEvents interface {
	PublishNotification(ctx context.Context, data event.NotificationData) error
}

// EventPublisher mirrors notifications onto the notification.created topic.
type EventPublisher struct {
	events NotificationEvents
}

// NewEventPublisher creates an EventPublisher.
func NewEventPublisher(events NotificationEvents) *EventPublisher {
	return &EventPublisher{events: events}
}

func (p *EventPublisher) Name() string { return "kafka" }

func (p *EventPublisher) Publish(ctx context.Context, n Notification) error {
	return p.events.PublishNotification(ctx, event.NotificationData{
		ID:          n.ID,
		SessionID:   n.SessionID,
		Level:       string(n.Level),
		Title:       n.Title,
		Description: n.Description,
		CreatedAt:   n.CreatedAt,
	})
}
