package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/crispydelights/storefront/internal/repository"
)

// InboxPublisher queues notifications so the UI can poll for them.
type InboxPublisher struct {
	inbox  repository.NotificationInbox
	logger *slog.Logger
}

// NewInboxPublisher creates a publisher backed by inbox.
func NewInboxPublisher(inbox repository.NotificationInbox, logger *slog.Logger) *InboxPublisher {
	return &InboxPublisher{inbox: inbox, logger: logger}
}

func (p *InboxPublisher) Name() string { return "inbox" }

func (p *InboxPublisher) Publish(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.inbox.Push(ctx, n.SessionID, data); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

// Drain returns and removes the pending notifications of sessionID, oldest
// first. Entries that cannot be decoded are skipped.
func (p *InboxPublisher) Drain(ctx context.Context, sessionID string) ([]Notification, error) {
	raw, err := p.inbox.Drain(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("drain notifications: %w", err)
	}

	out := make([]Notification, 0, len(raw))
	for _, r := range raw {
		var n Notification
		if err := json.Unmarshal(r, &n); err != nil {
			p.logger.WarnContext(ctx, "skipping undecodable notification",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
