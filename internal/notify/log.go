package notify

import (
	"context"
	"log/slog"
)

// LogPublisher writes one structured log line per notification.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Publish(ctx context.Context, n Notification) error {
	level := slog.LevelInfo
	if n.Level == LevelError {
		level = slog.LevelWarn
	}
	p.logger.LogAttrs(ctx, level, "notification",
		slog.String("session_id", n.SessionID),
		slog.String("notification_id", n.ID),
		slog.String("level", string(n.Level)),
		slog.String("title", n.Title),
		slog.String("description", n.Description),
	)
	return nil
}
