// Package notify delivers user-facing toast notifications. A session sink
// stamps each notification and fans it out to every configured publisher;
// delivery is fire-and-forget.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Level is the notification severity shown by the UI.
type Level string

const (
	LevelInfo    Level = "info"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Notification is a single toast message.
type Notification struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Level       Level     `json:"level"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Sink accepts notifications for one session. Calls never fail and never
// block on the caller's behalf beyond publisher latency.
type Sink interface {
	Info(ctx context.Context, title, description string)
	Error(ctx context.Context, title, description string)
	Success(ctx context.Context, title, description string)
}

// Publisher is a delivery backend.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, n Notification) error

func (f PublisherFunc) Publish(ctx context.Context, n Notification) error { return f(ctx, n) }

// Dispatcher hands out per-session sinks sharing one set of publishers.
type Dispatcher struct {
	publishers []Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewDispatcher creates a dispatcher delivering to publishers in order.
func NewDispatcher(logger *slog.Logger, publishers ...Publisher) *Dispatcher {
	return &Dispatcher{
		publishers: publishers,
		logger:     logger,
		now:        time.Now,
	}
}

// ForSession returns the sink for sessionID.
func (d *Dispatcher) ForSession(sessionID string) *SessionSink {
	return &SessionSink{dispatcher: d, sessionID: sessionID}
}

// SessionSink implements Sink for one session.
type SessionSink struct {
	dispatcher *Dispatcher
	sessionID  string
}

func (s *SessionSink) Info(ctx context.Context, title, description string) {
	s.emit(ctx, LevelInfo, title, description)
}

func (s *SessionSink) Error(ctx context.Context, title, description string) {
	s.emit(ctx, LevelError, title, description)
}

func (s *SessionSink) Success(ctx context.Context, title, description string) {
	s.emit(ctx, LevelSuccess, title, description)
}

func (s *SessionSink) emit(ctx context.Context, level Level, title, description string) {
	d := s.dispatcher
	n := Notification{
		ID:          uuid.New().String(),
		SessionID:   s.sessionID,
		Level:       level,
		Title:       title,
		Description: description,
		CreatedAt:   d.now().UTC(),
	}

	for _, p := range d.publishers {
		if err := p.Publish(ctx, n); err != nil {
			d.logger.WarnContext(ctx, "failed to deliver notification",
				slog.String("session_id", s.sessionID),
				slog.String("notification_id", n.ID),
				slog.String("publisher", publisherName(p)),
				slog.String("error", err.Error()),
			)
		}
	}
}

type named interface{ Name() string }

func publisherName(p Publisher) string {
	if n, ok := p.(named); ok {
		return n.Name()
	}
	return "custom"
}
