package repository

import "context"

// SnapshotStore is the key-value store holding one serialized cart per key.
// Load returns an apperrors NotFound error when no snapshot exists.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// NotificationInbox queues notifications for a session until the UI
// collects them.
type NotificationInbox interface {
	// Push appends a serialized notification, keeping at most the newest
	// capacity entries.
	Push(ctx context.Context, sessionID string, payload []byte) error

	// Drain returns queued notifications oldest first and empties the inbox.
	Drain(ctx context.Context, sessionID string) ([][]byte, error)
}
