// Package memory provides in-process implementations of the repository
// interfaces, used by STORE_DRIVER=memory and in tests.
package memory

import (
	"context"
	"sync"

	apperrors "github.com/crispydelights/storefront/pkg/errors"
)

// SnapshotStore is a map-backed repository.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{data: make(map[string][]byte)}
}

func (s *SnapshotStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[key]
	if !ok {
		return nil, apperrors.NotFound("cart snapshot", key)
	}
	return append([]byte(nil), data...), nil
}

func (s *SnapshotStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *SnapshotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Inbox is a bounded in-memory repository.NotificationInbox.
type Inbox struct {
	mu    sync.Mutex
	size  int
	queue map[string][][]byte
}

// NewInbox creates an inbox holding at most size entries per session.
func NewInbox(size int) *Inbox {
	return &Inbox{size: size, queue: make(map[string][][]byte)}
}

func (i *Inbox) Push(_ context.Context, sessionID string, payload []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	q := append(i.queue[sessionID], append([]byte(nil), payload...))
	if len(q) > i.size {
		q = q[len(q)-i.size:]
	}
	i.queue[sessionID] = q
	return nil
}

func (i *Inbox) Drain(_ context.Context, sessionID string) ([][]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	q := i.queue[sessionID]
	delete(i.queue, sessionID)
	return q, nil
}
