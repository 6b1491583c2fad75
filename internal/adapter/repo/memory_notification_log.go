package repo

import (
	"context"
	"sync"
	"time"

	"github.com/nodesandbox/event-bus-sample/internal/event"
	"github.com/nodesandbox/event-bus-sample/internal/notification"
)

// MemoryNotificationLog implements notification.Log as an append-only slice.
type MemoryNotificationLog struct {
	mu      sync.RWMutex
	entries []notification.Notification
}

func NewMemoryNotificationLog() *MemoryNotificationLog {
	return &MemoryNotificationLog{}
}

func (l *MemoryNotificationLog) Append(_ context.Context, t event.Type, message string) (notification.Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := notification.Notification{
		ID:        len(l.entries) + 1,
		Timestamp: time.Now().UTC(),
		Type:      t,
		Message:   message,
	}
	l.entries = append(l.entries, n)
	return n, nil
}

func (l *MemoryNotificationLog) List(_ context.Context) ([]notification.Notification, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]notification.Notification, len(l.entries))
	copy(out, l.entries)
	return out, nil
}

var _ notification.Log = (*MemoryNotificationLog)(nil)
