package notify

import (
	"context"
	"sync"

	"github.com/GiorgiUbiria/team_ledger/internal/logger"
	"go.uber.org/zap"
)

// MemoryInbox keeps recent events in process. It backs notifications when
// no Redis is configured, and doubles as a recorder in tests.
type MemoryInbox struct {
	mu     sync.Mutex
	size   int
	events map[uint64][]Event
	all    []Event
}

func NewMemoryInbox(size int) *MemoryInbox {
	if size <= 0 {
		size = 100
	}
	return &MemoryInbox{size: size, events: make(map[uint64][]Event)}
}

func (m *MemoryInbox) Notify(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]Event{ev}, m.events[ev.UserID]...)
	if len(list) > m.size {
		list = list[:m.size]
	}
	m.events[ev.UserID] = list
	m.all = append(m.all, ev)
	logger.Log.Debug("notification",
		zap.String("kind", string(ev.Kind)),
		zap.Uint64("user_id", ev.UserID),
		zap.String("message", ev.Message))
	return nil
}

func (m *MemoryInbox) Recent(_ context.Context, userID uint64, n int64) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.events[userID]
	if n > 0 && int(n) < len(list) {
		list = list[:n]
	}
	return append([]Event(nil), list...), nil
}

// All returns every event received, in arrival order.
func (m *MemoryInbox) All() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.all...)
}
