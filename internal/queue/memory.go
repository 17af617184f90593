package queue

import (
	"context"
	"sync"

	"github.com/sells-group/funding-cli/internal/model"
)

// Memory is an in-process Store guarded by a mutex.
type Memory struct {
	mu    sync.RWMutex
	items map[string]model.QueueItem
}

// NewMemory creates an empty in-memory queue.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]model.QueueItem)}
}

func (m *Memory) Add(_ context.Context, item model.QueueItem) (model.QueueItem, error) {
	item = prepare(item)
	m.mu.Lock()
	m.items[item.ID] = item
	m.mu.Unlock()
	return item, nil
}

func (m *Memory) Get(_ context.Context, id string) (model.QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return model.QueueItem{}, ErrNotFound
	}
	return item, nil
}

func (m *Memory) List(_ context.Context) ([]model.QueueItem, error) {
	m.mu.RLock()
	out := make([]model.QueueItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	m.mu.RUnlock()
	model.SortQueue(out)
	return out, nil
}

func (m *Memory) Complete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

func (m *Memory) Close() error { return nil }
