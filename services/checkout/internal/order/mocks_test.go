package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"
)

// MockPublisher is a mock implementation of events.Publisher for testing
type MockPublisher struct {
	mu          sync.Mutex
	Published   [][]byte
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, msg)
	return nil
}

// MockSubscriber is a mock implementation of events.Subscriber for testing
type MockSubscriber struct {
	Handlers      map[string]events.HandlerFunc
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{Handlers: make(map[string]events.HandlerFunc)}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	m.Handlers[topic] = handler
	return nil
}

// MockStreamConsumer is a mock implementation of events.StreamConsumer for testing
type MockStreamConsumer struct {
	Messages            []events.StreamMessage
	FetchFunc           func(ctx context.Context, limit int) ([]events.StreamMessage, error)
	SubscribeStreamFunc func(ctx context.Context, handler events.HandlerFunc) error
}

func (m *MockStreamConsumer) Fetch(ctx context.Context, limit int) ([]events.StreamMessage, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, limit)
	}
	return m.Messages, nil
}

func (m *MockStreamConsumer) SubscribeStream(ctx context.Context, handler events.HandlerFunc) error {
	if m.SubscribeStreamFunc != nil {
		return m.SubscribeStreamFunc(ctx, handler)
	}
	return nil
}

// MockStore is a mock implementation of Store for testing
type MockStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*Order
	items  map[uuid.UUID][]*OrderItem

	CreateWithItemsFunc func(ctx context.Context, o *Order, items []*OrderItem) error
	GetFunc             func(ctx context.Context, id uuid.UUID) (*Order, error)
	ListFunc            func(ctx context.Context, filter Filter) ([]*Order, error)
	ListItemsFunc       func(ctx context.Context, orderID uuid.UUID) ([]*OrderItem, error)
	UpdateStatusFunc    func(ctx context.Context, id uuid.UUID, status string) error
	StatsFunc           func(ctx context.Context, dayStart time.Time) (Stats, error)
}

func NewMockStore() *MockStore {
	return &MockStore{
		orders: make(map[uuid.UUID]*Order),
		items:  make(map[uuid.UUID][]*OrderItem),
	}
}

func (m *MockStore) CreateWithItems(ctx context.Context, o *Order, items []*OrderItem) error {
	if m.CreateWithItemsFunc != nil {
		return m.CreateWithItemsFunc(ctx, o, items)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.items[o.ID] = items
	return nil
}

func (m *MockStore) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *MockStore) List(ctx context.Context, filter Filter) ([]*Order, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MockStore) ListItems(ctx context.Context, orderID uuid.UUID) ([]*OrderItem, error) {
	if m.ListItemsFunc != nil {
		return m.ListItemsFunc(ctx, orderID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[orderID], nil
}

func (m *MockStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (m *MockStore) Stats(ctx context.Context, dayStart time.Time) (Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, dayStart)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Stats{ByStatus: make(map[string]int64)}
	for _, o := range m.orders {
		stats.Total++
		stats.ByStatus[o.Status]++
		if !o.CreatedAt.Before(dayStart) {
			stats.Today++
		}
	}
	return stats, nil
}
