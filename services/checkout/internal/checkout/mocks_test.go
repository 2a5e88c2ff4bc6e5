package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/chatorder/services/checkout/internal/menu"
	"github.com/appetiteclub/chatorder/services/checkout/internal/order"
)

// MockStore is a mock implementation of order.Store for testing
type MockStore struct {
	mu      sync.Mutex
	Created []*order.Order
	Items   map[uuid.UUID][]*order.OrderItem

	CreateWithItemsFunc func(ctx context.Context, o *order.Order, items []*order.OrderItem) error
}

func NewMockStore() *MockStore {
	return &MockStore{Items: make(map[uuid.UUID][]*order.OrderItem)}
}

func (m *MockStore) CreateWithItems(ctx context.Context, o *order.Order, items []*order.OrderItem) error {
	m.mu.Lock()
	m.Created = append(m.Created, o)
	m.Items[o.ID] = items
	m.mu.Unlock()

	if m.CreateWithItemsFunc != nil {
		return m.CreateWithItemsFunc(ctx, o, items)
	}
	return nil
}

func (m *MockStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}

func (m *MockStore) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return nil, nil
}

func (m *MockStore) List(ctx context.Context, filter order.Filter) ([]*order.Order, error) {
	return nil, nil
}

func (m *MockStore) ListItems(ctx context.Context, orderID uuid.UUID) ([]*order.OrderItem, error) {
	return nil, nil
}

func (m *MockStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return nil
}

func (m *MockStore) Stats(ctx context.Context, dayStart time.Time) (order.Stats, error) {
	return order.Stats{}, nil
}

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

// MockCatalog is a mock implementation of menu.Catalog for testing
type MockCatalog struct {
	items       map[uuid.UUID]*menu.MenuItem
	GetItemFunc func(ctx context.Context, id uuid.UUID) (*menu.MenuItem, error)
}

func NewMockCatalog(items ...*menu.MenuItem) *MockCatalog {
	c := &MockCatalog{items: make(map[uuid.UUID]*menu.MenuItem)}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (m *MockCatalog) GetItem(ctx context.Context, id uuid.UUID) (*menu.MenuItem, error) {
	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, id)
	}
	return m.items[id], nil
}

func (m *MockCatalog) ListItems(ctx context.Context) ([]*menu.MenuItem, error) {
	var out []*menu.MenuItem
	for _, it := range m.items {
		out = append(out, it)
	}
	return out, nil
}

// MockPayments is a mock implementation of menu.PaymentMethods for testing
type MockPayments struct {
	Methods        []menu.PaymentMethod
	ListActiveFunc func(ctx context.Context) ([]menu.PaymentMethod, error)
}

func (m *MockPayments) ListActive(ctx context.Context) ([]menu.PaymentMethod, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	var out []menu.PaymentMethod
	for _, pm := range m.Methods {
		if pm.Active {
			out = append(out, pm)
		}
	}
	return out, nil
}

func (m *MockPayments) Get(ctx context.Context, id string) (*menu.PaymentMethod, error) {
	for _, pm := range m.Methods {
		if pm.ID == id {
			cp := pm
			return &cp, nil
		}
	}
	return nil, nil
}

// Fixtures

type fixture struct {
	item     *menu.MenuItem
	full     menu.Variation
	cheese   menu.AddOn
	gcash    menu.PaymentMethod
	maya     menu.PaymentMethod
	payments *MockPayments
}

func newFixture() fixture {
	f := fixture{
		full:   menu.Variation{ID: uuid.New(), Name: "FULL", Code: "HS-F", Price: decimal.NewFromInt(150)},
		cheese: menu.AddOn{ID: uuid.New(), Name: "Extra Cheese", Category: "Toppings", Price: decimal.NewFromInt(20)},
		gcash:  menu.PaymentMethod{ID: "gcash", Name: "GCash", AccountNumber: "09170000000", AccountName: "Daniel's", Active: true, SortOrder: 1},
		maya:   menu.PaymentMethod{ID: "maya", Name: "Maya", Active: true, SortOrder: 2},
	}
	f.item = &menu.MenuItem{
		ID:         uuid.New(),
		Name:       "Ham Stack",
		BasePrice:  decimal.NewFromInt(130),
		Variations: []menu.Variation{f.full},
		AddOns:     []menu.AddOn{f.cheese},
		Available:  true,
	}
	f.payments = &MockPayments{Methods: []menu.PaymentMethod{f.maya, f.gcash}}
	return f
}
