package order

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/chatorder/pkg"
)

const DefaultActivitySize = 100

// Activity is one entry of the order activity feed.
type Activity struct {
	EventType      string    `json:"event_type"`
	OrderID        string    `json:"order_id"`
	CustomerName   string    `json:"customer_name,omitempty"`
	ServiceType    string    `json:"service_type,omitempty"`
	Total          string    `json:"total,omitempty"`
	Status         string    `json:"status,omitempty"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ActivityFeed keeps the latest order events in memory, newest first. It is
// warmed from the event stream, or from the store when no stream is
// configured, and kept current through a subscription.
type ActivityFeed struct {
	mu      sync.RWMutex
	entries []Activity
	size    int

	stream     events.StreamConsumer
	store      Store
	subscriber events.Subscriber
	logger     apt.Logger
}

func NewActivityFeed(stream events.StreamConsumer, store Store, subscriber events.Subscriber, size int, logger apt.Logger) *ActivityFeed {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if size <= 0 {
		size = DefaultActivitySize
	}
	return &ActivityFeed{
		size:       size,
		stream:     stream,
		store:      store,
		subscriber: subscriber,
		logger:     logger,
	}
}

// Start warms the feed and subscribes to live order events.
func (f *ActivityFeed) Start(ctx context.Context) error {
	f.Warm(ctx)

	if f.subscriber == nil {
		return nil
	}
	return f.subscriber.Subscribe(ctx, pkg.OrdersTopic, f.handle)
}

func (f *ActivityFeed) Warm(ctx context.Context) {
	if f.stream != nil {
		err := f.warmFromStream(ctx)
		if err == nil {
			return
		}
		f.logger.Info("stream replay failed, falling back to store", "error", err)
	}
	f.warmFromStore(ctx)
}

func (f *ActivityFeed) warmFromStream(ctx context.Context) error {
	messages, err := f.stream.Fetch(ctx, f.size)
	if err != nil {
		return err
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Sequence < messages[j].Sequence
	})
	for _, msg := range messages {
		if a, ok := decodeActivity(msg.Data); ok {
			f.add(a)
		}
	}
	f.logger.Info("activity feed warmed from stream", "events", len(messages))
	return nil
}

func (f *ActivityFeed) warmFromStore(ctx context.Context) {
	if f.store == nil {
		return
	}
	orders, err := f.store.List(ctx, Filter{Limit: f.size})
	if err != nil {
		f.logger.Info("cannot warm activity feed from store", "error", err)
		return
	}
	// List is newest first; add oldest first so the newest ends on top.
	for i := len(orders) - 1; i >= 0; i-- {
		o := orders[i]
		f.add(Activity{
			EventType:    pkg.EventOrderPlaced,
			OrderID:      o.ID.String(),
			CustomerName: o.CustomerName,
			ServiceType:  o.ServiceType,
			Total:        o.Total.StringFixed(2),
			Status:       o.Status,
			OccurredAt:   o.CreatedAt,
		})
	}
	f.logger.Info("activity feed warmed from store", "orders", len(orders))
}

func (f *ActivityFeed) handle(_ context.Context, data []byte) error {
	a, ok := decodeActivity(data)
	if !ok {
		return nil
	}
	f.add(a)
	return nil
}

func (f *ActivityFeed) add(a Activity) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries = append([]Activity{a}, f.entries...)
	if len(f.entries) > f.size {
		f.entries = f.entries[:f.size]
	}
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns everything held.
func (f *ActivityFeed) Recent(limit int) []Activity {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if limit <= 0 || limit > len(f.entries) {
		limit = len(f.entries)
	}
	out := make([]Activity, limit)
	copy(out, f.entries[:limit])
	return out
}

func decodeActivity(data []byte) (Activity, bool) {
	var meta pkg.OrderEventMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Activity{}, false
	}

	switch meta.EventType {
	case pkg.EventOrderPlaced:
		var evt pkg.OrderPlacedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return Activity{}, false
		}
		return Activity{
			EventType:    evt.EventType,
			OrderID:      evt.OrderID,
			CustomerName: evt.CustomerName,
			ServiceType:  evt.ServiceType,
			Total:        evt.Total,
			OccurredAt:   evt.OccurredAt,
		}, true
	case pkg.EventOrderStatusChanged:
		var evt pkg.OrderStatusChangedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return Activity{}, false
		}
		return Activity{
			EventType:      evt.EventType,
			OrderID:        evt.OrderID,
			Status:         evt.Status,
			PreviousStatus: evt.PreviousStatus,
			OccurredAt:     evt.OccurredAt,
		}, true
	}
	return Activity{}, false
}
