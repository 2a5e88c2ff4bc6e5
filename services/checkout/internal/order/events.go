package order

import (
	"context"
	"encoding/json"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/chatorder/pkg"
)

// EventPublisher emits order events. Failures are logged and never returned.
type EventPublisher struct {
	publisher events.Publisher
	logger    apt.Logger
}

func NewEventPublisher(publisher events.Publisher, logger apt.Logger) *EventPublisher {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &EventPublisher{publisher: publisher, logger: logger}
}

func (p *EventPublisher) Placed(ctx context.Context, o *Order, itemCount int, platform string) {
	evt := pkg.OrderPlacedEvent{
		OrderEventMetadata: pkg.OrderEventMetadata{
			EventType:  pkg.EventOrderPlaced,
			OrderID:    o.ID.String(),
			OccurredAt: time.Now().UTC(),
		},
		CustomerName:  o.CustomerName,
		ServiceType:   o.ServiceType,
		PaymentMethod: o.PaymentMethod,
		ItemCount:     itemCount,
		Total:         o.Total.StringFixed(2),
		Platform:      platform,
	}
	p.publish(ctx, evt, o)
}

func (p *EventPublisher) StatusChanged(ctx context.Context, o *Order, previous string) {
	evt := pkg.OrderStatusChangedEvent{
		OrderEventMetadata: pkg.OrderEventMetadata{
			EventType:  pkg.EventOrderStatusChanged,
			OrderID:    o.ID.String(),
			OccurredAt: time.Now().UTC(),
		},
		Status:         o.Status,
		PreviousStatus: previous,
	}
	p.publish(ctx, evt, o)
}

func (p *EventPublisher) publish(ctx context.Context, evt any, o *Order) {
	if p == nil || p.publisher == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("cannot marshal order event", "error", err, "order_id", o.ID.String())
		return
	}
	if err := p.publisher.Publish(ctx, pkg.OrdersTopic, payload); err != nil {
		p.logger.Error("cannot publish order event", "error", err, "order_id", o.ID.String())
	}
}
