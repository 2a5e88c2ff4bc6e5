package pkg

import "time"

const (
	// OrdersTopic carries every event emitted by the checkout service.
	OrdersTopic = "orders.checkout"

	// EventOrderPlaced identifies an order persisted at checkout.
	EventOrderPlaced = "order.placed"
	// EventOrderStatusChanged identifies an admin status change.
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEventMetadata is shared by all order events so consumers can read
// the event type before decoding the full payload.
type OrderEventMetadata struct {
	EventType  string    `json:"event_type"`
	OrderID    string    `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderPlacedEvent is published after a checkout order and its items are stored.
type OrderPlacedEvent struct {
	OrderEventMetadata
	CustomerName  string `json:"customer_name"`
	ServiceType   string `json:"service_type"`
	PaymentMethod string `json:"payment_method"`
	ItemCount     int    `json:"item_count"`
	Total         string `json:"total"`
	Platform      string `json:"platform,omitempty"`
}

// OrderStatusChangedEvent is published when an operator moves an order to
// another status.
type OrderStatusChangedEvent struct {
	OrderEventMetadata
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
}
