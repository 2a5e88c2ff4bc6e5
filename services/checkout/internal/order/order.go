package order

import (
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/chatorder/pkg/enums/orderstatus"
	"github.com/appetiteclub/chatorder/pkg/enums/servicetype"
)

// Order is the persisted header of a placed order. Service specific fields
// are nil unless they apply to ServiceType.
type Order struct {
	ID            uuid.UUID       `json:"id"`
	CustomerName  string          `json:"customer_name"`
	ContactNumber string          `json:"contact_number"`
	ServiceType   string          `json:"service_type"`
	Address       *string         `json:"address"`
	Landmark      *string         `json:"landmark"`
	PartySize     *int            `json:"party_size"`
	PreferredTime *string         `json:"preferred_time"`
	PickupWindow  *string         `json:"pickup_window"`
	PaymentMethod string          `json:"payment_method"`
	Notes         *string         `json:"notes"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func NewOrder() *Order {
	return &Order{
		ID:     apt.GenerateNewID(),
		Status: orderstatus.Statuses.Pending.Code(),
		Total:  decimal.Zero,
	}
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) ResourceType() string {
	return "order"
}

func (o *Order) SetID(id uuid.UUID) {
	o.ID = id
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = apt.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now()
}

func (o *Order) SetStatus(s orderstatus.Status) {
	o.Status = s.Code()
	o.UpdatedAt = time.Now()
}

// ServiceFields is the raw form state for every service type.
type ServiceFields struct {
	Address       string
	Landmark      string
	PartySize     int
	PreferredTime string
	PickupWindow  string
}

// ApplyService stores exactly the fields that apply to t and clears the
// rest, so values typed for a previously chosen service never persist.
func (o *Order) ApplyService(t servicetype.Type, f ServiceFields) {
	o.ServiceType = t.Code()
	o.Address = nil
	o.Landmark = nil
	o.PartySize = nil
	o.PreferredTime = nil
	o.PickupWindow = nil

	switch t {
	case servicetype.Types.Delivery:
		o.Address = optional(f.Address)
		o.Landmark = optional(f.Landmark)
	case servicetype.Types.DineIn:
		size := f.PartySize
		if size < 1 {
			size = 1
		}
		o.PartySize = &size
		o.PreferredTime = optional(f.PreferredTime)
	case servicetype.Types.Pickup:
		o.PickupWindow = optional(f.PickupWindow)
	}
}

func (o *Order) SetNotes(notes string) {
	o.Notes = optional(notes)
}

// AddOnLine is an add-on snapshot stored with an order item.
type AddOnLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// OrderItem is a snapshot of one cart line taken at submit time. It does not
// reference the menu so later menu edits never change historical orders.
type OrderItem struct {
	ID             uuid.UUID       `json:"id"`
	OrderID        uuid.UUID       `json:"order_id"`
	ItemName       string          `json:"item_name"`
	VariationName  *string         `json:"variation_name,omitempty"`
	VariationCode  *string         `json:"variation_code,omitempty"`
	VariationLabel *string         `json:"variation_label,omitempty"`
	AddOns         []AddOnLine     `json:"add_ons"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
	CreatedAt      time.Time       `json:"created_at"`
}

func NewOrderItem(orderID uuid.UUID) *OrderItem {
	return &OrderItem{
		ID:      apt.GenerateNewID(),
		OrderID: orderID,
		AddOns:  []AddOnLine{},
	}
}

func (i *OrderItem) GetID() uuid.UUID {
	return i.ID
}

func (i *OrderItem) ResourceType() string {
	return "order-item"
}

func (i *OrderItem) EnsureID() {
	if i.ID == uuid.Nil {
		i.ID = apt.GenerateNewID()
	}
}

func (i *OrderItem) BeforeCreate() {
	i.EnsureID()
	i.CreatedAt = time.Now()
}

// SetVariation records the variation name, its POS code and the combined
// label.
func (i *OrderItem) SetVariation(name, code string) {
	if name == "" {
		i.VariationName, i.VariationCode, i.VariationLabel = nil, nil, nil
		return
	}
	label := VariationLabel(name, code)
	i.VariationName = &name
	i.VariationCode = optional(code)
	i.VariationLabel = &label
}

// SetPricing freezes the unit price and derives the line total.
func (i *OrderItem) SetPricing(unit decimal.Decimal, quantity int) {
	i.Quantity = quantity
	i.UnitPrice = unit
	i.LineTotal = unit.Mul(decimal.NewFromInt(int64(quantity)))
}

// VariationLabel renders "[CODE] Name", or the bare name without a code.
func VariationLabel(name, code string) string {
	if code == "" {
		return name
	}
	return "[" + code + "] " + name
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
