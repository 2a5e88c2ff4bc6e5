package menu

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound          = errors.New("menu item not found")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
)

// MenuItem is the read-only view of a configurable dish offered at checkout.
type MenuItem struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Category      string           `json:"category"`
	BasePrice     decimal.Decimal  `json:"base_price"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	IsOnDiscount  bool             `json:"is_on_discount"`
	Variations    []Variation      `json:"variations,omitempty"`
	AddOns        []AddOn          `json:"add_ons,omitempty"`
	Available     bool             `json:"available"`
	DisplayOrder  int              `json:"display_order"`
}

// Variation is a mutually exclusive size or type. Its price replaces the
// item price.
type Variation struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Code  string          `json:"code,omitempty"`
	Price decimal.Decimal `json:"price"`
}

// AddOn is an optional modifier whose price is added once per unit selected.
type AddOn struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
}

// PaymentMethod describes a manual payment channel shown to the customer.
type PaymentMethod struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	QRCodeURL     string `json:"qr_code_url,omitempty"`
	Active        bool   `json:"active"`
	SortOrder     int    `json:"sort_order"`
}

func (m *MenuItem) GetID() uuid.UUID {
	return m.ID
}

func (m *MenuItem) ResourceType() string {
	return "menu-item"
}

// EffectivePrice is the discount price while a discount is running and the
// base price otherwise.
func (m *MenuItem) EffectivePrice() decimal.Decimal {
	if m.IsOnDiscount && m.DiscountPrice != nil {
		return *m.DiscountPrice
	}
	return m.BasePrice
}

func (m *MenuItem) FindVariation(id uuid.UUID) (Variation, bool) {
	for _, v := range m.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

func (m *MenuItem) FindAddOn(id uuid.UUID) (AddOn, bool) {
	for _, a := range m.AddOns {
		if a.ID == id {
			return a, true
		}
	}
	return AddOn{}, false
}

// AddOnGroup is a set of add-ons sharing a category, in menu order.
type AddOnGroup struct {
	Category string  `json:"category"`
	AddOns   []AddOn `json:"add_ons"`
}

// GroupAddOns groups add-ons by category keeping the first-seen category
// order.
func GroupAddOns(addOns []AddOn) []AddOnGroup {
	var groups []AddOnGroup
	index := make(map[string]int)
	for _, a := range addOns {
		i, ok := index[a.Category]
		if !ok {
			i = len(groups)
			index[a.Category] = i
			groups = append(groups, AddOnGroup{Category: a.Category})
		}
		groups[i].AddOns = append(groups[i].AddOns, a)
	}
	return groups
}

// SortPaymentMethods orders methods by SortOrder, then name.
func SortPaymentMethods(methods []PaymentMethod) {
	sort.SliceStable(methods, func(i, j int) bool {
		if methods[i].SortOrder != methods[j].SortOrder {
			return methods[i].SortOrder < methods[j].SortOrder
		}
		return methods[i].Name < methods[j].Name
	})
}

// Catalog is the read-only menu provider.
type Catalog interface {
	GetItem(ctx context.Context, id uuid.UUID) (*MenuItem, error)
	ListItems(ctx context.Context) ([]*MenuItem, error)
}

// PaymentMethods is the read-only payment method provider.
type PaymentMethods interface {
	ListActive(ctx context.Context) ([]PaymentMethod, error)
	Get(ctx context.Context, id string) (*PaymentMethod, error)
}
