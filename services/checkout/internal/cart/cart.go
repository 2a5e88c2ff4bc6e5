// Package cart holds the configured lines of an in-progress order.
package cart

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/chatorder/services/checkout/internal/menu"
	"github.com/appetiteclub/chatorder/services/checkout/internal/pricing"
)

var (
	ErrItemUnavailable  = errors.New("menu item is not available")
	ErrUnknownVariation = errors.New("variation does not belong to menu item")
	ErrUnknownAddOn     = errors.New("add-on does not belong to menu item")
	ErrInvalidQuantity  = errors.New("quantity cannot be negative")
	ErrLineNotFound     = errors.New("cart line not found")
)

// LineAddOn is an add-on snapshot frozen into a cart line.
type LineAddOn struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Line is one configured, quantity-bearing cart entry. UnitPrice is computed
// when the line is first added and never recomputed from the live menu.
type Line struct {
	ID         uuid.UUID       `json:"id"`
	Key        string          `json:"key"`
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	Variation  *menu.Variation `json:"variation,omitempty"`
	AddOns     []LineAddOn     `json:"add_ons,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

func (l Line) Total() decimal.Decimal {
	return pricing.LineTotal(l.UnitPrice, l.Quantity)
}

// Cart is not safe for concurrent use; the owning checkout session
// serializes access to it.
type Cart struct {
	lines []*Line
}

func New() *Cart {
	return &Cart{}
}

// Add adds quantity units of the configuration to the cart. A zero quantity
// adds one unit. When a line with the same identity exists its quantity is
// increased instead of appending a new line.
func (c *Cart) Add(item *menu.MenuItem, variation *menu.Variation, addOns []pricing.AddOnSelection, quantity int) (*Line, error) {
	if item == nil || !item.Available {
		return nil, ErrItemUnavailable
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		quantity = 1
	}

	if variation != nil {
		v, ok := item.FindVariation(variation.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVariation, variation.ID)
		}
		variation = &v
	}

	selected, err := normalizeAddOns(item, addOns)
	if err != nil {
		return nil, err
	}

	key := identityKey(item.ID, variation, selected)
	for _, l := range c.lines {
		if l.Key == key {
			l.Quantity += quantity
			cp := *l
			return &cp, nil
		}
	}

	line := &Line{
		ID:         uuid.New(),
		Key:        key,
		MenuItemID: item.ID,
		Name:       item.Name,
		Quantity:   quantity,
		UnitPrice:  pricing.UnitPrice(item, variation, selected),
	}
	line.Variation = variation
	for _, s := range selected {
		line.AddOns = append(line.AddOns, LineAddOn{
			ID:       s.AddOn.ID,
			Name:     s.AddOn.Name,
			Category: s.AddOn.Category,
			Price:    s.AddOn.Price,
			Quantity: s.Quantity,
		})
	}

	c.lines = append(c.lines, line)
	cp := *line
	return &cp, nil
}

// AddSelection adds a pre-add customization built with Selection.
func (c *Cart) AddSelection(sel *Selection, quantity int) (*Line, error) {
	return c.Add(sel.item, sel.variation, sel.AddOnSelections(), quantity)
}

// SetQuantity sets the quantity of a line. Zero removes the line.
func (c *Cart) SetQuantity(lineID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if quantity == 0 {
		return c.Remove(lineID)
	}
	for _, l := range c.lines {
		if l.ID == lineID {
			l.Quantity = quantity
			return nil
		}
	}
	return ErrLineNotFound
}

func (c *Cart) Remove(lineID uuid.UUID) error {
	for i, l := range c.lines {
		if l.ID == lineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) TotalItems() int {
	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

func (c *Cart) TotalPrice() decimal.Decimal {
	totals := make([]decimal.Decimal, 0, len(c.lines))
	for _, l := range c.lines {
		totals = append(totals, l.Total())
	}
	return pricing.Sum(totals...)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	lines := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		cp := *l
		cp.AddOns = append([]LineAddOn(nil), l.AddOns...)
		lines = append(lines, cp)
	}
	return lines
}

func normalizeAddOns(item *menu.MenuItem, addOns []pricing.AddOnSelection) ([]pricing.AddOnSelection, error) {
	quantities := make(map[uuid.UUID]int)
	for _, s := range addOns {
		if _, ok := item.FindAddOn(s.AddOn.ID); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAddOn, s.AddOn.ID)
		}
		if s.Quantity < 1 {
			continue
		}
		quantities[s.AddOn.ID] += s.Quantity
	}

	selected := make([]pricing.AddOnSelection, 0, len(quantities))
	for id, qty := range quantities {
		addOn, _ := item.FindAddOn(id)
		selected = append(selected, pricing.AddOnSelection{AddOn: addOn, Quantity: qty})
	}
	sortSelections(selected)
	return selected, nil
}

func sortSelections(s []pricing.AddOnSelection) {
	sort.Slice(s, func(i, j int) bool {
		return s[i].AddOn.ID.String() < s[j].AddOn.ID.String()
	})
}

// identityKey renders menuItemID|variationID|addOnID:qty,... with add-ons in
// id order so equal configurations always produce equal keys.
func identityKey(itemID uuid.UUID, variation *menu.Variation, selected []pricing.AddOnSelection) string {
	variationPart := "-"
	if variation != nil {
		variationPart = variation.ID.String()
	}

	parts := make([]string, 0, len(selected))
	for _, s := range selected {
		parts = append(parts, fmt.Sprintf("%s:%d", s.AddOn.ID, s.Quantity))
	}

	return itemID.String() + "|" + variationPart + "|" + strings.Join(parts, ",")
}
