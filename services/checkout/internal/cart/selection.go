package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/chatorder/services/checkout/internal/menu"
	"github.com/appetiteclub/chatorder/services/checkout/internal/pricing"
)

// Selection is the customization of a menu item before it is added to the
// cart.
type Selection struct {
	item       *menu.MenuItem
	variation  *menu.Variation
	quantities map[uuid.UUID]int
}

func NewSelection(item *menu.MenuItem) (*Selection, error) {
	if item == nil || !item.Available {
		return nil, ErrItemUnavailable
	}
	return &Selection{
		item:       item,
		quantities: make(map[uuid.UUID]int),
	}, nil
}

// SetVariation picks a variation. uuid.Nil clears it.
func (s *Selection) SetVariation(id uuid.UUID) error {
	if id == uuid.Nil {
		s.variation = nil
		return nil
	}
	v, ok := s.item.FindVariation(id)
	if !ok {
		return ErrUnknownVariation
	}
	s.variation = &v
	return nil
}

// SetAddOnQuantity sets how many units of an add-on are selected. Zero
// removes the add-on from the selection.
func (s *Selection) SetAddOnQuantity(id uuid.UUID, quantity int) error {
	if _, ok := s.item.FindAddOn(id); !ok {
		return ErrUnknownAddOn
	}
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if quantity == 0 {
		delete(s.quantities, id)
		return nil
	}
	s.quantities[id] = quantity
	return nil
}

func (s *Selection) Variation() *menu.Variation {
	return s.variation
}

func (s *Selection) Quantities() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(s.quantities))
	for id, q := range s.quantities {
		out[id] = q
	}
	return out
}

func (s *Selection) AddOnSelections() []pricing.AddOnSelection {
	selected := make([]pricing.AddOnSelection, 0, len(s.quantities))
	for id, q := range s.quantities {
		addOn, _ := s.item.FindAddOn(id)
		selected = append(selected, pricing.AddOnSelection{AddOn: addOn, Quantity: q})
	}
	sortSelections(selected)
	return selected
}

func (s *Selection) UnitPrice() decimal.Decimal {
	return pricing.UnitPrice(s.item, s.variation, s.AddOnSelections())
}
