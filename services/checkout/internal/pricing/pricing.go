// Package pricing computes frozen unit prices for configured menu items.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/chatorder/services/checkout/internal/menu"
)

// AddOnSelection is an add-on chosen for a line together with how many units
// of it were selected.
type AddOnSelection struct {
	AddOn    menu.AddOn
	Quantity int
}

// UnitPrice returns the price of one unit of item configured with the given
// variation and add-ons. A variation replaces the effective item price; add-ons
// are added once per selected unit.
func UnitPrice(item *menu.MenuItem, variation *menu.Variation, selections []AddOnSelection) decimal.Decimal {
	price := item.EffectivePrice()
	if variation != nil {
		price = variation.Price
	}

	for _, s := range selections {
		if s.Quantity < 1 {
			continue
		}
		price = price.Add(s.AddOn.Price.Mul(decimal.NewFromInt(int64(s.Quantity))))
	}

	return price
}

func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	if quantity < 1 {
		return decimal.Zero
	}
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}

func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
