package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/chatorder/services/checkout/internal/menu"
)

func TestUnitPrice(t *testing.T) {
	discount := decimal.NewFromInt(120)
	item := &menu.MenuItem{
		ID:            uuid.New(),
		Name:          "Ham Stack",
		BasePrice:     decimal.NewFromInt(130),
		DiscountPrice: &discount,
		IsOnDiscount:  true,
	}
	full := &menu.Variation{ID: uuid.New(), Name: "FULL", Price: decimal.NewFromInt(150)}
	cheese := menu.AddOn{ID: uuid.New(), Name: "Extra Cheese", Price: decimal.NewFromInt(20)}
	egg := menu.AddOn{ID: uuid.New(), Name: "Egg", Price: decimal.RequireFromString("15.50")}

	tests := []struct {
		name       string
		variation  *menu.Variation
		selections []AddOnSelection
		want       string
	}{
		{
			name: "effectivePriceWithoutConfiguration",
			want: "120",
		},
		{
			name:      "variationReplacesDiscount",
			variation: full,
			want:      "150",
		},
		{
			name:       "variationPlusAddOnQuantities",
			variation:  full,
			selections: []AddOnSelection{{AddOn: cheese, Quantity: 2}, {AddOn: egg, Quantity: 1}},
			want:       "205.5",
		},
		{
			name:       "zeroQuantityIsNotASelection",
			selections: []AddOnSelection{{AddOn: cheese, Quantity: 0}},
			want:       "120",
		},
		{
			name:       "negativeQuantityIgnored",
			selections: []AddOnSelection{{AddOn: cheese, Quantity: -3}},
			want:       "120",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnitPrice(item, tt.variation, tt.selections)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("UnitPrice() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUnitPriceIgnoresBasePriceWithVariation(t *testing.T) {
	variation := &menu.Variation{ID: uuid.New(), Price: decimal.NewFromInt(99)}
	addOn := menu.AddOn{ID: uuid.New(), Price: decimal.NewFromInt(10)}

	for _, base := range []int64{0, 50, 1000} {
		item := &menu.MenuItem{BasePrice: decimal.NewFromInt(base)}
		got := UnitPrice(item, variation, []AddOnSelection{{AddOn: addOn, Quantity: 2}})
		if !got.Equal(decimal.NewFromInt(119)) {
			t.Errorf("base %d: UnitPrice() = %s, want 119", base, got)
		}
	}
}

func TestLineTotal(t *testing.T) {
	unit := decimal.RequireFromString("0.10")

	if got := LineTotal(unit, 3); !got.Equal(decimal.RequireFromString("0.30")) {
		t.Errorf("LineTotal() = %s, want 0.30", got)
	}
	if got := LineTotal(unit, 0); !got.IsZero() {
		t.Errorf("LineTotal() with zero quantity = %s, want 0", got)
	}
}

func TestSum(t *testing.T) {
	if got := Sum(); !got.IsZero() {
		t.Errorf("Sum() = %s, want 0", got)
	}
	got := Sum(decimal.RequireFromString("0.1"), decimal.RequireFromString("0.2"))
	if got.String() != "0.3" {
		t.Errorf("Sum() = %s, want 0.3", got)
	}
}
