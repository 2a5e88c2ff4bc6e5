package mongo

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/chatorder/pkg/enums/servicetype"
	"github.com/appetiteclub/chatorder/services/checkout/internal/menu"
	"github.com/appetiteclub/chatorder/services/checkout/internal/order"
)

func TestOrderDocumentKeepsNullFields(t *testing.T) {
	o := order.NewOrder()
	o.CustomerName = "Ana Cruz"
	o.ContactNumber = "09171234567"
	o.ApplyService(servicetype.Types.Pickup, order.ServiceFields{PickupWindow: "15-20 minutes"})
	o.Total = decimal.RequireFromString("190.50")
	o.BeforeCreate()

	doc, err := toOrderDocument(o)
	if err != nil {
		t.Fatalf("toOrderDocument() error = %v", err)
	}
	if doc.Address != nil || doc.PartySize != nil || doc.PreferredTime != nil {
		t.Errorf("expected non-pickup fields to stay nil: %+v", doc)
	}
	if doc.Total.String() != "190.5" {
		t.Errorf("expected total 190.5, got %s", doc.Total.String())
	}

	got, err := fromOrderDocument(doc)
	if err != nil {
		t.Fatalf("fromOrderDocument() error = %v", err)
	}
	if got.ID != o.ID || !got.Total.Equal(o.Total) {
		t.Errorf("unexpected order %+v", got)
	}
	if got.PickupWindow == nil || *got.PickupWindow != "15-20 minutes" {
		t.Errorf("expected pickup window kept, got %v", got.PickupWindow)
	}
}

func TestOrderDocumentRejectsBadID(t *testing.T) {
	if _, err := fromOrderDocument(orderDocument{ID: "not-a-uuid"}); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestOrderItemDocument(t *testing.T) {
	orderID := uuid.New()
	it := order.NewOrderItem(orderID)
	it.ItemName = "Ham Stack"
	it.SetVariation("FULL", "HS-F")
	it.AddOns = []order.AddOnLine{{Name: "Extra Cheese", Quantity: 2}}
	it.SetPricing(decimal.NewFromInt(190), 2)
	it.CreatedAt = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	doc, err := toOrderItemDocument(it, 3)
	if err != nil {
		t.Fatalf("toOrderItemDocument() error = %v", err)
	}
	if doc.Position != 3 || doc.OrderID != orderID.String() {
		t.Errorf("unexpected document %+v", doc)
	}

	got, err := fromOrderItemDocument(doc)
	if err != nil {
		t.Fatalf("fromOrderItemDocument() error = %v", err)
	}
	if got.VariationLabel == nil || *got.VariationLabel != "[HS-F] FULL" {
		t.Errorf("unexpected variation label %v", got.VariationLabel)
	}
	if !got.LineTotal.Equal(decimal.NewFromInt(380)) || !got.UnitPrice.Equal(decimal.NewFromInt(190)) {
		t.Errorf("unexpected pricing unit=%s line=%s", got.UnitPrice, got.LineTotal)
	}
	if len(got.AddOns) != 1 || got.AddOns[0].Quantity != 2 {
		t.Errorf("unexpected add-ons %v", got.AddOns)
	}
}

func TestMenuItemDocument(t *testing.T) {
	for _, item := range DemoMenu() {
		doc, err := toMenuItemDocument(item)
		if err != nil {
			t.Fatalf("toMenuItemDocument(%s) error = %v", item.Name, err)
		}
		got, err := fromMenuItemDocument(doc)
		if err != nil {
			t.Fatalf("fromMenuItemDocument(%s) error = %v", item.Name, err)
		}
		if got.ID != item.ID || len(got.Variations) != len(item.Variations) || len(got.AddOns) != len(item.AddOns) {
			t.Errorf("%s: unexpected item %+v", item.Name, got)
		}
		if !got.EffectivePrice().Equal(item.EffectivePrice()) {
			t.Errorf("%s: effective price %s, want %s", item.Name, got.EffectivePrice(), item.EffectivePrice())
		}
	}
}

func TestDemoPaymentMethodsOrder(t *testing.T) {
	var active []menu.PaymentMethod
	for _, pm := range DemoPaymentMethods() {
		if pm.Active {
			active = append(active, fromPaymentMethodDocument(paymentMethodDocument(pm)))
		}
	}
	menu.SortPaymentMethods(active)

	if len(active) == 0 || active[0].Name != "GCash" {
		t.Errorf("expected GCash first, got %v", active)
	}
}
