package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/chatorder/pkg"
	"github.com/appetiteclub/chatorder/pkg/enums/servicetype"
	"github.com/appetiteclub/chatorder/services/checkout/internal/cart"
	"github.com/appetiteclub/chatorder/services/checkout/internal/clipboard"
	"github.com/appetiteclub/chatorder/services/checkout/internal/handoff"
	"github.com/appetiteclub/chatorder/services/checkout/internal/order"
	"github.com/appetiteclub/chatorder/services/checkout/internal/transcript"
)

func deliveryDetails() Details {
	d := NewDetails()
	d.CustomerName = "Ana Cruz"
	d.ContactNumber = "0917-123-4567"
	d.ServiceType = servicetype.Types.Delivery
	d.Address = "12 Mabini St"
	d.Landmark = "Near the church"
	return d
}

func newTestManager(store order.Store, f fixture, chain *clipboard.Chain) *Manager {
	return NewManager(Deps{
		Store:     store,
		Events:    order.NewEventPublisher(NewMockPublisher(), nil),
		Payments:  f.payments,
		Clipboard: chain,
		Logger:    apt.NewNoopLogger(),
	}, time.Hour)
}

// readySession returns a session in the payment step holding one Ham Stack
// (FULL) with two Extra Cheese.
func readySession(t *testing.T, m *Manager, f fixture, d Details) *Session {
	t.Helper()
	s := m.Create()

	sel, err := cart.NewSelection(f.item)
	if err != nil {
		t.Fatal(err)
	}
	_ = sel.SetVariation(f.full.ID)
	_ = sel.SetAddOnQuantity(f.cheese.ID, 2)
	if _, err := s.AddSelection(sel, 1); err != nil {
		t.Fatalf("add selection: %v", err)
	}

	if err := s.UpdateDetails(d); err != nil {
		t.Fatalf("update details: %v", err)
	}
	if !s.Proceed() {
		t.Fatal("expected to reach payment step")
	}
	return s
}

func TestDetailsGuard(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Details)
		want   bool
	}{
		{name: "completeDineIn", mutate: func(d *Details) { d.ServiceType = servicetype.Types.DineIn }, want: true},
		{name: "completeDelivery", mutate: func(d *Details) {}, want: true},
		{name: "missingName", mutate: func(d *Details) { d.CustomerName = "" }, want: false},
		{name: "blankName", mutate: func(d *Details) { d.CustomerName = "   " }, want: false},
		{name: "missingContact", mutate: func(d *Details) { d.ContactNumber = "" }, want: false},
		{name: "deliveryWithoutAddress", mutate: func(d *Details) { d.Address = "" }, want: false},
		{name: "pickupWithoutAddress", mutate: func(d *Details) {
			d.ServiceType = servicetype.Types.Pickup
			d.Address = ""
		}, want: true},
		{name: "pickupCustomWithoutTime", mutate: func(d *Details) {
			d.ServiceType = servicetype.Types.Pickup
			d.PickupWindow = PickupCustom
		}, want: false},
		{name: "pickupCustomWithTime", mutate: func(d *Details) {
			d.ServiceType = servicetype.Types.Pickup
			d.PickupWindow = PickupCustom
			d.CustomTime = "6:30 PM"
		}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := deliveryDetails()
			tt.mutate(&d)
			if got := d.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionProceedIsNoOpWhenIncomplete(t *testing.T) {
	f := newFixture()
	m := newTestManager(NewMockStore(), f, nil)
	s := m.Create()

	if s.Proceed() {
		t.Fatal("expected proceed to be refused")
	}
	v := s.View()
	if v.Step != StepDetails || v.CanProceed {
		t.Errorf("expected details step with can_proceed false, got %s %v", v.Step, v.CanProceed)
	}

	_ = s.UpdateDetails(deliveryDetails())
	if !s.View().CanProceed {
		t.Error("expected can_proceed once the form is complete")
	}
}

func TestSessionTransitions(t *testing.T) {
	f := newFixture()
	m := newTestManager(NewMockStore(), f, nil)
	s := readySession(t, m, f, deliveryDetails())

	if err := s.UpdateDetails(deliveryDetails()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected details locked in payment step, got %v", err)
	}
	if s.Proceed() {
		t.Error("payment has no forward edge through Proceed")
	}
	if !s.Back() {
		t.Fatal("expected back to details")
	}
	if s.Back() {
		t.Error("expected back from details to be refused")
	}
	if s.View().Step != StepDetails {
		t.Errorf("expected details step, got %s", s.View().Step)
	}
}

func TestSessionUpdateDetailsNormalizes(t *testing.T) {
	f := newFixture()
	m := newTestManager(NewMockStore(), f, nil)
	s := m.Create()

	d := deliveryDetails()
	d.ContactNumber = "+63 917 123 4567 ext 9"
	d.PartySize = 0
	_ = s.UpdateDetails(d)

	got := s.View().Details
	if got.ContactNumber != "63917123456" {
		t.Errorf("unexpected contact %q", got.ContactNumber)
	}
	if got.PartySize != 1 {
		t.Errorf("expected party size 1, got %d", got.PartySize)
	}
}

func TestPlaceOrderPreconditions(t *testing.T) {
	f := newFixture()
	store := NewMockStore()
	m := newTestManager(store, f, nil)

	s := m.Create()
	if _, err := s.PlaceOrder(context.Background(), handoff.PlatformMobile, clipboard.Environment{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from details step, got %v", err)
	}

	s = readySession(t, m, f, deliveryDetails())
	_ = s.ClearCart()
	if _, err := s.PlaceOrder(context.Background(), handoff.PlatformMobile, clipboard.Environment{}); !errors.Is(err, ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got %v", err)
	}

	if store.Calls() != 0 {
		t.Errorf("expected no persistence, got %d calls", store.Calls())
	}
}

func TestPlaceOrderMobile(t *testing.T) {
	f := newFixture()
	store := NewMockStore()
	pub := NewMockPublisher()
	m := NewManager(Deps{
		Store:    store,
		Events:   order.NewEventPublisher(pub, nil),
		Payments: f.payments,
	}, time.Hour)
	s := readySession(t, m, f, deliveryDetails())

	res, err := s.PlaceOrder(context.Background(), handoff.PlatformMobile, clipboard.Environment{SecureContext: true, AsyncClipboard: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(res.Transcript, "Ham Stack (FULL) + Extra Cheese x2 ×1 - ₱190.00") {
		t.Errorf("unexpected transcript:\n%s", res.Transcript)
	}
	if !strings.Contains(res.Transcript, "💰 TOTAL: ₱190.00") {
		t.Errorf("expected grand total in transcript:\n%s", res.Transcript)
	}
	if !strings.HasPrefix(res.Links.Web, "https://m.me/") || res.Links.App == "" {
		t.Errorf("unexpected links %+v", res.Links)
	}
	if res.Clipboard == nil || res.Clipboard.Outcome != clipboard.OutcomeSuccess {
		t.Errorf("unexpected clipboard result %+v", res.Clipboard)
	}
	if !res.Persisted {
		t.Error("expected order persisted")
	}

	v := s.View()
	if v.Step != StepConfirmation || v.Confirmation == nil || v.Submitting {
		t.Errorf("expected confirmation step with released lock, got %s submitting=%v", v.Step, v.Submitting)
	}

	if len(pub.Published) != 1 {
		t.Fatalf("expected one order.placed event, got %d", len(pub.Published))
	}
	var evt pkg.OrderPlacedEvent
	_ = json.Unmarshal(pub.Published[0], &evt)
	if evt.EventType != pkg.EventOrderPlaced || evt.ItemCount != 1 || evt.Total != "190.00" {
		t.Errorf("unexpected event %+v", evt)
	}

	if _, err := s.PlaceOrder(context.Background(), handoff.PlatformMobile, clipboard.Environment{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected confirmed session to refuse another submission, got %v", err)
	}
	if store.Calls() != 1 {
		t.Errorf("expected exactly one persistence call, got %d", store.Calls())
	}
}

func TestPlaceOrderPersistedFields(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name    string
		details func() Details
		check   func(t *testing.T, o *order.Order)
	}{
		{
			name: "pickupClearsDeliveryFields",
			details: func() Details {
				d := deliveryDetails()
				d.ServiceType = servicetype.Types.Pickup
				d.PickupWindow = "15-20"
				d.PartySize = 6
				return d
			},
			check: func(t *testing.T, o *order.Order) {
				if o.Address != nil || o.Landmark != nil {
					t.Errorf("pickup order must not carry address or landmark: %v %v", o.Address, o.Landmark)
				}
				if o.PartySize != nil {
					t.Errorf("pickup order must not carry party size")
				}
				if o.PickupWindow == nil || *o.PickupWindow != "15-20 minutes" {
					t.Errorf("unexpected pickup window %v", o.PickupWindow)
				}
			},
		},
		{
			name: "deliveryClearsPartySize",
			details: func() Details {
				d := deliveryDetails()
				d.PartySize = 4
				d.DineInTime = "2026-10-19T19:30"
				return d
			},
			check: func(t *testing.T, o *order.Order) {
				if o.PartySize != nil || o.PreferredTime != nil || o.PickupWindow != nil {
					t.Errorf("delivery order carries stale fields: %+v", o)
				}
				if o.Address == nil || *o.Address != "12 Mabini St" {
					t.Errorf("unexpected address %v", o.Address)
				}
			},
		},
		{
			name: "dineInKeepsPartyAndTime",
			details: func() Details {
				d := deliveryDetails()
				d.ServiceType = servicetype.Types.DineIn
				d.PartySize = 3
				d.DineInTime = "2026-10-19T19:30"
				return d
			},
			check: func(t *testing.T, o *order.Order) {
				if o.Address != nil || o.Landmark != nil || o.PickupWindow != nil {
					t.Errorf("dine-in order carries stale fields: %+v", o)
				}
				if o.PartySize == nil || *o.PartySize != 3 {
					t.Errorf("unexpected party size %v", o.PartySize)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMockStore()
			m := newTestManager(store, f, nil)
			s := readySession(t, m, f, tt.details())

			if _, err := s.PlaceOrder(context.Background(), handoff.PlatformDesktop, clipboard.Environment{}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store.Calls() != 1 {
				t.Fatalf("expected one persistence call, got %d", store.Calls())
			}
			tt.check(t, store.Created[0])
		})
	}
}

func TestPlaceOrderItemsSnapshot(t *testing.T) {
	f := newFixture()
	store := NewMockStore()
	m := newTestManager(store, f, nil)
	s := readySession(t, m, f, deliveryDetails())

	if _, err := s.PlaceOrder(context.Background(), handoff.PlatformDesktop, clipboard.Environment{}); err != nil {
		t.Fatal(err)
	}

	o := store.Created[0]
	items := store.Items[o.ID]
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	it := items[0]
	if it.OrderID != o.ID || it.ItemName != "Ham Stack" {
		t.Errorf("unexpected item %+v", it)
	}
	if it.VariationLabel == nil || *it.VariationLabel != "[HS-F] FULL" {
		t.Errorf("unexpected variation label %v", it.VariationLabel)
	}
	if len(it.AddOns) != 1 || it.AddOns[0].Quantity != 2 {
		t.Errorf("unexpected add-ons %+v", it.AddOns)
	}
	if !it.LineTotal.Equal(decimal.NewFromInt(190)) || !o.Total.Equal(decimal.NewFromInt(190)) {
		t.Errorf("unexpected totals: line %s order %s", it.LineTotal, o.Total)
	}
	if o.PaymentMethod != "GCash" {
		t.Errorf("expected first active payment method by default, got %s", o.PaymentMethod)
	}
	if o.Status != "pending" {
		t.Errorf("expected pending status, got %s", o.Status)
	}
}

func TestPlaceOrderSelectedPayment(t *testing.T) {
	f := newFixture()
	store := NewMockStore()
	m := newTestManager(store, f, nil)
	s := readySession(t, m, f, deliveryDetails())

	if err := s.SelectPayment(f.maya); err != nil {
		t.Fatal(err)
	}
	res, err := s.PlaceOrder(context.Background(), handoff.PlatformDesktop, clipboard.Environment{})
	if err != nil {
		t.Fatal(err)
	}
	if store.Created[0].PaymentMethod != "Maya" || !strings.Contains(res.Transcript, "💳 Payment: Maya") {
		t.Errorf("expected selected payment method, got %s", store.Created[0].PaymentMethod)
	}
}

func TestPlaceOrderPersistenceFailureStillHandsOff(t *testing.T) {
	f := newFixture()
	store := NewMockStore()
	store.CreateWithItemsFunc = func(ctx context.Context, o *order.Order, items []*order.OrderItem) error {
		return errors.New("database unavailable")
	}
	pub := NewMockPublisher()
	m := NewManager(Deps{Store: store, Events: order.NewEventPublisher(pub, nil), Payments: f.payments}, time.Hour)
	s := readySession(t, m, f, deliveryDetails())

	res, err := s.PlaceOrder(context.Background(), handoff.PlatformMobile, clipboard.Environment{})
	if err != nil {
		t.Fatalf("persistence failures must not surface: %v", err)
	}
	if res.Persisted {
		t.Error("expected persisted false")
	}
	if res.Transcript == "" || res.Links.Web == "" {
		t.Error("expected hand-off despite persistence failure")
	}
	if len(pub.Published) != 0 {
		t.Error("expected no order.placed event for an unsaved order")
	}
	if s.View().Step != StepConfirmation {
		t.Errorf("expected confirmation step, got %s", s.View().Step)
	}
}

func TestPlaceOrderPersistenceIgnoresClientCancellation(t *testing.T) {
	f := newFixture()
	store := NewMockStore()
	var writeErr error
	store.CreateWithItemsFunc = func(ctx context.Context, o *order.Order, items []*order.OrderItem) error {
		writeErr = ctx.Err()
		return nil
	}
	m := newTestManager(store, f, nil)
	s := readySession(t, m, f, deliveryDetails())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.PlaceOrder(ctx, handoff.PlatformDesktop, clipboard.Environment{})
	if err != nil {
		t.Fatal(err)
	}
	if writeErr != nil || !res.Persisted {
		t.Errorf("expected write context detached from the request, got %v", writeErr)
	}
}

func TestPlaceOrderSingleFlight(t *testing.T) {
	f := newFixture()
	store := NewMockStore()

	started := make(chan struct{})
	release := make(chan struct{})
	store.CreateWithItemsFunc = func(ctx context.Context, o *order.Order, items []*order.OrderItem) error {
		close(started)
		<-release
		return nil
	}

	m := newTestManager(store, f, nil)
	s := readySession(t, m, f, deliveryDetails())

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = s.PlaceOrder(context.Background(), handoff.PlatformMobile, clipboard.Environment{})
	}()

	<-started

	if _, err := s.PlaceOrder(context.Background(), handoff.PlatformMobile, clipboard.Environment{}); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("expected ErrSubmissionInFlight, got %v", err)
	}
	if !s.View().Submitting {
		t.Error("expected session to report the submission in flight")
	}
	if s.Back() {
		t.Error("expected navigation blocked while submitting")
	}
	if err := s.ClearCart(); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("expected cart locked while submitting, got %v", err)
	}

	close(release)
	wg.Wait()

	if firstErr != nil {
		t.Fatalf("first submission failed: %v", firstErr)
	}
	if store.Calls() != 1 {
		t.Errorf("expected exactly one persistence call, got %d", store.Calls())
	}
	if s.View().Submitting {
		t.Error("expected lock released after the submission")
	}
}

func TestPlaceOrderLockReleasedOnDesktop(t *testing.T) {
	f := newFixture()
	store := NewMockStore()
	m := newTestManager(store, f, nil)
	s := readySession(t, m, f, deliveryDetails())

	res, err := s.PlaceOrder(context.Background(), handoff.PlatformDesktop, clipboard.Environment{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Clipboard != nil {
		t.Error("desktop hand-off does not stage the clipboard")
	}
	if !strings.HasPrefix(res.Links.Web, "https://www.messenger.com/t/") || res.Links.App != "" {
		t.Errorf("unexpected desktop links %+v", res.Links)
	}
	v := s.View()
	if v.Submitting || v.Step != StepHandedOff || v.Confirmation != nil {
		t.Errorf("expected released lock and handed-off step, got %s submitting=%v", v.Step, v.Submitting)
	}
}

func TestPlaceOrderDesktopClosesSession(t *testing.T) {
	f := newFixture()
	store := NewMockStore()
	m := newTestManager(store, f, nil)
	s := readySession(t, m, f, deliveryDetails())

	if _, err := s.PlaceOrder(context.Background(), handoff.PlatformDesktop, clipboard.Environment{}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		call func() error
	}{
		{name: "placeDesktopAgain", call: func() error {
			_, err := s.PlaceOrder(context.Background(), handoff.PlatformDesktop, clipboard.Environment{})
			return err
		}},
		{name: "placeMobileAfterDesktop", call: func() error {
			_, err := s.PlaceOrder(context.Background(), handoff.PlatformMobile, clipboard.Environment{})
			return err
		}},
		{name: "clearCart", call: s.ClearCart},
		{name: "selectPayment", call: func() error { return s.SelectPayment(f.maya) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}

	if s.Back() {
		t.Error("expected no way back from a handed-off session")
	}
	if store.Calls() != 1 {
		t.Errorf("expected one persistence call, got %d", store.Calls())
	}
}

func TestPlaceOrderClipboardFallsBackToPrompt(t *testing.T) {
	f := newFixture()
	store := NewMockStore()
	reject := clipboard.WriterFunc(func(context.Context, string) error {
		return errors.New("NotAllowedError")
	})
	var prompted string
	chain := clipboard.NewChain(nil,
		clipboard.SecureWriter{Writer: reject},
		clipboard.CopyCommand{Writer: reject},
		clipboard.Prompt{Presenter: clipboard.WriterFunc(func(_ context.Context, text string) error {
			prompted = text
			return nil
		})},
	)
	m := newTestManager(store, f, chain)
	s := readySession(t, m, f, deliveryDetails())

	res, err := s.PlaceOrder(context.Background(), handoff.PlatformMobile,
		clipboard.Environment{SecureContext: true, AsyncClipboard: true, CopyCommand: true})
	if err != nil {
		t.Fatal(err)
	}

	if res.Clipboard.Outcome != clipboard.OutcomePrompt {
		t.Fatalf("expected prompt, got %s", res.Clipboard.Outcome)
	}

	o := store.Created[0]
	want := transcript.Build(transcript.Options{}, transcriptHeader(o, readyDetails(s)), transcriptLines(store.Items[o.ID]))
	if prompted != want || res.Clipboard.Text != want || res.Transcript != want {
		t.Errorf("prompted text must equal the transcript\nprompted:\n%s\nwant:\n%s", prompted, want)
	}
}

func readyDetails(s *Session) Details {
	return s.View().Details
}

func TestPreferredTimeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "2026-10-19T19:30", want: "Monday, October 19, 2026 at 07:30 PM"},
		{in: "tonight", want: "tonight"},
		{in: "", want: "Not specified"},
	}
	for _, tt := range tests {
		d := Details{DineInTime: tt.in}
		if got := d.PreferredTimeText(); got != tt.want {
			t.Errorf("PreferredTimeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPickupTimeText(t *testing.T) {
	if got := (Details{PickupWindow: "25-30"}).PickupTimeText(); got != "25-30 minutes" {
		t.Errorf("got %q", got)
	}
	if got := (Details{PickupWindow: PickupCustom, CustomTime: " 6:30 PM "}).PickupTimeText(); got != "6:30 PM" {
		t.Errorf("got %q", got)
	}
}

func TestNormalizeContact(t *testing.T) {
	tests := map[string]string{
		"09171234567":      "09171234567",
		"0917-123-4567":    "09171234567",
		"0917 123 4567 99": "09171234567",
		"abc":              "",
	}
	for in, want := range tests {
		if got := NormalizeContact(in); got != want {
			t.Errorf("NormalizeContact(%q) = %q, want %q", in, got, want)
		}
	}
}
