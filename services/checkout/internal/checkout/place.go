package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/appetiteclub/chatorder/pkg/enums/servicetype"
	"github.com/appetiteclub/chatorder/services/checkout/internal/cart"
	"github.com/appetiteclub/chatorder/services/checkout/internal/clipboard"
	"github.com/appetiteclub/chatorder/services/checkout/internal/handoff"
	"github.com/appetiteclub/chatorder/services/checkout/internal/menu"
	"github.com/appetiteclub/chatorder/services/checkout/internal/order"
	"github.com/appetiteclub/chatorder/services/checkout/internal/transcript"
)

// submission is the state captured when PlaceOrder starts.
type submission struct {
	details Details
	payment *menu.PaymentMethod
	lines   []cart.Line
	total   decimal.Decimal
}

// PlaceOrder submits the order. Only one submission runs at a time; a
// concurrent call returns ErrSubmissionInFlight without doing anything.
// Persistence is best-effort and never blocks the hand-off. On mobile the
// session moves to the confirmation step; on desktop it is closed and the
// caller navigates the browser to Result.Links.Web. Either way a later
// call returns ErrInvalidTransition.
func (s *Session) PlaceOrder(ctx context.Context, platform handoff.Platform, env clipboard.Environment) (*Result, error) {
	sub, err := s.beginSubmission()
	if err != nil {
		return nil, err
	}
	defer s.endSubmission()

	deps := s.deps
	log := deps.Logger.With("session_id", s.id.String(), "platform", string(platform))

	if sub.payment == nil {
		sub.payment = s.defaultPayment(ctx)
	}

	o, items := buildOrder(sub)

	persisted := s.persist(ctx, o, items)
	if persisted {
		deps.Events.Placed(ctx, o, len(items), string(platform))
	}

	text := transcript.Build(deps.Transcript, transcriptHeader(o, sub.details), transcriptLines(items))

	res := &Result{
		Platform:   platform,
		OrderID:    o.ID,
		Persisted:  persisted,
		Transcript: text,
		Links:      deps.Handoff.Links(platform, text),
	}

	if platform == handoff.PlatformMobile {
		cr := deps.Clipboard.Copy(ctx, env, text)
		res.Clipboard = &cr

		s.mu.Lock()
		s.moveLocked(StepConfirmation)
		s.result = res
		s.mu.Unlock()
	} else {
		s.mu.Lock()
		s.moveLocked(StepHandedOff)
		s.mu.Unlock()
	}

	log.Info("order handed off", "order_id", o.ID.String(), "persisted", persisted)
	return res, nil
}

func (s *Session) beginSubmission() (submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.placing {
		return submission{}, ErrSubmissionInFlight
	}
	if s.step != StepPayment {
		return submission{}, ErrInvalidTransition
	}
	if s.cart.IsEmpty() {
		return submission{}, ErrEmptyCart
	}

	s.placing = true

	sub := submission{
		details: s.details,
		lines:   s.cart.Lines(),
		total:   s.cart.TotalPrice(),
	}
	if s.payment != nil {
		pm := *s.payment
		sub.payment = &pm
	}
	return sub, nil
}

func (s *Session) endSubmission() {
	s.mu.Lock()
	s.placing = false
	s.mu.Unlock()
}

// persist writes the order under a context detached from the caller so a
// dropped client connection cannot abort a half-done write.
func (s *Session) persist(ctx context.Context, o *order.Order, items []*order.OrderItem) bool {
	deps := s.deps
	if deps.Store == nil {
		return false
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deps.PersistTimeout)
	defer cancel()

	if err := deps.Store.CreateWithItems(writeCtx, o, items); err != nil {
		deps.Logger.Error("cannot save order, continuing with hand-off", "error", err, "order_id", o.ID.String())
		return false
	}
	return true
}

func (s *Session) defaultPayment(ctx context.Context) *menu.PaymentMethod {
	if s.deps.Payments == nil {
		return nil
	}
	methods, err := s.deps.Payments.ListActive(ctx)
	if err != nil {
		s.deps.Logger.Error("cannot load payment methods", "error", err)
		return nil
	}
	if len(methods) == 0 {
		return nil
	}
	menu.SortPaymentMethods(methods)
	return &methods[0]
}

func buildOrder(sub submission) (*order.Order, []*order.OrderItem) {
	d := sub.details

	o := order.NewOrder()
	o.CustomerName = d.CustomerName
	o.ContactNumber = d.ContactNumber
	o.ApplyService(d.ServiceType, order.ServiceFields{
		Address:       d.Address,
		Landmark:      d.Landmark,
		PartySize:     d.PartySize,
		PreferredTime: d.DineInTime,
		PickupWindow:  d.PickupTimeText(),
	})
	o.PaymentMethod = UnspecifiedPayment
	if sub.payment != nil {
		o.PaymentMethod = sub.payment.Name
	}
	o.SetNotes(d.Notes)
	o.Total = sub.total
	o.BeforeCreate()

	items := make([]*order.OrderItem, 0, len(sub.lines))
	for _, l := range sub.lines {
		item := order.NewOrderItem(o.ID)
		item.ItemName = l.Name
		if l.Variation != nil {
			item.SetVariation(l.Variation.Name, l.Variation.Code)
		}
		for _, a := range l.AddOns {
			item.AddOns = append(item.AddOns, order.AddOnLine{Name: a.Name, Quantity: a.Quantity})
		}
		item.SetPricing(l.UnitPrice, l.Quantity)
		item.BeforeCreate()
		items = append(items, item)
	}

	return o, items
}

func transcriptHeader(o *order.Order, d Details) transcript.Header {
	h := transcript.Header{
		CustomerName:  o.CustomerName,
		ContactNumber: o.ContactNumber,
		ServiceType:   d.ServiceType,
		PaymentMethod: o.PaymentMethod,
		Total:         o.Total,
	}
	if o.Notes != nil {
		h.Notes = *o.Notes
	}

	switch d.ServiceType {
	case servicetype.Types.Delivery:
		h.Address = deref(o.Address)
		h.Landmark = deref(o.Landmark)
	case servicetype.Types.Pickup:
		h.PickupTime = deref(o.PickupWindow)
	case servicetype.Types.DineIn:
		if o.PartySize != nil {
			h.PartySize = *o.PartySize
		}
		h.PreferredTime = d.PreferredTimeText()
	}
	return h
}

func transcriptLines(items []*order.OrderItem) []transcript.Line {
	lines := make([]transcript.Line, 0, len(items))
	for _, it := range items {
		l := transcript.Line{
			Name:     it.ItemName,
			Quantity: it.Quantity,
			Total:    it.LineTotal,
		}
		if it.VariationName != nil {
			l.Variation = *it.VariationName
		}
		for _, a := range it.AddOns {
			l.AddOns = append(l.AddOns, transcript.AddOn{Name: a.Name, Quantity: a.Quantity})
		}
		lines = append(lines, l)
	}
	return lines
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
