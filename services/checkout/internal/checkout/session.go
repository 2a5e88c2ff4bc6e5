// Package checkout drives a customer from a filled cart to the chat
// hand-off: details, payment, then either the mobile confirmation screen or
// a desktop redirect.
package checkout

import (
	"errors"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/chatorder/services/checkout/internal/cart"
	"github.com/appetiteclub/chatorder/services/checkout/internal/clipboard"
	"github.com/appetiteclub/chatorder/services/checkout/internal/handoff"
	"github.com/appetiteclub/chatorder/services/checkout/internal/menu"
	"github.com/appetiteclub/chatorder/services/checkout/internal/order"
	"github.com/appetiteclub/chatorder/services/checkout/internal/transcript"
)

var (
	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrInvalidTransition  = errors.New("checkout step does not allow this action")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrSessionNotFound    = errors.New("checkout session not found")
)

const (
	DefaultPersistTimeout = 10 * time.Second
	UnspecifiedPayment    = "Not specified"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Store          order.Store
	Events         *order.EventPublisher
	Payments       menu.PaymentMethods
	Handoff        *handoff.Strategy
	Clipboard      *clipboard.Chain
	Transcript     transcript.Options
	PersistTimeout time.Duration
	Logger         apt.Logger
}

func (d *Deps) withDefaults() *Deps {
	cp := *d
	if cp.Logger == nil {
		cp.Logger = apt.NewNoopLogger()
	}
	if cp.Handoff == nil {
		cp.Handoff = handoff.NewStrategy(handoff.Config{}, cp.Logger)
	}
	if cp.Clipboard == nil {
		cp.Clipboard = clipboard.NewDefaultChain(cp.Logger)
	}
	if cp.PersistTimeout <= 0 {
		cp.PersistTimeout = DefaultPersistTimeout
	}
	return &cp
}

// Session is one customer's checkout. All methods are safe for concurrent
// use; the lock is never held across I/O.
type Session struct {
	mu         sync.Mutex
	id         uuid.UUID
	cart       *cart.Cart
	details    Details
	payment    *menu.PaymentMethod
	step       Step
	placing    bool
	lastActive time.Time
	result     *Result
	deps       *Deps
}

func newSession(deps *Deps, now time.Time) *Session {
	return &Session{
		id:         uuid.New(),
		cart:       cart.New(),
		details:    NewDetails(),
		step:       StepDetails,
		lastActive: now,
		deps:       deps,
	}
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Result is what the device needs to finish the hand-off.
type Result struct {
	Platform   handoff.Platform  `json:"platform"`
	OrderID    uuid.UUID         `json:"order_id"`
	Persisted  bool              `json:"persisted"`
	Transcript string            `json:"transcript"`
	Links      handoff.Links     `json:"links"`
	Clipboard  *clipboard.Result `json:"clipboard,omitempty"`
}

// View is a read-only snapshot of a session.
type View struct {
	ID            uuid.UUID           `json:"id"`
	Step          Step                `json:"step"`
	CanProceed    bool                `json:"can_proceed"`
	Lines         []cart.Line         `json:"lines"`
	TotalItems    int                 `json:"total_items"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	Details       Details             `json:"details"`
	PaymentMethod *menu.PaymentMethod `json:"payment_method,omitempty"`
	Submitting    bool                `json:"submitting"`
	Confirmation  *Result             `json:"confirmation,omitempty"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		ID:           s.id,
		Step:         s.step,
		CanProceed:   s.canMoveLocked(StepPayment),
		Lines:        s.cart.Lines(),
		TotalItems:   s.cart.TotalItems(),
		TotalPrice:   s.cart.TotalPrice(),
		Details:      s.details,
		Submitting:   s.placing,
		Confirmation: s.result,
	}
	if s.payment != nil {
		pm := *s.payment
		v.PaymentMethod = &pm
	}
	return v
}

// Cart

func (s *Session) AddSelection(sel *cart.Selection, quantity int) (*cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return nil, err
	}
	return s.cart.AddSelection(sel, quantity)
}

func (s *Session) SetLineQuantity(lineID uuid.UUID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	return s.cart.SetQuantity(lineID, quantity)
}

func (s *Session) RemoveLine(lineID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	return s.cart.Remove(lineID)
}

func (s *Session) ClearCart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.cart.Clear()
	return nil
}

func (s *Session) editableLocked() error {
	if s.placing {
		return ErrSubmissionInFlight
	}
	if s.step.Terminal() {
		return ErrInvalidTransition
	}
	return nil
}

// Form

// UpdateDetails replaces the customer form. Only allowed in the details step.
func (s *Session) UpdateDetails(d Details) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepDetails {
		return ErrInvalidTransition
	}
	d.ContactNumber = NormalizeContact(d.ContactNumber)
	if d.PartySize < 1 {
		d.PartySize = 1
	}
	if d.PickupWindow == "" {
		d.PickupWindow = PickupWindows[0]
	}
	s.details = d
	return nil
}

func (s *Session) SelectPayment(pm menu.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.placing {
		return ErrSubmissionInFlight
	}
	if s.step.Terminal() {
		return ErrInvalidTransition
	}
	s.payment = &pm
	return nil
}

// Navigation

// Proceed moves from details to payment when the form is complete. It
// reports whether the session moved.
func (s *Session) Proceed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.placing {
		return false
	}
	return s.moveLocked(StepPayment)
}

// Back returns from payment to details.
func (s *Session) Back() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.placing || s.step != StepPayment {
		return false
	}
	return s.moveLocked(StepDetails)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.placing && now.Sub(s.lastActive) > ttl
}
