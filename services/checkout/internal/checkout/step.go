package checkout

import (
	"encoding/json"
	"fmt"
)

// Step is the position of a session in the checkout flow.
type Step int

const (
	StepDetails Step = iota
	StepPayment
	StepConfirmation
	StepHandedOff
)

func (s Step) String() string {
	switch s {
	case StepDetails:
		return "details"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	case StepHandedOff:
		return "handed_off"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

type edge struct {
	from Step
	to   Step
}

// guard reports whether an edge may be taken. Guards never fail loudly; a
// false result leaves the session where it is.
type guard func(*Session) bool

// transitions lists every legal edge. Payment to Confirmation and Payment to
// HandedOff are only taken inside PlaceOrder. Both are terminal.
var transitions = map[edge]guard{
	{StepDetails, StepPayment}:      func(s *Session) bool { return s.details.Complete() },
	{StepPayment, StepDetails}:      func(*Session) bool { return true },
	{StepPayment, StepConfirmation}: func(*Session) bool { return true },
	{StepPayment, StepHandedOff}:    func(*Session) bool { return true },
}

// Terminal reports whether the session has already been handed off.
func (s Step) Terminal() bool {
	return s == StepConfirmation || s == StepHandedOff
}

// canMoveLocked must be called with s.mu held.
func (s *Session) canMoveLocked(to Step) bool {
	g, ok := transitions[edge{s.step, to}]
	if !ok {
		return false
	}
	return g(s)
}

// moveLocked must be called with s.mu held.
func (s *Session) moveLocked(to Step) bool {
	if !s.canMoveLocked(to) {
		return false
	}
	s.step = to
	return true
}
