package checkout

import (
	"strings"
	"time"

	"github.com/appetiteclub/chatorder/pkg/enums/servicetype"
)

const (
	PickupCustom      = "custom"
	MaxContactDigits  = 11
	dineInInputLayout = "2006-01-02T15:04"
	dineInLayout      = "Monday, January 2, 2006 at 03:04 PM"
)

// PickupWindows are the preset pickup windows in minutes.
var PickupWindows = []string{"5-10", "15-20", "25-30", PickupCustom}

func ValidPickupWindow(w string) bool {
	for _, p := range PickupWindows {
		if p == w {
			return true
		}
	}
	return false
}

// Details is the customer form filled in the details step.
type Details struct {
	CustomerName  string           `json:"customer_name"`
	ContactNumber string           `json:"contact_number"`
	ServiceType   servicetype.Type `json:"service_type"`
	Address       string           `json:"address,omitempty"`
	Landmark      string           `json:"landmark,omitempty"`
	PickupWindow  string           `json:"pickup_window,omitempty"`
	CustomTime    string           `json:"custom_time,omitempty"`
	PartySize     int              `json:"party_size,omitempty"`
	DineInTime    string           `json:"dine_in_time,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

func NewDetails() Details {
	return Details{
		ServiceType:  servicetype.Types.DineIn,
		PickupWindow: PickupWindows[0],
		PartySize:    1,
	}
}

// Complete is the guard for leaving the details step.
func (d Details) Complete() bool {
	if strings.TrimSpace(d.CustomerName) == "" || d.ContactNumber == "" {
		return false
	}
	if d.ServiceType == servicetype.Types.Delivery && strings.TrimSpace(d.Address) == "" {
		return false
	}
	if d.ServiceType == servicetype.Types.Pickup && d.PickupWindow == PickupCustom && strings.TrimSpace(d.CustomTime) == "" {
		return false
	}
	return true
}

// PickupTimeText renders the pickup window, e.g. "15-20 minutes", or the
// custom time as typed.
func (d Details) PickupTimeText() string {
	if d.PickupWindow == PickupCustom {
		return strings.TrimSpace(d.CustomTime)
	}
	return d.PickupWindow + " minutes"
}

// PreferredTimeText renders the dine-in time in long form. Values that do
// not parse are shown as typed.
func (d Details) PreferredTimeText() string {
	if d.DineInTime == "" {
		return "Not specified"
	}
	t, err := time.Parse(dineInInputLayout, d.DineInTime)
	if err != nil {
		return d.DineInTime
	}
	return t.Format(dineInLayout)
}

// NormalizeContact keeps digits only, up to MaxContactDigits.
func NormalizeContact(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		if b.Len() == MaxContactDigits {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
