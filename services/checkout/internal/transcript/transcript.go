// Package transcript renders the human-readable order summary sent to the
// chat channel and shown as an on-screen backup.
package transcript

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/appetiteclub/chatorder/pkg/enums/servicetype"
)

const (
	DefaultStoreName      = "Daniel's"
	DefaultCurrencySymbol = "₱"
)

type Options struct {
	StoreName      string
	CurrencySymbol string
}

// Header carries the order fields already derived for the chosen service
// type. Fields that do not apply to the service type are ignored.
type Header struct {
	CustomerName  string
	ContactNumber string
	ServiceType   servicetype.Type
	Address       string
	Landmark      string
	PickupTime    string
	PartySize     int
	PreferredTime string
	PaymentMethod string
	Notes         string
	Total         decimal.Decimal
}

type AddOn struct {
	Name     string
	Quantity int
}

type Line struct {
	Name      string
	Variation string
	AddOns    []AddOn
	Quantity  int
	Total     decimal.Decimal
}

// Build renders the transcript. Equal inputs always produce equal output.
func Build(opts Options, h Header, lines []Line) string {
	opts = withDefaults(opts)
	money := func(d decimal.Decimal) string {
		return opts.CurrencySymbol + d.StringFixed(2)
	}

	var sections [][]string

	sections = append(sections, []string{fmt.Sprintf("🛒 %s ORDER", opts.StoreName)})

	customer := []string{
		"👤 Customer: " + h.CustomerName,
		"📞 Contact: " + h.ContactNumber,
		"📍 Service: " + h.ServiceType.Label(),
	}
	customer = append(customer, serviceLines(h)...)
	sections = append(sections, customer)

	details := []string{"📋 ORDER DETAILS:"}
	for _, l := range lines {
		details = append(details, ItemLine(l, opts.CurrencySymbol))
	}
	sections = append(sections, details)

	total := []string{"💰 TOTAL: " + money(h.Total)}
	if h.ServiceType == servicetype.Types.Delivery {
		total = append(total, "🛵 DELIVERY FEE: to follow")
	}
	sections = append(sections, total)

	sections = append(sections, []string{
		"💳 Payment: " + h.PaymentMethod,
		"📸 Payment Screenshot: Please attach your payment receipt screenshot",
	})

	if notes := strings.TrimSpace(h.Notes); notes != "" {
		sections = append(sections, []string{"📝 Notes: " + notes})
	}

	sections = append(sections, []string{
		fmt.Sprintf("Please confirm this order to proceed. Thank you for choosing %s! ☕", opts.StoreName),
	})

	blocks := make([]string, 0, len(sections))
	for _, s := range sections {
		blocks = append(blocks, strings.Join(s, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// ItemLine renders one order line as
// "name (variation) + addOn xN, addOn ×quantity - <symbol>total".
func ItemLine(l Line, currencySymbol string) string {
	if currencySymbol == "" {
		currencySymbol = DefaultCurrencySymbol
	}

	var b strings.Builder
	b.WriteString(l.Name)
	if l.Variation != "" {
		b.WriteString(" (" + l.Variation + ")")
	}

	if len(l.AddOns) > 0 {
		names := make([]string, 0, len(l.AddOns))
		for _, a := range l.AddOns {
			if a.Quantity > 1 {
				names = append(names, fmt.Sprintf("%s x%d", a.Name, a.Quantity))
				continue
			}
			names = append(names, a.Name)
		}
		b.WriteString(" + " + strings.Join(names, ", "))
	}

	fmt.Fprintf(&b, " ×%d - %s%s", l.Quantity, currencySymbol, l.Total.StringFixed(2))
	return b.String()
}

func serviceLines(h Header) []string {
	switch h.ServiceType {
	case servicetype.Types.Delivery:
		out := []string{"🏠 Address: " + h.Address}
		if h.Landmark != "" {
			out = append(out, "🗺️ Landmark: "+h.Landmark)
		}
		return out
	case servicetype.Types.Pickup:
		return []string{"⏰ Pickup Time: " + h.PickupTime}
	case servicetype.Types.DineIn:
		return []string{
			"👥 Party Size: " + PartySizeText(h.PartySize),
			"🕐 Preferred Time: " + h.PreferredTime,
		}
	}
	return nil
}

func PartySizeText(n int) string {
	if n == 1 {
		return "1 person"
	}
	return fmt.Sprintf("%d persons", n)
}

func withDefaults(opts Options) Options {
	if opts.StoreName == "" {
		opts.StoreName = DefaultStoreName
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = DefaultCurrencySymbol
	}
	return opts
}
