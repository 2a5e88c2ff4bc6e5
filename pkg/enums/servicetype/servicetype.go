package servicetype

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type is how the customer receives the order.
type Type struct {
	Name string
}

func (t Type) Code() string {
	return t.Name
}

// Label capitalizes the first letter only, so "dine-in" reads "Dine-in".
func (t Type) Label() string {
	if len(t.Name) == 0 {
		return ""
	}
	return strings.ToUpper(t.Name[:1]) + t.Name[1:]
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Name)
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	found := ByName(name)
	if found == nil {
		return fmt.Errorf("unknown service type %q", name)
	}
	*t = *found
	return nil
}

type Enum struct {
	DineIn   Type
	Pickup   Type
	Delivery Type
}

var Types = Enum{
	DineIn:   Type{Name: "dine-in"},
	Pickup:   Type{Name: "pickup"},
	Delivery: Type{Name: "delivery"},
}

var All = []Type{
	Types.DineIn,
	Types.Pickup,
	Types.Delivery,
}

// ByName returns the service type for a given name, or nil if not found
func ByName(name string) *Type {
	for _, t := range All {
		if t.Name == name {
			return &t
		}
	}
	return nil
}
