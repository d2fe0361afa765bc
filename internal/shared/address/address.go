// Package address holds the postal locality shared by products, orders and shipments.
package address

import (
	"errors"
	"strings"
)

var ErrIncomplete = errors.New("address requires province, city, district and detail")

// Address is a mainland-style postal locality.
type Address struct {
	Province string
	City     string
	District string
	Detail   string
}

// Normalize trims every component.
func (a Address) Normalize() Address {
	return Address{
		Province: strings.TrimSpace(a.Province),
		City:     strings.TrimSpace(a.City),
		District: strings.TrimSpace(a.District),
		Detail:   strings.TrimSpace(a.Detail),
	}
}

// Validate reports ErrIncomplete when any component is blank.
func (a Address) Validate() error {
	n := a.Normalize()
	if n.Province == "" || n.City == "" || n.District == "" || n.Detail == "" {
		return ErrIncomplete
	}
	return nil
}

// Locality renders province, city and district without the street detail.
func (a Address) Locality() string {
	return strings.Join(nonEmpty(a.Province, a.City, a.District), " ")
}

func (a Address) String() string {
	return strings.Join(nonEmpty(a.Province, a.City, a.District, a.Detail), " ")
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
