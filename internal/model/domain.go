package model

import (
	"encoding/json"
	"fmt"
)

// Domain is one of the four vault categories. Each domain doubles as a
// generation-input slot.
type Domain uint8

// The zero Domain is invalid so that an unset field is detectable.
const (
	DomainX Domain = iota + 1 // identity
	DomainY                   // environment
	DomainZ                   // style
	DomainL                   // light
)

// DefaultDomain is applied to records stored without a domain.
const DefaultDomain = DomainX

// Domains lists every domain in display order.
var Domains = [...]Domain{DomainX, DomainY, DomainZ, DomainL}

// ParseDomain maps the wire code ("X", "Y", "Z", "L") to a Domain.
func ParseDomain(s string) (Domain, error) {
	switch s {
	case "X":
		return DomainX, nil
	case "Y":
		return DomainY, nil
	case "Z":
		return DomainZ, nil
	case "L":
		return DomainL, nil
	}
	return 0, fmt.Errorf("unknown vault domain %q", s)
}

// String returns the wire code of d.
func (d Domain) String() string {
	switch d {
	case DomainX:
		return "X"
	case DomainY:
		return "Y"
	case DomainZ:
		return "Z"
	case DomainL:
		return "L"
	}
	return ""
}

// Label is the human-facing slot name.
func (d Domain) Label() string {
	switch d {
	case DomainX:
		return "Identity"
	case DomainY:
		return "Env"
	case DomainZ:
		return "Style"
	case DomainL:
		return "Light"
	}
	return ""
}

// Valid reports whether d is one of the four domains.
func (d Domain) Valid() bool {
	return d >= DomainX && d <= DomainL
}

func (d Domain) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a domain code or null. null and "" leave the zero
// value so that normalization can apply the default.
func (d *Domain) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("vault domain: %w", err)
	}
	if s == nil || *s == "" {
		*d = 0
		return nil
	}
	v, err := ParseDomain(*s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalText lets Domain key JSON objects, e.g. per-domain weights.
func (d Domain) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid vault domain %d", d)
	}
	return []byte(d.String()), nil
}

func (d *Domain) UnmarshalText(b []byte) error {
	v, err := ParseDomain(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// DomainFilter selects records for listing. The zero value matches all domains.
type DomainFilter struct {
	Domain Domain
}

// FilterAll matches every record.
var FilterAll = DomainFilter{}

// FilterFor matches records tagged with d.
func FilterFor(d Domain) DomainFilter {
	return DomainFilter{Domain: d}
}

// ParseDomainFilter accepts "", "ALL" or a domain code.
func ParseDomainFilter(s string) (DomainFilter, error) {
	if s == "" || s == "ALL" {
		return FilterAll, nil
	}
	d, err := ParseDomain(s)
	if err != nil {
		return FilterAll, err
	}
	return FilterFor(d), nil
}

// Matches reports whether a record tagged d passes the filter.
func (f DomainFilter) Matches(d Domain) bool {
	return !f.Domain.Valid() || f.Domain == d
}

func (f DomainFilter) String() string {
	if !f.Domain.Valid() {
		return "ALL"
	}
	return f.Domain.String()
}
