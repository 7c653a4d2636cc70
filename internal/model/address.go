package model

import "strings"

// AddressQuery is a postal address split into its optional components.
type AddressQuery struct {
	Street     string `json:"street,omitempty" yaml:"street,omitempty"`
	City       string `json:"city,omitempty" yaml:"city,omitempty"`
	State      string `json:"state,omitempty" yaml:"state,omitempty"`
	PostalCode string `json:"zip,omitempty" yaml:"zip,omitempty"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (a AddressQuery) Trimmed() AddressQuery {
	return AddressQuery{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
	}
}

// IsEmpty reports whether every component is blank.
func (a AddressQuery) IsEmpty() bool {
	t := a.Trimmed()
	return t.Street == "" && t.City == "" && t.State == "" && t.PostalCode == ""
}

// HasLocality reports whether any of city, state or postal code is set.
func (a AddressQuery) HasLocality() bool {
	t := a.Trimmed()
	return t.City != "" || t.State != "" || t.PostalCode != ""
}

// Freeform joins the non-blank components as "street, city, state, zip".
func (a AddressQuery) Freeform() string {
	t := a.Trimmed()
	parts := make([]string, 0, 4)
	for _, p := range []string{t.Street, t.City, t.State, t.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
