package entity

import "strings"

// DefaultState is assumed when a location omits the state.
const DefaultState = "CA"

// LocationInfo selects the jurisdiction whose minimum wage applies.
type LocationInfo struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode,omitempty"`
}

// WithDefaults returns a copy with State defaulted and normalized.
func (l LocationInfo) WithDefaults() LocationInfo {
	l.City = strings.TrimSpace(l.City)
	l.State = strings.ToUpper(strings.TrimSpace(l.State))
	if l.State == "" {
		l.State = DefaultState
	}
	l.ZipCode = strings.TrimSpace(l.ZipCode)
	return l
}
