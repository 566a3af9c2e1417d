// Package domain holds the entities shared by the portal client, the HTML
// parsers and the reconciler: owned domains, DNS records and the error
// taxonomy returned when the portal rejects an operation.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Date layouts accepted in the domain table, tried in order.
var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// Domain is a domain registered in the portal account.
type Domain struct {
	// ID is the provider-assigned identifier (numeric string in practice).
	ID string `json:"id" yaml:"id"`

	// Name is the lower-cased fully-qualified domain name.
	Name string `json:"name" yaml:"name"`

	// RegisterDate and ExpireDate are calendar dates at UTC midnight.
	RegisterDate time.Time `json:"register" yaml:"register"`
	ExpireDate   time.Time `json:"expire" yaml:"expire"`

	// State and Type are shown verbatim from the portal (e.g. "Active", "Free").
	State string `json:"state" yaml:"state"`
	Type  string `json:"type" yaml:"type"`
}

// Equal reports whether every field of d and o matches.
func (d Domain) Equal(o Domain) bool {
	return d.ID == o.ID &&
		d.Name == o.Name &&
		d.RegisterDate.Equal(o.RegisterDate) &&
		d.ExpireDate.Equal(o.ExpireDate) &&
		d.State == o.State &&
		d.Type == o.Type
}

func (d Domain) String() string {
	return fmt.Sprintf("Domain(%s)", d.Name)
}

// NormalizeName lower-cases and trims a domain name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ParseDate parses a portal date in YYYY-MM-DD or DD/MM/YYYY form.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// CalendarDate truncates t to midnight UTC of its local calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntilExpiry returns the number of calendar days between now and the
// expiry date. Negative values mean the domain already expired.
func (d Domain) DaysUntilExpiry(now time.Time) int {
	return int(CalendarDate(d.ExpireDate).Sub(CalendarDate(now)).Hours() / 24)
}

// FindDomain returns the domain matching both id and name.
func FindDomain(domains []Domain, id, name string) (*Domain, bool) {
	for i := range domains {
		if domains[i].ID == id && domains[i].Name == name {
			return &domains[i], true
		}
	}
	return nil, false
}

// FindDomainByName returns the domain with the given (normalised) name.
func FindDomainByName(domains []Domain, name string) (*Domain, bool) {
	name = NormalizeName(name)
	for i := range domains {
		if domains[i].Name == name {
			return &domains[i], true
		}
	}
	return nil, false
}
