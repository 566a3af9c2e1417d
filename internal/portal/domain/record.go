package domain

import (
	"fmt"
	"strings"
)

// DefaultTTL is the TTL used when none is specified.
const DefaultTTL = 14440

// RecordKey identifies a record logically within a domain. Two records with
// the same key are the same record with possibly different ttl/target.
type RecordKey struct {
	Name string
	Type RecordType
}

// Record is a single DNS record as shown by, or submitted to, the portal.
type Record struct {
	// Name is the upper-cased subdomain label. Empty means the apex.
	Name string `json:"name" yaml:"name"`

	// Type must always be set.
	Type RecordType `json:"type" yaml:"type"`

	// TTL is in seconds.
	TTL int `json:"ttl" yaml:"ttl"`

	// Target is the record payload: an IP literal, a hostname, text, or
	// "auto" before reconciliation.
	Target string `json:"target" yaml:"target"`

	// Domain is the owning domain. Parsed records have none until the
	// caller attaches one.
	Domain *Domain `json:"-" yaml:"-"`
}

// NewRecord builds a record with a normalised name.
func NewRecord(name string, t RecordType, ttl int, target string) Record {
	return Record{
		Name:   NormalizeRecordName(name),
		Type:   t,
		TTL:    ttl,
		Target: target,
	}
}

// NormalizeRecordName trims and upper-cases a record label.
func NormalizeRecordName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Key returns the (name, type) matching key.
func (r Record) Key() RecordKey {
	return RecordKey{Name: r.Name, Type: r.Type}
}

// Equal reports whether name, type, ttl, target and domain all match.
func (r Record) Equal(o Record) bool {
	if r.Name != o.Name || r.Type != o.Type || r.TTL != o.TTL || r.Target != o.Target {
		return false
	}
	switch {
	case r.Domain == nil && o.Domain == nil:
		return true
	case r.Domain == nil || o.Domain == nil:
		return false
	default:
		return r.Domain.Equal(*o.Domain)
	}
}

// Validate checks the record's own fields.
func (r Record) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("record %q: %w", r.Name, ErrUnsetType)
	}
	if r.TTL <= 0 {
		return fmt.Errorf("record %q: ttl must be positive, got %d", r.Name, r.TTL)
	}
	return nil
}

// ValidateForPortal checks that the record can be submitted: its own fields
// are valid and it carries a resolved domain.
func (r Record) ValidateForPortal() error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Domain == nil || r.Domain.ID == "" || r.Domain.Name == "" {
		return fmt.Errorf("record %q: %w", r.Name, ErrDomainRequired)
	}
	return nil
}

func (r Record) String() string {
	return fmt.Sprintf("Record(%s, %s -> %s)", r.Name, r.Type, r.Target)
}

// WithDomain returns a copy of r attached to d.
func (r Record) WithDomain(d *Domain) Record {
	r.Domain = d
	return r
}

// FindRecord returns the first record whose key matches.
func FindRecord(records []Record, key RecordKey) (*Record, bool) {
	for i := range records {
		if records[i].Key() == key {
			return &records[i], true
		}
	}
	return nil, false
}
