// Package reconcile turns desired record specifications into concrete
// records, filling "auto" targets from the caller's current public
// addresses, and binds them to the domains the account owns.
package reconcile

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"fdu/internal/portal/domain"
)

// AutoTarget asks for the record target to be filled with a current address.
const AutoTarget = "auto"

var (
	// ErrInvalidSpec indicates a specification that cannot describe a record.
	ErrInvalidSpec = errors.New("invalid record spec")

	// ErrConflict indicates an IP literal target that contradicts the type.
	ErrConflict = errors.New("target conflicts with record type")

	// ErrMissingIP indicates an auto target without the needed address.
	ErrMissingIP = errors.New("current ip address unavailable")
)

// SpecError reports which specification failed to expand.
type SpecError struct {
	Index  int
	Domain string
	Err    error
}

func (e *SpecError) Error() string {
	if e.Domain == "" {
		return fmt.Sprintf("record spec #%d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("record spec #%d (%s): %v", e.Index, e.Domain, e.Err)
}

func (e *SpecError) Unwrap() error { return e.Err }

// Spec is a desired record as written in configuration. Nil fields were
// not given.
type Spec struct {
	Domain string
	Name   *string
	Type   any // anything domain.ParseRecordType accepts
	Target *string
	TTL    *int
}

// IPs is a snapshot of the caller's public addresses. An invalid (zero)
// address means unavailable.
type IPs struct {
	V4 netip.Addr `json:"v4"`
	V6 netip.Addr `json:"v6"`
}

// Equal reports whether both snapshots hold the same addresses.
func (ips IPs) Equal(o IPs) bool {
	return ips.V4 == o.V4 && ips.V6 == o.V6
}

// NeedsIP reports whether expanding specs may consult the current
// addresses, i.e. some spec has no explicit target or an auto one.
func NeedsIP(specs []Spec) bool {
	for _, s := range specs {
		if s.Target == nil || strings.TrimSpace(*s.Target) == AutoTarget {
			return true
		}
	}
	return false
}

// Expand resolves every spec into one or more records. The output order
// follows the input, and a spec without type and target yields its A record
// before the AAAA sibling. Records carry a placeholder domain holding only
// the name; use Attach to bind the owned domain.
func Expand(specs []Spec, ips IPs) ([]domain.Record, error) {
	var records []domain.Record
	for i, s := range specs {
		expanded, err := expand(s, ips)
		if err != nil {
			return nil, &SpecError{Index: i, Domain: domain.NormalizeName(s.Domain), Err: err}
		}
		records = append(records, expanded...)
	}
	return records, nil
}

func expand(s Spec, ips IPs) ([]domain.Record, error) {
	name := domain.NormalizeName(s.Domain)
	if name == "" {
		return nil, fmt.Errorf("%w: empty domain name", ErrInvalidSpec)
	}

	rec := domain.Record{TTL: domain.DefaultTTL, Domain: &domain.Domain{Name: name}}

	if s.Name != nil {
		rec.Name = domain.NormalizeRecordName(*s.Name)
		if rec.Name == "" {
			return nil, fmt.Errorf("%w: empty record name", ErrInvalidSpec)
		}
	}

	typed := s.Type != nil
	if typed {
		rt, err := domain.ParseRecordType(s.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		rec.Type = rt
	}

	if s.TTL != nil {
		if *s.TTL <= 0 {
			return nil, fmt.Errorf("%w: ttl must be positive, got %d", ErrInvalidSpec, *s.TTL)
		}
		rec.TTL = *s.TTL
	}

	target := ""
	if s.Target != nil {
		target = strings.TrimSpace(*s.Target)
	}

	if s.Target != nil && target != AutoTarget {
		rec.Target = target
		if err := inferFromLiteral(&rec, typed); err != nil {
			return nil, err
		}
		// Only IP literals imply a type; a hostname never defaults to A.
		if !rec.Type.Valid() {
			return nil, fmt.Errorf("%w: type required for target %q", ErrInvalidSpec, target)
		}
		return []domain.Record{rec}, nil
	}

	if typed {
		switch rec.Type {
		case domain.RecordTypeA:
			if !ips.V4.IsValid() {
				return nil, fmt.Errorf("%w: ipv4 needed for A record", ErrMissingIP)
			}
			rec.Target = ips.V4.String()
		case domain.RecordTypeAAAA:
			if !ips.V6.IsValid() {
				return nil, fmt.Errorf("%w: ipv6 needed for AAAA record", ErrMissingIP)
			}
			rec.Target = ips.V6.String()
		default:
			return nil, fmt.Errorf("%w: %s record needs an explicit target", ErrInvalidSpec, rec.Type)
		}
		return []domain.Record{rec}, nil
	}

	if !ips.V4.IsValid() {
		return nil, fmt.Errorf("%w: ipv4 needed for auto record", ErrMissingIP)
	}
	rec.Type = domain.RecordTypeA
	rec.Target = ips.V4.String()
	if !ips.V6.IsValid() {
		return []domain.Record{rec}, nil
	}
	sibling := rec
	sibling.Type = domain.RecordTypeAAAA
	sibling.Target = ips.V6.String()
	return []domain.Record{rec, sibling}, nil
}

// inferFromLiteral checks an IP literal target against the type, or infers
// the type when none was given. Non-IP targets are left alone.
func inferFromLiteral(rec *domain.Record, typed bool) error {
	addr, err := netip.ParseAddr(rec.Target)
	if err != nil {
		return nil
	}
	switch {
	case addr.Is4():
		if !typed {
			rec.Type = domain.RecordTypeA
		} else if rec.Type == domain.RecordTypeAAAA {
			return fmt.Errorf("%w: ipv4 %s for AAAA record", ErrConflict, rec.Target)
		}
	default:
		if !typed {
			rec.Type = domain.RecordTypeAAAA
		} else if rec.Type == domain.RecordTypeA {
			return fmt.Errorf("%w: ipv6 %s for A record", ErrConflict, rec.Target)
		}
	}
	return nil
}

// Attach binds every record to the owned domain of the same name. Records
// whose domain is not owned are left out and their domain names returned,
// deduplicated, in first-seen order.
func Attach(records []domain.Record, owned []domain.Domain) (attached []domain.Record, missing []string) {
	seen := make(map[string]bool)
	for _, rec := range records {
		if rec.Domain == nil {
			continue
		}
		d, ok := domain.FindDomainByName(owned, rec.Domain.Name)
		if !ok {
			if !seen[rec.Domain.Name] {
				seen[rec.Domain.Name] = true
				missing = append(missing, rec.Domain.Name)
			}
			continue
		}
		attached = append(attached, rec.WithDomain(d))
	}
	return attached, missing
}
