package auditlog

import "time"

const (
	OutcomeSuccess   = "success"
	OutcomeUnchanged = "unchanged"
	OutcomeError     = "error"
)

// AuditEntry is one portal mutation: who ran it, which domain and record it
// touched and how it ended. Record fields are empty for domain-level
// operations such as renewals.
type AuditEntry struct {
	ID         int64     `json:"id" yaml:"id"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Command    string    `json:"command" yaml:"command"`
	Args       string    `json:"args,omitempty" yaml:"args,omitempty"`
	Account    string    `json:"account,omitempty" yaml:"account,omitempty"`
	DomainID   string    `json:"domain_id,omitempty" yaml:"domain_id,omitempty"`
	Domain     string    `json:"domain,omitempty" yaml:"domain,omitempty"`
	RecordType string    `json:"record_type,omitempty" yaml:"record_type,omitempty"`
	RecordName string    `json:"record_name,omitempty" yaml:"record_name,omitempty"`
	Target     string    `json:"target,omitempty" yaml:"target,omitempty"`
	Outcome    string    `json:"outcome" yaml:"outcome"`
	Detail     string    `json:"detail,omitempty" yaml:"detail,omitempty"`
	DurationMs int64     `json:"duration_ms" yaml:"duration_ms"`
}

// Subject renders the domain and record an entry refers to, e.g.
// "test.tk A WWW -> 10.0.0.1", or "-" when it has none.
func (e AuditEntry) Subject() string {
	if e.Domain == "" && e.DomainID == "" {
		return "-"
	}
	s := e.Domain
	if s == "" {
		s = "#" + e.DomainID
	}
	if e.RecordType != "" {
		name := e.RecordName
		if name == "" {
			name = "@"
		}
		s += " " + e.RecordType + " " + name
	}
	if e.Target != "" {
		s += " -> " + e.Target
	}
	return s
}
