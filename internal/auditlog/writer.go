package auditlog

import (
	"context"
	"time"

	"fdu/internal/database"
)

// OpenDefault opens the repository at the default path, or returns a
// repository that drops every entry when database.DisableEnv is set.
func OpenDefault() (Repository, error) {
	if database.Disabled() {
		return Nop{}, nil
	}
	return Open()
}

// Nop discards entries and lists nothing.
type Nop struct{}

func (Nop) Save(*AuditEntry) error { return nil }
func (Nop) Query(Filter) ([]AuditEntry, error) { return nil, nil }
func (Nop) Prune(time.Duration) (int64, error) { return 0, nil }
func (Nop) Close() error { return nil }

// Write saves a best-effort entry for an operation that started at start.
// The account, domain, record and command line come from the context
// metadata. Save errors are returned for logging but never change the
// outcome of the operation.
func Write(ctx context.Context, repo Repository, command string, start time.Time, outcome string, opErr error) error {
	if repo == nil {
		return nil
	}
	meta := MetadataFromContext(ctx)
	entry := &AuditEntry{
		Timestamp:  start.UTC(),
		Command:    command,
		Args:       CommandLine(meta.Args),
		Account:    meta.Account,
		DomainID:   meta.DomainID,
		Domain:     meta.Domain,
		RecordType: meta.RecordType,
		RecordName: meta.RecordName,
		Target:     meta.Target,
		Outcome:    outcome,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if opErr != nil {
		entry.Outcome = OutcomeError
		entry.Detail = opErr.Error()
	} else if entry.Outcome == "" {
		entry.Outcome = OutcomeSuccess
	}
	return repo.Save(entry)
}
