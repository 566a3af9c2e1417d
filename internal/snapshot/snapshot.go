package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"fdu/internal/portal/domain"
)

// Snapshot is the record table of one domain as it was right before a
// mutation. Restoring it resubmits the whole table.
type Snapshot struct {
	// ID is the auto-increment primary key (assigned on insert).
	ID int64 `json:"id" yaml:"id"`

	// Account is the portal login that owns the domain.
	Account string `json:"account" yaml:"account"`

	DomainID   string `json:"domain_id" yaml:"domain_id"`
	DomainName string `json:"domain_name" yaml:"domain_name"`

	// Reason names the mutation that triggered the snapshot, e.g. "upsert"
	// or "rollback to 12".
	Reason string `json:"reason" yaml:"reason"`

	Records []domain.Record `json:"records" yaml:"records"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// storedRecord is the persisted form of a record. The domain is implied by
// the snapshot row.
type storedRecord struct {
	Name   string            `json:"name"`
	Type   domain.RecordType `json:"type"`
	TTL    int               `json:"ttl"`
	Target string            `json:"target"`
}

func encodeRecords(records []domain.Record) (string, error) {
	stored := make([]storedRecord, len(records))
	for i, r := range records {
		stored[i] = storedRecord{Name: r.Name, Type: r.Type, TTL: r.TTL, Target: r.Target}
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("snapshots: failed to encode records: %w", err)
	}
	return string(data), nil
}

func decodeRecords(data string, d *domain.Domain) ([]domain.Record, error) {
	var stored []storedRecord
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("snapshots: failed to decode records: %w", err)
	}
	records := make([]domain.Record, len(stored))
	for i, s := range stored {
		records[i] = domain.Record{Name: s.Name, Type: s.Type, TTL: s.TTL, Target: s.Target, Domain: d}
	}
	return records, nil
}

// Domain returns the placeholder domain the snapshot's records belong to.
func (s *Snapshot) Domain() *domain.Domain {
	return &domain.Domain{ID: s.DomainID, Name: s.DomainName}
}
