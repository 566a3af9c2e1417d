package auditlog

import (
	"context"

	"fdu/internal/portal/domain"
)

// Metadata describes who ran a command and what it touched.
type Metadata struct {
	Account  string
	DomainID string
	Domain   string

	RecordType string
	RecordName string
	Target     string

	// Args is the raw command line. It is redacted before it is stored.
	Args []string
}

// ForDomain returns metadata naming d.
func ForDomain(account string, d domain.Domain) Metadata {
	return Metadata{Account: account, DomainID: d.ID, Domain: d.Name}
}

// ForRecord returns metadata naming rec and, when attached, its domain.
func ForRecord(account string, rec domain.Record) Metadata {
	meta := Metadata{
		Account:    account,
		RecordType: rec.Type.String(),
		RecordName: rec.Name,
		Target:     rec.Target,
	}
	if rec.Domain != nil {
		meta.DomainID = rec.Domain.ID
		meta.Domain = rec.Domain.Name
	}
	return meta
}

type metadataKey struct{}

// WithMetadata attaches audit metadata to a context, merged over what is
// already attached: empty fields and a nil Args keep the outer values.
func WithMetadata(ctx context.Context, meta Metadata) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	outer := MetadataFromContext(ctx)
	meta.Account = or(meta.Account, outer.Account)
	meta.DomainID = or(meta.DomainID, outer.DomainID)
	meta.Domain = or(meta.Domain, outer.Domain)
	meta.RecordType = or(meta.RecordType, outer.RecordType)
	meta.RecordName = or(meta.RecordName, outer.RecordName)
	meta.Target = or(meta.Target, outer.Target)
	if meta.Args == nil {
		meta.Args = outer.Args
	}
	return context.WithValue(ctx, metadataKey{}, meta)
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// MetadataFromContext returns audit metadata stored in the context.
func MetadataFromContext(ctx context.Context) Metadata {
	if ctx == nil {
		return Metadata{}
	}
	meta, _ := ctx.Value(metadataKey{}).(Metadata)
	return meta
}
