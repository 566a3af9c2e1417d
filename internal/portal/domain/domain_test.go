package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func testDomain() Domain {
	return Domain{
		ID:           "1065251102",
		Name:         "domain.tk",
		RegisterDate: time.Date(2016, 2, 9, 0, 0, 0, 0, time.UTC),
		ExpireDate:   time.Date(2017, 2, 9, 0, 0, 0, 0, time.UTC),
		State:        "Active",
		Type:         "Free",
	}
}

func TestParseRecordType(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  RecordType
	}{
		{"upper string", "AAAA", RecordTypeAAAA},
		{"lower padded string", "  cname ", RecordTypeCNAME},
		{"int ordinal", 8, RecordTypeTXT},
		{"int64 ordinal", int64(1), RecordTypeA},
		{"typed value", RecordTypeMX, RecordTypeMX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecordType(tt.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseRecordType(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseRecordType_Invalid(t *testing.T) {
	for _, value := range []any{"SRV", "", 0, 9, RecordType(0), 1.5, nil} {
		if _, err := ParseRecordType(value); err == nil {
			t.Errorf("ParseRecordType(%v): expected error, got nil", value)
		}
	}
}

func TestRecordType_TextRoundTrip(t *testing.T) {
	var rt RecordType
	if err := rt.UnmarshalText([]byte("naptr")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	text, err := rt.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(text) != "NAPTR" {
		t.Errorf("MarshalText = %q, want NAPTR", text)
	}

	if _, err := RecordType(0).MarshalText(); !errors.Is(err, ErrUnsetType) {
		t.Errorf("expected ErrUnsetType for zero type, got %v", err)
	}
}

func TestParseDate_BothLayouts(t *testing.T) {
	want := time.Date(2016, 2, 9, 0, 0, 0, 0, time.UTC)
	for _, input := range []string{"2016-02-09", "09/02/2016", " 2016-02-09\n"} {
		got, err := ParseDate(input)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", input, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := ParseDate("Feb 9 2016"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestDomain_Equal(t *testing.T) {
	a := testDomain()
	b := testDomain()
	if !a.Equal(b) {
		t.Fatal("expected identical domains to be equal")
	}

	b.State = "Expired"
	if a.Equal(b) {
		t.Error("expected domains with different state to differ")
	}
}

func TestDomain_DaysUntilExpiry(t *testing.T) {
	d := testDomain()
	now := time.Date(2017, 1, 27, 23, 59, 0, 0, time.UTC)
	if got := d.DaysUntilExpiry(now); got != 13 {
		t.Errorf("DaysUntilExpiry = %d, want 13", got)
	}
}

func TestRecord_EqualAndKey(t *testing.T) {
	d1 := testDomain()
	d2 := testDomain()
	a := NewRecord(" www ", RecordTypeA, 300, "10.0.0.1").WithDomain(&d1)
	b := NewRecord("WWW", RecordTypeA, 300, "10.0.0.1").WithDomain(&d2)

	if !a.Equal(b) {
		t.Fatal("expected records with identical fields to be equal")
	}
	if a.Key() != b.Key() {
		t.Fatal("expected equal records to share a key")
	}

	variants := map[string]Record{
		"name":   NewRecord("api", RecordTypeA, 300, "10.0.0.1").WithDomain(&d1),
		"type":   NewRecord("www", RecordTypeAAAA, 300, "10.0.0.1").WithDomain(&d1),
		"ttl":    NewRecord("www", RecordTypeA, 600, "10.0.0.1").WithDomain(&d1),
		"target": NewRecord("www", RecordTypeA, 300, "10.0.0.2").WithDomain(&d1),
		"domain": NewRecord("www", RecordTypeA, 300, "10.0.0.1"),
	}
	for field, v := range variants {
		if a.Equal(v) {
			t.Errorf("records differing in %s compared equal", field)
		}
	}

	ttlOnly := variants["ttl"]
	if a.Key() != ttlOnly.Key() {
		t.Error("records differing only in ttl should share a key")
	}
}

func TestRecord_ValidateForPortal(t *testing.T) {
	rec := NewRecord("", RecordTypeA, DefaultTTL, "10.0.0.1")
	if err := rec.ValidateForPortal(); !errors.Is(err, ErrDomainRequired) {
		t.Errorf("expected ErrDomainRequired, got %v", err)
	}

	placeholder := &Domain{Name: "domain.tk"}
	if err := rec.WithDomain(placeholder).ValidateForPortal(); !errors.Is(err, ErrDomainRequired) {
		t.Errorf("expected ErrDomainRequired for domain without id, got %v", err)
	}

	d := testDomain()
	if err := rec.WithDomain(&d).ValidateForPortal(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	unset := Record{Name: "X", TTL: 10, Domain: &d}
	if err := unset.ValidateForPortal(); !errors.Is(err, ErrUnsetType) {
		t.Errorf("expected ErrUnsetType, got %v", err)
	}
}

func TestRecordError_OnlyMessage(t *testing.T) {
	err := &UpdateError{RecordError{Messages: []string{" There were no changes "}}}
	if !err.OnlyMessage("There were no changes") {
		t.Error("expected OnlyMessage to match")
	}

	err.Messages = append(err.Messages, "Invalid value")
	if err.OnlyMessage("There were no changes") {
		t.Error("expected OnlyMessage to fail with a second message")
	}

	var target *UpdateError
	if !errors.As(error(err), &target) {
		t.Error("expected errors.As to match *UpdateError")
	}
}

func TestIsNoChanges(t *testing.T) {
	noop := &UpdateError{RecordError{Messages: []string{NoChangesMessage}}}
	if !IsNoChanges(fmt.Errorf("update: %w", noop)) {
		t.Error("wrapped no-changes error not recognised")
	}
	if IsNoChanges(&UpdateError{RecordError{Messages: []string{NoChangesMessage, "Invalid TTL"}}}) {
		t.Error("mixed messages must not count as no changes")
	}
	if IsNoChanges(&AddError{RecordError{Messages: []string{NoChangesMessage}}}) {
		t.Error("only update errors can be no-ops")
	}
	if IsNoChanges(nil) {
		t.Error("nil is not a no-op error")
	}
}
