package output

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"fdu/internal/portal/domain"

	"github.com/google/go-cmp/cmp"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: Text},
		{in: "text", want: Text},
		{in: " Json ", want: JSON},
		{in: "YAML", want: YAML},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func sampleRecords() []domain.Record {
	return []domain.Record{
		domain.NewRecord("", domain.RecordTypeA, 14440, "49.20.57.31"),
		domain.NewRecord("www", domain.RecordTypeAAAA, 3600, "fd2b:1c1b:3641:1cd8::"),
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, JSON, sampleRecords(), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := `[
  {
    "name": "",
    "type": "A",
    "ttl": 14440,
    "target": "49.20.57.31"
  },
  {
    "name": "WWW",
    "type": "AAAA",
    "ttl": 3600,
    "target": "fd2b:1c1b:3641:1cd8::"
  }
]
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("JSON output mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, YAML, sampleRecords()[:1], nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := `- name: ""
  type: A
  ttl: 14440
  target: 49.20.57.31
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("YAML output mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_TextUsesCallback(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Text, sampleRecords(), func(w io.Writer) error {
		return RecordTable(w, sampleRecords())
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"NAME", "TARGET", "@", "WWW", "AAAA", "49.20.57.31"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRecordTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := RecordTable(&buf, nil); err != nil {
		t.Fatalf("RecordTable: %v", err)
	}
	if got := buf.String(); got != "No records found.\n" {
		t.Errorf("got %q", got)
	}
}

func TestDomains(t *testing.T) {
	d := domain.Domain{
		ID:           "1234",
		Name:         "example.tk",
		State:        "Active",
		Type:         "Free",
		RegisterDate: time.Date(2017, 1, 20, 0, 0, 0, 0, time.UTC),
		ExpireDate:   time.Date(2018, 1, 20, 0, 0, 0, 0, time.UTC),
	}
	want := []DomainView{{
		ID:       "1234",
		Name:     "example.tk",
		State:    "Active",
		Type:     "Free",
		Register: "2017-01-20",
		Expire:   "2018-01-20",
	}}
	if diff := cmp.Diff(want, Domains([]domain.Domain{d})); diff != "" {
		t.Errorf("Domains mismatch (-want +got):\n%s", diff)
	}
}
