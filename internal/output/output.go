// Package output renders command results as a text table, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"fdu/internal/portal/domain"

	"go.yaml.in/yaml/v3"
)

// Format selects how a result is printed.
type Format string

const (
	Text Format = "TEXT"
	JSON Format = "JSON"
	YAML Format = "YAML"
)

// Formats lists the accepted format names.
var Formats = []Format{Text, JSON, YAML}

// ParseFormat matches s case-insensitively against Formats. An empty
// string selects Text.
func ParseFormat(s string) (Format, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Text, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format %q (valid: TEXT, JSON, YAML)", s)
}

// Write encodes v as JSON or YAML, or calls text for Text.
func Write(w io.Writer, f Format, v any, text func(w io.Writer) error) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case Text, "":
		return text(w)
	default:
		return fmt.Errorf("unsupported output format %q", f)
	}
}

// DomainView is the printable form of a domain with plain dates.
type DomainView struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	State    string `json:"state" yaml:"state"`
	Type     string `json:"type" yaml:"type"`
	Register string `json:"register" yaml:"register"`
	Expire   string `json:"expire" yaml:"expire"`
}

const dateLayout = "2006-01-02"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// Domains converts domains to their printable form.
func Domains(domains []domain.Domain) []DomainView {
	views := make([]DomainView, 0, len(domains))
	for _, d := range domains {
		views = append(views, DomainView{
			ID:       d.ID,
			Name:     d.Name,
			State:    d.State,
			Type:     d.Type,
			Register: formatDate(d.RegisterDate),
			Expire:   formatDate(d.ExpireDate),
		})
	}
	return views
}

// RecordTable prints records as an aligned table.
func RecordTable(w io.Writer, records []domain.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No records found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tTTL\tTARGET")
	fmt.Fprintln(tw, "----\t----\t---\t------")
	for _, r := range records {
		name := r.Name
		if name == "" {
			name = "@"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", name, r.Type, r.TTL, r.Target)
	}
	return tw.Flush()
}
