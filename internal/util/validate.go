package util

import (
	"fmt"
	"regexp"
	"strings"
)

// validLabel matches one hostname label: alphanumerics and inner hyphens.
var validLabel = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]*[a-zA-Z0-9])?$`)

// ValidateDomainName checks that name is a registrable hostname following
// RFC 1123:
//   - At least two labels separated by periods
//   - Each label 1 to 63 characters of a-z, A-Z, 0-9 and hyphens
//   - No label starts or ends with a hyphen
//   - At most 253 characters overall
func ValidateDomainName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) > 253 {
		return fmt.Errorf("domain name must be at most 253 characters, got %d", len(name))
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return fmt.Errorf("domain name %q must have at least two labels", name)
	}
	for _, l := range labels {
		if l == "" {
			return fmt.Errorf("domain name %q has an empty label", name)
		}
		if len(l) > 63 {
			return fmt.Errorf("domain name label %q exceeds 63 characters", l)
		}
		if !validLabel.MatchString(l) {
			return fmt.Errorf("domain name label %q contains invalid characters (only a-z, A-Z, 0-9 and inner hyphens are allowed)", l)
		}
	}
	return nil
}

// ValidateRecordName checks a record (sub)name. The empty name denotes the
// zone apex and is valid; "*" and "_" prefixed labels are accepted.
func ValidateRecordName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for _, l := range strings.Split(name, ".") {
		l = strings.TrimPrefix(l, "_")
		if l == "*" {
			continue
		}
		if l == "" || len(l) > 63 || !validLabel.MatchString(l) {
			return fmt.Errorf("record name %q has an invalid label", name)
		}
	}
	return nil
}
