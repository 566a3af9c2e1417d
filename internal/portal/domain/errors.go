package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsetType indicates a record without a valid type.
	ErrUnsetType = errors.New("record type not set")

	// ErrDomainRequired indicates a record was used for a portal operation
	// before an owned domain was attached to it.
	ErrDomainRequired = errors.New("record has no resolved domain")

	// ErrInvalidPeriod indicates a renewal period outside 1..12 months.
	ErrInvalidPeriod = errors.New("renewal period must be between 1 and 12 months")

	// ErrTooManyNameservers indicates more nameservers than the portal has slots for.
	ErrTooManyNameservers = errors.New("too many nameservers")
)

// TransportError reports a request that could not be completed at the
// network level.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NoTokenError reports a page without an anti-forgery token.
type NoTokenError struct {
	URL string
}

func (e *NoTokenError) Error() string {
	if e.URL == "" {
		return "no token on page"
	}
	return fmt.Sprintf("no token on page %s", e.URL)
}

// ParseError reports HTML that lacks the structure the parsers rely on.
// It usually means the portal changed its markup or served another page.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("can't parse %s: %v", e.What, e.Err)
	}
	return fmt.Sprintf("can't parse %s", e.What)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RecordError carries what the portal said about a rejected record
// operation, the record involved, and the record list the operation was
// based on so the caller can retry or roll back.
type RecordError struct {
	Messages []string
	Record   Record
	Prior    []Record
}

func (e RecordError) describe(kind string) string {
	return fmt.Sprintf("%s(msgs=[%s], record=%s, prior=%d records)",
		kind, strings.Join(e.Messages, "; "), e.Record, len(e.Prior))
}

// OnlyMessage reports whether msg is the single message of the error.
func (e RecordError) OnlyMessage(msg string) bool {
	if len(e.Messages) == 0 {
		return false
	}
	for _, m := range e.Messages {
		if strings.TrimSpace(m) != msg {
			return false
		}
	}
	return true
}

// AddError is returned when the portal rejects an add.
type AddError struct{ RecordError }

func (e *AddError) Error() string { return e.describe("AddError") }

// UpdateError is returned when the portal rejects a modify or delete.
type UpdateError struct{ RecordError }

func (e *UpdateError) Error() string { return e.describe("UpdateError") }

// RemoveError is returned when a record to remove is absent or the portal
// does not confirm the removal.
type RemoveError struct{ RecordError }

func (e *RemoveError) Error() string { return e.describe("RemoveError") }

// StatusError reports a portal page served with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %s", e.Method, e.URL, e.Status)
}

// NoChangesMessage is what the portal answers when a modify submits the
// table it already has.
const NoChangesMessage = "There were no changes"

// IsNoChanges reports whether err is an UpdateError whose only message is
// NoChangesMessage, i.e. the portal already held the submitted records.
func IsNoChanges(err error) bool {
	var upd *UpdateError
	return errors.As(err, &upd) && upd.OnlyMessage(NoChangesMessage)
}
