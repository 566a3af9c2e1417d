package transport

import (
	"net/url"
	"strings"
)

// Form is a request payload that knows its urlencoded form. url.Values
// satisfies it, as does OrderedForm.
type Form interface {
	Encode() string
}

type formField struct {
	key, value string
}

// OrderedForm is a urlencoded form that keeps fields in the order they were
// added. The portal's record tables are parsed positionally, so rows must
// reach it in row order rather than sorted by key.
type OrderedForm struct {
	fields []formField
}

// Add appends a field, keeping any earlier value for the same key.
func (f *OrderedForm) Add(key, value string) {
	f.fields = append(f.fields, formField{key, value})
}

// Set replaces the first value for key in place and drops any others. A new
// key is appended.
func (f *OrderedForm) Set(key, value string) {
	kept := f.fields[:0]
	found := false
	for _, fld := range f.fields {
		if fld.key != key {
			kept = append(kept, fld)
			continue
		}
		if !found {
			kept = append(kept, formField{key, value})
			found = true
		}
	}
	f.fields = kept
	if !found {
		f.fields = append(f.fields, formField{key, value})
	}
}

// Get returns the first value for key, or "".
func (f *OrderedForm) Get(key string) string {
	for _, fld := range f.fields {
		if fld.key == key {
			return fld.value
		}
	}
	return ""
}

// Keys returns the field names in send order, repeats included.
func (f *OrderedForm) Keys() []string {
	keys := make([]string, len(f.fields))
	for i, fld := range f.fields {
		keys[i] = fld.key
	}
	return keys
}

// Encode renders the form as "k1=v1&k2=v2" in insertion order.
func (f *OrderedForm) Encode() string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	for i, fld := range f.fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(fld.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(fld.value))
	}
	return b.String()
}
