package domain

import (
	"fmt"
	"strings"
)

// RecordType is a DNS record type supported by the portal's DNS editor.
// The zero value is unset and never valid on a Record.
type RecordType int

const (
	RecordTypeA     RecordType = 1
	RecordTypeAAAA  RecordType = 2
	RecordTypeCNAME RecordType = 3
	RecordTypeLOC   RecordType = 4
	RecordTypeMX    RecordType = 5
	RecordTypeNAPTR RecordType = 6
	RecordTypeRP    RecordType = 7
	RecordTypeTXT   RecordType = 8
)

var recordTypeNames = map[RecordType]string{
	RecordTypeA:     "A",
	RecordTypeAAAA:  "AAAA",
	RecordTypeCNAME: "CNAME",
	RecordTypeLOC:   "LOC",
	RecordTypeMX:    "MX",
	RecordTypeNAPTR: "NAPTR",
	RecordTypeRP:    "RP",
	RecordTypeTXT:   "TXT",
}

// RecordTypes returns every supported record type in declaration order.
func RecordTypes() []RecordType {
	return []RecordType{
		RecordTypeA, RecordTypeAAAA, RecordTypeCNAME, RecordTypeLOC,
		RecordTypeMX, RecordTypeNAPTR, RecordTypeRP, RecordTypeTXT,
	}
}

// Valid reports whether t is one of the supported record types.
func (t RecordType) Valid() bool {
	_, ok := recordTypeNames[t]
	return ok
}

func (t RecordType) String() string {
	if name, ok := recordTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("RecordType(%d)", int(t))
}

// MarshalText encodes the type by name.
func (t RecordType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsetType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *RecordType) UnmarshalText(text []byte) error {
	parsed, err := ParseRecordType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseRecordType converts a record type given as a name ("aaaa", " A "),
// an integer ordinal (1..8) or an existing RecordType.
func ParseRecordType(value any) (RecordType, error) {
	switch v := value.(type) {
	case RecordType:
		if !v.Valid() {
			return 0, fmt.Errorf("invalid record type %d", int(v))
		}
		return v, nil
	case string:
		name := strings.ToUpper(strings.TrimSpace(v))
		for t, n := range recordTypeNames {
			if n == name {
				return t, nil
			}
		}
		return 0, fmt.Errorf("unsupported record type %q", v)
	case int:
		return ParseRecordType(RecordType(v))
	case int8:
		return ParseRecordType(RecordType(v))
	case int16:
		return ParseRecordType(RecordType(v))
	case int32:
		return ParseRecordType(RecordType(v))
	case int64:
		return ParseRecordType(RecordType(v))
	case uint:
		return ParseRecordType(RecordType(v))
	case uint8:
		return ParseRecordType(RecordType(v))
	case uint16:
		return ParseRecordType(RecordType(v))
	case uint32:
		return ParseRecordType(RecordType(v))
	case uint64:
		return ParseRecordType(RecordType(v))
	case nil:
		return 0, ErrUnsetType
	default:
		return 0, fmt.Errorf("unsupported record type value %v (%T)", value, value)
	}
}
