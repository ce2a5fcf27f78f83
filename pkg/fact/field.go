package fact

import (
	"fmt"
	"time"
)

// FieldKind discriminates the scalar union a fact's fields may hold.
type FieldKind int

const (
	// FieldString holds a UTF-8 string value.
	FieldString FieldKind = iota
	// FieldNumber holds a float64-representable numeric value.
	FieldNumber
	// FieldBool holds a boolean value.
	FieldBool
	// FieldDate holds a UTC timestamp, encoded with millisecond precision.
	FieldDate
)

// FieldValue is a scalar field value: string, number, boolean, or
// date. It is a closed union — canonicalize and hash reject anything
// else with ErrInvalidFact.
type FieldValue struct {
	Kind   FieldKind
	String string
	Number float64
	Bool   bool
	Date   time.Time
}

// StringValue constructs a string field value.
func StringValue(s string) FieldValue { return FieldValue{Kind: FieldString, String: s} }

// NumberValue constructs a numeric field value.
func NumberValue(n float64) FieldValue { return FieldValue{Kind: FieldNumber, Number: n} }

// BoolValue constructs a boolean field value.
func BoolValue(b bool) FieldValue { return FieldValue{Kind: FieldBool, Bool: b} }

// DateValue constructs a date field value, truncated to millisecond
// precision and normalized to UTC so two equivalent timestamps always
// hash identically.
func DateValue(t time.Time) FieldValue {
	return FieldValue{Kind: FieldDate, Date: t.UTC().Truncate(time.Millisecond)}
}

// dateLayout is ISO-8601 UTC with millisecond precision.
const dateLayout = "2006-01-02T15:04:05.000Z"

func (v FieldValue) validate() error {
	switch v.Kind {
	case FieldString, FieldNumber, FieldBool, FieldDate:
		return nil
	default:
		return fmt.Errorf("unsupported field kind %d", v.Kind)
	}
}

// Equal reports whether two field values are the canonically
// identical, used by tests and by in-memory property-condition
// filtering.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case FieldString:
		return v.String == other.String
	case FieldNumber:
		return v.Number == other.Number
	case FieldBool:
		return v.Bool == other.Bool
	case FieldDate:
		return v.Date.Equal(other.Date)
	default:
		return false
	}
}
