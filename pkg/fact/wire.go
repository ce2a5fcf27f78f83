package fact

import (
	"encoding/json"
	"fmt"
	"time"
)

// This file implements the JSON wire encoding for facts and field
// values, used by cmd/factengine to read/write facts and by pkg/fork's
// RemoteFeed boundary. Fact and FieldValue carry no json struct tags
// of their own (FieldValue is a closed union; Fact's maps need
// lower-cased keys matching Canonicalize's shape), so both get
// explicit Marshal/UnmarshalJSON methods instead.

type fieldValueWire struct {
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

// MarshalJSON renders a FieldValue as {"kind":"string|number|bool|date","value":...}.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	w := fieldValueWire{}
	switch v.Kind {
	case FieldString:
		w.Kind, w.Value = "string", v.String
	case FieldNumber:
		w.Kind, w.Value = "number", v.Number
	case FieldBool:
		w.Kind, w.Value = "bool", v.Bool
	case FieldDate:
		w.Kind, w.Value = "date", v.Date.Format(dateLayout)
	default:
		return nil, fmt.Errorf("fact: unsupported field kind %d", v.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the {"kind":...,"value":...} wire form.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var w struct {
		Kind  string          `json:"kind"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case "string":
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case "number":
		var n float64
		if err := json.Unmarshal(w.Value, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
	case "bool":
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case "date":
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return err
		}
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return fmt.Errorf("fact: invalid date field: %w", err)
		}
		*v = DateValue(t)
	default:
		return fmt.Errorf("fact: unknown field kind %q", w.Kind)
	}
	return nil
}

type factWire struct {
	Type         string                   `json:"type"`
	Fields       map[string]FieldValue    `json:"fields,omitempty"`
	Predecessors map[string][]Reference   `json:"predecessors,omitempty"`
}

// MarshalJSON renders a Fact with lower-cased field names matching
// Canonicalize's own shape.
func (f Fact) MarshalJSON() ([]byte, error) {
	return json.Marshal(factWire{Type: f.Type, Fields: f.Fields, Predecessors: f.Predecessors})
}

// UnmarshalJSON parses the lower-cased wire form back into a Fact.
func (f *Fact) UnmarshalJSON(data []byte) error {
	var w factWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	f.Type = w.Type
	f.Fields = w.Fields
	f.Predecessors = w.Predecessors
	return nil
}

type envelopeWire struct {
	Fact       Fact        `json:"fact"`
	Signatures []Signature `json:"signatures,omitempty"`
}

// MarshalJSON renders an Envelope as {"fact":...,"signatures":[...]}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeWire{Fact: e.Fact, Signatures: e.Signatures})
}

// UnmarshalJSON parses the {"fact":...,"signatures":[...]} wire form.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w envelopeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Fact = w.Fact
	e.Signatures = w.Signatures
	return nil
}
