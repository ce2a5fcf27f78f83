package fact

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/cuemby/factengine/pkg/facterrors"
)

// Canonicalize renders a fact to its canonical byte form: field and
// role names sorted lexicographically, predecessor lists kept in
// insertion order, references rendered as {"type":...,"hash":...} in
// that key order, dates as ISO-8601 UTC millisecond strings. Two
// facts with identical canonical form are the same fact.
func Canonicalize(f Fact) ([]byte, error) {
	if f.Type == "" {
		return nil, facterrors.InvalidFact("empty type")
	}

	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString(`"fields":`)
	if err := writeFields(&buf, f.Fields); err != nil {
		return nil, err
	}

	if err := validatePredecessors(f.Predecessors); err != nil {
		return nil, err
	}
	buf.WriteString(`,"predecessors":`)
	writePredecessors(&buf, f.Predecessors)

	buf.WriteString(`,"type":`)
	writeJSONString(&buf, f.Type)

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func validatePredecessors(preds map[string][]Reference) error {
	for role, refs := range preds {
		for _, ref := range refs {
			if ref.Type == "" || ref.Hash == "" {
				return facterrors.InvalidFact("role " + role + " contains a non-reference")
			}
		}
	}
	return nil
}

func writeFields(buf *bytes.Buffer, fields map[string]FieldValue) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		v := fields[name]
		if err := v.validate(); err != nil {
			return facterrors.InvalidFact(err.Error())
		}
		writeJSONString(buf, name)
		buf.WriteByte(':')
		if err := writeFieldValue(buf, v); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeFieldValue(buf *bytes.Buffer, v FieldValue) error {
	switch v.Kind {
	case FieldString:
		writeJSONString(buf, v.String)
	case FieldNumber:
		b, err := json.Marshal(v.Number)
		if err != nil {
			return facterrors.InvalidFact(err.Error())
		}
		buf.Write(b)
	case FieldBool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case FieldDate:
		writeJSONString(buf, v.Date.Format(dateLayout))
	default:
		return facterrors.InvalidFact("unsupported field type")
	}
	return nil
}

func writePredecessors(buf *bytes.Buffer, preds map[string][]Reference) {
	roles := make([]string, 0, len(preds))
	for role := range preds {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	buf.WriteByte('{')
	for i, role := range roles {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(buf, role)
		buf.WriteByte(':')
		buf.WriteByte('[')
		for j, ref := range preds[role] {
			if j > 0 {
				buf.WriteByte(',')
			}
			writeReference(buf, ref)
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
}

func writeReference(buf *bytes.Buffer, ref Reference) {
	buf.WriteString(`{"type":`)
	writeJSONString(buf, ref.Type)
	buf.WriteString(`,"hash":`)
	writeJSONString(buf, ref.Hash)
	buf.WriteByte('}')
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
