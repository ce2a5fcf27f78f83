package query

import (
	"encoding/json"
	"fmt"

	"github.com/cuemby/factengine/pkg/fact"
)

// This file implements JSON (de)serialization for the two query
// surfaces, so cmd/factengine can read a StepQuery or Specification
// from a file. Step and Condition are interfaces, so each wire form
// carries an explicit "kind" discriminator, the same tagged-union
// convention pkg/fact/wire.go uses for FieldValue.

type stepWire struct {
	Kind       string           `json:"kind"`
	Name       string           `json:"name,omitempty"`
	Value      *fact.FieldValue `json:"value,omitempty"`
	Direction  string           `json:"direction,omitempty"`
	Role       string           `json:"role,omitempty"`
	Quantifier string           `json:"quantifier,omitempty"`
	Steps      []stepWire       `json:"steps,omitempty"`
}

// MarshalJSON renders a StepQuery as an array of tagged step objects.
func (q StepQuery) MarshalJSON() ([]byte, error) {
	wires := make([]stepWire, len(q))
	for i, s := range q {
		w, err := stepToWire(s)
		if err != nil {
			return nil, err
		}
		wires[i] = w
	}
	return json.Marshal(wires)
}

// UnmarshalJSON parses an array of tagged step objects into a StepQuery.
func (q *StepQuery) UnmarshalJSON(data []byte) error {
	var wires []stepWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return err
	}
	steps := make(StepQuery, len(wires))
	for i, w := range wires {
		s, err := wireToStep(w)
		if err != nil {
			return err
		}
		steps[i] = s
	}
	*q = steps
	return nil
}

func stepToWire(s Step) (stepWire, error) {
	switch v := s.(type) {
	case PropertyCondition:
		val := v.Value
		return stepWire{Kind: "property", Name: v.Name, Value: &val}, nil
	case Join:
		dir := "predecessor"
		if v.Direction == Successor {
			dir = "successor"
		}
		return stepWire{Kind: "join", Direction: dir, Role: v.Role}, nil
	case ExistentialStep:
		sub := make([]stepWire, len(v.Steps))
		for i, inner := range v.Steps {
			w, err := stepToWire(inner)
			if err != nil {
				return stepWire{}, err
			}
			sub[i] = w
		}
		quant := "exists"
		if v.Quantifier == NotExists {
			quant = "notExists"
		}
		return stepWire{Kind: "existential", Quantifier: quant, Steps: sub}, nil
	default:
		return stepWire{}, fmt.Errorf("query: unsupported step type %T", s)
	}
}

func wireToStep(w stepWire) (Step, error) {
	switch w.Kind {
	case "property":
		if w.Value == nil {
			return nil, fmt.Errorf("query: property step %q missing value", w.Name)
		}
		return PropertyCondition{Name: w.Name, Value: *w.Value}, nil
	case "join":
		dir := Predecessor
		if w.Direction == "successor" {
			dir = Successor
		}
		return Join{Direction: dir, Role: w.Role}, nil
	case "existential":
		sub := make(StepQuery, len(w.Steps))
		for i, inner := range w.Steps {
			s, err := wireToStep(inner)
			if err != nil {
				return nil, err
			}
			sub[i] = s
		}
		quant := Exists
		if w.Quantifier == "notExists" {
			quant = NotExists
		}
		return ExistentialStep{Quantifier: quant, Steps: sub}, nil
	default:
		return nil, fmt.Errorf("query: unknown step kind %q", w.Kind)
	}
}

// --- Specification wire form ---

type roleWire struct {
	Name            string `json:"name"`
	PredecessorType string `json:"predecessorType,omitempty"`
}

func roleToWire(r Role) roleWire { return roleWire{Name: r.Name, PredecessorType: r.PredecessorType} }
func wireToRole(w roleWire) Role { return Role{Name: w.Name, PredecessorType: w.PredecessorType} }

type conditionWire struct {
	Kind       string      `json:"kind"`
	RolesRight []roleWire  `json:"rolesRight,omitempty"`
	LabelRight Label       `json:"labelRight,omitempty"`
	RolesLeft  []roleWire  `json:"rolesLeft,omitempty"`
	Exists     *bool       `json:"exists,omitempty"`
	Matches    []matchWire `json:"matches,omitempty"`
}

type matchWire struct {
	Unknown    Label           `json:"unknown"`
	Conditions []conditionWire `json:"conditions"`
}

type projectionWire struct {
	Kind   string             `json:"kind"`
	Label  Label              `json:"label,omitempty"`
	Labels []Label            `json:"labels,omitempty"`
	Fields map[string]Label   `json:"fields,omitempty"`
	Nested *specificationWire `json:"nested,omitempty"`
}

type specificationWire struct {
	Given      []Label        `json:"given"`
	Matches    []matchWire    `json:"matches"`
	Projection projectionWire `json:"projection"`
}

// MarshalJSON renders a Specification in its tagged-union wire form.
func (s Specification) MarshalJSON() ([]byte, error) {
	w, err := specToWire(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the tagged-union wire form into a Specification.
func (s *Specification) UnmarshalJSON(data []byte) error {
	var w specificationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	spec, err := wireToSpec(w)
	if err != nil {
		return err
	}
	*s = spec
	return nil
}

func specToWire(s Specification) (specificationWire, error) {
	matches := make([]matchWire, len(s.Matches))
	for i, m := range s.Matches {
		mw, err := matchToWire(m)
		if err != nil {
			return specificationWire{}, err
		}
		matches[i] = mw
	}
	pw, err := projectionToWire(s.Projection)
	if err != nil {
		return specificationWire{}, err
	}
	return specificationWire{Given: s.Given, Matches: matches, Projection: pw}, nil
}

func wireToSpec(w specificationWire) (Specification, error) {
	matches := make([]Match, len(w.Matches))
	for i, mw := range w.Matches {
		m, err := wireToMatch(mw)
		if err != nil {
			return Specification{}, err
		}
		matches[i] = m
	}
	proj, err := wireToProjection(w.Projection)
	if err != nil {
		return Specification{}, err
	}
	return Specification{Given: w.Given, Matches: matches, Projection: proj}, nil
}

func matchToWire(m Match) (matchWire, error) {
	conds := make([]conditionWire, len(m.Conditions))
	for i, c := range m.Conditions {
		cw, err := conditionToWire(c)
		if err != nil {
			return matchWire{}, err
		}
		conds[i] = cw
	}
	return matchWire{Unknown: m.Unknown, Conditions: conds}, nil
}

func wireToMatch(w matchWire) (Match, error) {
	conds := make([]Condition, len(w.Conditions))
	for i, cw := range w.Conditions {
		c, err := wireToCondition(cw)
		if err != nil {
			return Match{}, err
		}
		conds[i] = c
	}
	return Match{Unknown: w.Unknown, Conditions: conds}, nil
}

func conditionToWire(c Condition) (conditionWire, error) {
	switch v := c.(type) {
	case PathCondition:
		right := make([]roleWire, len(v.RolesRight))
		for i, r := range v.RolesRight {
			right[i] = roleToWire(r)
		}
		left := make([]roleWire, len(v.RolesLeft))
		for i, r := range v.RolesLeft {
			left[i] = roleToWire(r)
		}
		return conditionWire{Kind: "path", RolesRight: right, LabelRight: v.LabelRight, RolesLeft: left}, nil
	case ExistentialCondition:
		matches := make([]matchWire, len(v.Matches))
		for i, m := range v.Matches {
			mw, err := matchToWire(m)
			if err != nil {
				return conditionWire{}, err
			}
			matches[i] = mw
		}
		exists := v.Exists
		return conditionWire{Kind: "existential", Exists: &exists, Matches: matches}, nil
	default:
		return conditionWire{}, fmt.Errorf("query: unsupported condition type %T", c)
	}
}

func wireToCondition(w conditionWire) (Condition, error) {
	switch w.Kind {
	case "path":
		right := make([]Role, len(w.RolesRight))
		for i, r := range w.RolesRight {
			right[i] = wireToRole(r)
		}
		left := make([]Role, len(w.RolesLeft))
		for i, r := range w.RolesLeft {
			left[i] = wireToRole(r)
		}
		return PathCondition{RolesRight: right, LabelRight: w.LabelRight, RolesLeft: left}, nil
	case "existential":
		matches := make([]Match, len(w.Matches))
		for i, mw := range w.Matches {
			m, err := wireToMatch(mw)
			if err != nil {
				return nil, err
			}
			matches[i] = m
		}
		exists := w.Exists != nil && *w.Exists
		return ExistentialCondition{Exists: exists, Matches: matches}, nil
	default:
		return nil, fmt.Errorf("query: unknown condition kind %q", w.Kind)
	}
}

func projectionToWire(p Projection) (projectionWire, error) {
	switch p.Kind {
	case ProjectSingle:
		return projectionWire{Kind: "single", Label: p.Label}, nil
	case ProjectTuple:
		return projectionWire{Kind: "tuple", Labels: p.Labels}, nil
	case ProjectRecord:
		return projectionWire{Kind: "record", Fields: p.Fields}, nil
	case ProjectNested:
		nw, err := specToWire(*p.Nested)
		if err != nil {
			return projectionWire{}, err
		}
		return projectionWire{Kind: "nested", Label: p.Label, Nested: &nw}, nil
	default:
		return projectionWire{}, fmt.Errorf("query: unsupported projection kind %d", p.Kind)
	}
}

func wireToProjection(w projectionWire) (Projection, error) {
	switch w.Kind {
	case "single":
		return Projection{Kind: ProjectSingle, Label: w.Label}, nil
	case "tuple":
		return Projection{Kind: ProjectTuple, Labels: w.Labels}, nil
	case "record":
		return Projection{Kind: ProjectRecord, Fields: w.Fields}, nil
	case "nested":
		if w.Nested == nil {
			return Projection{}, fmt.Errorf("query: nested projection missing nested specification")
		}
		nested, err := wireToSpec(*w.Nested)
		if err != nil {
			return Projection{}, err
		}
		return Projection{Kind: ProjectNested, Label: w.Label, Nested: &nested}, nil
	default:
		return Projection{}, fmt.Errorf("query: unknown projection kind %q", w.Kind)
	}
}
