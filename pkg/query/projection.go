package query

import (
	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/facterrors"
)

// Project turns a list of full bindings into the shape spec.Projection
// describes. A ProjectNested entry re-executes the nested
// specification per parent tuple, using the parent tuple's bindings
// as the nested specification's given environment, and returns its
// results as a []Tuple rather than recursing further — callers that
// need multiple levels of nesting call Project again on that slice.
func Project(g Graph, tuples []Tuple, proj Projection) (any, error) {
	switch proj.Kind {
	case ProjectSingle:
		out := make([]fact.Reference, 0, len(tuples))
		for _, t := range tuples {
			out = append(out, t[proj.Label])
		}
		return out, nil

	case ProjectTuple:
		out := make([][]fact.Reference, 0, len(tuples))
		for _, t := range tuples {
			row := make([]fact.Reference, len(proj.Labels))
			for i, l := range proj.Labels {
				row[i] = t[l]
			}
			out = append(out, row)
		}
		return out, nil

	case ProjectRecord:
		out := make([]map[string]fact.Reference, 0, len(tuples))
		for _, t := range tuples {
			rec := make(map[string]fact.Reference, len(proj.Fields))
			for name, l := range proj.Fields {
				rec[name] = t[l]
			}
			out = append(out, rec)
		}
		return out, nil

	case ProjectNested:
		if proj.Nested == nil {
			return nil, facterrors.QueryMalformed("nested projection has no specification")
		}
		out := make([]NestedResult, 0, len(tuples))
		for _, t := range tuples {
			sub, err := Execute(g, *proj.Nested, t)
			if err != nil {
				return nil, err
			}
			out = append(out, NestedResult{Parent: t, Children: sub})
		}
		return out, nil

	default:
		return nil, facterrors.QueryMalformed("unknown projection kind")
	}
}

// NestedResult pairs a parent tuple with the child tuples its nested
// specification produced.
type NestedResult struct {
	Parent   Tuple
	Children []Tuple
}
