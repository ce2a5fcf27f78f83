package query

import (
	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/facterrors"
)

// ExecuteSteps runs a legacy StepQuery starting from a single
// reference, returning the references in the final frontier. It uses
// the same WalkPredecessors/WalkSuccessors primitives that the
// specification executor uses for PathCondition roles, so the two
// surfaces share one traversal engine.
func ExecuteSteps(g Graph, start fact.Reference, q StepQuery) ([]fact.Reference, error) {
	frontier := []fact.Reference{start}
	var err error
	for _, step := range q {
		frontier, err = applyStep(g, frontier, step)
		if err != nil {
			return nil, err
		}
	}
	return frontier, nil
}

func applyStep(g Graph, frontier []fact.Reference, step Step) ([]fact.Reference, error) {
	switch s := step.(type) {
	case PropertyCondition:
		return filterByProperty(g, frontier, s)
	case Join:
		switch s.Direction {
		case Predecessor:
			return g.WalkPredecessors(frontier, s.Role)
		case Successor:
			return g.WalkSuccessors(frontier, s.Role)
		default:
			return nil, facterrors.QueryMalformed("unknown join direction")
		}
	case ExistentialStep:
		return filterByExistential(g, frontier, s)
	default:
		return nil, facterrors.QueryMalformed("unknown step type")
	}
}

func filterByProperty(g Graph, frontier []fact.Reference, cond PropertyCondition) ([]fact.Reference, error) {
	var out []fact.Reference
	for _, ref := range frontier {
		if cond.Name == "type" {
			if ref.Type == cond.Value.String {
				out = append(out, ref)
			}
			continue
		}
		f, ok, err := g.FactOf(ref)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		v, has := f.Fields[cond.Name]
		if has && v.Equal(cond.Value) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func filterByExistential(g Graph, frontier []fact.Reference, s ExistentialStep) ([]fact.Reference, error) {
	var out []fact.Reference
	for _, ref := range frontier {
		sub, err := ExecuteSteps(g, ref, s.Steps)
		if err != nil {
			return nil, err
		}
		nonEmpty := len(sub) > 0
		if (s.Quantifier == Exists) == nonEmpty {
			out = append(out, ref)
		}
	}
	return out, nil
}
