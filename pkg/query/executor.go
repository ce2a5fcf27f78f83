package query

import (
	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/facterrors"
)

// Execute runs spec against g starting from the given bindings
// (spec.Given must be fully represented in given), returning one
// Tuple per distinct full binding, ordered by storage insertion order
// of the leftmost label, with later labels breaking ties.
func Execute(g Graph, spec Specification, given Tuple) ([]Tuple, error) {
	for _, label := range spec.Given {
		if _, ok := given[label]; !ok {
			return nil, facterrors.QueryMalformed("given label " + string(label) + " not bound")
		}
	}
	return executeMatches(g, spec.Matches, given)
}

func executeMatches(g Graph, matches []Match, env Tuple) ([]Tuple, error) {
	if len(matches) == 0 {
		return []Tuple{cloneTuple(env)}, nil
	}

	m := matches[0]
	rest := matches[1:]

	candidates, err := evaluateMatch(g, m, env)
	if err != nil {
		return nil, err
	}

	var out []Tuple
	for _, c := range candidates {
		childEnv := cloneTuple(env)
		childEnv[m.Unknown] = c
		sub, err := executeMatches(g, rest, childEnv)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func evaluateMatch(g Graph, m Match, env Tuple) ([]fact.Reference, error) {
	if len(m.Conditions) == 0 {
		return nil, facterrors.QueryMalformed("match for " + string(m.Unknown) + " has no conditions")
	}

	anchor, ok := m.Conditions[0].(PathCondition)
	if !ok {
		return nil, facterrors.QueryMalformed("first condition of a match must be a path condition")
	}
	if anchor.LabelRight == m.Unknown {
		return nil, facterrors.QueryMalformed("path condition for " + string(m.Unknown) + " anchors on itself")
	}

	candidates, err := evaluatePath(g, anchor, env)
	if err != nil {
		return nil, err
	}

	for _, cond := range m.Conditions[1:] {
		switch c := cond.(type) {
		case PathCondition:
			more, err := evaluatePath(g, c, env)
			if err != nil {
				return nil, err
			}
			candidates = intersectOrdered(candidates, more)
		case ExistentialCondition:
			candidates, err = filterExistential(g, c, env, m.Unknown, candidates)
			if err != nil {
				return nil, err
			}
		default:
			return nil, facterrors.QueryMalformed("unknown condition type")
		}
	}

	return candidates, nil
}

func evaluatePath(g Graph, p PathCondition, env Tuple) ([]fact.Reference, error) {
	start, ok := env[p.LabelRight]
	if !ok {
		return nil, facterrors.QueryMalformed("label " + string(p.LabelRight) + " referenced before it is bound")
	}

	refs := []fact.Reference{start}
	var err error
	for _, role := range p.RolesRight {
		refs, err = g.WalkPredecessors(refs, role.Name)
		if err != nil {
			return nil, err
		}
	}
	for _, role := range p.RolesLeft {
		refs, err = g.WalkSuccessors(refs, role.Name)
		if err != nil {
			return nil, err
		}
	}
	return refs, nil
}

func filterExistential(g Graph, c ExistentialCondition, env Tuple, unknown Label, candidates []fact.Reference) ([]fact.Reference, error) {
	var kept []fact.Reference
	for _, cand := range candidates {
		childEnv := cloneTuple(env)
		childEnv[unknown] = cand
		sub, err := executeMatches(g, c.Matches, childEnv)
		if err != nil {
			return nil, err
		}
		nonEmpty := len(sub) > 0
		if c.Exists == nonEmpty {
			kept = append(kept, cand)
		}
	}
	return kept, nil
}

func cloneTuple(t Tuple) Tuple {
	out := make(Tuple, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	return out
}

func intersectOrdered(a, b []fact.Reference) []fact.Reference {
	set := make(map[fact.Reference]bool, len(b))
	for _, r := range b {
		set[r] = true
	}
	var out []fact.Reference
	for _, r := range a {
		if set[r] {
			out = append(out, r)
		}
	}
	return out
}

func dedupeOrdered(refs []fact.Reference) []fact.Reference {
	seen := make(map[fact.Reference]bool, len(refs))
	out := make([]fact.Reference, 0, len(refs))
	for _, r := range refs {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
