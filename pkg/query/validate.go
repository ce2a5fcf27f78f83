package query

import "github.com/cuemby/factengine/pkg/facterrors"

// Validate rejects specifications with a configuration-time fault:
// an unknown referenced before it is bound, a path condition
// anchoring on itself, or a role name declared with two different
// predecessor types across the specification.
func Validate(spec Specification) error {
	roleTypes := make(map[string]string)
	bound := make(map[Label]bool, len(spec.Given))
	for _, g := range spec.Given {
		bound[g] = true
	}
	if err := validateMatches(spec.Matches, bound, roleTypes); err != nil {
		return err
	}
	return validateProjection(spec.Projection, bound)
}

func validateMatches(matches []Match, bound map[Label]bool, roleTypes map[string]string) error {
	for _, m := range matches {
		if len(m.Conditions) == 0 {
			return facterrors.QueryMalformed("match for " + string(m.Unknown) + " has no conditions")
		}
		anchor, ok := m.Conditions[0].(PathCondition)
		if !ok {
			return facterrors.QueryMalformed("first condition of a match must be a path condition")
		}
		if err := validatePath(anchor, m.Unknown, bound, roleTypes); err != nil {
			return err
		}

		for _, cond := range m.Conditions[1:] {
			switch c := cond.(type) {
			case PathCondition:
				if err := validatePath(c, m.Unknown, bound, roleTypes); err != nil {
					return err
				}
			case ExistentialCondition:
				nested := make(map[Label]bool, len(bound)+1)
				for k := range bound {
					nested[k] = true
				}
				nested[m.Unknown] = true
				if err := validateMatches(c.Matches, nested, roleTypes); err != nil {
					return err
				}
			default:
				return facterrors.QueryMalformed("unknown condition type")
			}
		}

		bound[m.Unknown] = true
	}
	return nil
}

func validatePath(p PathCondition, unknown Label, bound map[Label]bool, roleTypes map[string]string) error {
	if !bound[p.LabelRight] {
		return facterrors.QueryMalformed("label " + string(p.LabelRight) + " referenced before it is bound")
	}
	if p.LabelRight == unknown {
		return facterrors.QueryMalformed("path condition for " + string(unknown) + " anchors on itself")
	}
	for _, role := range append(append([]Role{}, p.RolesRight...), p.RolesLeft...) {
		if role.PredecessorType == "" {
			continue
		}
		if prior, seen := roleTypes[role.Name]; seen && prior != role.PredecessorType {
			return facterrors.QueryMalformed("role " + role.Name + " declared as both " + prior + " and " + role.PredecessorType)
		}
		roleTypes[role.Name] = role.PredecessorType
	}
	return nil
}

func validateProjection(p Projection, bound map[Label]bool) error {
	switch p.Kind {
	case ProjectSingle:
		if !bound[p.Label] {
			return facterrors.QueryMalformed("projected label " + string(p.Label) + " is not bound")
		}
	case ProjectTuple:
		for _, l := range p.Labels {
			if !bound[l] {
				return facterrors.QueryMalformed("projected label " + string(l) + " is not bound")
			}
		}
	case ProjectRecord:
		for name, l := range p.Fields {
			if !bound[l] {
				return facterrors.QueryMalformed("projected field " + name + " references unbound label " + string(l))
			}
		}
	case ProjectNested:
		if p.Nested == nil {
			return facterrors.QueryMalformed("nested projection has no specification")
		}
		return Validate(*p.Nested)
	}
	return nil
}
