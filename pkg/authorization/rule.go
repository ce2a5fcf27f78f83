package authorization

import (
	"context"
	"fmt"

	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/query"
	"github.com/cuemby/factengine/pkg/storage"
	"github.com/rs/zerolog"
)

// Rule decides whether user may author candidate, given evidence (the
// candidate's transitive predecessor closure as submitted by the
// caller) and a fallback store for rule kinds that may reach into
// storage. Returning authorized=false, err=nil means this rule simply
// did not admit the fact; the RuleSet tries the next registered rule.
// Returning a non-nil error is a hard failure independent of any
// other rule.
type Rule interface {
	authorize(ctx context.Context, store storage.Store, candidate fact.Fact, candidateRef fact.Reference, evidence []fact.Envelope, user fact.Reference) (bool, error)
}

// Any always authorizes.
type Any struct{}

func (Any) authorize(context.Context, storage.Store, fact.Fact, fact.Reference, []fact.Envelope, fact.Reference) (bool, error) {
	return true, nil
}

// None never authorizes, logging a warning naming the fact type each
// time it is asked to decide.
type None struct {
	FactType string
	Logger   zerolog.Logger
}

func (n None) authorize(context.Context, storage.Store, fact.Fact, fact.Reference, []fact.Envelope, fact.Reference) (bool, error) {
	n.Logger.Warn().Str("fact_type", n.FactType).Msg("authorization rule unconditionally denies this type")
	return false, nil
}

// QueryRule authorizes via a legacy step query, walking evidence
// first and falling back to storage. The submitting user is
// authorized iff User appears in the final frontier reached from
// candidate.
type QueryRule struct {
	Steps query.StepQuery
}

func (r QueryRule) authorize(ctx context.Context, store storage.Store, candidate fact.Fact, candidateRef fact.Reference, evidence []fact.Envelope, user fact.Reference) (bool, error) {
	g := &hybridGraph{
		evidence: newEvidenceGraph(candidate, candidateRef, evidence),
		store:    store,
	}
	refs, err := query.ExecuteSteps(g, candidateRef, r.Steps)
	if err != nil {
		return false, nil
	}
	for _, ref := range refs {
		if ref == user {
			return true, nil
		}
	}
	return false, nil
}

// SpecificationRule authorizes via a named-label specification that
// must have exactly one given (the candidate) and a single-label
// projection. Registration fails if any match, at any nesting depth,
// walks in the successor direction — see NewSpecificationRule.
type SpecificationRule struct {
	Spec query.Specification
}

func (r SpecificationRule) authorize(ctx context.Context, store storage.Store, candidate fact.Fact, candidateRef fact.Reference, evidence []fact.Envelope, user fact.Reference) (bool, error) {
	g := newEvidenceGraph(candidate, candidateRef, evidence)
	given := query.Tuple{r.Spec.Given[0]: candidateRef}
	tuples, err := query.Execute(g, r.Spec, given)
	if err != nil {
		return false, nil
	}
	label := r.Spec.Projection.Label
	for _, t := range tuples {
		if t[label] == user {
			return true, nil
		}
	}
	return false, nil
}

// NewSpecificationRule validates spec against the registration-time
// constraints a SpecificationRule requires and, if valid, returns a
// Rule. It is the only supported constructor for SpecificationRule:
// constructing the struct literal directly skips validation.
func NewSpecificationRule(spec query.Specification) (Rule, error) {
	if err := query.Validate(spec); err != nil {
		return nil, err
	}
	if len(spec.Given) != 1 {
		return nil, fmt.Errorf("authorization: specification rule must have exactly one given, got %d", len(spec.Given))
	}
	if spec.Projection.Kind != query.ProjectSingle {
		return nil, fmt.Errorf("authorization: specification rule projection must be ProjectSingle")
	}
	if walksSuccessors(spec.Matches) {
		return nil, fmt.Errorf("authorization: specification rule walks in the successor direction; evidence cannot prove successor absence, rule refused")
	}
	return SpecificationRule{Spec: spec}, nil
}

func walksSuccessors(matches []query.Match) bool {
	for _, m := range matches {
		for _, cond := range m.Conditions {
			switch c := cond.(type) {
			case query.PathCondition:
				if len(c.RolesLeft) > 0 {
					return true
				}
			case query.ExistentialCondition:
				if walksSuccessors(c.Matches) {
					return true
				}
			}
		}
	}
	return false
}
