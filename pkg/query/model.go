package query

import "github.com/cuemby/factengine/pkg/fact"

// Direction names which way a legacy Join step walks the graph.
type Direction int

const (
	// Predecessor walks from a fact to its predecessors along a role.
	Predecessor Direction = iota
	// Successor walks from a fact to all facts naming it as a
	// predecessor under a role.
	Successor
)

// Quantifier names whether an ExistentialCondition keeps or drops
// facts whose sub-walk is non-empty.
type Quantifier int

const (
	// Exists retains facts whose sub-walk yields at least one result.
	Exists Quantifier = iota
	// NotExists retains facts whose sub-walk yields no results.
	NotExists
)

// Step is one element of a legacy step query.
type Step interface {
	isStep()
}

// PropertyCondition filters the current frontier to facts whose field
// matches value. In authorization contexts the only legal property
// name is "type".
type PropertyCondition struct {
	Name  string
	Value fact.FieldValue
}

func (PropertyCondition) isStep() {}

// Join extends the current frontier by one predecessor or successor
// step along Role.
type Join struct {
	Direction Direction
	Role      string
}

func (Join) isStep() {}

// ExistentialStep retains or drops facts in the current frontier based
// on whether a sub-walk started at each fact is empty.
type ExistentialStep struct {
	Quantifier Quantifier
	Steps      StepQuery
}

func (ExistentialStep) isStep() {}

// StepQuery is a sequence of steps executed left to right against a
// starting frontier of references.
type StepQuery []Step

// Label names an unknown or a given fact within a Specification.
type Label string

// Role carries a role name and, for validation, the predecessor type
// expected to be found there.
type Role struct {
	Name            string
	PredecessorType string
}

// PathCondition walks from an already-bound label through a
// predecessor-direction sequence (RolesRight) and then a
// successor-direction sequence (RolesLeft), binding the result to
// Unknown. The first condition of a Match must be a PathCondition
// (the anchor).
type PathCondition struct {
	RolesRight []Role
	LabelRight Label
	RolesLeft  []Role
}

// ExistentialCondition filters a Match's bindings by whether a nested
// set of matches is (non-)empty, evaluated with Unknown and the
// current environment as additional bindings.
type ExistentialCondition struct {
	Exists  bool
	Matches []Match
}

// Condition is either a PathCondition or an ExistentialCondition.
type Condition interface {
	isCondition()
}

func (PathCondition) isCondition()        {}
func (ExistentialCondition) isCondition() {}

// Match binds Unknown given one or more Conditions, the first of
// which must be a PathCondition anchor.
type Match struct {
	Unknown    Label
	Conditions []Condition
}

// ProjectionKind discriminates the shape a Specification projects.
type ProjectionKind int

const (
	// ProjectSingle projects a single label's bound reference.
	ProjectSingle ProjectionKind = iota
	// ProjectTuple projects an ordered tuple of labels.
	ProjectTuple
	// ProjectRecord projects a named record of labels.
	ProjectRecord
	// ProjectNested projects a lazy sub-collection via a nested
	// specification, evaluated relative to the parent's bindings.
	ProjectNested
)

// Projection describes what a Specification returns for each full
// binding of its matches. Projections compose without limit: a
// ProjectNested's Nested specification may itself project a nested
// specification.
type Projection struct {
	Kind   ProjectionKind
	Label  Label            // ProjectSingle
	Labels []Label          // ProjectTuple
	Fields map[string]Label // ProjectRecord
	Nested *Specification   // ProjectNested
}

// Specification is the named-label query surface: Given names the
// labels supplied by the caller, Matches is evaluated in order, and
// Projection describes the shape of each result.
type Specification struct {
	Given      []Label
	Matches    []Match
	Projection Projection
}

// Tuple is one full binding produced by executing a Specification:
// every label named in Given and every Match's Unknown maps to the
// reference it was bound to.
type Tuple map[Label]fact.Reference
