/*
Package query implements factengine's two query surfaces over one
traversal engine: the legacy step sequence and the named-label
specification language.

# Architecture

	┌──────────────────────── QUERY ENGINE ───────────────────────────┐
	│                                                                    │
	│  ┌───────────────┐             ┌──────────────────────┐         │
	│  │  StepQuery     │             │   Specification       │         │
	│  │  (legacy)      │             │   (current)            │         │
	│  │  - Property    │             │  - given: []Label      │         │
	│  │  - Join        │             │  - matches: []Match     │         │
	│  │  - Existential │             │  - projection           │         │
	│  └───────┬────────┘             └──────────┬─────────────┘         │
	│          │                                   │                      │
	│          └───────────────┬───────────────────┘                     │
	│                          ▼                                         │
	│                  ┌───────────────┐                                 │
	│                  │  walk(Graph)  │  predecessor / successor steps  │
	│                  └───────┬───────┘                                 │
	│                          ▼                                         │
	│                  ┌───────────────┐                                 │
	│                  │   Graph        │  implemented by pkg/storage     │
	│                  └───────────────┘                                 │
	└────────────────────────────────────────────────────────────────────┘

Both surfaces share the same predecessor/successor walk primitives: a
step Join in the Predecessor direction is the same traversal as a
specification PathCondition's roles_right steps, and a Join in the
Successor direction is the same traversal as roles_left steps.
ExecuteSteps (steps.go) and Execute (executor.go) both call the
Graph's WalkPredecessors and WalkSuccessors methods, which pkg/storage
implements; this package does not implement the walk itself.

# Validation

Validate rejects a specification with a configuration fault
(facterrors.ErrQueryMalformed) before it is executed: an unknown
referenced before it is bound, a path condition anchored on itself, or
a role name declared with two different predecessor types. Store.Read,
Store.Feed, Engine.Watch and authorization.NewSpecificationRule call
it; Execute does not.
*/
package query
