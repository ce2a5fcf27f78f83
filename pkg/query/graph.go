package query

import "github.com/cuemby/factengine/pkg/fact"

// Graph is the narrow read surface the executor needs from storage.
// pkg/storage's Store implementations satisfy it; the executor never
// imports pkg/storage, keeping the dependency one-directional.
type Graph interface {
	// FactOf returns the fact named by ref, or ok=false if it is not
	// present.
	FactOf(ref fact.Reference) (f fact.Fact, ok bool, err error)

	// WalkPredecessors returns, in storage insertion order and
	// deduplicated, the predecessor references reachable from any
	// reference in refs under the named role.
	WalkPredecessors(refs []fact.Reference, role string) ([]fact.Reference, error)

	// WalkSuccessors returns, in storage insertion order and
	// deduplicated, every reference that names any reference in refs
	// as a predecessor under the named role.
	WalkSuccessors(refs []fact.Reference, role string) ([]fact.Reference, error)
}
