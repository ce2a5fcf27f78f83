package authorization

import (
	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/facterrors"
	"github.com/cuemby/factengine/pkg/query"
	"github.com/cuemby/factengine/pkg/storage"
)

// evidenceGraph is a query.Graph over exactly the facts a caller
// bundled as evidence, plus the candidate fact itself. It never
// touches storage: a predecessor walk that needs a fact outside this
// set fails closed with ErrNotFound, and any successor walk is
// refused outright since evidence cannot prove successor absence.
type evidenceGraph struct {
	facts map[fact.Reference]fact.Fact
}

func newEvidenceGraph(candidate fact.Fact, candidateRef fact.Reference, evidence []fact.Envelope) *evidenceGraph {
	g := &evidenceGraph{facts: make(map[fact.Reference]fact.Fact, len(evidence)+1)}
	g.facts[candidateRef] = candidate
	for _, e := range evidence {
		ref, err := fact.ReferenceOf(e.Fact)
		if err != nil {
			continue
		}
		g.facts[ref] = e.Fact
	}
	return g
}

func (g *evidenceGraph) FactOf(ref fact.Reference) (fact.Fact, bool, error) {
	f, ok := g.facts[ref]
	return f, ok, nil
}

func (g *evidenceGraph) WalkPredecessors(refs []fact.Reference, role string) ([]fact.Reference, error) {
	seen := make(map[fact.Reference]bool)
	var out []fact.Reference
	for _, r := range refs {
		f, ok := g.facts[r]
		if !ok {
			return nil, facterrors.NotFound("evidence missing for " + r.Type + ":" + r.Hash)
		}
		for _, p := range f.Predecessors[role] {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (g *evidenceGraph) WalkSuccessors(refs []fact.Reference, role string) ([]fact.Reference, error) {
	return nil, facterrors.QueryMalformed("successor walk is not derivable from evidence")
}

var _ query.Graph = (*evidenceGraph)(nil)

// hybridGraph runs predecessor and property steps against evidence
// first, falling back to storage for references evidence does not
// cover. Successor steps always go to storage, since evidence never
// proves successor absence. This realizes the "prefix against
// evidence, suffix against storage" legacy query-rule contract
// without requiring a static prefix/suffix split of the step list.
type hybridGraph struct {
	evidence *evidenceGraph
	store    storage.Store
}

func (g *hybridGraph) FactOf(ref fact.Reference) (fact.Fact, bool, error) {
	if f, ok := g.evidence.facts[ref]; ok {
		return f, true, nil
	}
	return g.store.FactOf(ref)
}

func (g *hybridGraph) WalkPredecessors(refs []fact.Reference, role string) ([]fact.Reference, error) {
	var fromEvidence, fromStorage []fact.Reference
	for _, r := range refs {
		if _, ok := g.evidence.facts[r]; ok {
			fromEvidence = append(fromEvidence, r)
		} else {
			fromStorage = append(fromStorage, r)
		}
	}
	var out []fact.Reference
	if len(fromEvidence) > 0 {
		more, err := g.evidence.WalkPredecessors(fromEvidence, role)
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	if len(fromStorage) > 0 {
		more, err := g.store.WalkPredecessors(fromStorage, role)
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	return dedupeRefs(out), nil
}

func (g *hybridGraph) WalkSuccessors(refs []fact.Reference, role string) ([]fact.Reference, error) {
	return g.store.WalkSuccessors(refs, role)
}

var _ query.Graph = (*hybridGraph)(nil)

func dedupeRefs(refs []fact.Reference) []fact.Reference {
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
