package storage

import (
	"context"
	"strconv"
	"sync"

	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/facterrors"
	"github.com/cuemby/factengine/pkg/query"
)

type factRecord struct {
	fact      fact.Fact
	seq       int64
	ancestors map[fact.Reference]bool
}

// MemoryStore is a process-local Store backed by mutex-guarded maps.
// It is the zero-configuration default used when StoreDir is empty,
// and by every package's unit tests.
type MemoryStore struct {
	mu sync.RWMutex

	facts map[fact.Reference]*factRecord
	order []fact.Reference // insertion order, append-only

	// successors indexes (predecessor, role) -> successor refs, in
	// insertion order, mirroring the secondary index the embedded
	// store keeps for the same lookup.
	successors map[string][]fact.Reference

	bookmarks map[string]string

	seq int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		facts:      make(map[fact.Reference]*factRecord),
		successors: make(map[string][]fact.Reference),
		bookmarks:  make(map[string]string),
	}
}

func successorKey(pred fact.Reference, role string) string {
	return pred.Type + ":" + pred.Hash + "|" + role
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Save(_ context.Context, envelopes []fact.Envelope) ([]fact.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[fact.Reference]fact.Envelope, len(envelopes))
	for _, env := range envelopes {
		ref, err := fact.ReferenceOf(env.Fact)
		if err != nil {
			return nil, err
		}
		batch[ref] = env
	}

	// DAG closure under save: every predecessor must already be
	// present or appear elsewhere in this same batch.
	for ref, env := range batch {
		for role, preds := range env.Fact.Predecessors {
			for _, p := range preds {
				if _, inStore := s.facts[p]; inStore {
					continue
				}
				if _, inBatch := batch[p]; inBatch {
					continue
				}
				return nil, facterrors.NotFound("predecessor " + p.String() + " of " + ref.String() + " role " + role)
			}
		}
	}

	ancestorCache := make(map[fact.Reference]map[fact.Reference]bool, len(batch))
	var resolve func(ref fact.Reference) (map[fact.Reference]bool, error)
	resolve = func(ref fact.Reference) (map[fact.Reference]bool, error) {
		if rec, ok := s.facts[ref]; ok {
			return rec.ancestors, nil
		}
		if cached, ok := ancestorCache[ref]; ok {
			return cached, nil
		}
		env, ok := batch[ref]
		if !ok {
			return nil, facterrors.NotFound(ref.String())
		}
		anc := map[fact.Reference]bool{ref: true}
		for _, preds := range env.Fact.Predecessors {
			for _, p := range preds {
				pAnc, err := resolve(p)
				if err != nil {
					return nil, err
				}
				for a := range pAnc {
					anc[a] = true
				}
			}
		}
		ancestorCache[ref] = anc
		return anc, nil
	}

	var saved []fact.Envelope
	// Process in the order the caller supplied, skipping facts already
	// known so Save is idempotent on (type, hash).
	for _, env := range envelopes {
		ref, _ := fact.ReferenceOf(env.Fact)
		if _, exists := s.facts[ref]; exists {
			continue
		}
		anc, err := resolve(ref)
		if err != nil {
			return nil, err
		}
		s.seq++
		s.facts[ref] = &factRecord{fact: env.Fact, seq: s.seq, ancestors: anc}
		s.order = append(s.order, ref)
		for role, preds := range env.Fact.Predecessors {
			for _, p := range preds {
				key := successorKey(p, role)
				s.successors[key] = append(s.successors[key], ref)
			}
		}
		saved = append(saved, env)
	}

	return saved, nil
}

// IngestBatch saves envelopes and then records feedName's bookmark.
// The two steps take the store's lock separately, so a concurrent
// reader can observe the saved facts before the bookmark advances.
func (s *MemoryStore) IngestBatch(ctx context.Context, envelopes []fact.Envelope, feedName, bookmark string) ([]fact.Envelope, error) {
	saved, err := s.Save(ctx, envelopes)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.bookmarks[feedName] = bookmark
	s.mu.Unlock()
	return saved, nil
}

func (s *MemoryStore) Load(_ context.Context, refs []fact.Reference) ([]fact.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	union := make(map[fact.Reference]bool)
	for _, ref := range refs {
		rec, ok := s.facts[ref]
		if !ok {
			return nil, facterrors.NotFound(ref.String())
		}
		for a := range rec.ancestors {
			union[a] = true
		}
	}

	out := make([]fact.Envelope, 0, len(union))
	for _, ref := range s.order {
		if union[ref] {
			out = append(out, fact.Envelope{Fact: s.facts[ref].fact})
		}
	}
	return out, nil
}

func (s *MemoryStore) WhichExist(_ context.Context, refs []fact.Reference) ([]fact.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []fact.Reference
	for _, ref := range refs {
		if _, ok := s.facts[ref]; ok {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (s *MemoryStore) Query(_ context.Context, start fact.Reference, q query.StepQuery) ([]fact.Reference, error) {
	return query.ExecuteSteps(s, start, q)
}

func (s *MemoryStore) Read(_ context.Context, given query.Tuple, spec query.Specification) (any, error) {
	if err := query.Validate(spec); err != nil {
		return nil, err
	}
	tuples, err := query.Execute(s, spec, given)
	if err != nil {
		return nil, err
	}
	return query.Project(s, tuples, spec.Projection)
}

func (s *MemoryStore) Feed(_ context.Context, descriptor FeedDescriptor, given query.Tuple, bookmark string) ([]fact.Reference, string, error) {
	if err := query.Validate(descriptor.Specification); err != nil {
		return nil, "", err
	}
	tuples, err := query.Execute(s, descriptor.Specification, given)
	if err != nil {
		return nil, "", err
	}

	after, err := parseBookmark(bookmark)
	if err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var fresh []fact.Reference
	maxSeq := after
	for _, t := range tuples {
		ref := t[descriptor.ResultLabel]
		rec, ok := s.facts[ref]
		if !ok {
			continue
		}
		if rec.seq > maxSeq {
			maxSeq = rec.seq
		}
		if rec.seq > after {
			fresh = append(fresh, ref)
		}
	}
	return fresh, formatBookmark(maxSeq), nil
}

func (s *MemoryStore) SaveBookmark(_ context.Context, feedName, bookmark string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks[feedName] = bookmark
	return nil
}

func (s *MemoryStore) LoadBookmark(_ context.Context, feedName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookmarks[feedName], nil
}

func (s *MemoryStore) FactOf(ref fact.Reference) (fact.Fact, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.facts[ref]
	if !ok {
		return fact.Fact{}, false, nil
	}
	return rec.fact, true, nil
}

func (s *MemoryStore) WalkPredecessors(refs []fact.Reference, role string) ([]fact.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []fact.Reference
	for _, ref := range refs {
		rec, ok := s.facts[ref]
		if !ok {
			continue
		}
		out = append(out, rec.fact.Predecessors[role]...)
	}
	return dedupe(out), nil
}

func (s *MemoryStore) WalkSuccessors(refs []fact.Reference, role string) ([]fact.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []fact.Reference
	for _, ref := range refs {
		out = append(out, s.successors[successorKey(ref, role)]...)
	}
	return dedupe(out), nil
}

// All returns every fact in insertion order, for cmd/factengine-migrate.
func (s *MemoryStore) All(_ context.Context) ([]fact.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]fact.Envelope, len(s.order))
	for i, ref := range s.order {
		out[i] = fact.Envelope{Fact: s.facts[ref].fact}
	}
	return out, nil
}

func dedupe(refs []fact.Reference) []fact.Reference {
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

func parseBookmark(b string) (int64, error) {
	if b == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(b, 10, 64)
	if err != nil {
		return 0, facterrors.NotFound("malformed bookmark")
	}
	return n, nil
}

func formatBookmark(seq int64) string {
	return strconv.FormatInt(seq, 10)
}
