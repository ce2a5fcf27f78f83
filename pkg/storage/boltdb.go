package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/facterrors"
	"github.com/cuemby/factengine/pkg/query"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketFacts      = []byte("facts")
	bucketAncestors  = []byte("ancestors")
	bucketSuccessors = []byte("successors")
	bucketBookmarks  = []byte("bookmarks")
	bucketLogins     = []byte("logins")
	bucketSeq        = []byte("seq")
)

// boltFact is the on-disk envelope for a stored fact: the fact itself
// plus the insertion sequence used to order Load and All results and
// to compare against feed bookmarks.
type boltFact struct {
	Fact fact.Fact `json:"fact"`
	Seq  int64     `json:"seq"`
}

// BoltStore implements Store using go.etcd.io/bbolt, adapted from the
// teacher's BoltDB-backed cluster store: one bucket per concern, JSON
// values, Update/View closures.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) a BoltDB file under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "factengine.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketFacts, bucketAncestors, bucketSuccessors, bucketBookmarks, bucketLogins, bucketSeq} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func factKey(ref fact.Reference) []byte {
	return []byte(ref.Type + ":" + ref.Hash)
}

func (s *BoltStore) Save(_ context.Context, envelopes []fact.Envelope) ([]fact.Envelope, error) {
	var saved []fact.Envelope
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		saved, err = saveInTx(tx, envelopes)
		return err
	})
	return saved, err
}

// IngestBatch saves envelopes and writes feedName's bookmark inside a
// single bbolt transaction, so a process crash can never persist one
// without the other.
func (s *BoltStore) IngestBatch(_ context.Context, envelopes []fact.Envelope, feedName, bookmark string) ([]fact.Envelope, error) {
	var saved []fact.Envelope
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		saved, err = saveInTx(tx, envelopes)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketBookmarks).Put([]byte(feedName), []byte(bookmark))
	})
	return saved, err
}

func saveInTx(tx *bolt.Tx, envelopes []fact.Envelope) ([]fact.Envelope, error) {
	var saved []fact.Envelope

	err := func() error {
		facts := tx.Bucket(bucketFacts)
		ancestors := tx.Bucket(bucketAncestors)
		successors := tx.Bucket(bucketSuccessors)
		seqBucket := tx.Bucket(bucketSeq)

		batch := make(map[fact.Reference]fact.Envelope, len(envelopes))
		for _, env := range envelopes {
			ref, err := fact.ReferenceOf(env.Fact)
			if err != nil {
				return err
			}
			batch[ref] = env
		}

		exists := func(ref fact.Reference) bool {
			return facts.Get(factKey(ref)) != nil
		}

		for ref, env := range batch {
			for role, preds := range env.Fact.Predecessors {
				for _, p := range preds {
					if exists(p) {
						continue
					}
					if _, inBatch := batch[p]; inBatch {
						continue
					}
					return facterrors.NotFound("predecessor " + p.String() + " of " + ref.String() + " role " + role)
				}
			}
		}

		ancestorCache := make(map[fact.Reference][]fact.Reference, len(batch))
		var resolve func(ref fact.Reference) ([]fact.Reference, error)
		resolve = func(ref fact.Reference) ([]fact.Reference, error) {
			if raw := ancestors.Get(factKey(ref)); raw != nil {
				var anc []fact.Reference
				if err := json.Unmarshal(raw, &anc); err != nil {
					return nil, err
				}
				return anc, nil
			}
			if cached, ok := ancestorCache[ref]; ok {
				return cached, nil
			}
			env, ok := batch[ref]
			if !ok {
				return nil, facterrors.NotFound(ref.String())
			}
			set := map[fact.Reference]bool{ref: true}
			for _, preds := range env.Fact.Predecessors {
				for _, p := range preds {
					pAnc, err := resolve(p)
					if err != nil {
						return nil, err
					}
					for _, a := range pAnc {
						set[a] = true
					}
				}
			}
			anc := make([]fact.Reference, 0, len(set))
			for a := range set {
				anc = append(anc, a)
			}
			ancestorCache[ref] = anc
			return anc, nil
		}

		nextSeq := int64(0)
		if raw := seqBucket.Get([]byte("seq")); raw != nil {
			nextSeq = int64(btoi(raw))
		}

		for _, env := range envelopes {
			ref, _ := fact.ReferenceOf(env.Fact)
			if exists(ref) {
				continue
			}

			anc, err := resolve(ref)
			if err != nil {
				return err
			}
			ancBytes, err := json.Marshal(anc)
			if err != nil {
				return err
			}
			if err := ancestors.Put(factKey(ref), ancBytes); err != nil {
				return err
			}

			nextSeq++
			rec := boltFact{Fact: env.Fact, Seq: nextSeq}
			recBytes, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := facts.Put(factKey(ref), recBytes); err != nil {
				return err
			}

			for role, preds := range env.Fact.Predecessors {
				for _, p := range preds {
					key := []byte(p.Type + ":" + p.Hash + "|" + role)
					var list []fact.Reference
					if raw := successors.Get(key); raw != nil {
						if err := json.Unmarshal(raw, &list); err != nil {
							return err
						}
					}
					list = append(list, ref)
					listBytes, err := json.Marshal(list)
					if err != nil {
						return err
					}
					if err := successors.Put(key, listBytes); err != nil {
						return err
					}
				}
			}

			saved = append(saved, env)
		}

		return seqBucket.Put([]byte("seq"), itob(nextSeq))
	}()

	return saved, err
}

func (s *BoltStore) Load(_ context.Context, refs []fact.Reference) ([]fact.Envelope, error) {
	var out []fact.Envelope

	err := s.db.View(func(tx *bolt.Tx) error {
		facts := tx.Bucket(bucketFacts)
		ancestors := tx.Bucket(bucketAncestors)

		union := make(map[fact.Reference]bool)
		for _, ref := range refs {
			raw := ancestors.Get(factKey(ref))
			if raw == nil {
				return facterrors.NotFound(ref.String())
			}
			var anc []fact.Reference
			if err := json.Unmarshal(raw, &anc); err != nil {
				return err
			}
			for _, a := range anc {
				union[a] = true
			}
		}

		type seqRef struct {
			ref fact.Reference
			seq int64
		}
		var ordered []seqRef
		for ref := range union {
			raw := facts.Get(factKey(ref))
			if raw == nil {
				return facterrors.ErrCorrupt
			}
			var rec boltFact
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			ordered = append(ordered, seqRef{ref: ref, seq: rec.Seq})
		}
		for i := 0; i < len(ordered); i++ {
			for j := i + 1; j < len(ordered); j++ {
				if ordered[j].seq < ordered[i].seq {
					ordered[i], ordered[j] = ordered[j], ordered[i]
				}
			}
		}
		for _, sr := range ordered {
			raw := facts.Get(factKey(sr.ref))
			var rec boltFact
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			out = append(out, fact.Envelope{Fact: rec.Fact})
		}
		return nil
	})

	return out, err
}

func (s *BoltStore) WhichExist(_ context.Context, refs []fact.Reference) ([]fact.Reference, error) {
	var out []fact.Reference
	err := s.db.View(func(tx *bolt.Tx) error {
		facts := tx.Bucket(bucketFacts)
		for _, ref := range refs {
			if facts.Get(factKey(ref)) != nil {
				out = append(out, ref)
			}
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) Query(_ context.Context, start fact.Reference, q query.StepQuery) ([]fact.Reference, error) {
	return query.ExecuteSteps(s, start, q)
}

func (s *BoltStore) Read(_ context.Context, given query.Tuple, spec query.Specification) (any, error) {
	if err := query.Validate(spec); err != nil {
		return nil, err
	}
	tuples, err := query.Execute(s, spec, given)
	if err != nil {
		return nil, err
	}
	return query.Project(s, tuples, spec.Projection)
}

func (s *BoltStore) Feed(_ context.Context, descriptor FeedDescriptor, given query.Tuple, bookmark string) ([]fact.Reference, string, error) {
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

	var fresh []fact.Reference
	maxSeq := after
	err = s.db.View(func(tx *bolt.Tx) error {
		facts := tx.Bucket(bucketFacts)
		for _, t := range tuples {
			ref := t[descriptor.ResultLabel]
			raw := facts.Get(factKey(ref))
			if raw == nil {
				continue
			}
			var rec boltFact
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			if rec.Seq > maxSeq {
				maxSeq = rec.Seq
			}
			if rec.Seq > after {
				fresh = append(fresh, ref)
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	return fresh, formatBookmark(maxSeq), nil
}

func (s *BoltStore) SaveBookmark(_ context.Context, feedName, bookmark string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBookmarks).Put([]byte(feedName), []byte(bookmark))
	})
}

func (s *BoltStore) LoadBookmark(_ context.Context, feedName string) (string, error) {
	var bookmark string
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketBookmarks).Get([]byte(feedName))
		bookmark = string(raw)
		return nil
	})
	return bookmark, err
}

func (s *BoltStore) FactOf(ref fact.Reference) (fact.Fact, bool, error) {
	var rec boltFact
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketFacts).Get(factKey(ref))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &rec)
	})
	return rec.Fact, found, err
}

func (s *BoltStore) WalkPredecessors(refs []fact.Reference, role string) ([]fact.Reference, error) {
	var out []fact.Reference
	err := s.db.View(func(tx *bolt.Tx) error {
		facts := tx.Bucket(bucketFacts)
		for _, ref := range refs {
			raw := facts.Get(factKey(ref))
			if raw == nil {
				continue
			}
			var rec boltFact
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			out = append(out, rec.Fact.Predecessors[role]...)
		}
		return nil
	})
	return dedupe(out), err
}

func (s *BoltStore) WalkSuccessors(refs []fact.Reference, role string) ([]fact.Reference, error) {
	var out []fact.Reference
	err := s.db.View(func(tx *bolt.Tx) error {
		successors := tx.Bucket(bucketSuccessors)
		for _, ref := range refs {
			key := []byte(ref.Type + ":" + ref.Hash + "|" + role)
			raw := successors.Get(key)
			if raw == nil {
				continue
			}
			var list []fact.Reference
			if err := json.Unmarshal(raw, &list); err != nil {
				return err
			}
			out = append(out, list...)
		}
		return nil
	})
	return dedupe(out), err
}

// All returns every fact in insertion order, for cmd/factengine-migrate.
func (s *BoltStore) All(_ context.Context) ([]fact.Envelope, error) {
	type seqFact struct {
		fact fact.Fact
		seq  int64
	}
	var recs []seqFact
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFacts).ForEach(func(_, v []byte) error {
			var rec boltFact
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			recs = append(recs, seqFact{fact: rec.Fact, seq: rec.Seq})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	out := make([]fact.Envelope, len(recs))
	for i, r := range recs {
		out[i] = fact.Envelope{Fact: r.fact}
	}
	return out, nil
}

// SaveLogin and LoadLogin back a session-token map for an HTTP
// authentication boundary a deployment layers on top of factengine.
// They are not part of the Store contract.
type Login struct {
	UserFact    fact.Reference
	DisplayName string
}

func (s *BoltStore) SaveLogin(token string, login Login) error {
	data, err := json.Marshal(login)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLogins).Put([]byte(token), data)
	})
}

func (s *BoltStore) LoadLogin(token string) (Login, bool, error) {
	var login Login
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketLogins).Get([]byte(token))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &login)
	})
	return login, found, err
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func btoi(b []byte) int64 {
	var v int64
	for i := 0; i < 8 && i < len(b); i++ {
		v |= int64(b[i]) << (8 * i)
	}
	return v
}
