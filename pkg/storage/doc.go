/*
Package storage defines factengine's storage contract and two
implementations: an in-memory store used for tests and zero-config
operation, and a BoltDB-backed store for durable single-process
deployments.

# Architecture

	┌───────────────────────── STORAGE LAYER ─────────────────────────┐
	│                                                                    │
	│  ┌────────────────────────────────────────────┐                  │
	│  │                  Store                       │                  │
	│  │  - Save / Load / WhichExist                  │                  │
	│  │  - Query (step)  / Read (specification)      │                  │
	│  │  - Feed / SaveBookmark / LoadBookmark         │                  │
	│  │  - FactOf / WalkPredecessors / WalkSuccessors │ (query.Graph)    │
	│  └───────────────────┬──────────────────────────┘                  │
	│          ┌───────────┴────────────┐                               │
	│  ┌───────▼────────┐      ┌────────▼────────┐                      │
	│  │  MemoryStore    │      │   BoltStore      │                      │
	│  │  mutex + maps   │      │   go.etcd.io/bbolt│                     │
	│  └────────────────┘      └──────────────────┘                      │
	└──────────────────────────────────────────────────────────────────┘

# Persisted state (BoltStore)

  - facts: key "type:hash" -> json-encoded fact + insertion sequence
  - ancestors: key "type:hash" -> json-encoded closure of references
  - successors: key "predecessor-type:hash|role" -> json-encoded,
    insertion-ordered list of successor references (the secondary
    index that makes successor-direction walks cheap)
  - bookmarks: key feed name -> opaque bookmark string
  - logins: key session token -> json-encoded {user fact, display name}

# Invariants enforced here

  - A fact is saved only once its predecessors are present, in the
    store or elsewhere in the same batch (DAG closure under save).
  - Save is idempotent on (type, hash): re-saving a known envelope is
    a no-op and is not included in the "newly written" result.
  - Ancestor sets are maintained incrementally: ancestors(f) = {f} ∪
    the union of ancestors(p) for every predecessor p of f.
*/
package storage
