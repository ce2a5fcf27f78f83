/*
Package fact defines factengine's core data structure: the immutable,
content-addressed fact.

A fact carries a type, a map of scalar fields, and a map of named roles
to ordered predecessor references. Facts have no identity beyond their
content — two facts that canonicalize to the same bytes are the same
fact, and a fact's reference is a deterministic hash of that canonical
form. This package computes both.

# Architecture

	┌────────────────────────── FACT MODEL ──────────────────────────┐
	│                                                                  │
	│  ┌────────────────────────────────────────────┐                │
	│  │                  Fact                        │                │
	│  │  - Type       string                         │                │
	│  │  - Fields     map[string]FieldValue          │                │
	│  │  - Predecessors map[string][]Reference       │                │
	│  └──────────────────┬───────────────────────────┘                │
	│                     │ Canonicalize                                │
	│  ┌──────────────────▼───────────────────────────┐                │
	│  │           Canonical bytes                     │                │
	│  │  {"fields":{...sorted...},                    │                │
	│  │   "predecessors":{...sorted...},              │                │
	│  │   "type":"..."}                               │                │
	│  └──────────────────┬───────────────────────────┘                │
	│                     │ SHA-256                                    │
	│  ┌──────────────────▼───────────────────────────┐                │
	│  │              Reference{Type, Hash}            │                │
	│  └────────────────────────────────────────────────┘              │
	└──────────────────────────────────────────────────────────────────┘

# Core Types

  - Fact: an immutable typed record referencing zero or more predecessors.
  - Reference: the (type, hash) pair naming a fact.
  - Envelope: a fact plus zero or more opaque signatures.
  - Edge: a derived (successor, predecessor, role) triple.
  - FieldValue: the scalar union a fact's fields may hold.

# Canonicalization rules

  - Field map keys are sorted lexicographically.
  - Predecessor map keys (role names) are sorted lexicographically;
    each role's reference list keeps insertion order.
  - Each reference renders as {"type":..., "hash":...} with those two
    keys in that order.
  - Dates are encoded as ISO-8601 UTC with millisecond precision.

These rules must stay bit-exact: two independent canonicalizations of
the same fact must produce identical bytes and therefore identical
hashes, in this implementation or any other.
*/
package fact
