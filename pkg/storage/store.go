package storage

import (
	"context"

	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/query"
)

// FeedDescriptor names a server-supplied feed: a specification
// evaluated from the caller's given bindings, whose ResultLabel projects the references the
// feed streams. Facts are included once their insertion sequence
// exceeds the caller's bookmark.
type FeedDescriptor struct {
	Name        string
	Specification query.Specification
	ResultLabel query.Label
}

// Store is the storage contract for all of factengine. Concrete
// storage backends — in-memory, embedded key-value, remote SQL — are
// external collaborators; this package supplies the interface and one
// reference implementation of each of the two in-process variants.
type Store interface {
	// Save persists each envelope at most once, returning only those
	// newly written. Callers must supply predecessors before or
	// within the same batch.
	Save(ctx context.Context, envelopes []fact.Envelope) ([]fact.Envelope, error)

	// Load returns the union of ancestor sets of the given references.
	Load(ctx context.Context, refs []fact.Reference) ([]fact.Envelope, error)

	// WhichExist returns the subset of refs already present.
	WhichExist(ctx context.Context, refs []fact.Reference) ([]fact.Reference, error)

	// Query executes a legacy step-based graph walk from start.
	Query(ctx context.Context, start fact.Reference, q query.StepQuery) ([]fact.Reference, error)

	// Read executes a specification, returning the shape its
	// projection describes.
	Read(ctx context.Context, given query.Tuple, spec query.Specification) (any, error)

	// Feed streams references newly matching descriptor past bookmark.
	Feed(ctx context.Context, descriptor FeedDescriptor, given query.Tuple, bookmark string) (refs []fact.Reference, nextBookmark string, err error)

	// SaveBookmark and LoadBookmark are feed-name-keyed opaque strings.
	SaveBookmark(ctx context.Context, feedName, bookmark string) error
	LoadBookmark(ctx context.Context, feedName string) (string, error)

	// IngestBatch saves envelopes received from a remote feed and
	// advances feedName's bookmark in one atomic operation: a crash
	// between save and bookmark-write never happens here, so a
	// re-delivered batch after reconnect is distinguished from one
	// already applied purely by Save's own idempotence.
	IngestBatch(ctx context.Context, envelopes []fact.Envelope, feedName, bookmark string) ([]fact.Envelope, error)

	// FactOf, WalkPredecessors, and WalkSuccessors satisfy
	// query.Graph so Store can be executed against directly.
	FactOf(ref fact.Reference) (fact.Fact, bool, error)
	WalkPredecessors(refs []fact.Reference, role string) ([]fact.Reference, error)
	WalkSuccessors(refs []fact.Reference, role string) ([]fact.Reference, error)

	// All returns every envelope in the store, in insertion order. It
	// exists for cmd/factengine-migrate, which copies a store's full
	// contents into another Store implementation via All+Save.
	All(ctx context.Context) ([]fact.Envelope, error)

	// Close releases any underlying resources.
	Close() error
}

var _ query.Graph = Store(nil)
