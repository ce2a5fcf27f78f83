package fork

import (
	"context"

	"github.com/cuemby/factengine/pkg/fact"
)

// RemoteFeed is the transport boundary a concrete HTTP or other
// wire-protocol client implements. The concrete transport is
// deliberately out of scope here: factengine only specifies the
// interface and a no-op variant.
type RemoteFeed interface {
	// Send pushes envelopes to the remote store, content-addressed so
	// repeated sends of the same envelope are harmless.
	Send(ctx context.Context, envelopes []fact.Envelope) error

	// Open starts a feed stream named feedName at bookmark (empty
	// meaning "from the start"), returning a handle whose Next blocks
	// for the next server event.
	Open(ctx context.Context, feedName string, bookmark string) (FeedStream, error)

	// Load fetches the envelopes for refs from the remote store, used
	// by Subscriber to materialize references a feed event named that
	// are not yet present locally.
	Load(ctx context.Context, refs []fact.Reference) ([]fact.Envelope, error)
}

// FeedStream is a single open remote feed connection.
type FeedStream interface {
	// Next blocks until the server emits the next event, ctx is
	// cancelled, or the connection fails.
	Next(ctx context.Context) (refs []fact.Reference, nextBookmark string, err error)
	Close() error
}

// NoopRemoteFeed is the capability no-op variant used when no remote
// peer is configured: Fork implementations depend on the RemoteFeed
// interface, never a concrete transport, so swapping this in requires
// no change to Persistent or Subscriber.
type NoopRemoteFeed struct{}

func (NoopRemoteFeed) Send(context.Context, []fact.Envelope) error { return nil }

func (NoopRemoteFeed) Open(context.Context, string, string) (FeedStream, error) {
	return noopFeedStream{}, nil
}

func (NoopRemoteFeed) Load(context.Context, []fact.Reference) ([]fact.Envelope, error) {
	return nil, nil
}

type noopFeedStream struct{}

func (noopFeedStream) Next(ctx context.Context) ([]fact.Reference, string, error) {
	<-ctx.Done()
	return nil, "", ctx.Err()
}

func (noopFeedStream) Close() error { return nil }
