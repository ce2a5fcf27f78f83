/*
Package fork implements the offline-capable write path: it decides,
per runtime configuration, whether a locally-saved batch is also
pushed to a remote feed, and it owns the Subscriber that pulls
remote batches back in.

The background drain is a ticker-driven loop that also wakes early on
new work, paired with a notify-on-ingest callback for the Subscriber
side. The outbox itself is a bucket-per-concern BoltDB layout.

# Strategies

  - PassThrough — local only; Save is a no-op here, since local
    durability already happened before Fork.Save is called.
  - Transient — Save sends to the remote feed inline and surfaces any
    failure to the caller; nothing is durably queued.
  - Persistent — Save enqueues into a durable, content-addressed
    outbox; a background loop drains it with exponential backoff
    (github.com/cenkalti/backoff/v4), removing each envelope only
    after a successful remote ack. The loop is safe to interrupt and
    resume because envelopes are content-addressed and the remote
    side dedupes by reference.

RemoteFeed is the transport boundary: wire-protocol bindings are out
of scope here, so this package only defines the interface a concrete
transport implementation would satisfy, plus a no-op variant for
configurations with no remote peer.
*/
package fork
