/*
Package observable implements factengine's reactive layer: a
per-process pub/sub fabric (Source) over the storage layer, and a live
specification subscription (Observer) that invokes add/remove
callbacks as new facts are saved.

Source is a channel-based subscribe/unsubscribe broker with a
per-subscriber queue, with two properties a plain fixed-channel broker
doesn't give for free:

  - No dropped events: a saved batch must reach every observer, so
    each subscription here is an unbounded, mutex-guarded queue
    drained by one goroutine per subscriber instead of a fixed-size
    channel that can overflow and drop.
  - Strict per-observer serialization: no two batches are ever
    processed concurrently for the same observer, so an Observer's
    add/remove callbacks never race with themselves.

# Architecture

	┌─────────────────────── OBSERVABLE SOURCE ───────────────────────┐
	│                                                                    │
	│  Engine.Save ──▶ Source.Notify(batch) ──▶ per-subscriber queue    │
	│                                              │                    │
	│                                     ┌────────▼────────┐          │
	│                                     │  Observer        │          │
	│                                     │  - Start          │          │
	│                                     │  - added/removed  │          │
	│                                     │  - Stop           │          │
	│                                     └──────────────────┘          │
	└────────────────────────────────────────────────────────────────────┘
*/
package observable
