package observable

import (
	"context"
	"sync"

	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/metrics"
	"github.com/cuemby/factengine/pkg/query"
	"github.com/cuemby/factengine/pkg/storage"
)

// Handle is passed to a Removed callback for a tuple previously
// reported via Added, letting callers tear down whatever they built
// (e.g. a nested child Observer) in response.
type Handle any

// AddedFunc is invoked once for every tuple newly matching the
// specification, in the order Execute returns them. Its return value
// is remembered and handed back to RemovedFunc if the tuple later
// stops matching.
type AddedFunc func(tuple query.Tuple) Handle

// RemovedFunc is invoked once for every tuple that no longer matches,
// with the Handle its AddedFunc returned.
type RemovedFunc func(handle Handle)

// Observer runs a specification against a store and a live Source,
// invoking Added/Removed as the matching tuple set changes. Nested
// observation (a projection's ProjectNested case) is not wired
// automatically: a caller's AddedFunc may construct and Start a child
// Observer, and its paired RemovedFunc stops it — Observer itself
// only tracks one specification's top-level tuple set.
type Observer struct {
	store   storage.Store
	source  *Source
	spec    query.Specification
	given   query.Tuple
	added   AddedFunc
	removed RemovedFunc

	mu      sync.Mutex
	known   map[string]Handle
	sub     *subscription
	cancel  func()
	initCh  chan struct{}
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewObserver constructs an Observer. Start must be called to begin
// evaluation and dispatch.
func NewObserver(store storage.Store, source *Source, spec query.Specification, given query.Tuple, added AddedFunc, removed RemovedFunc) *Observer {
	return &Observer{
		store:   store,
		source:  source,
		spec:    spec,
		given:   given,
		added:   added,
		removed: removed,
		known:   make(map[string]Handle),
		initCh:  make(chan struct{}),
		stopCh:  make(chan struct{}),
	}
}

// Start runs the initial query synchronously, invoking Added for
// every tuple already present, then subscribes to the source and
// begins dispatching subsequent batches on a dedicated goroutine.
// Initialized closes once the synchronous pass completes.
func (o *Observer) Start(ctx context.Context) error {
	tuples, err := query.Execute(o.store, o.spec, o.given)
	if err != nil {
		return err
	}

	o.mu.Lock()
	for _, t := range tuples {
		key := tupleKey(o.spec, t)
		if _, ok := o.known[key]; ok {
			continue
		}
		o.known[key] = o.added(t)
	}
	o.mu.Unlock()

	sub, cancel := o.source.subscribe()
	o.sub = sub
	o.cancel = cancel
	close(o.initCh)

	metrics.ObserversActive.Inc()

	o.wg.Add(1)
	go o.dispatchLoop()
	return nil
}

// Initialized reports when Start's synchronous pass has completed.
func (o *Observer) Initialized() <-chan struct{} {
	return o.initCh
}

// Stop unsubscribes and waits for any in-flight dispatch to finish.
// Results of a dispatch already underway when Stop is called are
// discarded; no Added or Removed call happens after Stop returns.
func (o *Observer) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	o.mu.Unlock()

	close(o.stopCh)
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	metrics.ObserversActive.Dec()
}

func (o *Observer) dispatchLoop() {
	defer o.wg.Done()
	for {
		batch, ok := o.sub.next()
		if !ok {
			return
		}
		select {
		case <-o.stopCh:
			return
		default:
		}
		o.reevaluate(batch)
	}
}

// reevaluate re-runs the specification in full and diffs the result
// against the known tuple set. A batch argument is accepted for
// symmetry with future incremental strategies but full re-evaluation
// is correct regardless of which facts the batch contained.
func (o *Observer) reevaluate(_ []fact.Envelope) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ObserverDispatchDuration)

	tuples, err := query.Execute(o.store, o.spec, o.given)
	if err != nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	select {
	case <-o.stopCh:
		return
	default:
	}

	seen := make(map[string]bool, len(tuples))
	for _, t := range tuples {
		key := tupleKey(o.spec, t)
		seen[key] = true
		if _, ok := o.known[key]; ok {
			continue
		}
		o.known[key] = o.added(t)
		metrics.ObserverTuplesAdded.Inc()
	}

	for key, handle := range o.known {
		if seen[key] {
			continue
		}
		delete(o.known, key)
		o.removed(handle)
		metrics.ObserverTuplesRemoved.Inc()
	}
}

func tupleKey(spec query.Specification, t query.Tuple) string {
	key := string(spec.Projection.Label)
	for _, m := range spec.Matches {
		if ref, ok := t[m.Unknown]; ok {
			key += "|" + string(m.Unknown) + "=" + ref.Type + ":" + ref.Hash
		}
	}
	return key
}
