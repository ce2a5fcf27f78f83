package observable

import (
	"sync"

	"github.com/cuemby/factengine/pkg/fact"
)

// Source is the per-process pub/sub fabric over storage. Every
// successful Save notifies it once, with the entire batch, so no
// subscriber ever observes a partial batch.
type Source struct {
	mu   sync.Mutex
	subs map[*subscription]bool
}

// NewSource creates an empty observable source.
func NewSource() *Source {
	return &Source{subs: make(map[*subscription]bool)}
}

type subscription struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   [][]fact.Envelope
	closed  bool
}

func newSubscription() *subscription {
	s := &subscription{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *subscription) push(batch []fact.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, batch)
	s.cond.Signal()
}

// next blocks until a batch is available or the subscription is
// closed, in which case ok is false.
func (s *subscription) next() (batch []fact.Envelope, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.queue) == 0 {
		return nil, false
	}
	batch = s.queue[0]
	s.queue = s.queue[1:]
	return batch, true
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
}

// subscribe registers a new subscription and returns it along with a
// function that unregisters and releases it.
func (src *Source) subscribe() (*subscription, func()) {
	sub := newSubscription()
	src.mu.Lock()
	src.subs[sub] = true
	src.mu.Unlock()

	cancel := func() {
		src.mu.Lock()
		delete(src.subs, sub)
		src.mu.Unlock()
		sub.close()
	}
	return sub, cancel
}

// Notify broadcasts a newly-saved batch to every live subscription.
// It is invoked by the engine on every successful Save, including
// batches ingested from a remote feed.
func (src *Source) Notify(batch []fact.Envelope) {
	if len(batch) == 0 {
		return
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	for sub := range src.subs {
		sub.push(batch)
	}
}

// SubscriberCount reports the number of live subscriptions.
func (src *Source) SubscriberCount() int {
	src.mu.Lock()
	defer src.mu.Unlock()
	return len(src.subs)
}
