package fork

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/log"
	"github.com/cuemby/factengine/pkg/metrics"
	"github.com/cuemby/factengine/pkg/storage"
	"github.com/rs/zerolog"
)

// reconnectInterval forces a fresh remote connection every four
// minutes to evade intermediary idle timeouts.
const reconnectInterval = 4 * time.Minute

// NotifyFunc is invoked with the envelopes newly ingested from a
// remote feed batch, after they are durably saved and the feed's
// bookmark is durably advanced.
type NotifyFunc func(envelopes []fact.Envelope)

// Subscriber manages a single remote feed stream for one
// (feedName, startRefs) pair, shared across observers via refcounting.
type Subscriber struct {
	feedName string
	remote   RemoteFeed
	store    storage.Store
	notify   NotifyFunc
	logger   zerolog.Logger

	mu       sync.Mutex
	refcount int
	cancel   context.CancelFunc
	initDone chan struct{} // closed once the first connection attempt resolves
	initErr  error
}

// NewSubscriber constructs a Subscriber. It does nothing until the
// first AddRef.
func NewSubscriber(feedName string, remote RemoteFeed, store storage.Store, notify NotifyFunc) *Subscriber {
	return &Subscriber{
		feedName: feedName,
		remote:   remote,
		store:    store,
		notify:   notify,
		logger:   log.WithFeed(feedName),
	}
}

// AddRef increments the refcount, starting the underlying stream on
// the first acquisition. It returns once the stream's first response
// (or error) arrives, so callers never observe a subscription that
// looks live before it has actually connected.
func (s *Subscriber) AddRef(ctx context.Context) error {
	s.mu.Lock()
	s.refcount++
	first := s.refcount == 1
	if !first {
		initDone := s.initDone
		s.mu.Unlock()
		select {
		case <-initDone:
			s.mu.Lock()
			err := s.initErr
			s.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	initDone := make(chan struct{})
	s.initDone = initDone
	s.mu.Unlock()

	go s.run(runCtx, initDone)

	select {
	case <-initDone:
		s.mu.Lock()
		err := s.initErr
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release decrements the refcount, stopping the stream on the last
// release. It returns true if this call stopped the stream.
func (s *Subscriber) Release() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refcount == 0 {
		return false
	}
	s.refcount--
	if s.refcount > 0 {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return true
}

func (s *Subscriber) run(ctx context.Context, initDone chan struct{}) {
	bookmark, err := s.store.LoadBookmark(ctx, s.feedName)
	if err != nil {
		s.mu.Lock()
		s.initErr = err
		s.mu.Unlock()
		close(initDone)
		return
	}

	reportedStart := false
	reportStart := func(err error) {
		if reportedStart {
			return
		}
		reportedStart = true
		s.mu.Lock()
		s.initErr = err
		s.mu.Unlock()
		close(initDone)
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		bookmark = s.runConnection(ctx, bookmark, reportStart)
		reportStart(nil) // if the connection died before its first event

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// runConnection owns one physical connection, force-recycled every
// reconnectInterval, and returns the bookmark to resume from.
func (s *Subscriber) runConnection(ctx context.Context, bookmark string, reportStart func(error)) string {
	connCtx, cancel := context.WithTimeout(ctx, reconnectInterval)
	defer cancel()

	metrics.FeedReconnectsTotal.WithLabelValues(s.feedName).Inc()
	stream, err := s.remote.Open(connCtx, s.feedName, bookmark)
	if err != nil {
		reportStart(err)
		return bookmark
	}
	defer stream.Close()

	first := true
	for {
		refs, nextBookmark, err := stream.Next(connCtx)
		if err != nil {
			if first {
				reportStart(err)
			}
			return bookmark
		}

		if err := s.ingest(ctx, refs, nextBookmark); err != nil {
			s.logger.Error().Err(err).Msg("failed to ingest feed batch")
			if first {
				reportStart(err)
			}
			return bookmark
		}
		bookmark = nextBookmark

		if first {
			first = false
			reportStart(nil)
		}
	}
}

// ingest dedupes refs against storage, fetches the unknown ones in
// one batched load, and saves them with the bookmark advance atomic
// (storage.Store.IngestBatch), per S6's dedup contract.
func (s *Subscriber) ingest(ctx context.Context, refs []fact.Reference, nextBookmark string) error {
	existing, err := s.store.WhichExist(ctx, refs)
	if err != nil {
		return err
	}
	known := make(map[fact.Reference]bool, len(existing))
	for _, r := range existing {
		known[r] = true
	}

	var novel []fact.Reference
	for _, r := range refs {
		if !known[r] {
			novel = append(novel, r)
		}
	}

	if len(novel) == 0 {
		metrics.FeedLagSeconds.WithLabelValues(s.feedName).Set(0)
		return s.store.SaveBookmark(ctx, s.feedName, nextBookmark)
	}

	envelopes, err := s.remote.Load(ctx, novel)
	if err != nil {
		return err
	}

	saved, err := s.store.IngestBatch(ctx, envelopes, s.feedName, nextBookmark)
	if err != nil {
		return err
	}
	metrics.FeedIngestedTotal.WithLabelValues(s.feedName).Add(float64(len(saved)))
	metrics.FeedLagSeconds.WithLabelValues(s.feedName).Set(0)
	if len(saved) > 0 && s.notify != nil {
		s.notify(saved)
	}
	return nil
}
