package fork

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/log"
	"github.com/cuemby/factengine/pkg/metrics"
	"github.com/rs/zerolog"
)

// Fork governs the remote half of a write: local durability is the
// engine's responsibility and happens before Fork.Save is called.
type Fork interface {
	// Save is invoked once per locally-durable batch.
	Save(ctx context.Context, envelopes []fact.Envelope) error
	// Close releases background goroutines and file handles.
	Close() error
}

// PassThrough is purely local; Save is a no-op.
type PassThrough struct{}

func NewPassThrough() *PassThrough { return &PassThrough{} }

func (*PassThrough) Save(context.Context, []fact.Envelope) error { return nil }
func (*PassThrough) Close() error                                 { return nil }

// Transient attempts remote delivery inline with each save, surfacing
// failure to the caller rather than queuing it.
type Transient struct {
	remote RemoteFeed
}

func NewTransient(remote RemoteFeed) *Transient {
	return &Transient{remote: remote}
}

func (t *Transient) Save(ctx context.Context, envelopes []fact.Envelope) error {
	if len(envelopes) == 0 {
		return nil
	}
	return t.remote.Send(ctx, envelopes)
}

func (*Transient) Close() error { return nil }

// Persistent durably queues every saved batch and drains it to the
// remote feed on a background loop with exponential backoff. The loop
// is idempotent: envelopes are content-addressed, so redelivering one
// the remote already has is harmless.
type Persistent struct {
	remote RemoteFeed
	outbox *Outbox
	logger zerolog.Logger

	mu     sync.Mutex
	wake   chan struct{}
	stopCh chan struct{}
	done   chan struct{}
}

// NewPersistent constructs a Persistent fork backed by outbox and
// starts its drain loop immediately.
func NewPersistent(remote RemoteFeed, outbox *Outbox) *Persistent {
	p := &Persistent{
		remote: remote,
		outbox: outbox,
		logger: log.WithComponent("fork"),
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.drainLoop()
	return p
}

func (p *Persistent) Save(_ context.Context, envelopes []fact.Envelope) error {
	if len(envelopes) == 0 {
		return nil
	}
	if err := p.outbox.Enqueue(envelopes); err != nil {
		return err
	}
	p.nudge()
	return nil
}

func (p *Persistent) Close() error {
	close(p.stopCh)
	<-p.done
	return p.outbox.Close()
}

func (p *Persistent) nudge() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// drainLoop is a ticker-driven cycle that also wakes early whenever
// Save enqueues new work.
func (p *Persistent) drainLoop() {
	defer close(p.done)

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		p.drainOnce()
		select {
		case <-ticker.C:
		case <-p.wake:
		case <-p.stopCh:
			return
		}
	}
}

func (p *Persistent) drainOnce() {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ForkDrainDuration)
		metrics.ForkDrainCyclesTotal.Inc()
	}()

	pending, err := p.outbox.Pending()
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to read outbox")
		return
	}
	if len(pending) == 0 {
		return
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0 // retried by the next scheduled drain, not blocked forever here

	for _, env := range pending {
		select {
		case <-p.stopCh:
			return
		default:
		}

		ref, err := fact.ReferenceOf(env.Fact)
		if err != nil {
			p.logger.Error().Err(err).Msg("malformed outbox entry, dropping")
			continue
		}

		op := func() error {
			return p.remote.Send(context.Background(), []fact.Envelope{env})
		}
		err = backoff.Retry(op, backoff.WithMaxRetries(b, 5))
		if err != nil {
			metrics.ForkSendFailuresTotal.Inc()
			p.logger.Warn().Err(err).Str("ref", ref.String()).Msg("remote send failed, will retry next cycle")
			return
		}
		if err := p.outbox.Remove(ref); err != nil {
			p.logger.Error().Err(err).Str("ref", ref.String()).Msg("failed to remove delivered envelope from outbox")
		}
	}
}
