package metrics

import (
	"time"
)

// Outbox is the subset of fork.Outbox's surface the collector needs,
// kept as a local interface so this package does not import pkg/fork
// (which reports ForkDrainDuration/ForkDrainCyclesTotal directly at
// its own call site and would otherwise form an import cycle with
// this package).
type Outbox interface {
	Len() (int, error)
}

// Collector periodically samples gauges that have no natural call
// site of their own. ObserversActive, by contrast, is maintained
// directly by pkg/observable at Observer.Start/Stop and needs no
// sampling here.
type Collector struct {
	outbox Outbox
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector. outbox may be nil when
// the engine's fork is not Persistent, in which case outbox depth is
// left at its zero value.
func NewCollector(outbox Outbox) *Collector {
	return &Collector{
		outbox: outbox,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15-second interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if c.outbox != nil {
		if n, err := c.outbox.Len(); err == nil {
			OutboxDepth.Set(float64(n))
		}
	}
}
