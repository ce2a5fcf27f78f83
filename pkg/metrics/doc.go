/*
Package metrics defines and registers factengine's Prometheus metrics
and exposes a health/readiness/liveness HTTP surface alongside them.

# Metrics catalog

Fact store:

	factengine_facts_saved_total{type}       counter
	factengine_facts_rejected_total{type}    counter

Observers:

	factengine_observers_active                              gauge
	factengine_observer_dispatch_duration_seconds             histogram
	factengine_observer_tuples_added_total                    counter
	factengine_observer_tuples_removed_total                  counter

Fork / outbox:

	factengine_outbox_depth                   gauge
	factengine_fork_drain_duration_seconds    histogram
	factengine_fork_drain_cycles_total        counter
	factengine_fork_send_failures_total       counter

Subscriber / feed:

	factengine_feed_lag_seconds{feed}         gauge
	factengine_feed_reconnects_total{feed}    counter
	factengine_feed_ingested_total{feed}      counter

All metrics are registered against the default Prometheus registry at
package init; Handler exposes them for scraping.

# Collector

Collector samples the one gauge that has no natural call site of its
own — outbox depth — on a 15-second interval, rather than threading a
metric update through every state-mutating call. The observer count is
maintained directly by pkg/observable at Observer start and stop.
Counters and histograms (facts saved, dispatch duration, drain
duration) are updated inline at their call site, by the engine,
observable and fork packages directly.

# Health

HealthChecker tracks named component health independently of metrics
registration; RegisterComponent/UpdateComponent record a component's
last-known status, GetHealth/GetReadiness compute the aggregate view,
and HealthHandler/ReadyHandler/LivenessHandler expose them over HTTP.
"store" and "fork" are the critical components readiness depends on.
*/
package metrics
