/*
Package log provides structured logging via zerolog: a global logger,
component-scoped child loggers, and level/format configuration shared
by every other package and by cmd/factengine.

# Usage

Initializing the logger:

	import "github.com/cuemby/factengine/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("engine starting")
	log.Debug("checking store directory")
	log.Warn("outbox drain retrying")
	log.Error("failed to open store")
	log.Fatal("cannot start without a store directory")

Structured logging:

	log.Logger.Info().
		Str("engine_id", id).
		Int("facts_saved", len(saved)).
		Msg("batch committed")

Component loggers:

	engineLog := log.WithComponent("engine")
	engineLog.Info().Msg("opened store")

	obsLog := log.WithObserver(observerID)
	obsLog.Debug().Msg("re-evaluated specification")

	feedLog := log.WithFeed("outbox").
		With().Str("fact_type", "Task").Logger()
	feedLog.Error().Err(err).Msg("drain attempt failed")

# Log Levels

Debug, Info, Warn, Error, and Fatal mirror zerolog's own levels; Fatal
logs the message and calls os.Exit(1), so it is reserved for startup
failures the process cannot recover from (e.g. an unopenable store
directory).

# Design

Global Logger Pattern: a single package-level zerolog.Logger,
initialized once via log.Init and read by every package without being
passed around explicitly.

Context Logger Pattern: WithComponent, WithFactType, WithObserver, and
WithFeed return child loggers carrying a fixed field, so call sites
don't repeat it on every log line.

# Security

Never log fact field values or session tokens directly; log references
(type:hash) and counts instead.
*/
package log
