package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/cuemby/factengine/pkg/authorization"
	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/log"
	"github.com/cuemby/factengine/pkg/metrics"
	"github.com/cuemby/factengine/pkg/observable"
	"github.com/cuemby/factengine/pkg/query"
	"github.com/cuemby/factengine/pkg/storage"

	forkpkg "github.com/cuemby/factengine/pkg/fork"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config configures a new Engine.
type Config struct {
	// StoreDir selects BoltStore when non-empty, MemoryStore otherwise.
	StoreDir string
	// DefaultPolicy governs fact types with no registered authorization
	// rule.
	DefaultPolicy authorization.DefaultPolicy
	// Fork governs the remote write path. Defaults to PassThrough.
	Fork forkpkg.Fork
}

// Engine is the fact manager: the central coordinator applications
// instantiate once, composing storage, authorization, the observable
// source, and the fork — every piece of state lives inside one Engine
// instance; there is no package-level mutable state.
type Engine struct {
	id     string
	store  storage.Store
	rules  *authorization.RuleSet
	source *observable.Source
	fork   forkpkg.Fork
	logger zerolog.Logger
}

// New constructs an Engine per cfg.
func New(cfg Config) (*Engine, error) {
	var store storage.Store
	if cfg.StoreDir != "" {
		if err := os.MkdirAll(cfg.StoreDir, 0o755); err != nil {
			return nil, fmt.Errorf("engine: failed to create store directory: %w", err)
		}
		bolt, err := storage.NewBoltStore(cfg.StoreDir)
		if err != nil {
			return nil, fmt.Errorf("engine: failed to open store: %w", err)
		}
		store = bolt
	} else {
		store = storage.NewMemoryStore()
	}

	fk := cfg.Fork
	if fk == nil {
		fk = forkpkg.NewPassThrough()
	}

	id := uuid.New().String()
	return &Engine{
		id:     id,
		store:  store,
		rules:  authorization.New(cfg.DefaultPolicy),
		source: observable.NewSource(),
		fork:   fk,
		logger: log.WithComponent("engine").With().Str("engine_id", id).Logger(),
	}, nil
}

// ID is a process-instance identifier generated at construction time,
// useful for correlating this Engine's log lines across a deployment
// running more than one.
func (e *Engine) ID() string {
	return e.id
}

// Rules exposes the RuleSet so callers can Register rules at startup.
func (e *Engine) Rules() *authorization.RuleSet {
	return e.rules
}

// Source exposes the observable source, e.g. for metrics collection.
func (e *Engine) Source() *observable.Source {
	return e.source
}

// Store exposes the underlying storage.Store for components (CLI,
// tests) that need direct read access beyond Engine's own surface.
func (e *Engine) Store() storage.Store {
	return e.store
}

// Save authorizes and persists envelopes as one batch: every fact's
// evidence closure is assembled from the batch itself plus storage,
// each fact is authorized for user, and only if every fact in the
// batch is authorized is any of it committed. Saved facts are then
// notified to observers and handed to the fork for remote delivery.
func (e *Engine) Save(ctx context.Context, envelopes []fact.Envelope, user fact.Reference) ([]fact.Envelope, error) {
	batch := make(map[fact.Reference]fact.Fact, len(envelopes))
	for _, env := range envelopes {
		ref, err := fact.ReferenceOf(env.Fact)
		if err != nil {
			return nil, err
		}
		batch[ref] = env.Fact
	}

	for _, env := range envelopes {
		evidence, err := evidenceClosure(ctx, e.store, env.Fact, batch)
		if err != nil {
			return nil, err
		}
		if err := e.rules.Authorize(ctx, e.store, env.Fact, evidence, user); err != nil {
			metrics.FactsRejectedTotal.WithLabelValues(env.Fact.Type).Inc()
			return nil, err
		}
	}

	saved, err := e.store.Save(ctx, envelopes)
	if err != nil {
		return nil, err
	}
	for _, env := range saved {
		metrics.FactsSavedTotal.WithLabelValues(env.Fact.Type).Inc()
	}

	e.source.Notify(saved)

	if err := e.fork.Save(ctx, saved); err != nil {
		e.logger.Warn().Err(err).Msg("fork failed to accept saved batch for remote delivery")
		return saved, err
	}
	return saved, nil
}

// Load returns the ancestor-closure union for refs.
func (e *Engine) Load(ctx context.Context, refs []fact.Reference) ([]fact.Envelope, error) {
	return e.store.Load(ctx, refs)
}

// Query runs a legacy step query from start.
func (e *Engine) Query(ctx context.Context, start fact.Reference, q query.StepQuery) ([]fact.Reference, error) {
	return e.store.Query(ctx, start, q)
}

// Read runs a specification once, returning its projected shape.
func (e *Engine) Read(ctx context.Context, given query.Tuple, spec query.Specification) (any, error) {
	if err := query.Validate(spec); err != nil {
		return nil, err
	}
	return e.store.Read(ctx, given, spec)
}

// Watch starts a live Observer over spec, invoking added/removed as
// the matching tuple set changes.
func (e *Engine) Watch(ctx context.Context, spec query.Specification, given query.Tuple, added observable.AddedFunc, removed observable.RemovedFunc) (*observable.Observer, error) {
	if err := query.Validate(spec); err != nil {
		return nil, err
	}
	obs := observable.NewObserver(e.store, e.source, spec, given, added, removed)
	if err := obs.Start(ctx); err != nil {
		return nil, err
	}
	return obs, nil
}

// Close releases the fork's background goroutines and the store's
// file handles, in that order.
func (e *Engine) Close() error {
	forkErr := e.fork.Close()
	storeErr := e.store.Close()
	if forkErr != nil {
		return forkErr
	}
	return storeErr
}

// evidenceClosure walks target's predecessors, resolving each one
// either from batch (facts submitted in the same call) or from
// storage, and returns the union as the evidence bundle authorization
// rules evaluate against.
func evidenceClosure(ctx context.Context, store storage.Store, target fact.Fact, batch map[fact.Reference]fact.Fact) ([]fact.Envelope, error) {
	visited := make(map[fact.Reference]bool)
	var evidence []fact.Envelope

	var walk func(f fact.Fact) error
	walk = func(f fact.Fact) error {
		for _, preds := range f.Predecessors {
			for _, p := range preds {
				if visited[p] {
					continue
				}
				visited[p] = true
				if pf, ok := batch[p]; ok {
					evidence = append(evidence, fact.Envelope{Fact: pf})
					if err := walk(pf); err != nil {
						return err
					}
					continue
				}
				loaded, err := store.Load(ctx, []fact.Reference{p})
				if err != nil {
					return err
				}
				for _, env := range loaded {
					ref, err := fact.ReferenceOf(env.Fact)
					if err != nil {
						return err
					}
					if visited[ref] {
						continue
					}
					visited[ref] = true
					evidence = append(evidence, env)
				}
			}
		}
		return nil
	}

	if err := walk(target); err != nil {
		return nil, err
	}
	return evidence, nil
}
