/*
Package engine composes storage, authorization, the observable source,
and the fork into the single coordinator applications construct:
Engine. It implements the write and read/subscribe data flows; none of
the composed packages know about each other directly.

Engine is a single struct built once at process start from a Config,
owning its store and every collaborator's lifecycle: RuleSet,
observable.Source, fork.Fork.

# Write flow

Save hashes each envelope (already done implicitly by fact.ReferenceOf
at submission), assembles the evidence closure for every fact in the
batch by walking Predecessors within the batch and falling back to
storage for anything already persisted, authorizes each fact against
that evidence, and only then commits the whole batch to storage. A
save that fails authorization has no partial effect: nothing in the
batch is persisted.

# Read/subscribe flow

Watch validates a specification, constructs an observable.Observer
against the engine's store and source, and starts it — the observer's
own Start performs the initial synchronous query and begins live
dispatch.
*/
package engine
