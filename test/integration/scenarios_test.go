// Package integration_test exercises the six end-to-end scenarios
// against a real Engine, combining storage, authorization, the
// observable source, and the fork in one process instead of testing
// each package in isolation.
package integration_test

import (
	"context"
	"sync"
	"testing"

	"github.com/cuemby/factengine/pkg/authorization"
	"github.com/cuemby/factengine/pkg/engine"
	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/facterrors"
	"github.com/cuemby/factengine/pkg/fork"
	"github.com/cuemby/factengine/pkg/observable"
	"github.com/cuemby/factengine/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/factengine/test/framework"
)

func newEngine(t *testing.T, cfg engine.Config) *engine.Engine {
	t.Helper()
	e, err := engine.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func listAndTask(t *testing.T) (list, task fact.Fact, listRef, taskRef fact.Reference) {
	t.Helper()
	list = fact.Fact{Type: "List", Fields: map[string]fact.FieldValue{"name": fact.StringValue("Chores")}}
	var err error
	listRef, err = fact.ReferenceOf(list)
	require.NoError(t, err)
	task = fact.Fact{
		Type:         "Task",
		Predecessors: map[string][]fact.Reference{"list": {listRef}},
		Fields:       map[string]fact.FieldValue{"description": fact.StringValue("trash")},
	}
	taskRef, err = fact.ReferenceOf(task)
	require.NoError(t, err)
	return
}

// S1: predecessor walk.
func TestScenarioS1PredecessorWalk(t *testing.T) {
	e := newEngine(t, engine.Config{DefaultPolicy: authorization.DefaultPermissive})
	ctx := context.Background()
	user := fact.Reference{Type: "User", Hash: "u1"}

	list, task, listRef, taskRef := listAndTask(t)
	_, err := e.Save(ctx, []fact.Envelope{{Fact: list}, {Fact: task}}, user)
	require.NoError(t, err)

	got, err := e.Query(ctx, taskRef, query.StepQuery{
		query.Join{Direction: query.Predecessor, Role: "list"},
		query.PropertyCondition{Name: "type", Value: fact.StringValue("List")},
	})
	require.NoError(t, err)
	assert.Equal(t, []fact.Reference{listRef}, got)
}

// S2: successor walk.
func TestScenarioS2SuccessorWalk(t *testing.T) {
	e := newEngine(t, engine.Config{DefaultPolicy: authorization.DefaultPermissive})
	ctx := context.Background()
	user := fact.Reference{Type: "User", Hash: "u1"}

	list, task, listRef, taskRef := listAndTask(t)
	_, err := e.Save(ctx, []fact.Envelope{{Fact: list}, {Fact: task}}, user)
	require.NoError(t, err)

	got, err := e.Query(ctx, listRef, query.StepQuery{
		query.Join{Direction: query.Successor, Role: "list"},
		query.PropertyCondition{Name: "type", Value: fact.StringValue("Task")},
	})
	require.NoError(t, err)
	assert.Equal(t, []fact.Reference{taskRef}, got)
}

// S3: existential NotExists, driven through Engine.Watch rather than
// a bare Observer over a bare Source.
func TestScenarioS3ExistentialNotExists(t *testing.T) {
	e := newEngine(t, engine.Config{DefaultPolicy: authorization.DefaultPermissive})
	ctx := context.Background()
	user := fact.Reference{Type: "User", Hash: "u1"}

	list := fact.Fact{Type: "List", Fields: map[string]fact.FieldValue{"name": fact.StringValue("Chores")}}
	listRef, err := fact.ReferenceOf(list)
	require.NoError(t, err)
	task1 := fact.Fact{Type: "Task", Predecessors: map[string][]fact.Reference{"list": {listRef}}, Fields: map[string]fact.FieldValue{"description": fact.StringValue("trash")}}
	task2 := fact.Fact{Type: "Task", Predecessors: map[string][]fact.Reference{"list": {listRef}}, Fields: map[string]fact.FieldValue{"description": fact.StringValue("dishes")}}
	task2Ref, err := fact.ReferenceOf(task2)
	require.NoError(t, err)

	_, err = e.Save(ctx, []fact.Envelope{{Fact: list}, {Fact: task1}, {Fact: task2}}, user)
	require.NoError(t, err)

	spec := query.Specification{
		Given: []query.Label{"list"},
		Matches: []query.Match{
			{
				Unknown: "task",
				Conditions: []query.Condition{
					query.PathCondition{RolesLeft: []query.Role{{Name: "list"}}, LabelRight: "list"},
					query.ExistentialCondition{
						Exists: false,
						Matches: []query.Match{
							{
								Unknown: "complete",
								Conditions: []query.Condition{
									query.PathCondition{RolesLeft: []query.Role{{Name: "task"}}, LabelRight: "task"},
								},
							},
						},
					},
				},
			},
		},
		Projection: query.Projection{Kind: query.ProjectSingle, Label: "task"},
	}

	var mu sync.Mutex
	addedCount, removedCount := 0, 0
	var removedRef fact.Reference

	obs, err := e.Watch(ctx, spec, query.Tuple{"list": listRef},
		func(tuple query.Tuple) observable.Handle {
			mu.Lock()
			defer mu.Unlock()
			addedCount++
			return tuple["task"]
		},
		func(h observable.Handle) {
			mu.Lock()
			defer mu.Unlock()
			removedCount++
			removedRef = h.(fact.Reference)
		},
	)
	require.NoError(t, err)
	defer obs.Stop()

	mu.Lock()
	require.Equal(t, 2, addedCount, "both tasks emitted before any TaskComplete exists")
	mu.Unlock()

	complete := fact.Fact{Type: "TaskComplete", Predecessors: map[string][]fact.Reference{"task": {task2Ref}}, Fields: map[string]fact.FieldValue{"completed": fact.BoolValue(true)}}
	_, err = e.Save(ctx, []fact.Envelope{{Fact: complete}}, user)
	require.NoError(t, err)

	w := framework.DefaultWaiter()
	require.NoError(t, w.WaitFor(ctx, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return removedCount == 1
	}, "removed called once for the now-complete task"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, task2Ref, removedRef)
}

// S4: authorization by specification, enforced through Engine.Save
// rather than calling RuleSet.Authorize directly.
func TestScenarioS4AuthorizationBySpecification(t *testing.T) {
	e := newEngine(t, engine.Config{DefaultPolicy: authorization.DefaultPermissive})
	ownerSpec := query.Specification{
		Given: []query.Label{"task"},
		Matches: []query.Match{
			{
				Unknown: "owner",
				Conditions: []query.Condition{
					query.PathCondition{
						RolesRight: []query.Role{{Name: "list"}, {Name: "owner"}},
						LabelRight: "task",
					},
				},
			},
		},
		Projection: query.Projection{Kind: query.ProjectSingle, Label: "owner"},
	}
	rule, err := authorization.NewSpecificationRule(ownerSpec)
	require.NoError(t, err)
	e.Rules().Register("Task", rule)

	ctx := context.Background()
	owner := fact.Fact{Type: "User", Fields: map[string]fact.FieldValue{"name": fact.StringValue("Ada")}}
	ownerRef, err := fact.ReferenceOf(owner)
	require.NoError(t, err)
	intruder := fact.Fact{Type: "User", Fields: map[string]fact.FieldValue{"name": fact.StringValue("Mallory")}}
	intruderRef, err := fact.ReferenceOf(intruder)
	require.NoError(t, err)
	list := fact.Fact{Type: "List", Predecessors: map[string][]fact.Reference{"owner": {ownerRef}}, Fields: map[string]fact.FieldValue{"name": fact.StringValue("Chores")}}
	listRef, err := fact.ReferenceOf(list)
	require.NoError(t, err)

	_, err = e.Save(ctx, []fact.Envelope{{Fact: owner}, {Fact: intruder}, {Fact: list}}, ownerRef)
	require.NoError(t, err)

	task := fact.Fact{Type: "Task", Predecessors: map[string][]fact.Reference{"list": {listRef}}, Fields: map[string]fact.FieldValue{"description": fact.StringValue("trash")}}

	_, err = e.Save(ctx, []fact.Envelope{{Fact: task}}, intruderRef)
	assert.ErrorIs(t, err, facterrors.ErrForbidden)

	_, err = e.Save(ctx, []fact.Envelope{{Fact: task}}, ownerRef)
	assert.NoError(t, err)
}

// fakeRemote is a process-local RemoteFeed double: Send records
// delivered envelopes and can be told to fail a fixed number of times.
type fakeRemote struct {
	mu        sync.Mutex
	delivered []fact.Envelope
	fail      int
}

func (f *fakeRemote) Send(_ context.Context, envelopes []fact.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail > 0 {
		f.fail--
		return assert.AnError
	}
	f.delivered = append(f.delivered, envelopes...)
	return nil
}

func (f *fakeRemote) Open(context.Context, string, string) (fork.FeedStream, error) {
	return nil, assert.AnError
}

func (f *fakeRemote) Load(context.Context, []fact.Reference) ([]fact.Envelope, error) {
	return nil, nil
}

func (f *fakeRemote) deliveredCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delivered)
}

// S5: offline replay, through Engine.Save with a Persistent fork
// wired in at construction.
func TestScenarioS5OfflineReplay(t *testing.T) {
	outbox, err := fork.NewOutbox(t.TempDir())
	require.NoError(t, err)
	remote := &fakeRemote{fail: 2} // first two delivery attempts simulate being offline
	persistent := fork.NewPersistent(remote, outbox)

	e := newEngine(t, engine.Config{DefaultPolicy: authorization.DefaultPermissive, Fork: persistent})
	ctx := context.Background()
	user := fact.Reference{Type: "User", Hash: "u1"}

	facts := []fact.Fact{
		{Type: "A", Fields: map[string]fact.FieldValue{"n": fact.NumberValue(1)}},
		{Type: "B", Fields: map[string]fact.FieldValue{"n": fact.NumberValue(2)}},
		{Type: "C", Fields: map[string]fact.FieldValue{"n": fact.NumberValue(3)}},
	}
	var refs []fact.Reference
	var envelopes []fact.Envelope
	for _, f := range facts {
		envelopes = append(envelopes, fact.Envelope{Fact: f})
		ref, err := fact.ReferenceOf(f)
		require.NoError(t, err)
		refs = append(refs, ref)
	}

	_, err = e.Save(ctx, envelopes, user)
	require.NoError(t, err) // a Save failure here would be the fork's, not storage's

	w := framework.DefaultWaiter()
	require.NoError(t, w.WaitFor(ctx, func() bool {
		return remote.deliveredCount() == 3
	}, "all three facts eventually reach the remote"))

	exist, err := e.Store().WhichExist(ctx, refs)
	require.NoError(t, err)
	assert.ElementsMatch(t, refs, exist, "which_exist reports all three present locally")
}

// S6: deduplicating ingest, directly through Store.IngestBatch the
// way a Subscriber would call it after receiving a remote batch.
func TestScenarioS6DeduplicatingIngest(t *testing.T) {
	e := newEngine(t, engine.Config{DefaultPolicy: authorization.DefaultPermissive})
	ctx := context.Background()
	user := fact.Reference{Type: "User", Hash: "u1"}

	known := fact.Fact{Type: "A", Fields: map[string]fact.FieldValue{"n": fact.NumberValue(1)}}
	fresh := fact.Fact{Type: "B", Fields: map[string]fact.FieldValue{"n": fact.NumberValue(2)}}
	knownRef, err := fact.ReferenceOf(known)
	require.NoError(t, err)
	freshRef, err := fact.ReferenceOf(fresh)
	require.NoError(t, err)

	_, err = e.Save(ctx, []fact.Envelope{{Fact: known}}, user)
	require.NoError(t, err)

	saved, err := e.Store().IngestBatch(ctx, []fact.Envelope{{Fact: known}, {Fact: fresh}}, "remote-1", "bookmark-1")
	require.NoError(t, err)
	require.Len(t, saved, 1, "only the not-yet-known fact is reported as newly saved")
	assert.Equal(t, freshRef, mustRef(t, saved[0].Fact))

	bookmark, err := e.Store().LoadBookmark(ctx, "remote-1")
	require.NoError(t, err)
	assert.Equal(t, "bookmark-1", bookmark)

	exist, err := e.Store().WhichExist(ctx, []fact.Reference{knownRef, freshRef})
	require.NoError(t, err)
	assert.ElementsMatch(t, []fact.Reference{knownRef, freshRef}, exist)
}

func mustRef(t *testing.T, f fact.Fact) fact.Reference {
	t.Helper()
	ref, err := fact.ReferenceOf(f)
	require.NoError(t, err)
	return ref
}
