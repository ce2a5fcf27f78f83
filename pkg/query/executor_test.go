package query

import (
	"testing"

	"github.com/cuemby/factengine/pkg/fact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGraph is a minimal in-memory Graph used only to exercise the
// executor; pkg/storage's Store implementations are exercised against
// the real thing in pkg/storage's own tests.
type fakeGraph struct {
	facts map[fact.Reference]fact.Fact
	order []fact.Reference
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{facts: make(map[fact.Reference]fact.Fact)}
}

func (g *fakeGraph) add(f fact.Fact) fact.Reference {
	ref, err := fact.ReferenceOf(f)
	if err != nil {
		panic(err)
	}
	if _, exists := g.facts[ref]; !exists {
		g.facts[ref] = f
		g.order = append(g.order, ref)
	}
	return ref
}

func (g *fakeGraph) FactOf(ref fact.Reference) (fact.Fact, bool, error) {
	f, ok := g.facts[ref]
	return f, ok, nil
}

func (g *fakeGraph) WalkPredecessors(refs []fact.Reference, role string) ([]fact.Reference, error) {
	var out []fact.Reference
	for _, ref := range refs {
		f, ok := g.facts[ref]
		if !ok {
			continue
		}
		out = append(out, f.Predecessors[role]...)
	}
	return dedupeOrdered(out), nil
}

func (g *fakeGraph) WalkSuccessors(refs []fact.Reference, role string) ([]fact.Reference, error) {
	want := make(map[fact.Reference]bool, len(refs))
	for _, r := range refs {
		want[r] = true
	}
	var out []fact.Reference
	for _, succRef := range g.order {
		f := g.facts[succRef]
		for _, p := range f.Predecessors[role] {
			if want[p] {
				out = append(out, succRef)
				break
			}
		}
	}
	return dedupeOrdered(out), nil
}

func TestExecuteStepsPredecessorWalk(t *testing.T) {
	g := newFakeGraph()
	list := g.add(fact.Fact{Type: "List", Fields: map[string]fact.FieldValue{"name": fact.StringValue("Chores")}})
	task := g.add(fact.Fact{
		Type:         "Task",
		Fields:       map[string]fact.FieldValue{"description": fact.StringValue("trash")},
		Predecessors: map[string][]fact.Reference{"list": {list}},
	})

	q := StepQuery{Join{Direction: Predecessor, Role: "list"}}
	got, err := ExecuteSteps(g, task, q)
	require.NoError(t, err)
	assert.Equal(t, []fact.Reference{list}, got)
}

func TestExecuteStepsSuccessorWalk(t *testing.T) {
	g := newFakeGraph()
	list := g.add(fact.Fact{Type: "List", Fields: map[string]fact.FieldValue{"name": fact.StringValue("Chores")}})
	task := g.add(fact.Fact{
		Type:         "Task",
		Fields:       map[string]fact.FieldValue{"description": fact.StringValue("trash")},
		Predecessors: map[string][]fact.Reference{"list": {list}},
	})

	q := StepQuery{Join{Direction: Successor, Role: "list"}}
	got, err := ExecuteSteps(g, list, q)
	require.NoError(t, err)
	assert.Equal(t, []fact.Reference{task}, got)
}

func TestExecuteSpecificationWithExistentialNotExists(t *testing.T) {
	g := newFakeGraph()
	list := g.add(fact.Fact{Type: "List", Fields: map[string]fact.FieldValue{"name": fact.StringValue("Chores")}})
	t1 := g.add(fact.Fact{Type: "Task", Fields: map[string]fact.FieldValue{"description": fact.StringValue("trash")}, Predecessors: map[string][]fact.Reference{"list": {list}}})
	t2 := g.add(fact.Fact{Type: "Task", Fields: map[string]fact.FieldValue{"description": fact.StringValue("dishes")}, Predecessors: map[string][]fact.Reference{"list": {list}}})

	spec := Specification{
		Given: []Label{"list"},
		Matches: []Match{
			{
				Unknown: "task",
				Conditions: []Condition{
					PathCondition{RolesLeft: []Role{{Name: "list", PredecessorType: "List"}}, LabelRight: "list"},
					ExistentialCondition{
						Exists: false,
						Matches: []Match{
							{
								Unknown: "completion",
								Conditions: []Condition{
									PathCondition{RolesLeft: []Role{{Name: "task", PredecessorType: "Task"}}, LabelRight: "task"},
								},
							},
						},
					},
				},
			},
		},
		Projection: Projection{Kind: ProjectSingle, Label: "task"},
	}
	require.NoError(t, Validate(spec))

	tuples, err := Execute(g, spec, Tuple{"list": list})
	require.NoError(t, err)
	assert.ElementsMatch(t, []fact.Reference{t1, t2}, projectRefs(tuples, "task"))

	// Completing t2 should remove it from the NotExists result.
	completion := g.add(fact.Fact{Type: "TaskComplete", Fields: map[string]fact.FieldValue{"completed": fact.BoolValue(true)}, Predecessors: map[string][]fact.Reference{"task": {t2}}})
	_ = completion

	tuples, err = Execute(g, spec, Tuple{"list": list})
	require.NoError(t, err)
	assert.Equal(t, []fact.Reference{t1}, projectRefs(tuples, "task"))
}

func TestValidateRejectsUnboundLabel(t *testing.T) {
	spec := Specification{
		Matches: []Match{
			{Unknown: "task", Conditions: []Condition{PathCondition{LabelRight: "list"}}},
		},
		Projection: Projection{Kind: ProjectSingle, Label: "task"},
	}
	assert.Error(t, Validate(spec))
}

func TestValidateRejectsSelfAnchor(t *testing.T) {
	spec := Specification{
		Given: []Label{"task"},
		Matches: []Match{
			{Unknown: "task", Conditions: []Condition{PathCondition{LabelRight: "task"}}},
		},
		Projection: Projection{Kind: ProjectSingle, Label: "task"},
	}
	assert.Error(t, Validate(spec))
}

func projectRefs(tuples []Tuple, label Label) []fact.Reference {
	out := make([]fact.Reference, 0, len(tuples))
	for _, t := range tuples {
		out = append(out, t[label])
	}
	return out
}
