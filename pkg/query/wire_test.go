package query

import (
	"encoding/json"
	"testing"

	"github.com/cuemby/factengine/pkg/fact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepQueryJSONRoundTrip(t *testing.T) {
	original := StepQuery{
		PropertyCondition{Name: "type", Value: fact.StringValue("Task")},
		Join{Direction: Predecessor, Role: "list"},
		ExistentialStep{
			Quantifier: NotExists,
			Steps: StepQuery{
				Join{Direction: Successor, Role: "task"},
				PropertyCondition{Name: "type", Value: fact.StringValue("Task.Completed")},
			},
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var got StepQuery
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 3)

	prop, ok := got[0].(PropertyCondition)
	require.True(t, ok)
	assert.Equal(t, "type", prop.Name)
	assert.True(t, prop.Value.Equal(fact.StringValue("Task")))

	join, ok := got[1].(Join)
	require.True(t, ok)
	assert.Equal(t, Predecessor, join.Direction)
	assert.Equal(t, "list", join.Role)

	existential, ok := got[2].(ExistentialStep)
	require.True(t, ok)
	assert.Equal(t, NotExists, existential.Quantifier)
	require.Len(t, existential.Steps, 2)
}

func TestSpecificationJSONRoundTripSingle(t *testing.T) {
	original := Specification{
		Given: []Label{"list"},
		Matches: []Match{
			{
				Unknown: "task",
				Conditions: []Condition{
					PathCondition{
						RolesRight: []Role{{Name: "list", PredecessorType: "List"}},
						LabelRight: "list",
					},
					ExistentialCondition{
						Exists: false,
						Matches: []Match{
							{
								Unknown: "completion",
								Conditions: []Condition{
									PathCondition{
										RolesLeft: []Role{{Name: "task", PredecessorType: "Task"}},
										LabelRight: "task",
									},
								},
							},
						},
					},
				},
			},
		},
		Projection: Projection{Kind: ProjectSingle, Label: "task"},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var got Specification
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, original.Given, got.Given)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, Label("task"), got.Matches[0].Unknown)
	require.Len(t, got.Matches[0].Conditions, 2)

	anchor, ok := got.Matches[0].Conditions[0].(PathCondition)
	require.True(t, ok)
	assert.Equal(t, Label("list"), anchor.LabelRight)
	require.Len(t, anchor.RolesRight, 1)
	assert.Equal(t, "list", anchor.RolesRight[0].Name)
	assert.Equal(t, "List", anchor.RolesRight[0].PredecessorType)

	existential, ok := got.Matches[0].Conditions[1].(ExistentialCondition)
	require.True(t, ok)
	assert.False(t, existential.Exists)
	require.Len(t, existential.Matches, 1)

	assert.Equal(t, ProjectSingle, got.Projection.Kind)
	assert.Equal(t, Label("task"), got.Projection.Label)
}

func TestSpecificationJSONRoundTripNestedProjection(t *testing.T) {
	nested := Specification{
		Given: []Label{"task"},
		Matches: []Match{
			{
				Unknown: "completion",
				Conditions: []Condition{
					PathCondition{
						RolesLeft:  []Role{{Name: "task", PredecessorType: "Task"}},
						LabelRight: "task",
					},
				},
			},
		},
		Projection: Projection{Kind: ProjectSingle, Label: "completion"},
	}
	original := Specification{
		Given: []Label{"list"},
		Matches: []Match{
			{
				Unknown: "task",
				Conditions: []Condition{
					PathCondition{
						RolesRight: []Role{{Name: "list", PredecessorType: "List"}},
						LabelRight: "list",
					},
				},
			},
		},
		Projection: Projection{Kind: ProjectNested, Label: "task", Nested: &nested},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var got Specification
	require.NoError(t, json.Unmarshal(data, &got))

	require.Equal(t, ProjectNested, got.Projection.Kind)
	require.NotNil(t, got.Projection.Nested)
	assert.Equal(t, Label("completion"), got.Projection.Nested.Projection.Label)
}

func TestSpecificationJSONRoundTripTupleAndRecord(t *testing.T) {
	tuple := Specification{
		Given:      []Label{"a", "b"},
		Projection: Projection{Kind: ProjectTuple, Labels: []Label{"a", "b"}},
	}
	data, err := json.Marshal(tuple)
	require.NoError(t, err)
	var gotTuple Specification
	require.NoError(t, json.Unmarshal(data, &gotTuple))
	assert.Equal(t, ProjectTuple, gotTuple.Projection.Kind)
	assert.Equal(t, []Label{"a", "b"}, gotTuple.Projection.Labels)

	record := Specification{
		Given:      []Label{"a", "b"},
		Projection: Projection{Kind: ProjectRecord, Fields: map[string]Label{"first": "a", "second": "b"}},
	}
	data, err = json.Marshal(record)
	require.NoError(t, err)
	var gotRecord Specification
	require.NoError(t, json.Unmarshal(data, &gotRecord))
	assert.Equal(t, ProjectRecord, gotRecord.Projection.Kind)
	assert.Equal(t, map[string]Label{"first": "a", "second": "b"}, gotRecord.Projection.Fields)
}

func TestStepQueryUnknownKindError(t *testing.T) {
	var q StepQuery
	err := json.Unmarshal([]byte(`[{"kind":"bogus"}]`), &q)
	assert.Error(t, err)
}
