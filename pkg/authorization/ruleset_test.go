package authorization

import (
	"context"
	"testing"

	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/facterrors"
	"github.com/cuemby/factengine/pkg/query"
	"github.com/cuemby/factengine/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listOwnerSpec() query.Specification {
	return query.Specification{
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
}

func TestScenarioS4AuthorizationBySpecification(t *testing.T) {
	rs := New(DefaultPermissive)
	rule, err := NewSpecificationRule(listOwnerSpec())
	require.NoError(t, err)
	rs.Register("Task", rule)

	store := storage.NewMemoryStore()
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

	_, err = store.Save(ctx, []fact.Envelope{{Fact: owner}, {Fact: intruder}, {Fact: list}})
	require.NoError(t, err)

	task := fact.Fact{Type: "Task", Predecessors: map[string][]fact.Reference{"list": {listRef}}, Fields: map[string]fact.FieldValue{"description": fact.StringValue("trash")}}
	taskRef, err := fact.ReferenceOf(task)
	require.NoError(t, err)

	evidence, err := store.Load(ctx, []fact.Reference{listRef, ownerRef, intruderRef})
	require.NoError(t, err)

	err = rs.Authorize(ctx, store, task, evidence, intruderRef)
	assert.ErrorIs(t, err, facterrors.ErrForbidden)

	err = rs.Authorize(ctx, store, task, evidence, ownerRef)
	assert.NoError(t, err)

	_, err = store.Save(ctx, []fact.Envelope{{Fact: task}})
	require.NoError(t, err)
	_ = taskRef
}

func TestNoneRuleDenies(t *testing.T) {
	rs := New(DefaultPermissive)
	rs.Register("Secret", None{FactType: "Secret", Logger: rs.logger})

	store := storage.NewMemoryStore()
	secret := fact.Fact{Type: "Secret", Fields: map[string]fact.FieldValue{"value": fact.StringValue("x")}}
	err := rs.Authorize(context.Background(), store, secret, nil, fact.Reference{Type: "User", Hash: "u"})
	assert.ErrorIs(t, err, facterrors.ErrForbidden)
}

func TestDefaultRestrictivePolicy(t *testing.T) {
	rs := New(DefaultRestrictive)
	store := storage.NewMemoryStore()
	f := fact.Fact{Type: "Unregistered"}
	err := rs.Authorize(context.Background(), store, f, nil, fact.Reference{Type: "User", Hash: "u"})
	assert.ErrorIs(t, err, facterrors.ErrForbidden)
}

func TestSpecificationRuleRejectsSuccessorWalk(t *testing.T) {
	spec := query.Specification{
		Given: []query.Label{"list"},
		Matches: []query.Match{
			{
				Unknown: "task",
				Conditions: []query.Condition{
					query.PathCondition{RolesLeft: []query.Role{{Name: "list"}}, LabelRight: "list"},
				},
			},
		},
		Projection: query.Projection{Kind: query.ProjectSingle, Label: "task"},
	}
	_, err := NewSpecificationRule(spec)
	assert.Error(t, err)
}
