package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldsuite/cadence/pkg/models"
)

func testContext() *models.EntityContext {
	return &models.EntityContext{
		Client: &models.Client{
			FirstName: "Sam",
			Email:     "sam@example.com",
			Status:    "active",
		},
		Quote: &models.Quote{
			Total:  450,
			Status: "sent",
		},
		Company: &models.CompanySettings{Name: "Brightside"},
	}
}

func TestEvaluateEmptyGroupIsVacuousMatch(t *testing.T) {
	ctx := testContext()

	assert.True(t, Evaluate(nil, ctx))
	assert.True(t, Evaluate(&models.ConditionGroup{Logic: models.LogicAnd}, ctx))
	assert.True(t, Evaluate(&models.ConditionGroup{Logic: models.LogicOr}, ctx))
}

func TestEvaluateOperators(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		name string
		leaf models.ConditionNode
		want bool
	}{
		{"equals match", models.LeafNode("client", "status", models.OpEquals, "active"), true},
		{"equals miss", models.LeafNode("client", "status", models.OpEquals, "inactive"), false},
		{"loose numeric equals across types", models.LeafNode("quote", "total", models.OpEquals, "450"), true},
		{"not_equals", models.LeafNode("client", "status", models.OpNotEquals, "inactive"), true},
		{"contains is case-insensitive", models.LeafNode("client", "email", models.OpContains, "EXAMPLE"), true},
		{"contains miss", models.LeafNode("client", "email", models.OpContains, "gmail"), false},
		{"gt numeric", models.LeafNode("quote", "total", models.OpGt, 100), true},
		{"gt miss", models.LeafNode("quote", "total", models.OpGt, "900"), false},
		{"lt numeric", models.LeafNode("quote", "total", models.OpLt, 500), true},
		{"lexicographic gt fallback", models.LeafNode("client", "status", models.OpGt, "aardvark"), true},
		{"is_not_empty on present field", models.LeafNode("client", "email", models.OpIsNotEmpty, nil), true},
		{"unknown operator fails closed", models.LeafNode("client", "status", models.Operator("matches"), "active"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(models.GroupOf(models.LogicAnd, tt.leaf), ctx)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateUnresolvedResourceIsFalse(t *testing.T) {
	ctx := testContext() // no job resolved

	leaf := models.LeafNode("job", "status", models.OpEquals, "completed")
	assert.False(t, Evaluate(models.GroupOf(models.LogicAnd, leaf), ctx))

	// Even is_empty fails on an unresolved resource: absence short-circuits
	// before the operator runs.
	empty := models.LeafNode("job", "status", models.OpIsEmpty, nil)
	assert.False(t, Evaluate(models.GroupOf(models.LogicAnd, empty), ctx))
}

func TestEvaluateLogicRecursion(t *testing.T) {
	ctx := testContext()

	andGroup := models.GroupOf(models.LogicAnd,
		models.LeafNode("client", "status", models.OpEquals, "active"),
		models.LeafNode("quote", "status", models.OpEquals, "sent"),
	)
	assert.True(t, Evaluate(andGroup, ctx))

	andMiss := models.GroupOf(models.LogicAnd,
		models.LeafNode("client", "status", models.OpEquals, "active"),
		models.LeafNode("quote", "status", models.OpEquals, "accepted"),
	)
	assert.False(t, Evaluate(andMiss, ctx))

	orGroup := models.GroupOf(models.LogicOr,
		models.LeafNode("client", "status", models.OpEquals, "inactive"),
		models.GroupNode(andGroup),
	)
	assert.True(t, Evaluate(orGroup, ctx))

	orMiss := models.GroupOf(models.LogicOr,
		models.LeafNode("client", "status", models.OpEquals, "inactive"),
		models.LeafNode("quote", "total", models.OpGt, 1000),
	)
	assert.False(t, Evaluate(orMiss, ctx))
}

func TestEvaluateLowercaseLogicAccepted(t *testing.T) {
	ctx := testContext()

	group := &models.ConditionGroup{
		Logic: models.Logic("or"),
		Conditions: []models.ConditionNode{
			models.LeafNode("client", "status", models.OpEquals, "active"),
		},
	}
	assert.True(t, Evaluate(group, ctx))
}
