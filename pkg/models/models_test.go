package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionNodeUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		isGroup bool
	}{
		{
			name:    "leaf condition",
			payload: `{"resource":"client","field":"status","operator":"equals","value":"active"}`,
			isGroup: false,
		},
		{
			name:    "nested group discriminated by logic key",
			payload: `{"logic":"OR","conditions":[{"resource":"job","field":"status","operator":"equals","value":"done"}]}`,
			isGroup: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var node ConditionNode

			require.NoError(t, json.Unmarshal([]byte(tt.payload), &node))

			if tt.isGroup {
				require.NotNil(t, node.Group)
				assert.Nil(t, node.Leaf)
			} else {
				require.NotNil(t, node.Leaf)
				assert.Nil(t, node.Group)
			}
		})
	}
}

func TestConditionGroupRoundTrip(t *testing.T) {
	group := GroupOf(LogicAnd,
		LeafNode("client", "status", OpEquals, "active"),
		GroupNode(GroupOf(LogicOr,
			LeafNode("job", "status", OpEquals, "completed"),
			LeafNode("quote", "status", OpNotEquals, "declined"),
		)),
	)

	data, err := json.Marshal(group)
	require.NoError(t, err)

	var decoded ConditionGroup

	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Conditions, 2)
	assert.Equal(t, LogicAnd, decoded.Logic)
	require.NotNil(t, decoded.Conditions[0].Leaf)
	assert.Equal(t, "client", decoded.Conditions[0].Leaf.Resource)
	require.NotNil(t, decoded.Conditions[1].Group)
	assert.Equal(t, LogicOr, decoded.Conditions[1].Group.Logic)
	assert.Len(t, decoded.Conditions[1].Group.Conditions, 2)
}

func TestClientTagSetSemantics(t *testing.T) {
	client := &Client{ID: "client-1", Tags: []string{"vip"}}

	client.AddTag("newsletter")
	client.AddTag("newsletter")
	assert.Equal(t, []string{"vip", "newsletter"}, client.Tags)

	client.RemoveTag("missing")
	assert.Equal(t, []string{"vip", "newsletter"}, client.Tags)

	client.RemoveTag("vip")
	assert.Equal(t, []string{"newsletter"}, client.Tags)
}

func TestEntityContextLookup(t *testing.T) {
	ctx := &EntityContext{
		Client:  &Client{FirstName: "Jordan", Status: "active"},
		Company: &CompanySettings{Name: "Brightside Mobile Detailing"},
	}

	tests := []struct {
		name     string
		resource string
		field    string
		want     any
		found    bool
	}{
		{"known client field", "client", "first_name", "Jordan", true},
		{"company field", "company", "name", "Brightside Mobile Detailing", true},
		{"unresolved resource", "job", "status", nil, false},
		{"unknown field", "client", "shoe_size", nil, false},
		{"unknown resource", "vehicle", "vin", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ctx.Lookup(tt.resource, tt.field)
			assert.Equal(t, tt.found, found)

			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestValidFieldRef(t *testing.T) {
	assert.True(t, ValidFieldRef("client", "email"))
	assert.True(t, ValidFieldRef("job", "service_name"))
	assert.True(t, ValidFieldRef("invoice", "link"))
	assert.False(t, ValidFieldRef("client", "nope"))
	assert.False(t, ValidFieldRef("vehicle", "vin"))
}

func TestRunStatusTerminal(t *testing.T) {
	assert.False(t, RunStatusRunning.Terminal())
	assert.False(t, RunStatusWaiting.Terminal())
	assert.True(t, RunStatusCompleted.Terminal())
	assert.True(t, RunStatusFailed.Terminal())
	assert.True(t, RunStatusCancelled.Terminal())
}

func TestAppendLog(t *testing.T) {
	run := &AutomationRun{ID: "run-1"}
	now := time.Now().UTC()

	run.AppendLog(0, StepSendEmail, OutcomeSuccess, "", now)
	run.AppendLog(1, StepDelay, OutcomeFailed, "boom", now)

	require.Len(t, run.Logs, 2)
	assert.Equal(t, OutcomeSuccess, run.Logs[0].Outcome)
	assert.Equal(t, "boom", run.Logs[1].Error)
}
