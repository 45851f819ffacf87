package models

import "encoding/json"

// Logic joins the children of a condition group.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Operator compares a resolved field against a configured value.
type Operator string

const (
	OpEquals     Operator = "equals"
	OpNotEquals  Operator = "not_equals"
	OpContains   Operator = "contains"
	OpGt         Operator = "gt"
	OpLt         Operator = "lt"
	OpIsEmpty    Operator = "is_empty"
	OpIsNotEmpty Operator = "is_not_empty"
)

// Condition is a leaf filter: a single field comparison against one
// resolved resource (client, job, quote, invoice, company).
type Condition struct {
	Resource string   `json:"resource" validate:"required"`
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required"`
	Value    any      `json:"value,omitempty"`
}

// ConditionGroup is a recursive boolean filter tree. An empty conditions
// list evaluates to true, so a step or trigger without a filter always
// proceeds.
type ConditionGroup struct {
	Logic      Logic           `json:"logic"`
	Conditions []ConditionNode `json:"conditions"`
}

// ConditionNode is either a nested group or a leaf condition. On the wire
// the two are discriminated by the presence of the "logic" key.
type ConditionNode struct {
	Group *ConditionGroup
	Leaf  *Condition
}

func (n *ConditionNode) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage

	err := json.Unmarshal(data, &probe)
	if err != nil {
		return err
	}

	if _, ok := probe["logic"]; ok {
		group := &ConditionGroup{}
		if err := json.Unmarshal(data, group); err != nil {
			return err
		}

		n.Group = group

		return nil
	}

	leaf := &Condition{}
	if err := json.Unmarshal(data, leaf); err != nil {
		return err
	}

	n.Leaf = leaf

	return nil
}

func (n ConditionNode) MarshalJSON() ([]byte, error) {
	if n.Group != nil {
		return json.Marshal(n.Group)
	}

	return json.Marshal(n.Leaf)
}

// GroupOf is a convenience constructor used by tests and the trigger intake.
func GroupOf(logic Logic, conditions ...ConditionNode) *ConditionGroup {
	return &ConditionGroup{Logic: logic, Conditions: conditions}
}

// LeafNode wraps a condition as a tree node.
func LeafNode(resource, field string, operator Operator, value any) ConditionNode {
	return ConditionNode{Leaf: &Condition{
		Resource: resource,
		Field:    field,
		Operator: operator,
		Value:    value,
	}}
}

// GroupNode wraps a group as a tree node.
func GroupNode(group *ConditionGroup) ConditionNode {
	return ConditionNode{Group: group}
}
