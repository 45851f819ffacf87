// Package conditions evaluates boolean filter trees against a resolved
// entity context. Evaluation is pure and never errors: anything that cannot
// be evaluated degrades to false so a broken filter skips work instead of
// silently matching.
package conditions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fieldsuite/cadence/pkg/models"
)

// Context supplies field values for leaf evaluation. A false second return
// means the resource is unresolved or the field unknown.
type Context interface {
	Lookup(resource, field string) (any, bool)
}

// Evaluate walks the filter tree. AND requires all children true, OR at
// least one. A nil group or an empty conditions list is a vacuous match.
func Evaluate(group *models.ConditionGroup, ctx Context) bool {
	if group == nil || len(group.Conditions) == 0 {
		return true
	}

	isOr := strings.EqualFold(string(group.Logic), string(models.LogicOr))

	for _, node := range group.Conditions {
		var result bool

		switch {
		case node.Group != nil:
			result = Evaluate(node.Group, ctx)
		case node.Leaf != nil:
			result = evaluateLeaf(node.Leaf, ctx)
		default:
			result = false
		}

		if isOr && result {
			return true
		}

		if !isOr && !result {
			return false
		}
	}

	return !isOr
}

// evaluateLeaf compares one resolved field against the configured value.
// An absent or null field makes the leaf false regardless of operator; this
// mirrors the legacy engine, which short-circuits before the is_empty
// operators can see the absence.
func evaluateLeaf(cond *models.Condition, ctx Context) bool {
	value, ok := ctx.Lookup(cond.Resource, cond.Field)
	if !ok || value == nil {
		return false
	}

	switch cond.Operator {
	case models.OpEquals:
		return looseEqual(value, cond.Value)
	case models.OpNotEquals:
		return !looseEqual(value, cond.Value)
	case models.OpContains:
		return strings.Contains(
			strings.ToLower(stringify(value)),
			strings.ToLower(stringify(cond.Value)),
		)
	case models.OpGt:
		return compare(value, cond.Value) > 0
	case models.OpLt:
		return compare(value, cond.Value) < 0
	case models.OpIsEmpty:
		return !truthy(value)
	case models.OpIsNotEmpty:
		return truthy(value)
	default:
		// Unknown operator fails closed, never matches.
		return false
	}
}

// looseEqual allows type coercion between stored strings and configured
// values: numeric comparison when both sides parse as numbers, string
// comparison otherwise.
func looseEqual(a, b any) bool {
	na, aok := toFloat(a)
	nb, bok := toFloat(b)

	if aok && bok {
		return na == nb
	}

	return stringify(a) == stringify(b)
}

// compare orders numerically when possible, lexicographically otherwise.
func compare(a, b any) int {
	na, aok := toFloat(a)
	nb, bok := toFloat(b)

	if aok && bok {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(stringify(a), stringify(b))
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	case float32:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return stringify(v) != ""
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(value any) string {
	if value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
