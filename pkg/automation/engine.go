package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/platinummonkey/warden/pkg/observability"
)

// ActionHandler executes one action type. Handlers return a short
// human-readable detail on success.
type ActionHandler func(ctx context.Context, params map[string]string, input map[string]interface{}) (string, error)

// Engine evaluates rule pipelines. Handlers are registered per action
// type at wiring time.
type Engine struct {
	handlers map[string]ActionHandler
	log      *observability.Logger
}

// NewEngine creates a rule engine
func NewEngine(log *observability.Logger) *Engine {
	return &Engine{
		handlers: make(map[string]ActionHandler),
		log:      log,
	}
}

// RegisterAction makes an action type executable
func (e *Engine) RegisterAction(actionType string, handler ActionHandler) {
	e.handlers[actionType] = handler
}

// KnownAction reports whether an action type has a handler
func (e *Engine) KnownAction(actionType string) bool {
	_, ok := e.handlers[actionType]
	return ok
}

// Run evaluates a rule against an input. Conditions are ANDed; if any
// fails the actions are skipped and the outcome reports ConditionsMet
// false. Actions run in declared order and a failure does not stop the
// remaining ones.
func (e *Engine) Run(ctx context.Context, rule *Rule, input map[string]interface{}) *Outcome {
	outcome := &Outcome{ConditionsMet: true}

	for _, condition := range rule.Conditions {
		if !evalCondition(condition, input) {
			outcome.ConditionsMet = false
			outcome.Success = true
			return outcome
		}
	}

	allOK := true
	for _, action := range rule.Actions {
		result := ActionResult{Type: action.Type}

		handler, ok := e.handlers[action.Type]
		if !ok {
			result.Error = fmt.Sprintf("no handler for action type %q", action.Type)
			allOK = false
			outcome.ActionResults = append(outcome.ActionResults, result)
			continue
		}

		detail, err := handler(ctx, action.Params, input)
		if err != nil {
			result.Error = err.Error()
			allOK = false
			e.log.WithError(err).WithFields(map[string]interface{}{
				"rule_id": rule.ID,
				"action":  action.Type,
			}).Warn("automation action failed")
		} else {
			result.Success = true
			result.Detail = detail
		}
		outcome.ActionResults = append(outcome.ActionResults, result)
	}

	outcome.Success = allOK
	return outcome
}

// evalCondition tests one predicate against the input. Unknown operators
// and missing fields fail closed.
func evalCondition(condition Condition, input map[string]interface{}) bool {
	value, present := input[condition.Field]

	switch condition.Operator {
	case OpExists:
		return present
	case OpEquals:
		return present && fmt.Sprintf("%v", value) == fmt.Sprintf("%v", condition.Value)
	case OpNotEquals:
		return present && fmt.Sprintf("%v", value) != fmt.Sprintf("%v", condition.Value)
	case OpContains:
		if !present {
			return false
		}
		return strings.Contains(fmt.Sprintf("%v", value), fmt.Sprintf("%v", condition.Value))
	case OpGreater:
		actual, expected, ok := numericPair(value, condition.Value)
		return present && ok && actual > expected
	case OpLess:
		actual, expected, ok := numericPair(value, condition.Value)
		return present && ok && actual < expected
	default:
		return false
	}
}

func numericPair(actual, expected interface{}) (float64, float64, bool) {
	a, okA := toFloat(actual)
	b, okB := toFloat(expected)
	return a, b, okA && okB
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
