package automation

import (
	"time"
)

// Condition operators
const (
	OpEquals    = "equals"
	OpNotEquals = "not_equals"
	OpContains  = "contains"
	OpExists    = "exists"
	OpGreater   = "greater_than"
	OpLess      = "less_than"
)

// Condition is one predicate over the trigger input. All of a rule's
// conditions must hold for its actions to run.
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value,omitempty"`
}

// Action is one step of a rule's pipeline
type Action struct {
	Type   string            `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// Rule is one automation rule
type Rule struct {
	ID             string      `json:"id"`
	OrganizationID int64       `json:"organization_id"`
	Name           string      `json:"name"`
	Trigger        string      `json:"trigger"`
	Conditions     []Condition `json:"conditions,omitempty"`
	Actions        []Action    `json:"actions"`
	Enabled        bool        `json:"enabled"`
	CreatedBy      int64       `json:"created_by"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ActionResult is the outcome of one action within an execution
type ActionResult struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Outcome is the result of running a rule's pipeline against one input
type Outcome struct {
	ConditionsMet bool           `json:"conditions_met"`
	ActionResults []ActionResult `json:"action_results,omitempty"`
	Success       bool           `json:"success"`
}

// Execution is one append-only production execution record. Test runs are
// never written here.
type Execution struct {
	ID        string                 `json:"id"`
	RuleID    string                 `json:"rule_id"`
	Input     map[string]interface{} `json:"input"`
	Output    *Outcome               `json:"output"`
	Success   bool                   `json:"success"`
	Timestamp time.Time              `json:"timestamp"`
}

// TestRunResult is returned by a rule test. Result carries the same
// outcome shape an execution record would, without persisting one.
type TestRunResult struct {
	Success bool     `json:"success"`
	Result  *Outcome `json:"result,omitempty"`
	Error   string   `json:"error,omitempty"`
}
