package automation

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/events"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/tenant"
)

// Service exposes the permission-gated automation rule operations
type Service struct {
	store     *Store
	engine    *Engine
	auditLog  audit.Logger
	publisher events.Publisher
	log       *observability.Logger
}

// NewService creates an automation service
func NewService(store *Store, engine *Engine, auditLog audit.Logger, publisher events.Publisher, log *observability.Logger) *Service {
	return &Service{
		store:     store,
		engine:    engine,
		auditLog:  auditLog,
		publisher: publisher,
		log:       log,
	}
}

// CreateInput holds the caller-supplied fields for a new rule
type CreateInput struct {
	Name       string      `json:"name"`
	Trigger    string      `json:"trigger"`
	Conditions []Condition `json:"conditions,omitempty"`
	Actions    []Action    `json:"actions"`
	Enabled    bool        `json:"enabled"`
}

// CreateRule creates an automation rule
func (s *Service) CreateRule(ctx context.Context, tc *tenant.Context, input CreateInput) (*Rule, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityAutomationCreate); err != nil {
		return nil, err
	}
	if err := s.validateRule(input.Name, input.Trigger, input.Conditions, input.Actions); err != nil {
		return nil, err
	}

	rule := &Rule{
		OrganizationID: tc.OrganizationID,
		Name:           strings.TrimSpace(input.Name),
		Trigger:        input.Trigger,
		Conditions:     input.Conditions,
		Actions:        input.Actions,
		Enabled:        input.Enabled,
		CreatedBy:      tc.UserID,
	}
	if err := s.store.CreateRule(ctx, rule); err != nil {
		s.audit(ctx, tc, audit.EventAutomationCreated, audit.StatusFailure, "", err)
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	entry := audit.NewEntry(tc, audit.EventAutomationCreated, audit.StatusSuccess)
	entry.ResourceType = "automation_rule"
	entry.ResourceID = rule.ID
	entry.Metadata = map[string]interface{}{"name": rule.Name, "trigger": rule.Trigger}
	event := events.New(events.AutomationCreated, tc.OrganizationID, map[string]interface{}{
		"rule_id": rule.ID,
		"name":    rule.Name,
	})
	tenant.RunPostCommit(ctx, s.log,
		func(ctx context.Context) error { return s.auditLog.Log(ctx, entry) },
		func(ctx context.Context) error { return s.publisher.Publish(ctx, event) },
	)

	return rule, nil
}

// GetRule returns one rule
func (s *Service) GetRule(ctx context.Context, tc *tenant.Context, ruleID string) (*Rule, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityAutomationRead); err != nil {
		return nil, err
	}
	return s.store.GetRule(ctx, tc.OrganizationID, ruleID)
}

// ListRules returns the organization's rules
func (s *Service) ListRules(ctx context.Context, tc *tenant.Context) ([]Rule, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityAutomationRead); err != nil {
		return nil, err
	}
	return s.store.ListRules(ctx, tc.OrganizationID)
}

// UpdateInput holds the mutable rule fields. Nil fields are unchanged.
type UpdateInput struct {
	Name       *string     `json:"name,omitempty"`
	Trigger    *string     `json:"trigger,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
	Actions    []Action    `json:"actions,omitempty"`
	Enabled    *bool       `json:"enabled,omitempty"`
}

// UpdateRule modifies an automation rule
func (s *Service) UpdateRule(ctx context.Context, tc *tenant.Context, ruleID string, input UpdateInput) (*Rule, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityAutomationUpdate); err != nil {
		return nil, err
	}

	rule, err := s.store.GetRule(ctx, tc.OrganizationID, ruleID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		rule.Name = strings.TrimSpace(*input.Name)
	}
	if input.Trigger != nil {
		rule.Trigger = *input.Trigger
	}
	if input.Conditions != nil {
		rule.Conditions = input.Conditions
	}
	if input.Actions != nil {
		rule.Actions = input.Actions
	}
	if input.Enabled != nil {
		rule.Enabled = *input.Enabled
	}
	if err := s.validateRule(rule.Name, rule.Trigger, rule.Conditions, rule.Actions); err != nil {
		return nil, err
	}

	if err := s.store.UpdateRule(ctx, rule); err != nil {
		s.audit(ctx, tc, audit.EventAutomationUpdated, audit.StatusFailure, ruleID, err)
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	entry := audit.NewEntry(tc, audit.EventAutomationUpdated, audit.StatusSuccess)
	entry.ResourceType = "automation_rule"
	entry.ResourceID = ruleID
	entry.Metadata = map[string]interface{}{"name": rule.Name, "enabled": rule.Enabled}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, entry)
	})

	return rule, nil
}

// TestRule runs the rule pipeline against synthetic input. The run uses
// the same engine as production but no execution record is written.
func (s *Service) TestRule(ctx context.Context, tc *tenant.Context, ruleID string, testData map[string]interface{}) (*TestRunResult, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityAutomationTest); err != nil {
		return nil, err
	}

	rule, err := s.store.GetRule(ctx, tc.OrganizationID, ruleID)
	if err != nil {
		return nil, err
	}

	if testData == nil {
		testData = map[string]interface{}{}
	}
	outcome := s.engine.Run(ctx, rule, testData)

	result := &TestRunResult{Success: outcome.Success, Result: outcome}
	if !outcome.Success {
		for _, ar := range outcome.ActionResults {
			if ar.Error != "" {
				result.Error = ar.Error
				break
			}
		}
	}
	return result, nil
}

// GetExecutions returns a rule's production execution history, newest
// first. Test runs never appear here.
func (s *Service) GetExecutions(ctx context.Context, tc *tenant.Context, ruleID string, limit int) ([]Execution, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityAutomationRead); err != nil {
		return nil, err
	}

	if _, err := s.store.GetRule(ctx, tc.OrganizationID, ruleID); err != nil {
		return nil, err
	}

	return s.store.GetExecutions(ctx, ruleID, limit)
}

// Fire runs every enabled rule of the organization registered for the
// trigger and appends an execution record per rule. Called by the
// dispatch path when a domain event occurs; rule failures are recorded,
// not propagated.
func (s *Service) Fire(ctx context.Context, organizationID int64, trigger string, input map[string]interface{}) error {
	rules, err := s.store.ListEnabledByTrigger(ctx, organizationID, trigger)
	if err != nil {
		return fmt.Errorf("failed to resolve rules for trigger: %w", err)
	}

	for i := range rules {
		rule := &rules[i]
		outcome := s.engine.Run(ctx, rule, input)

		execution := &Execution{
			RuleID:  rule.ID,
			Input:   input,
			Output:  outcome,
			Success: outcome.Success,
		}
		if err := s.store.RecordExecution(ctx, execution); err != nil {
			s.log.WithError(err).WithField("rule_id", rule.ID).Error("failed to record execution")
		}
	}

	return nil
}

func (s *Service) validateRule(name, trigger string, conditions []Condition, actions []Action) error {
	var problems []string
	if strings.TrimSpace(name) == "" {
		problems = append(problems, "rule name is required")
	}
	if strings.TrimSpace(trigger) == "" {
		problems = append(problems, "trigger is required")
	}
	if len(actions) == 0 {
		problems = append(problems, "at least one action is required")
	}
	for _, c := range conditions {
		switch c.Operator {
		case OpEquals, OpNotEquals, OpContains, OpExists, OpGreater, OpLess:
		default:
			problems = append(problems, fmt.Sprintf("unknown condition operator %q", c.Operator))
		}
	}
	for _, a := range actions {
		if !s.engine.KnownAction(a.Type) {
			problems = append(problems, fmt.Sprintf("unknown action type %q", a.Type))
		}
	}
	if len(problems) > 0 {
		return &tenant.ValidationError{Problems: problems}
	}
	return nil
}

func (s *Service) audit(ctx context.Context, tc *tenant.Context, name audit.EventName, status audit.EventStatus, ruleID string, opErr error) {
	entry := audit.NewEntry(tc, name, status)
	entry.ResourceType = "automation_rule"
	entry.ResourceID = ruleID
	if opErr != nil {
		entry.ErrorMessage = opErr.Error()
	}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, entry)
	})
}
