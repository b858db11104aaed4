package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/warden/pkg/tenant"
)

// Store handles rule and execution persistence
type Store struct {
	db *sql.DB
}

// NewStore creates an automation store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRule persists a new rule
func (s *Store) CreateRule(ctx context.Context, rule *Rule) error {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}
	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		INSERT INTO automation_rules (id, organization_id, name, trigger_name, conditions, actions, enabled, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`

	rule.ID = uuid.New().String()
	now := time.Now()
	_, err = s.db.ExecContext(ctx, query,
		rule.ID,
		rule.OrganizationID,
		rule.Name,
		rule.Trigger,
		string(conditionsJSON),
		string(actionsJSON),
		rule.Enabled,
		rule.CreatedBy,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	rule.CreatedAt = now
	rule.UpdatedAt = now
	return nil
}

// GetRule retrieves a rule by id within an organization
func (s *Store) GetRule(ctx context.Context, organizationID int64, ruleID string) (*Rule, error) {
	query := `
		SELECT id, organization_id, name, trigger_name, conditions, actions, enabled, created_by, created_at, updated_at
		FROM automation_rules
		WHERE id = $1 AND organization_id = $2
	`

	rule, err := scanRule(s.db.QueryRowContext(ctx, query, ruleID, organizationID))
	if err == sql.ErrNoRows {
		return nil, &tenant.NotFoundError{Resource: "automation rule", ID: ruleID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// ListRules lists an organization's rules
func (s *Store) ListRules(ctx context.Context, organizationID int64) ([]Rule, error) {
	query := `
		SELECT id, organization_id, name, trigger_name, conditions, actions, enabled, created_by, created_at, updated_at
		FROM automation_rules
		WHERE organization_id = $1
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}

	return rules, rows.Err()
}

// ListEnabledByTrigger lists the enabled rules of an organization for a
// trigger name. Used by the dispatch path.
func (s *Store) ListEnabledByTrigger(ctx context.Context, organizationID int64, trigger string) ([]Rule, error) {
	query := `
		SELECT id, organization_id, name, trigger_name, conditions, actions, enabled, created_by, created_at, updated_at
		FROM automation_rules
		WHERE organization_id = $1 AND trigger_name = $2 AND enabled = $3
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, organizationID, trigger, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules by trigger: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}

	return rules, rows.Err()
}

// UpdateRule rewrites a rule's mutable fields
func (s *Store) UpdateRule(ctx context.Context, rule *Rule) error {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}
	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		UPDATE automation_rules
		SET name = $1, trigger_name = $2, conditions = $3, actions = $4, enabled = $5, updated_at = $6
		WHERE id = $7 AND organization_id = $8
	`

	rule.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, query,
		rule.Name,
		rule.Trigger,
		string(conditionsJSON),
		string(actionsJSON),
		rule.Enabled,
		rule.UpdatedAt,
		rule.ID,
		rule.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return &tenant.NotFoundError{Resource: "automation rule", ID: rule.ID}
	}

	return nil
}

// RecordExecution appends one production execution record
func (s *Store) RecordExecution(ctx context.Context, execution *Execution) error {
	inputJSON, err := json.Marshal(execution.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}
	outputJSON, err := json.Marshal(execution.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	query := `
		INSERT INTO automation_executions (id, rule_id, input, output, success, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	execution.ID = uuid.New().String()
	if execution.Timestamp.IsZero() {
		execution.Timestamp = time.Now()
	}
	_, err = s.db.ExecContext(ctx, query,
		execution.ID,
		execution.RuleID,
		string(inputJSON),
		string(outputJSON),
		execution.Success,
		execution.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// GetExecutions retrieves a rule's execution history, newest first
func (s *Store) GetExecutions(ctx context.Context, ruleID string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, rule_id, input, output, success, timestamp
		FROM automation_executions
		WHERE rule_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get executions: %w", err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		var e Execution
		var inputJSON, outputJSON []byte
		err := rows.Scan(&e.ID, &e.RuleID, &inputJSON, &outputJSON, &e.Success, &e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		if len(inputJSON) > 0 {
			if err := json.Unmarshal(inputJSON, &e.Input); err != nil {
				return nil, fmt.Errorf("failed to unmarshal input: %w", err)
			}
		}
		if len(outputJSON) > 0 {
			if err := json.Unmarshal(outputJSON, &e.Output); err != nil {
				return nil, fmt.Errorf("failed to unmarshal output: %w", err)
			}
		}
		executions = append(executions, e)
	}

	return executions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*Rule, error) {
	rule := &Rule{}
	var conditionsJSON, actionsJSON []byte

	err := row.Scan(
		&rule.ID,
		&rule.OrganizationID,
		&rule.Name,
		&rule.Trigger,
		&conditionsJSON,
		&actionsJSON,
		&rule.Enabled,
		&rule.CreatedBy,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(conditionsJSON) > 0 {
		if err := json.Unmarshal(conditionsJSON, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}
	if len(actionsJSON) > 0 {
		if err := json.Unmarshal(actionsJSON, &rule.Actions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
		}
	}

	return rule, nil
}
