package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// DBLogger persists audit entries to the audit_logs table
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a new database-backed audit logger
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &DBLogger{db: db}, nil
}

// Migrate creates the audit_logs table if it does not exist. Intended for
// the PostgreSQL deployment; tests create their own schema.
func (l *DBLogger) Migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		event_name VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL,
		user_id BIGINT NOT NULL,
		organization_id BIGINT NOT NULL,
		session_id VARCHAR(64),
		resource_type VARCHAR(50),
		resource_id VARCHAR(255),
		message TEXT,
		error_message TEXT,
		metadata JSONB
	);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_org ON audit_logs(organization_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_event_name ON audit_logs(event_name);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id);
	`
	_, err := l.db.ExecContext(ctx, query)
	return err
}

// Log appends an audit entry to the database
func (l *DBLogger) Log(ctx context.Context, entry *Entry) error {
	var metadataJSON []byte
	var err error
	if entry.Metadata != nil {
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (timestamp, event_name, status, user_id, organization_id, session_id, resource_type, resource_id, message, error_message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err = l.db.QueryRowContext(ctx, query,
		entry.Timestamp,
		string(entry.EventName),
		string(entry.Status),
		entry.UserID,
		entry.OrganizationID,
		entry.SessionID,
		entry.ResourceType,
		entry.ResourceID,
		entry.Message,
		entry.ErrorMessage,
		nullableJSON(metadataJSON),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	return nil
}

// Search queries audit entries matching the filter, newest first.
func (l *DBLogger) Search(ctx context.Context, filter SearchFilter) ([]*Entry, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	addCondition := func(clause string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(clause, argPos))
		args = append(args, value)
		argPos++
	}

	if filter.StartTime != nil {
		addCondition("timestamp >= $%d", *filter.StartTime)
	}
	if filter.EndTime != nil {
		addCondition("timestamp <= $%d", *filter.EndTime)
	}
	if filter.UserID != nil {
		addCondition("user_id = $%d", *filter.UserID)
	}
	if filter.OrganizationID != nil {
		addCondition("organization_id = $%d", *filter.OrganizationID)
	}
	if filter.Status != nil {
		addCondition("status = $%d", string(*filter.Status))
	}
	if filter.ResourceType != "" {
		addCondition("resource_type = $%d", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		addCondition("resource_id = $%d", filter.ResourceID)
	}
	if len(filter.EventNames) > 0 {
		placeholders := make([]string, 0, len(filter.EventNames))
		for _, name := range filter.EventNames {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argPos))
			args = append(args, string(name))
			argPos++
		}
		conditions = append(conditions, "event_name IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `
		SELECT id, timestamp, event_name, status, user_id, organization_id, session_id, resource_type, resource_id, message, error_message, metadata
		FROM audit_logs
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argPos)
	args = append(args, limit)
	argPos++
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filter.Offset)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var sessionID, resourceType, resourceID, message, errorMessage sql.NullString
		var metadataJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.EventName,
			&entry.Status,
			&entry.UserID,
			&entry.OrganizationID,
			&sessionID,
			&resourceType,
			&resourceID,
			&message,
			&errorMessage,
			&metadataJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		entry.SessionID = sessionID.String
		entry.ResourceType = resourceType.String
		entry.ResourceID = resourceID.String
		entry.Message = message.String
		entry.ErrorMessage = errorMessage.String

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				entry.Metadata = nil
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Close is a no-op for the database logger; the pool is owned by the caller.
func (l *DBLogger) Close() error { return nil }

// nullableJSON converts empty JSON to a SQL NULL
func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}
