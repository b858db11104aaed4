package rbac

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/platinummonkey/warden/pkg/tenant"
)

// Store handles role and assignment persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new RBAC store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRole creates a new custom role
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		INSERT INTO custom_roles (organization_id, name, description, permissions, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	err = s.db.QueryRowContext(ctx, query,
		role.OrganizationID,
		role.Name,
		role.Description,
		string(permissionsJSON),
		role.CreatedBy,
		now,
		now,
	).Scan(&role.ID)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// GetRole retrieves a custom role by id within an organization
func (s *Store) GetRole(ctx context.Context, organizationID, roleID int64) (*Role, error) {
	query := `
		SELECT id, organization_id, name, description, permissions, created_by, created_at, updated_at
		FROM custom_roles
		WHERE id = $1 AND organization_id = $2
	`

	role, err := scanRole(s.db.QueryRowContext(ctx, query, roleID, organizationID))
	if err == sql.ErrNoRows {
		return nil, &tenant.NotFoundError{Resource: "role", ID: fmt.Sprintf("%d", roleID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return role, nil
}

// ListRoles lists the custom roles of an organization
func (s *Store) ListRoles(ctx context.Context, organizationID int64) ([]Role, error) {
	query := `
		SELECT id, organization_id, name, description, permissions, created_by, created_at, updated_at
		FROM custom_roles
		WHERE organization_id = $1
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, *role)
	}

	return roles, rows.Err()
}

// UpdateRole updates an existing custom role
func (s *Store) UpdateRole(ctx context.Context, role *Role) error {
	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		UPDATE custom_roles
		SET name = $1, description = $2, permissions = $3, updated_at = $4
		WHERE id = $5 AND organization_id = $6
	`

	role.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, query,
		role.Name,
		role.Description,
		string(permissionsJSON),
		role.UpdatedAt,
		role.ID,
		role.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &tenant.NotFoundError{Resource: "role", ID: fmt.Sprintf("%d", role.ID)}
	}

	return nil
}

// AssignRoleToUser grants a custom role to a user
func (s *Store) AssignRoleToUser(ctx context.Context, assignment *RoleAssignment) error {
	query := `
		INSERT INTO role_assignments (user_id, role_id, organization_id, granted_by, granted_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		assignment.UserID,
		assignment.RoleID,
		assignment.OrganizationID,
		assignment.GrantedBy,
		now,
	).Scan(&assignment.ID)
	if err != nil {
		return fmt.Errorf("failed to assign role to user: %w", err)
	}

	assignment.GrantedAt = now
	return nil
}

// RevokeRoleFromUser removes a role grant. Returns false if the user did
// not hold the role.
func (s *Store) RevokeRoleFromUser(ctx context.Context, organizationID, userID, roleID int64) (bool, error) {
	query := `DELETE FROM role_assignments WHERE organization_id = $1 AND user_id = $2 AND role_id = $3`
	result, err := s.db.ExecContext(ctx, query, organizationID, userID, roleID)
	if err != nil {
		return false, fmt.Errorf("failed to revoke role from user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to revoke role from user: %w", err)
	}
	return affected > 0, nil
}

// GetUserRoles retrieves all custom roles assigned to a user within an
// organization
func (s *Store) GetUserRoles(ctx context.Context, organizationID, userID int64) ([]Role, error) {
	query := `
		SELECT r.id, r.organization_id, r.name, r.description, r.permissions, r.created_by, r.created_at, r.updated_at
		FROM custom_roles r
		JOIN role_assignments ra ON r.id = ra.role_id
		WHERE ra.user_id = $1 AND ra.organization_id = $2
		ORDER BY r.name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, *role)
	}

	return roles, rows.Err()
}

// GetMemberRole returns the user's built-in membership role name within the
// organization, or empty when the user is not a member.
func (s *Store) GetMemberRole(ctx context.Context, organizationID, userID int64) (string, error) {
	query := `SELECT role FROM organization_members WHERE organization_id = $1 AND user_id = $2`

	var role string
	err := s.db.QueryRowContext(ctx, query, organizationID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get member role: %w", err)
	}

	return role, nil
}

// scanRole scans a role from a database row
func scanRole(scanner interface {
	Scan(dest ...interface{}) error
}) (*Role, error) {
	var role Role
	var permissionsJSON string
	var createdBy sql.NullInt64

	err := scanner.Scan(
		&role.ID,
		&role.OrganizationID,
		&role.Name,
		&role.Description,
		&permissionsJSON,
		&createdBy,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if createdBy.Valid {
		role.CreatedBy = createdBy.Int64
	}

	if permissionsJSON != "" {
		if err := json.Unmarshal([]byte(permissionsJSON), &role.Permissions); err != nil {
			role.Permissions = []string{}
		}
	} else {
		role.Permissions = []string{}
	}

	return &role, nil
}
