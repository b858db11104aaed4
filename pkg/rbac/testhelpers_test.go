package rbac

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the role schema
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE custom_roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			permissions TEXT NOT NULL,
			created_by INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (organization_id, name)
		);

		CREATE TABLE role_assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			role_id INTEGER NOT NULL,
			organization_id INTEGER NOT NULL,
			granted_by INTEGER NOT NULL,
			granted_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, role_id, organization_id)
		);

		CREATE TABLE organization_members (
			organization_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			PRIMARY KEY (organization_id, user_id)
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	return db
}

// addMember inserts an organization membership row with a built-in role name
func addMember(t *testing.T, db *sql.DB, organizationID, userID int64, role string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO organization_members (organization_id, user_id, role) VALUES ($1, $2, $3)`,
		organizationID, userID, role,
	)
	if err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
}
