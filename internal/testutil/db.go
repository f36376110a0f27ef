package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/codr1/orgthemes/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedOrganizationTheme inserts a stored theme row directly, bypassing the store.
func SeedOrganizationTheme(t *testing.T, database *db.DB, organizationID, templateID, overridesJSON string) {
	t.Helper()

	_, err := database.ExecContext(context.Background(),
		`INSERT INTO organization_themes (organization_id, template_id, overrides) VALUES (?, ?, ?)`,
		organizationID, templateID, overridesJSON,
	)
	if err != nil {
		t.Fatalf("seed organization theme %s: %v", organizationID, err)
	}
}
