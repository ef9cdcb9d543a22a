// Package testutil provides test helpers: a throwaway SQLite database, a fake
// catalog and a recording mailer.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/Sumuditha-Janith/obscura-backend/internal/repository"
)

// NewTestRepos opens a fresh migrated SQLite database under t.TempDir().
func NewTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	db, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "obscura_test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewRepositories(db)
}
