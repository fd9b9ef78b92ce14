package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"taskreminder/internal/config"
	"taskreminder/internal/infra/sqlstore"
)

// NewTestStore opens a migrated SQLite store in a temporary directory.
// It automatically closes the store when the test completes.
func NewTestStore(t testing.TB) *sqlstore.Store {
	t.Helper()

	s, err := sqlstore.Open(context.Background(), config.Database{
		Driver:      "sqlite",
		DSN:         "file:" + filepath.Join(t.TempDir(), "tasks.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
