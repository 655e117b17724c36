// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"barinv/database"
	"barinv/model"

	"github.com/jmoiron/sqlx"
)

// Open returns a migrated SQLite database in t.TempDir(), closed on cleanup.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, "sqlite:///"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.ApplySchema(ctx, db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

// Insert stores items and returns them with IDs set.
func Insert(t testing.TB, db *sqlx.DB, items ...model.Item) []model.Item {
	t.Helper()
	for i := range items {
		if err := database.CreateItem(context.Background(), db, &items[i]); err != nil {
			t.Fatalf("insert %s/%s: %v", items[i].Vendor, items[i].Name, err)
		}
	}
	return items
}
