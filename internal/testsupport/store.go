package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"videotable/internal/catalog"
	"videotable/internal/table"
)

// MustOpenCatalog opens a catalog.Store in dir and registers cleanup.
func MustOpenCatalog(t testing.TB, dir string) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(dir)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// WriteTable persists columns as a SQLite table file under dir and returns
// its path.
func WriteTable(t testing.TB, dir, name string, columns ...table.Column) string {
	t.Helper()

	tbl, err := table.New(columns...)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := table.NewSQLiteStore().Write(context.Background(), tbl, path); err != nil {
		t.Fatalf("write table %s: %v", path, err)
	}
	return path
}

// ReadTable loads a SQLite table file.
func ReadTable(t testing.TB, path string) *table.Table {
	t.Helper()

	tbl, err := table.NewSQLiteStore().Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read table %s: %v", path, err)
	}
	return tbl
}
