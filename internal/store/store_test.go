package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"flat_blobs", "record_schemas", "records"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_PreservesContentAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := s1.Flat("").Write(ctx, "a=1;b=2"); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	got, err := s2.Flat(DefaultNamespace).Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if got != "a=1;b=2" {
		t.Errorf("Read() = %q, want %q", got, "a=1;b=2")
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s := createTestStore(t)
	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_ForeignKeys(t *testing.T) {
	s := createTestStore(t)
	// ON = 1
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

// Schema tests

func TestSchema_FlatBlobsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "flat_blobs")
	for _, col := range []string{"namespace", "content", "enabled", "quota", "revision"} {
		if !contains(columns, col) {
			t.Errorf("flat_blobs table missing column %q", col)
		}
	}
}

func TestSchema_RecordsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "records")
	for _, col := range []string{"identity", "schema_name", "idx", "body"} {
		if !contains(columns, col) {
			t.Errorf("records table missing column %q", col)
		}
	}
}

func TestSchema_MigrationIndex(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "records")
	if !contains(indexes, "idx_records_schema") {
		t.Error("records table missing index idx_records_schema")
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version query failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestConstraint_NegativeQuotaRejected(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO flat_blobs (namespace, quota) VALUES ('bad', -1)`)
	if err == nil {
		t.Error("expected CHECK constraint failure for negative quota")
	}
}

func TestNamespaces_SortedAndEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	names, err := s.Namespaces(ctx)
	if err != nil {
		t.Fatalf("Namespaces() failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("Namespaces() = %v, want empty", names)
	}

	for _, ns := range []string{"zeta", "alpha", "Beta"} {
		if err := s.Flat(ns).Write(ctx, "k=v"); err != nil {
			t.Fatalf("Write(%q) failed: %v", ns, err)
		}
	}

	names, err = s.Namespaces(ctx)
	if err != nil {
		t.Fatalf("Namespaces() failed: %v", err)
	}
	want := []string{"Beta", "alpha", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Namespaces() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Namespaces()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table_info(%s) failed: %v", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_index_list(?)", table)
	if err != nil {
		t.Fatalf("index_list(%s) failed: %v", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index: %v", err)
		}
		names = append(names, name)
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
