package main

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
)

// seedSQLite creates a throwaway SQLite database file and returns its path.
func seedSQLite(t *testing.T, stmts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	defer db.Close()
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed statement %q: %v", stmt, err)
		}
	}
	return path
}

func TestSqliteReadOnlyURI(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{"data.db", "file:data.db?mode=ro", false},
		{"/var/lib/app.db", "file:/var/lib/app.db?mode=ro", false},
		{"file:data.db?cache=shared", "file:data.db?cache=shared&mode=ro", false},
		{"file:data.db?mode=rw", "file:data.db?mode=ro", false},
		{":memory:", "", true},
		{"file::memory:", "", true},
		{"file:x?mode=memory", "", true},
	}
	for _, tt := range tests {
		got, err := sqliteReadOnlyURI(tt.in)
		if tt.err {
			if err == nil {
				t.Errorf("sqliteReadOnlyURI(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("sqliteReadOnlyURI(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("sqliteReadOnlyURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpenSource_ReadOnly(t *testing.T) {
	path := seedSQLite(t, "CREATE TABLE t (id INTEGER PRIMARY KEY)")

	db, err := openSource(path)
	if err != nil {
		t.Fatalf("openSource() error: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("INSERT INTO t (id) VALUES (1)"); err == nil {
		t.Error("write through read-only connection should fail")
	}
}

func TestIntrospectSchema(t *testing.T) {
	path := seedSQLite(t,
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT 1,
			bio TEXT
		)`,
		`CREATE TABLE memberships (
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			team TEXT NOT NULL,
			PRIMARY KEY (team, user_id)
		)`,
		`CREATE INDEX idx_users_name ON users(name)`,
		`INSERT INTO users (id, name, active) VALUES (1, 'Alice', 1), (2, 'Bob', 0)`,
	)

	db, err := openSource(path)
	if err != nil {
		t.Fatalf("openSource() error: %v", err)
	}
	defer db.Close()

	schema, err := introspectSchema(db)
	if err != nil {
		t.Fatalf("introspectSchema() error: %v", err)
	}

	if len(schema.Tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(schema.Tables))
	}

	// Tables come back name-ordered
	memberships, users := schema.Tables[0], schema.Tables[1]
	if memberships.Name != "memberships" || users.Name != "users" {
		t.Fatalf("unexpected table order: %s, %s", memberships.Name, users.Name)
	}

	// Columns in declaration order with type, nullability, pk metadata
	wantCols := []struct {
		name     string
		declType string
		nullable bool
		pk       bool
	}{
		{"id", "INTEGER", true, true}, // SQLite allows NULL-less via pk, notnull=0 here
		{"name", "TEXT", false, false},
		{"active", "BOOLEAN", false, false},
		{"bio", "TEXT", true, false},
	}
	if len(users.Columns) != len(wantCols) {
		t.Fatalf("users has %d columns, want %d", len(users.Columns), len(wantCols))
	}
	for i, want := range wantCols {
		col := users.Columns[i]
		if col.Name != want.name || col.DeclaredType != want.declType ||
			col.Nullable != want.nullable || col.PrimaryKey != want.pk {
			t.Errorf("users column %d = %+v, want %+v", i, col, want)
		}
		if col.OrdinalPos != i+1 {
			t.Errorf("users column %d ordinal = %d", i, col.OrdinalPos)
		}
	}

	if users.Columns[2].Default == nil || *users.Columns[2].Default != "1" {
		t.Errorf("active default = %v, want 1", users.Columns[2].Default)
	}

	if users.RowCount != 2 {
		t.Errorf("users RowCount = %d, want 2", users.RowCount)
	}
	if memberships.RowCount != 0 {
		t.Errorf("memberships RowCount = %d, want 0", memberships.RowCount)
	}

	// Lone INTEGER PRIMARY KEY is a rowid alias
	if users.RowidPK != "id" {
		t.Errorf("users RowidPK = %q, want id", users.RowidPK)
	}
	if memberships.RowidPK != "" {
		t.Errorf("memberships RowidPK = %q, want empty", memberships.RowidPK)
	}

	// Composite PK in key order (team first, per the declaration)
	if len(memberships.PrimaryKey) != 2 || memberships.PrimaryKey[0] != "team" || memberships.PrimaryKey[1] != "user_id" {
		t.Errorf("memberships PK = %v, want [team user_id]", memberships.PrimaryKey)
	}

	// Secondary index
	if len(users.Indexes) != 1 || users.Indexes[0].Name != "idx_users_name" {
		t.Fatalf("users indexes = %+v", users.Indexes)
	}
	if users.Indexes[0].Unique || users.Indexes[0].HasExpression {
		t.Errorf("idx_users_name flags = %+v", users.Indexes[0])
	}
	if len(users.Indexes[0].Columns) != 1 || users.Indexes[0].Columns[0] != "name" {
		t.Errorf("idx_users_name columns = %v", users.Indexes[0].Columns)
	}

	// Foreign key
	if len(memberships.ForeignKeys) != 1 {
		t.Fatalf("memberships fks = %+v", memberships.ForeignKeys)
	}
	fk := memberships.ForeignKeys[0]
	if fk.RefTable != "users" || len(fk.Columns) != 1 || fk.Columns[0] != "user_id" {
		t.Errorf("fk = %+v", fk)
	}
	if fk.DeleteRule != "CASCADE" || fk.UpdateRule != "NO ACTION" {
		t.Errorf("fk rules = %s/%s", fk.UpdateRule, fk.DeleteRule)
	}
}

func TestIntrospectSchema_ExcludesInternalTables(t *testing.T) {
	path := seedSQLite(t,
		`CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT)`,
		`INSERT INTO notes (body) VALUES ('x')`,
	)

	db, err := openSource(path)
	if err != nil {
		t.Fatalf("openSource() error: %v", err)
	}
	defer db.Close()

	schema, err := introspectSchema(db)
	if err != nil {
		t.Fatalf("introspectSchema() error: %v", err)
	}

	// AUTOINCREMENT creates sqlite_sequence, which must not be listed
	if len(schema.Tables) != 1 || schema.Tables[0].Name != "notes" {
		t.Fatalf("tables = %+v, want only notes", schema.Tables)
	}
}

func TestIntrospectSourceObjects(t *testing.T) {
	path := seedSQLite(t,
		`CREATE TABLE events (id INTEGER PRIMARY KEY, kind TEXT)`,
		`CREATE VIEW recent AS SELECT * FROM events`,
		`CREATE TRIGGER trg_events AFTER INSERT ON events BEGIN SELECT 1; END`,
	)

	db, err := openSource(path)
	if err != nil {
		t.Fatalf("openSource() error: %v", err)
	}
	defer db.Close()

	objs, err := introspectSourceObjects(db)
	if err != nil {
		t.Fatalf("introspectSourceObjects() error: %v", err)
	}
	if len(objs.Views) != 1 || objs.Views[0] != "recent" {
		t.Errorf("views = %v", objs.Views)
	}
	if len(objs.Triggers) != 1 || objs.Triggers[0] != "trg_events" {
		t.Errorf("triggers = %v", objs.Triggers)
	}

	warnings := sourceObjectWarnings(objs)
	if len(warnings) != 3 {
		t.Fatalf("warnings = %v", warnings)
	}
	if !strings.Contains(warnings[0], "1 views, 1 triggers") {
		t.Errorf("summary warning = %q", warnings[0])
	}
}

func TestSourceObjectWarnings_Empty(t *testing.T) {
	if got := sourceObjectWarnings(nil); got != nil {
		t.Errorf("sourceObjectWarnings(nil) = %v", got)
	}
	if got := sourceObjectWarnings(&SourceObjects{}); got != nil {
		t.Errorf("sourceObjectWarnings(empty) = %v", got)
	}
}

func TestOpenSource_MissingFile(t *testing.T) {
	db, err := openSource(filepath.Join(t.TempDir(), "missing.db"))
	if err != nil {
		return // also acceptable: open fails immediately
	}
	defer db.Close()
	if err := db.Ping(); err == nil {
		t.Error("expected ping failure for missing database file")
	}
}

func TestOpenSource_RejectsMemory(t *testing.T) {
	if _, err := openSource(":memory:"); err == nil {
		t.Fatal("expected error for in-memory database")
	}
	if _, err := openSource("file:db?mode=memory"); err == nil {
		t.Fatal("expected error for mode=memory URI")
	}
}
