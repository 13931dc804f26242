package main

import (
	"strings"
	"testing"
)

func TestBuildInsertSQL(t *testing.T) {
	table := Table{
		Name: "users",
		Columns: []Column{
			{Name: "id", PGType: "integer"},
			{Name: "name", PGType: "text"},
		},
	}

	got := buildInsertSQL(table, "app", 1)
	want := "INSERT INTO app.users (id, name) VALUES ($1, $2)"
	if got != want {
		t.Errorf("buildInsertSQL(1) = %q, want %q", got, want)
	}

	got = buildInsertSQL(table, "app", 3)
	want = "INSERT INTO app.users (id, name) VALUES ($1, $2), ($3, $4), ($5, $6)"
	if got != want {
		t.Errorf("buildInsertSQL(3) = %q, want %q", got, want)
	}
}

func TestBuildInsertSQL_QuotesIdentifiers(t *testing.T) {
	table := Table{
		Name:    "order",
		Columns: []Column{{Name: "select", PGType: "text"}},
	}
	got := buildInsertSQL(table, "public", 1)
	if !strings.Contains(got, `"order"`) || !strings.Contains(got, `"select"`) {
		t.Errorf("buildInsertSQL should quote reserved identifiers, got %q", got)
	}
}

func TestCoerceRow(t *testing.T) {
	cols := []Column{
		{Name: "id", PGType: "integer"},
		{Name: "name", PGType: "text"},
		{Name: "active", PGType: "boolean"},
	}

	vals, err := coerceRow([]any{int64(1), "Alice", int64(1)}, cols)
	if err != nil {
		t.Fatalf("coerceRow() error: %v", err)
	}
	if vals[0] != int64(1) || vals[1] != "Alice" || vals[2] != true {
		t.Errorf("coerceRow() = %v", vals)
	}

	// A failing cell fails the whole row and names the column
	_, err = coerceRow([]any{int64(2), "Bob", "banana"}, cols)
	if err == nil {
		t.Fatal("expected coercion error")
	}
	if !strings.Contains(err.Error(), "active") {
		t.Errorf("error should name the column, got %v", err)
	}
}

func TestSqliteColumnList(t *testing.T) {
	got := sqliteColumnList([]string{"id", "name"})
	if got != `"id", "name"` {
		t.Errorf("sqliteColumnList = %q", got)
	}
}
