package main

import "fmt"

// TypeMappingError means a column's declared type could not be mapped to a
// PostgreSQL type. It is fatal for the run: the generated schema cannot be
// trusted if any column type is a guess.
type TypeMappingError struct {
	Table        string
	Column       string
	DeclaredType string
}

func (e *TypeMappingError) Error() string {
	return fmt.Sprintf("no PostgreSQL type mapping for %s.%s (declared type %q)",
		e.Table, e.Column, e.DeclaredType)
}

// TableExistsError means the target table already exists and
// on_table_exists = "error". Table-scoped: the table is skipped and the run
// continues.
type TableExistsError struct {
	Schema string
	Table  string
}

func (e *TableExistsError) Error() string {
	return fmt.Sprintf("table %s.%s already exists in target database (on_table_exists=error)",
		e.Schema, e.Table)
}
