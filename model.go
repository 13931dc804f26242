package main

import "time"

// Column is a single column read from the SQLite catalog. Immutable after
// introspection; PGType is resolved once by resolveColumnTypes before any
// DDL runs.
type Column struct {
	Name         string
	DeclaredType string // declared type text, e.g. "VARCHAR(255)", may be empty
	PGType       string // mapped PostgreSQL type, filled by resolveColumnTypes
	Nullable     bool
	PrimaryKey   bool
	Default      *string // raw default expression from the catalog, if any
	OrdinalPos   int
}

// Index represents a SQLite secondary index (may span multiple columns).
type Index struct {
	Name          string
	Columns       []string
	Unique        bool
	HasExpression bool // expression or partial index, not recreated
}

// ForeignKey represents a SQLite foreign key constraint.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	UpdateRule string // CASCADE, SET NULL, NO ACTION, ...
	DeleteRule string
}

// Table holds the full introspected definition of a SQLite table.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string // PK column names in key order, empty if none
	RowCount    int64    // COUNT(*) at introspection time
	Indexes     []Index  // non-primary indexes
	ForeignKeys []ForeignKey
	RowidPK     string // INTEGER PRIMARY KEY rowid alias column, if any
}

// Schema holds all introspected tables of the source database.
type Schema struct {
	Tables []Table
}

// SourceObjects holds non-table source objects that require manual migration.
type SourceObjects struct {
	Views    []string
	Triggers []string
}

// RowFailure records a single source row that could not be migrated.
type RowFailure struct {
	RowNumber int64 // 1-based position in source read order
	Err       error
}

// TableResult is the per-table migration outcome. Created when a table's
// transfer starts and finalized when it ends; never mutated afterwards.
type TableResult struct {
	Table         string
	RowsAttempted int64
	RowsCommitted int64
	RowFailures   []RowFailure
	Elapsed       time.Duration
	Err           error // table-scoped failure (DDL, lost connection, ...)
}

// OK reports whether the table migrated completely.
func (r TableResult) OK() bool {
	return r.Err == nil && len(r.RowFailures) == 0 && r.RowsAttempted == r.RowsCommitted
}

// FirstError returns the table-scoped error, or the first row failure.
func (r TableResult) FirstError() error {
	if r.Err != nil {
		return r.Err
	}
	if len(r.RowFailures) > 0 {
		return r.RowFailures[0].Err
	}
	return nil
}
