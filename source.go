package main

import (
	"database/sql"
	"fmt"
	"net/url"
	"slices"
	"strings"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// openSource opens the SQLite database read-only on a single connection.
func openSource(path string) (*sql.DB, error) {
	uri, err := sqliteReadOnlyURI(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// sqliteReadOnlyURI turns a file path or file: URI into a mode=ro URI.
func sqliteReadOnlyURI(path string) (string, error) {
	if path == ":memory:" || path == "file::memory:" || strings.Contains(path, "mode=memory") {
		return "", fmt.Errorf("in-memory SQLite databases are not supported")
	}

	if !strings.HasPrefix(path, "file:") {
		return "file:" + path + "?mode=ro", nil
	}

	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse sqlite URI: %w", err)
	}
	q := u.Query()
	q.Set("mode", "ro")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// introspectSchema reads every user table from the SQLite catalog: columns
// in declaration order, primary keys, row counts, secondary indexes, and
// foreign keys. Internal sqlite_* bookkeeping tables are excluded.
func introspectSchema(db *sql.DB) (*Schema, error) {
	names, err := listTables(db)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	schema := &Schema{}
	for _, name := range names {
		t := Table{Name: name}

		if err := introspectColumns(db, &t); err != nil {
			return nil, fmt.Errorf("introspect columns for %s: %w", name, err)
		}

		if err := db.QueryRow("SELECT COUNT(*) FROM " + sqliteIdent(name)).Scan(&t.RowCount); err != nil {
			return nil, fmt.Errorf("count rows for %s: %w", name, err)
		}

		indexes, err := introspectIndexes(db, name)
		if err != nil {
			return nil, fmt.Errorf("introspect indexes for %s: %w", name, err)
		}
		t.Indexes = indexes

		fks, err := introspectForeignKeys(db, name)
		if err != nil {
			return nil, fmt.Errorf("introspect foreign keys for %s: %w", name, err)
		}
		t.ForeignKeys = fks

		schema.Tables = append(schema.Tables, t)
	}
	return schema, nil
}

func listTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// introspectColumns fills Columns, PrimaryKey, and RowidPK from PRAGMA
// table_info, preserving declaration order.
func introspectColumns(db *sql.DB, t *Table) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", sqliteIdent(t.Name)))
	if err != nil {
		return err
	}
	defer rows.Close()

	type pkCol struct {
		name  string
		pkPos int
	}
	var pkCols []pkCol

	for rows.Next() {
		var cid, notnull, pk int
		var name, declType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &declType, &notnull, &dflt, &pk); err != nil {
			return err
		}

		col := Column{
			Name:         name,
			DeclaredType: declType,
			Nullable:     notnull == 0,
			PrimaryKey:   pk > 0,
			OrdinalPos:   cid + 1,
		}
		if dflt.Valid {
			col.Default = &dflt.String
		}
		t.Columns = append(t.Columns, col)

		if pk > 0 {
			pkCols = append(pkCols, pkCol{name: name, pkPos: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	slices.SortFunc(pkCols, func(a, b pkCol) int { return a.pkPos - b.pkPos })
	for _, pc := range pkCols {
		t.PrimaryKey = append(t.PrimaryKey, pc.name)
	}

	// A lone INTEGER PRIMARY KEY is a rowid alias: SQLite assigns values
	// automatically, so the target gets a sequence after data transfer.
	if len(pkCols) == 1 {
		for _, col := range t.Columns {
			if col.PrimaryKey && strings.EqualFold(strings.TrimSpace(col.DeclaredType), "integer") {
				t.RowidPK = col.Name
			}
		}
	}
	return nil
}

func introspectIndexes(db *sql.DB, tableName string) ([]Index, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA index_list(%s)", sqliteIdent(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []Index
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}

		// PK and UNIQUE-constraint indexes are recreated from table
		// constraints, not as standalone indexes.
		if origin == "pk" {
			continue
		}

		idx := Index{
			Name:          name,
			Unique:        unique == 1,
			HasExpression: partial == 1,
		}

		colRows, err := db.Query(fmt.Sprintf("PRAGMA index_info(%s)", sqliteIdent(name)))
		if err != nil {
			return nil, err
		}
		for colRows.Next() {
			var seqno, cid int
			var colName sql.NullString
			if err := colRows.Scan(&seqno, &cid, &colName); err != nil {
				colRows.Close()
				return nil, err
			}
			if !colName.Valid {
				idx.HasExpression = true
				continue
			}
			idx.Columns = append(idx.Columns, colName.String)
		}
		if err := colRows.Close(); err != nil {
			return nil, err
		}

		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func introspectForeignKeys(db *sql.DB, tableName string) ([]ForeignKey, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA foreign_key_list(%s)", sqliteIdent(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fkMap := make(map[int]*ForeignKey)
	var fkOrder []int

	for rows.Next() {
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString // NULL when referencing the parent's implicit PK
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		fk, ok := fkMap[id]
		if !ok {
			fk = &ForeignKey{
				Name:       fmt.Sprintf("fk_%s_%d", tableName, id),
				RefTable:   refTable,
				UpdateRule: normalizeFKRule(onUpdate),
				DeleteRule: normalizeFKRule(onDelete),
			}
			fkMap[id] = fk
			fkOrder = append(fkOrder, id)
		}
		fk.Columns = append(fk.Columns, from)
		if to.Valid {
			fk.RefColumns = append(fk.RefColumns, to.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var fks []ForeignKey
	for _, id := range fkOrder {
		fks = append(fks, *fkMap[id])
	}
	return fks, nil
}

func normalizeFKRule(rule string) string {
	r := strings.ToUpper(strings.TrimSpace(rule))
	if r == "" {
		return "NO ACTION"
	}
	return r
}

// introspectSourceObjects discovers views and triggers, which this tool
// does not migrate but the report should surface for manual follow-up.
func introspectSourceObjects(db *sql.DB) (*SourceObjects, error) {
	objs := &SourceObjects{}
	for _, kind := range []struct {
		typ  string
		dest *[]string
	}{
		{"view", &objs.Views},
		{"trigger", &objs.Triggers},
	} {
		rows, err := db.Query("SELECT name FROM sqlite_master WHERE type=? ORDER BY name", kind.typ)
		if err != nil {
			return nil, fmt.Errorf("introspect %ss: %w", kind.typ, err)
		}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return nil, err
			}
			*kind.dest = append(*kind.dest, name)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return objs, nil
}

// sourceObjectWarnings formats discovery results for the report.
func sourceObjectWarnings(objs *SourceObjects) []string {
	if objs == nil || len(objs.Views) == 0 && len(objs.Triggers) == 0 {
		return nil
	}

	warnings := []string{fmt.Sprintf(
		"source contains non-table objects not migrated automatically (%d views, %d triggers)",
		len(objs.Views), len(objs.Triggers),
	)}
	for _, v := range objs.Views {
		warnings = append(warnings, fmt.Sprintf("view: %s", v))
	}
	for _, tr := range objs.Triggers {
		warnings = append(warnings, fmt.Sprintf("trigger: %s", tr))
	}
	return warnings
}
