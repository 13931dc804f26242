package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgExecutor is the slice of pgxpool.Pool the DDL layer needs, so tests can
// substitute a fake target.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// createTable materializes one table on the target, honoring the configured
// exists policy: "error" fails the table with TableExistsError, "replace"
// drops and recreates. There is deliberately no silent append mode — it
// would corrupt row counts on rerun.
func createTable(ctx context.Context, exec pgExecutor, t Table, pgSchema, onTableExists string) error {
	exists, err := tableExists(ctx, exec, pgSchema, t.Name)
	if err != nil {
		return fmt.Errorf("check table existence: %w", err)
	}
	if exists {
		switch onTableExists {
		case "replace":
			drop := fmt.Sprintf("DROP TABLE %s.%s CASCADE", pgIdent(pgSchema), pgIdent(t.Name))
			if _, err := exec.Exec(ctx, drop); err != nil {
				return fmt.Errorf("drop table %s: %w", t.Name, err)
			}
		default:
			return &TableExistsError{Schema: pgSchema, Table: t.Name}
		}
	}

	ddl := generateCreateTable(t, pgSchema)
	if _, err := exec.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w\nDDL: %s", t.Name, err, ddl)
	}
	return nil
}

func tableExists(ctx context.Context, exec pgExecutor, pgSchema, table string) (bool, error) {
	var exists bool
	err := exec.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM pg_class c
			JOIN pg_namespace n ON n.oid = c.relnamespace
			WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind = 'r'
		)`, pgSchema, table).Scan(&exists)
	return exists, err
}

// generateCreateTable produces a CREATE TABLE statement with columns in
// source declaration order and a PRIMARY KEY table constraint. Column types
// come from the already-resolved PGType, so this never re-maps.
func generateCreateTable(t Table, pgSchema string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s.%s (\n", pgIdent(pgSchema), pgIdent(t.Name))

	for i, col := range t.Columns {
		fmt.Fprintf(&b, "  %s %s", pgIdent(col.Name), col.PGType)

		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}

		if dflt := mapDefault(col); dflt != "" {
			b.WriteString(" DEFAULT " + dflt)
		}

		if i < len(t.Columns)-1 || len(t.PrimaryKey) > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}

	if len(t.PrimaryKey) > 0 {
		fmt.Fprintf(&b, "  PRIMARY KEY (%s)\n", quotedColumnList(t.PrimaryKey))
	}

	b.WriteString(")")
	return b.String()
}

// mapDefault translates a SQLite column default into a PostgreSQL DEFAULT
// expression. Expression defaults other than the CURRENT_* functions are
// skipped with a warning rather than copied verbatim.
func mapDefault(col Column) string {
	if col.Default == nil {
		return ""
	}

	raw := strings.TrimSpace(*col.Default)
	upper := strings.ToUpper(raw)

	if upper == "NULL" {
		return ""
	}

	switch upper {
	case "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME", "TRUE", "FALSE":
		return upper
	}

	if isNumericLiteral(raw) {
		if col.PGType == "boolean" {
			switch raw {
			case "0":
				return "FALSE"
			case "1":
				return "TRUE"
			}
		}
		return raw
	}

	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		inner := strings.ReplaceAll(raw[1:len(raw)-1], "''", "'")
		return pgLiteral(inner)
	}

	log.Printf("    WARN: skipping expression default %q for column %s", raw, col.Name)
	return ""
}

func isNumericLiteral(s string) bool {
	if s == "" {
		return false
	}
	hasDot := false
	start := 0
	if s[0] == '-' || s[0] == '+' {
		start = 1
	}
	if start >= len(s) {
		return false
	}
	for i := start; i < len(s); i++ {
		if s[i] == '.' {
			if hasDot {
				return false
			}
			hasDot = true
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
