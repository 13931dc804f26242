package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// postMigrate recreates secondary indexes and foreign keys, and attaches
// sequences to rowid-alias primary keys. Data is already committed by the
// time this runs, so failures here are surfaced as report warnings instead
// of dropping tables from the result set.
func postMigrate(ctx context.Context, pool *pgxpool.Pool, schema *Schema, pgSchema string, report *Report) {
	steps := []struct {
		name string
		fn   func(context.Context, *pgxpool.Pool, *Schema, string) []string
	}{
		{"indexes", addIndexes},
		{"foreign keys", addForeignKeys},
		{"sequences", resetSequences},
	}

	for _, step := range steps {
		log.Printf("  %s...", step.name)
		report.Warnings = append(report.Warnings, step.fn(ctx, pool, schema, pgSchema)...)
	}
}

// addIndexes recreates non-primary indexes. Expression and partial indexes
// carry SQL that does not translate mechanically and are skipped.
func addIndexes(ctx context.Context, pool *pgxpool.Pool, schema *Schema, pgSchema string) []string {
	var warnings []string
	for _, t := range schema.Tables {
		for _, idx := range t.Indexes {
			if idx.HasExpression {
				warnings = append(warnings, fmt.Sprintf(
					"index %s on %s uses an expression or WHERE clause and was not recreated", idx.Name, t.Name))
				continue
			}
			unique := ""
			if idx.Unique {
				unique = "UNIQUE "
			}
			q := fmt.Sprintf("CREATE %sINDEX %s ON %s.%s (%s)",
				unique, pgIdent(idx.Name), pgIdent(pgSchema), pgIdent(t.Name),
				quotedColumnList(idx.Columns))
			if _, err := pool.Exec(ctx, q); err != nil {
				warnings = append(warnings, fmt.Sprintf("create index %s: %v", idx.Name, err))
			}
		}
	}
	return warnings
}

// addForeignKeys adds foreign key constraints after all data is in place.
// A constraint that fails to validate (orphaned rows in the source) is
// reported and skipped rather than failing the run.
func addForeignKeys(ctx context.Context, pool *pgxpool.Pool, schema *Schema, pgSchema string) []string {
	var warnings []string
	for _, t := range schema.Tables {
		for _, fk := range t.ForeignKeys {
			if len(fk.RefColumns) != len(fk.Columns) {
				warnings = append(warnings, fmt.Sprintf(
					"foreign key %s on %s references an implicit primary key and was not recreated", fk.Name, t.Name))
				continue
			}
			q := fmt.Sprintf(
				"ALTER TABLE %s.%s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s.%s (%s) ON UPDATE %s ON DELETE %s",
				pgIdent(pgSchema), pgIdent(t.Name),
				pgIdent(fk.Name),
				quotedColumnList(fk.Columns),
				pgIdent(pgSchema), pgIdent(fk.RefTable),
				quotedColumnList(fk.RefColumns),
				fk.UpdateRule, fk.DeleteRule,
			)
			if _, err := pool.Exec(ctx, q); err != nil {
				warnings = append(warnings, fmt.Sprintf("add foreign key %s on %s: %v", fk.Name, t.Name, err))
			}
		}
	}
	return warnings
}

// resetSequences creates a sequence for each rowid-alias primary key and
// sets it past the migrated maximum, so inserts keep working on the target.
func resetSequences(ctx context.Context, pool *pgxpool.Pool, schema *Schema, pgSchema string) []string {
	var warnings []string
	for _, t := range schema.Tables {
		if t.RowidPK == "" {
			continue
		}
		seqName := fmt.Sprintf("%s_%s_seq", t.Name, t.RowidPK)

		stmts := []string{
			fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s.%s", pgIdent(pgSchema), pgIdent(seqName)),
			fmt.Sprintf("SELECT setval('%s.%s', COALESCE((SELECT MAX(%s) FROM %s.%s), 0) + 1, false)",
				pgSchema, seqName,
				pgIdent(t.RowidPK), pgIdent(pgSchema), pgIdent(t.Name)),
			fmt.Sprintf("ALTER TABLE %s.%s ALTER COLUMN %s SET DEFAULT nextval('%s.%s')",
				pgIdent(pgSchema), pgIdent(t.Name), pgIdent(t.RowidPK),
				pgSchema, seqName),
			fmt.Sprintf("ALTER SEQUENCE %s.%s OWNED BY %s.%s.%s",
				pgIdent(pgSchema), pgIdent(seqName),
				pgIdent(pgSchema), pgIdent(t.Name), pgIdent(t.RowidPK)),
		}
		for _, q := range stmts {
			if err := execSQL(ctx, pool, seqName, q); err != nil {
				warnings = append(warnings, err.Error())
				break
			}
		}
	}
	return warnings
}

// execSQL runs a single statement and wraps errors with context.
func execSQL(ctx context.Context, pool *pgxpool.Pool, desc, query string) error {
	if _, err := pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("%s: %w\nSQL: %s", desc, err, query)
	}
	return nil
}
