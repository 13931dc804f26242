package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// transferTable streams one table's rows from SQLite to PostgreSQL in
// source read order. Each batch commits as one transaction; a failed batch
// is retried row by row so only the genuinely invalid rows are lost. All
// failures land in the returned TableResult — nothing is swallowed.
func transferTable(ctx context.Context, src *sql.DB, pool *pgxpool.Pool, t Table, pgSchema string, batchSize int) (result TableResult) {
	start := time.Now()
	result = TableResult{Table: t.Name}
	defer func() {
		result.Elapsed = time.Since(start)
	}()

	colNames := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		colNames[i] = col.Name
	}

	selectSQL := fmt.Sprintf("SELECT %s FROM %s",
		sqliteColumnList(colNames), sqliteIdent(t.Name))
	rows, err := src.QueryContext(ctx, selectSQL)
	if err != nil {
		result.Err = fmt.Errorf("read source table: %w", err)
		return result
	}
	defer rows.Close()

	var (
		batch    [][]any
		batchPos []int64 // source row numbers, for failure reporting
		rowNum   int64
	)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		commitBatch(ctx, pool, t, pgSchema, batch, batchPos, &result)
		batch = batch[:0]
		batchPos = batchPos[:0]
	}

	for rows.Next() {
		rowNum++
		result.RowsAttempted++

		raw := make([]any, len(t.Columns))
		ptrs := make([]any, len(t.Columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			result.Err = fmt.Errorf("scan row %d: %w", rowNum, err)
			flush()
			return result
		}

		vals, err := coerceRow(raw, t.Columns)
		if err != nil {
			result.RowFailures = append(result.RowFailures, RowFailure{
				RowNumber: rowNum,
				Err:       err,
			})
			continue
		}

		batch = append(batch, vals)
		batchPos = append(batchPos, rowNum)
		if len(batch) >= batchSize {
			flush()
		}
	}
	flush()

	if err := rows.Err(); err != nil && result.Err == nil {
		result.Err = fmt.Errorf("read source table: %w", err)
	}
	return result
}

// coerceRow converts one scanned source row to target values. The first
// failing cell fails the whole row — partial rows are never inserted.
func coerceRow(raw []any, cols []Column) ([]any, error) {
	vals := make([]any, len(cols))
	for i, col := range cols {
		v, err := coerceValue(raw[i], col.PGType)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// commitBatch inserts a batch inside a single transaction. When the batch
// fails as a whole it is rolled back and retried at single-row granularity
// to isolate the offending rows.
func commitBatch(ctx context.Context, pool *pgxpool.Pool, t Table, pgSchema string, batch [][]any, batchPos []int64, result *TableResult) {
	insertSQL := buildInsertSQL(t, pgSchema, len(batch))
	args := make([]any, 0, len(batch)*len(t.Columns))
	for _, row := range batch {
		args = append(args, row...)
	}

	err := func() error {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)
		if _, err := tx.Exec(ctx, insertSQL, args...); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}()
	if err == nil {
		result.RowsCommitted += int64(len(batch))
		return
	}

	log.Printf("    batch of %d rows failed for %s, retrying row by row: %v", len(batch), t.Name, err)

	rowSQL := buildInsertSQL(t, pgSchema, 1)
	for i, row := range batch {
		if _, err := pool.Exec(ctx, rowSQL, row...); err != nil {
			result.RowFailures = append(result.RowFailures, RowFailure{
				RowNumber: batchPos[i],
				Err:       err,
			})
			continue
		}
		result.RowsCommitted++
	}
}

// buildInsertSQL produces a multi-row INSERT with positional placeholders.
func buildInsertSQL(t Table, pgSchema string, nRows int) string {
	colNames := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		colNames[i] = col.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s.%s (%s) VALUES ",
		pgIdent(pgSchema), pgIdent(t.Name), quotedColumnList(colNames))

	arg := 1
	for r := 0; r < nRows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range t.Columns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteByte(')')
	}
	return b.String()
}

func sqliteColumnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = sqliteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
