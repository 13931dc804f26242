package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "pglift [config.toml]",
	Short:   "SQLite to PostgreSQL migration tool",
	Args:    cobra.MaximumNArgs(1),
	Version: versionString(),
	RunE:    runMigration,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to migration TOML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMigration(cmd *cobra.Command, args []string) error {
	// Resolve config path: positional arg takes precedence over --config flag
	cfgPath := configPath
	if len(args) > 0 {
		cfgPath = args[0]
	}
	if cfgPath == "" {
		return fmt.Errorf("config file required: pglift <config.toml> or pglift --config <config.toml>")
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	start := time.Now()

	log.Printf("pglift — SQLite → PostgreSQL migration")
	log.Printf("config: schema=%s on_table_exists=%s batch_size=%d",
		cfg.Schema, cfg.OnTableExists, cfg.BatchSize)

	// 1. Open SQLite read-only
	log.Printf("opening SQLite database %s...", cfg.Source.Path)
	src, err := openSource(cfg.Source.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := src.PingContext(ctx); err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	// 2. Introspect source schema — fatal on failure, no table list can be
	// trusted after a catalog error
	log.Printf("introspecting source schema...")
	schema, err := introspectSchema(src)
	if err != nil {
		return fmt.Errorf("introspect schema: %w", err)
	}
	log.Printf("found %d tables", len(schema.Tables))
	for _, t := range schema.Tables {
		log.Printf("  %s (%d cols, ~%d rows, %d indexes, %d fks)",
			t.Name, len(t.Columns), t.RowCount, len(t.Indexes), len(t.ForeignKeys))
	}

	// 3. Resolve all column types upfront — an unmappable column aborts the
	// run before any DDL touches the target
	if err := resolveColumnTypes(schema); err != nil {
		return err
	}

	objs, err := introspectSourceObjects(src)
	if err != nil {
		return fmt.Errorf("introspect source objects: %w", err)
	}

	// 4. Connect to PostgreSQL
	log.Printf("connecting to PostgreSQL at %s:%d...", cfg.Target.Host, cfg.Target.Port)
	pool, err := pgxpool.New(ctx, cfg.Target.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	report := &Report{Warnings: sourceObjectWarnings(objs)}

	// 5. Schema phase: create tables. DDL failures are table-scoped — the
	// table is recorded as failed and the run continues.
	log.Printf("creating tables...")
	var created []Table
	createErr := make(map[string]error)
	for _, t := range schema.Tables {
		log.Printf("  creating %s.%s", cfg.Schema, t.Name)
		if err := createTable(ctx, pool, t, cfg.Schema, cfg.OnTableExists); err != nil {
			log.Printf("    SKIP: %v", err)
			createErr[t.Name] = err
			continue
		}
		created = append(created, t)
	}

	// 6. before_data hooks
	if err := loadAndExecSQLFiles(ctx, pool, cfg, cfg.Hooks.BeforeData, "before_data"); err != nil {
		return fmt.Errorf("before_data hooks: %w", err)
	}

	// 7. Data phase: one table at a time, in batches
	log.Printf("migrating data (batch size %d)...", cfg.BatchSize)
	for _, t := range schema.Tables {
		if cerr, skipped := createErr[t.Name]; skipped {
			report.Add(TableResult{Table: t.Name, Err: cerr})
			continue
		}
		result := transferTable(ctx, src, pool, t, cfg.Schema, cfg.BatchSize)
		log.Printf("  %s: %d/%d rows in %s",
			result.Table, result.RowsCommitted, result.RowsAttempted,
			result.Elapsed.Round(time.Millisecond))
		report.Add(result)
	}

	// 8. after_data hooks
	if err := loadAndExecSQLFiles(ctx, pool, cfg, cfg.Hooks.AfterData, "after_data"); err != nil {
		return fmt.Errorf("after_data hooks: %w", err)
	}

	// 9. Post-migration: indexes, foreign keys, sequences on migrated tables
	log.Printf("running post-migration steps...")
	postMigrate(ctx, pool, &Schema{Tables: created}, cfg.Schema, report)

	report.Elapsed = time.Since(start)
	report.Render(os.Stdout)

	if !report.FullSuccess() {
		if report.NothingMigrated() {
			return fmt.Errorf("migration failed: no rows were migrated")
		}
		// Partial: the report shows exactly what needs manual follow-up.
		os.Exit(2)
	}
	return nil
}
