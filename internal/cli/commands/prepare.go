package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/paraprep/internal/config"
	"github.com/JonMunkholm/paraprep/internal/core"
	"github.com/JonMunkholm/paraprep/internal/prepare"
	"github.com/JonMunkholm/paraprep/internal/report"
	"github.com/JonMunkholm/paraprep/internal/store"
)

// NewPrepareCommand creates the prepare command.
func NewPrepareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Run a recipe on its raw table and write the prepared table",
		Long: `Read the recipe's raw and reference tables, run every preparation step
and write the prepared table as CSV. The table can also be written to a
SQLite database file and copied to a PostgreSQL table.

File names default to the recipe's names inside the data directory.`,
		Example: `  # Prepare data/paralympics_raw.csv into data/paralympics_prepared.csv
  paraprep prepare

  # Show the table after every step
  paraprep prepare --inspect

  # Also load the result into SQLite
  paraprep prepare --sqlite data/paraprep.db`,
		Args: cobra.NoArgs,
		RunE: runPrepare,
	}

	cmd.Flags().String("recipe", "", "Recipe to run (default: paralympics)")
	cmd.Flags().String("raw", "", "Raw table path (default: recipe raw file in the data directory)")
	cmd.Flags().String("reference", "", "Reference table path (default: recipe reference file in the data directory)")
	cmd.Flags().String("output", "", "Prepared CSV path (default: recipe output file in the data directory)")
	cmd.Flags().String("sqlite", "", "Also write the prepared table to this SQLite database")
	cmd.Flags().String("postgres", "", "Also copy the prepared table to this PostgreSQL URL")
	cmd.Flags().String("table", "", "Database table name (default: output file base name)")
	cmd.Flags().Bool("inspect", false, "Render the table state after every step")

	_ = cmd.RegisterFlagCompletionFunc("recipe", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, r := range prepare.Recipes() {
			names = append(names, r.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runPrepare(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd, report.ModeText)
	if err != nil {
		return err
	}
	cfg := cc.Cfg
	ctx := cmd.Context()

	rec, err := prepare.Lookup(cfg.Recipe)
	if err != nil {
		return err
	}

	rawPath := cfg.Path(cfg.RawFile, rec.RawFile)
	refPath := cfg.Path(cfg.ReferenceFile, rec.ReferenceFile)
	outPath := cfg.Path(cfg.OutputFile, rec.OutputFile)

	raw, err := core.ReadFile(rawPath, core.ReadOptions{})
	if err != nil {
		return fmt.Errorf("raw table: %w", err)
	}
	ref, err := core.ReadFile(refPath, rec.Reference)
	if err != nil {
		return fmt.Errorf("reference table: %w", err)
	}

	sinks, closeSinks, err := openSinks(ctx, cfg, outPath)
	if err != nil {
		return err
	}
	defer closeSinks()

	opts := []prepare.Option{prepare.WithSinks(sinks...), prepare.WithLogger(cc.Logger)}
	if cfg.Inspect {
		opts = append(opts, prepare.WithInspector(report.NewStepInspector(cc.Renderer)))
	}

	res, err := prepare.ForRecipe(rec, opts...).Prepare(ctx, raw, ref)
	if err != nil {
		return err
	}
	return printSummary(cc.Renderer, res)
}

// openSinks returns any configured database sinks followed by the CSV file
// sink, and a function closing their connections. The database sinks write
// in one transaction each and the CSV file is written last, so a database
// failure leaves the previous CSV output in place.
func openSinks(ctx context.Context, cfg *config.Config, outPath string) ([]prepare.Sink, func(), error) {
	var sinks []prepare.Sink
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	table := cfg.Store.Table
	if table == "" {
		table = strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath))
	}

	if cfg.Store.SQLite != "" {
		db, err := store.OpenSQLite(cfg.Store.SQLite)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { _ = db.Close() })
		sinks = append(sinks, store.SQL(db, store.SQLite, table))
	}
	if cfg.Store.PostgresURL != "" {
		pool, err := store.OpenPostgres(ctx, cfg.Store.PostgresURL)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, pool.Close)
		sinks = append(sinks, store.Postgres(pool, table))
	}
	return append(sinks, store.CSVFile(outPath)), closeAll, nil
}

// printSummary writes the run's step table and outcome.
func printSummary(r *report.Renderer, res *prepare.Result) error {
	st := r.Styles()
	r.Heading(fmt.Sprintf("Prepared %s: %d of %d rows kept", res.Recipe, res.RowsOut, res.RowsIn))

	rows := make([][]string, len(res.Steps))
	for i, s := range res.Steps {
		rows[i] = []string{s.Name, strconv.Itoa(s.Rows), strconv.Itoa(s.Columns), s.Elapsed.String()}
	}
	if err := r.Grid([]string{"step", "rows", "columns", "elapsed"}, rows); err != nil {
		return err
	}

	for _, name := range res.Persisted {
		r.Println("wrote " + name)
	}
	if len(res.JoinMisses) > 0 {
		r.Println(st.Warning.Render(fmt.Sprintf("%d join keys without reference entry: %s",
			len(res.JoinMisses), strings.Join(res.JoinMisses, ", "))))
	}
	if len(res.Unknown) > 0 {
		r.Println(st.Warning.Render("category values without a rewrite: " + strings.Join(res.Unknown, ", ")))
	}
	r.Println(st.Muted.Render("run " + res.RunID))
	return nil
}
