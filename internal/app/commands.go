package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wageflow/internal/config"
	"wageflow/internal/domain"
	"wageflow/internal/etl"
	"wageflow/internal/logger"
	mcpserver "wageflow/internal/mcp"
	"wageflow/internal/secret"
)

// Version is set at build time.
var Version = "dev"

// newResolver builds the secret resolver used by every command.
var newResolver = secret.NewResolver

type rootOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
	dbPath     string
	output     string
	extras     map[string]any
}

// extra records a config override set by a subcommand flag.
func (o *rootOptions) extra(key string, value any) {
	if o.extras == nil {
		o.extras = map[string]any{}
	}
	o.extras[key] = value
}

// RootCmd builds the wageflow command tree.
func RootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "wageflow",
		Short: "Join the wage index with inflation and export the result",
		Long: `wageflow loads the wage index and inflation exports, normalizes dates and
decimals, stores both in a relational database, joins them on date and
writes the merged table as semicolon-separated UTF-8 with a byte-order mark.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running without a subcommand runs the pipeline once.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")
	pf.StringVar(&opts.dbPath, "db", "", "sqlite database file (store.path)")
	pf.StringVarP(&opts.output, "output", "o", "", "output format (table, json); defaults to table on a terminal")

	root.AddCommand(
		runCmd(opts),
		previewCmd(opts),
		showCmd(opts),
		runsCmd(opts),
		watchCmd(opts),
		mcpCmd(opts),
		secretCmd(),
	)
	return root
}

// overrides maps explicitly set flags onto config keys.
func (o *rootOptions) overrides(cmd *cobra.Command) map[string]any {
	out := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		out["log.level"] = o.logLevel
	}
	if flags.Changed("log-json") {
		out["log.json"] = o.logJSON
	}
	if flags.Changed("db") {
		out["store.path"] = o.dbPath
	}
	for k, v := range o.extras {
		out[k] = v
	}
	return out
}

// withApp loads config, builds the logger and opens the app for fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, opts.configPath, opts.overrides(cmd))
	if err != nil {
		return err
	}
	log := NewLogger(cfg.Log, cmd.ErrOrStderr())
	ctx = logger.ContextWithLogger(ctx, log)

	a, err := New(ctx, cfg, newResolver())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown", "error", err)
		}
	}()
	return fn(ctx, a)
}

func runOnce(cmd *cobra.Command, opts *rootOptions) error {
	return withApp(cmd, opts, func(ctx context.Context, a *App) error {
		result, err := a.Pipelines.Run(ctx)
		if result != nil {
			if werr := printResult(cmd, opts, result); werr != nil {
				return werr
			}
		}
		return err
	})
}

func printResult(cmd *cobra.Command, opts *rootOptions, r *etl.PipelineResult) error {
	w := cmd.OutOrStdout()
	if resolveFormat(opts.output, w) == OutputFormatJSON {
		return writeJSON(w, r)
	}
	return renderTable(w, []string{"run", "status", "wage", "inflation", "merged", "output", "duration"}, [][]string{{
		r.RunID,
		r.Status,
		strconv.Itoa(r.WageRows),
		strconv.Itoa(r.InflationRows),
		strconv.Itoa(r.MergedRows),
		r.OutputPath,
		r.Duration.Round(time.Millisecond).String(),
	}})
}

func runCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, opts)
		},
	}
}

func previewCmd(opts *rootOptions) *cobra.Command {
	var source string
	var rows int
	var schemaOnly bool
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Load and normalize one input without storing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				w := cmd.OutOrStdout()
				format := resolveFormat(opts.output, w)
				if schemaOnly {
					schema, err := a.Pipelines.DescribeSource(ctx, source)
					if err != nil {
						return err
					}
					return writeSchema(w, format, schema)
				}
				t, err := a.Pipelines.Preview(ctx, source, rows)
				if err != nil {
					return err
				}
				return writeRecords(w, format, t.Schema, t.Records)
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "wage", `input to preview ("wage" or "inflation")`)
	cmd.Flags().IntVar(&rows, "rows", 10, "maximum rows to show")
	cmd.Flags().BoolVar(&schemaOnly, "schema-only", false, "only show the input's header as published")
	return cmd
}

func showCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the merged table from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				rows, err := a.Pipelines.MergedRows(ctx, limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if resolveFormat(opts.output, w) == OutputFormatJSON {
					return writeJSON(w, rows)
				}
				return renderTable(w, mergedHeaders(a.Config.MergedColumns()), mergedCells(rows))
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to show (0 for all)")
	return cmd
}

func mergedHeaders(c domain.MergedColumns) []string {
	return []string{c.Date, c.WageIndex, c.MonthlyChange, c.YearlyChange, c.CPIIndex, c.Target}
}

func mergedCells(rows []domain.MergedRecord) [][]string {
	opt := func(p *float64) any {
		if p == nil {
			return nil
		}
		return *p
	}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{
			r.Date.Format(domain.DateLayout),
			etl.FormatValue(r.WageIndex),
			etl.FormatValue(opt(r.MonthlyChangePct)),
			etl.FormatValue(opt(r.YearlyChangePct)),
			etl.FormatValue(r.CPIIndex),
			etl.FormatValue(r.InflationTarget),
		}
	}
	return cells
}

func runsCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				runs, err := a.Pipelines.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if resolveFormat(opts.output, w) == OutputFormatJSON {
					return writeJSON(w, runs)
				}
				cells := make([][]string, len(runs))
				for i, r := range runs {
					cells[i] = []string{
						r.ID,
						r.StartedAt.Local().Format(time.DateTime),
						r.Status,
						strconv.Itoa(r.MergedRows),
						r.Error,
					}
				}
				return renderTable(w, []string{"run", "started", "status", "merged", "error"}, cells)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

func watchCmd(opts *rootOptions) *cobra.Command {
	var schedule string
	var watch bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the pipeline on a cron schedule and/or when inputs change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("schedule") {
				opts.extra("trigger.schedule", schedule)
			}
			if cmd.Flags().Changed("files") {
				opts.extra("trigger.watch", watch)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				trig := a.Config.Trigger
				if trig.Schedule == "" && !trig.Watch {
					return errors.New("nothing to watch: set --schedule and/or --files (trigger.schedule, trigger.watch)")
				}
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				if _, err := a.Pipelines.Run(ctx); err != nil {
					a.Log.Error("initial run failed", "error", err)
				}
				if err := a.Pipelines.StartTriggers(ctx); err != nil {
					return err
				}
				<-ctx.Done()

				a.Log.Info("shutting down, waiting for the running pipeline")
				a.Pipelines.Stop()
				waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				a.Pipelines.WaitRunning(waitCtx)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression, e.g. \"0 6 * * *\"")
	cmd.Flags().BoolVar(&watch, "files", false, "re-run when either input file changes")
	return cmd
}

func mcpCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the pipeline as MCP tools on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				srv := mcpserver.New(mcpserver.Deps{Pipelines: a.Pipelines, Version: Version})
				if err := srv.ServeStdio(ctx); err != nil {
					return fmt.Errorf("mcp server: %w", err)
				}
				return nil
			})
		},
	}
}

func secretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the store password referenced by store.password_secret",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set REF",
			Short: "Store a secret read from stdin, e.g. keychain:wageflow-db",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read secret: %w", err)
				}
				v := strings.TrimRight(string(value), "\r\n")
				if v == "" {
					return errors.New("empty secret on stdin")
				}
				if err := newResolver().Set(args[0], []byte(v)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete REF",
			Short: "Delete a stored secret",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := newResolver().Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
