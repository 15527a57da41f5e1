package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobmart/services/pipeline/internal/checkpoint"
	"jobmart/services/pipeline/internal/config"
	"jobmart/services/pipeline/internal/errors"
	"jobmart/services/pipeline/internal/pipeline"
	"jobmart/services/pipeline/internal/store"
)

type rootOptions struct {
	dataSource string
	backend    string
	coercion   string
	merge      string

	cfg *config.Config
}

// loadConfig reads the environment and applies any flags given on the
// command line over it.
func (o *rootOptions) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataSource = o.dataSource
	}
	if flags.Changed("backend") {
		cfg.StoreBackend = o.backend
	}
	if flags.Changed("coercion") {
		cfg.CoercionPolicy = o.coercion
	}
	if flags.Changed("merge") {
		cfg.DimensionMerge = o.merge
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "jobmart",
		Short:         "Build the job-postings warehouse from the CSV export",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.loadConfig(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.dataSource, "data", "", "Source directory or gs://bucket/prefix (overrides DATA_SOURCE)")
	pf.StringVar(&opts.backend, "backend", "", "Store backend: clickhouse, sqlite, postgres or memory (overrides STORE_BACKEND)")
	pf.StringVar(&opts.coercion, "coercion", "", "Coercion policy: strict or lenient (overrides COERCION_POLICY)")
	pf.StringVar(&opts.merge, "merge", "", "Dimension merge policy: first_non_null or most_complete (overrides DIMENSION_MERGE)")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newStageCmd(opts, "load", "Load the source files into the raw tables", (*pipeline.Runner).Load),
		newStageCmd(opts, "clean", "Rebuild the clean model from the raw tables", (*pipeline.Runner).Clean),
		newStageCmd(opts, "analytics", "Rebuild the analytics tables from the clean model", (*pipeline.Runner).Analytics),
		newRunCmd(opts),
	)
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var rollback bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the stage namespaces in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				s      store.Store
				logger *zap.Logger
			)
			return withApp(cmd.Context(), opts.cfg, func(ctx context.Context) error {
				m, ok := s.(store.Migrator)
				if !ok {
					logger.Info("store needs no migrations", zap.String("backend", opts.cfg.StoreBackend))
					return nil
				}
				if rollback {
					return m.Rollback(ctx)
				}
				return m.Migrate(ctx)
			}, &s, &logger)
		},
	}

	cmd.Flags().BoolVar(&rollback, "rollback", false, "Revert the most recent migration instead")
	return cmd
}

func newStageCmd(opts *rootOptions, name, short string, stage func(*pipeline.Runner, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			var runner *pipeline.Runner
			return withApp(cmd.Context(), opts.cfg, func(ctx context.Context) error {
				return stage(runner, ctx)
			}, &runner)
		},
	}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		from   string
		resume bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the stages in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := checkpoint.ParseStage(from)
			if err != nil {
				return err
			}
			if resume && cmd.Flags().Changed("from") {
				return errors.InvalidInput("--from and --resume are mutually exclusive", nil)
			}

			var runner *pipeline.Runner
			return withApp(cmd.Context(), opts.cfg, func(ctx context.Context) error {
				if resume {
					return runner.Resume(ctx)
				}
				return runner.Run(ctx, stage)
			}, &runner)
		},
	}

	cmd.Flags().StringVar(&from, "from", string(checkpoint.StageLoad), "First stage to run: load, clean or analytics")
	cmd.Flags().BoolVar(&resume, "resume", false, "Start at the first stage the last run did not complete")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
