package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"snapsort/internal/catalog"
	"snapsort/internal/config"
	"snapsort/internal/deps"
	"snapsort/internal/engine"
	"snapsort/internal/logging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var sourceDir string
	var dryRun bool
	var includeDest bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest the source tree into the archive",
		Long: "Scans the source directory, binds sidecars and live clips to their\n" +
			"masters, then moves new content into dated archive buckets and known\n" +
			"content into the duplicates holding directory. Interrupting with\n" +
			"Ctrl-C is safe; rerun with the same arguments to continue.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if sourceDir != "" {
				expanded, err := config.ExpandPath(sourceDir)
				if err != nil {
					return fmt.Errorf("resolve source override: %w", err)
				}
				cfg.Paths.SourceDir = expanded
			}
			if dryRun {
				cfg.Options.DryRun = true
			}
			if includeDest {
				cfg.Options.IncludeDest = true
			}

			if err := deps.VerifyRequired(cfg); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			showProgress := engine.InteractiveStdout() && cfg.Logging.Format != "json"
			eng := engine.New(cfg, store, logger, engine.WithProgress(showProgress))
			outcome, err := eng.Run(runCtx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outcome.DryRun {
				fmt.Fprintln(out, "Preview only; nothing was moved or recorded.")
			}
			if outcome.Interrupted {
				fmt.Fprintln(out, "Interrupted. Rerun with the same arguments to continue.")
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Outcome", "Count"},
				[][]string{
					{"Candidates", strconv.Itoa(outcome.Counts.CandidateMasters)},
					{"Moved", strconv.Itoa(outcome.Counts.Moved)},
					{"Duplicates", strconv.Itoa(outcome.Counts.Duplicate)},
					{"Errors", strconv.Itoa(outcome.Counts.Error)},
					{"Orphan sidecars", strconv.Itoa(outcome.Counts.OrphanSidecar)},
					{"Archive duplicates", strconv.Itoa(outcome.Counts.DestDuplicate)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			fmt.Fprintf(out, "Run %s complete. Reports: %s\n", outcome.RunID, outcome.ReportDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "", "Override the configured source directory for this run")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview the run without moving files or writing records")
	cmd.Flags().BoolVar(&includeDest, "include-dest", false, "First register content already present in the destination tree")
	return cmd
}
