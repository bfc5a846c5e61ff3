package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"snapsort/internal/report"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past ingestion runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			history := report.ReadHistory(cfg.HistoryPath())
			out := cmd.OutOrStdout()
			if len(history) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			if limit > 0 && len(history) > limit {
				history = history[len(history)-limit:]
			}

			rows := make([][]string, 0, len(history))
			for _, rec := range history {
				mode := "ingest"
				if rec.DryRun {
					mode = "preview"
				}
				rows = append(rows, []string{
					rec.RunID,
					time.Unix(rec.StartedAt, 0).Format("2006-01-02 15:04:05"),
					strconv.FormatInt(rec.DurationSec, 10) + "s",
					mode,
					strconv.Itoa(rec.Counts.Moved),
					strconv.Itoa(rec.Counts.Duplicate),
					strconv.Itoa(rec.Counts.Error),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Duration", "Mode", "Moved", "Dup", "Err"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the most recent N runs")
	return cmd
}
