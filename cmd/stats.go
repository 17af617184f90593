package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sells-group/funding-cli/internal/config"
	"github.com/sells-group/funding-cli/internal/model"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue breakdown and agent status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, config.ModeQueue)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Orchestrator.GetWorkflowStats(ctx)
		if err != nil {
			return err
		}
		if statsJSON {
			return writeJSON(cmd.OutOrStdout(), stats)
		}
		renderStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func renderStats(w io.Writer, s *model.WorkflowStats) {
	fmt.Fprintf(w, "Queue length: %d\n\n", s.QueueLength)

	breakdown := table.NewWriter()
	breakdown.SetOutputMirror(w)
	breakdown.SetStyle(table.StyleLight)
	breakdown.AppendHeader(table.Row{"Group", "Value", "Count"})
	for _, p := range []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
		breakdown.AppendRow(table.Row{"priority", p, s.QueueByPriority[p]})
	}
	types := make([]string, 0, len(s.QueueByType))
	for t := range s.QueueByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		breakdown.AppendRow(table.Row{"type", t, s.QueueByType[model.QueueItemType(t)]})
	}
	breakdown.Render()

	agents := table.NewWriter()
	agents.SetOutputMirror(w)
	agents.SetStyle(table.StyleLight)
	agents.AppendHeader(table.Row{"Agent", "Status", "Processed", "Failed"})
	for _, a := range s.Agents {
		agents.AppendRow(table.Row{a.Name, a.Status, a.Processed, a.Failed})
	}
	agents.Render()

	if s.LastRun != nil {
		fmt.Fprintf(w, "\nLast run: %d processed, %d verified, %d manual review, %d errors in %dms\n",
			s.LastRun.ProcessedCount, s.LastRun.VerifiedCount, s.LastRun.ManualReviewCount,
			s.LastRun.ErrorCount, s.LastRun.ExecutionTimeMs)
	}
	fmt.Fprintf(w, "Estimated cost: $%.4f\n", s.EstimatedCostUSD)
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON instead of tables")
	rootCmd.AddCommand(statsCmd)
}
