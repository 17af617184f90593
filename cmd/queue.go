package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funding-cli/internal/config"
	"github.com/sells-group/funding-cli/internal/model"
	"github.com/sells-group/funding-cli/internal/queue"
	"github.com/sells-group/funding-cli/pkg/notion"
)

var queueJSON bool

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and work the verification queue",
	Long:  "Lists, completes and exports human-review tasks. The memory driver does not persist between runs; use sqlite, postgres or redis to share the queue.",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending review tasks, highest priority first",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueue(cmd, config.ModeQueue)
		if err != nil {
			return err
		}
		defer q.Close() //nolint:errcheck

		items, err := q.List(cmd.Context())
		if err != nil {
			return err
		}
		if queueJSON {
			return writeJSON(cmd.OutOrStdout(), items)
		}
		renderQueue(cmd.OutOrStdout(), items)
		return nil
	},
}

var queueCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Remove a review task from the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueue(cmd, config.ModeQueue)
		if err != nil {
			return err
		}
		defer q.Close() //nolint:errcheck

		removed, err := q.Complete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			return eris.Errorf("no queue item with id %s", args[0])
		}
		zap.L().Info("review task completed", zap.String("id", args[0]))
		fmt.Fprintf(cmd.OutOrStdout(), "completed %s\n", args[0])
		return nil
	},
}

var queuePushCmd = &cobra.Command{
	Use:   "push",
	Short: "Mirror pending review tasks onto the Notion review board",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		q, err := openQueue(cmd, config.ModePush)
		if err != nil {
			return err
		}
		defer q.Close() //nolint:errcheck

		items, err := q.List(ctx)
		if err != nil {
			return err
		}

		board := notion.NewBoard(cfg.Notion.Token, 3)
		created, err := notion.PushReviewTasks(ctx, board, cfg.Notion.ReviewDB, reviewTasks(items))
		if err != nil {
			return eris.Wrap(err, "push review tasks")
		}

		zap.L().Info("review tasks pushed",
			zap.Int("pending", len(items)),
			zap.Int("created", created),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "pushed %d of %d tasks\n", created, len(items))
		return nil
	},
}

func openQueue(cmd *cobra.Command, mode string) (queue.Store, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return initQueue(cmd.Context())
}

// reviewTasks converts queue items to Notion review tasks.
func reviewTasks(items []model.QueueItem) []notion.ReviewTask {
	tasks := make([]notion.ReviewTask, 0, len(items))
	for _, it := range items {
		tasks = append(tasks, notion.ReviewTask{
			ID:          it.ID,
			CompanyName: it.CompanyName,
			Type:        string(it.Type),
			Priority:    string(it.Priority),
			Reason:      it.Reason,
			LinkedInURL: it.LinkedInURL,
			CreatedAt:   it.CreatedAt,
		})
	}
	return tasks
}

func renderQueue(w io.Writer, items []model.QueueItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Queue is empty.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Priority", "Type", "Company", "Reason", "Created"})
	for _, it := range items {
		t.AppendRow(table.Row{
			it.ID,
			it.Priority,
			it.Type,
			truncate(it.CompanyName, 30),
			truncate(it.Reason, 50),
			it.CreatedAt.Local().Format(time.DateTime),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(items)})
	t.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	queueListCmd.Flags().BoolVar(&queueJSON, "json", false, "print JSON instead of a table")
	queueCmd.AddCommand(queueListCmd, queueCompleteCmd, queuePushCmd)
	rootCmd.AddCommand(queueCmd)
}

