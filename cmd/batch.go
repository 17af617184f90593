package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funding-cli/internal/config"
	"github.com/sells-group/funding-cli/internal/export"
)

// articleSeparator splits articles in plain-text batch files.
const articleSeparator = "---"

var (
	batchInput string
	batchXLSX  string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the complete workflow over a batch of articles",
	Long: `Runs extraction, verification and profiling over every article in --input.

The input may be a .xlsx workbook (one article per row), a JSON array of
strings, or plain text with articles separated by lines holding only "---".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		texts, err := loadArticles(batchInput)
		if err != nil {
			return err
		}
		zap.L().Info("loaded articles", zap.String("input", batchInput), zap.Int("count", len(texts)))

		env, err := initPipeline(ctx, config.ModeRun)
		if err != nil {
			return err
		}
		defer env.Close()

		res := env.Orchestrator.ExecuteCompleteWorkflow(ctx, texts)

		if batchXLSX != "" {
			items, err := env.Orchestrator.GetVerificationQueue(ctx)
			if err != nil {
				return eris.Wrap(err, "list queue for export")
			}
			if err := export.WriteWorkbook(batchXLSX, res, items); err != nil {
				return err
			}
			zap.L().Info("workbook written", zap.String("path", batchXLSX))
		}

		zap.L().Info("batch complete",
			zap.Int("processed", res.ProcessedCount),
			zap.Int("verified", res.VerifiedCount),
			zap.Int("manual_review", res.ManualReviewCount),
			zap.Int("errors", res.ErrorCount),
			zap.Int64("duration_ms", res.ExecutionTimeMs),
			zap.Float64("cost_usd", env.Tracker.Totals().USD),
		)

		if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if !res.Success {
			return eris.Errorf("workflow finished with errors: %s", strings.Join(res.Errors, "; "))
		}
		return nil
	},
}

// loadArticles reads batch input from path, choosing the format by
// extension and content.
func loadArticles(path string) ([]string, error) {
	if path == "" {
		return nil, eris.New("--input is required")
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return export.ReadArticles(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read input %s", path)
	}
	texts, err := parseArticles(data)
	if err != nil {
		return nil, eris.Wrapf(err, "parse input %s", path)
	}
	if len(texts) == 0 {
		return nil, eris.Errorf("no articles found in %s", path)
	}
	return texts, nil
}

// parseArticles accepts a JSON array of strings or "---" separated text.
// Blank articles are dropped.
func parseArticles(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raw []string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, eris.Wrap(err, "decode JSON array")
		}
		out := make([]string, 0, len(raw))
		for _, t := range raw {
			if strings.TrimSpace(t) != "" {
				out = append(out, t)
			}
		}
		return out, nil
	}

	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			out = append(out, t)
		}
		cur.Reset()
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == articleSeparator {
			flush()
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "scan input")
	}
	flush()
	return out, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "articles file (.txt, .json or .xlsx)")
	batchCmd.Flags().StringVar(&batchXLSX, "xlsx", "", "write results and queue to this workbook")
	rootCmd.AddCommand(batchCmd)
}
