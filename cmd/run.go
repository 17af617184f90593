package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funding-cli/internal/config"
)

var (
	runText string
	runFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract, verify and profile a single article",
	Long:  "Reads one article from --text, --file or stdin and prints the draft, analysis and company profile as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		text, err := readArticle(cmd.InOrStdin())
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, config.ModeRun)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Orchestrator.ProcessSingleArticle(ctx, text)
		if err != nil {
			return eris.Wrap(err, "process article")
		}

		zap.L().Info("article processed",
			zap.String("company", res.Analysis.FinalData.CompanyName),
			zap.Bool("verified", res.Analysis.Verified),
			zap.Bool("queued", res.Queued),
			zap.Float64("cost_usd", env.Tracker.Totals().USD),
		)

		return writeJSON(cmd.OutOrStdout(), res)
	},
}

// readArticle resolves the article text from flags, falling back to stdin.
func readArticle(stdin io.Reader) (string, error) {
	var text string
	switch {
	case runText != "":
		text = runText
	case runFile != "":
		data, err := os.ReadFile(runFile)
		if err != nil {
			return "", eris.Wrapf(err, "read article file %s", runFile)
		}
		text = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", eris.Wrap(err, "read article from stdin")
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return "", eris.New("article text is empty: pass --text, --file or pipe it on stdin")
	}
	return text, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runCmd.Flags().StringVar(&runText, "text", "", "article text")
	runCmd.Flags().StringVar(&runFile, "file", "", "path to a file holding the article text")
	rootCmd.AddCommand(runCmd)
}
