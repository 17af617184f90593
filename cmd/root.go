package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funding-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "funding-cli",
	Short: "Funding event extraction and verification pipeline",
	Long:  "Extracts funding events from articles with Claude, corroborates them against independent sources, profiles verified companies and queues the rest for human review.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
