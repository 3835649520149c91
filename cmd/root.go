package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reeldata/cinesync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cinesync",
	Short: "Movie metadata reconciliation pipeline",
	Long:  "Walks the TMDb popularity ranking page by page, enriches each title from the detail and OMDb APIs and the weekend box-office table, and merges everything into one canonical record per movie.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
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
