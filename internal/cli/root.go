// Package cli provides the ytbatch command-line interface: add/run a
// batch, inspect its progress, and browse past batches recorded by
// internal/history. It is a thin shell around internal/orchestrator,
// internal/config, and internal/ytdlp; it holds no scheduling logic.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ytbatch/internal/app"
	"ytbatch/internal/logger"
)

var (
	// Version is set at build time via -ldflags "-X".
	Version = "dev"

	verbose bool
	paths   *app.Paths
)

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ytbatch",
		Short: "Concurrent batch downloader built on yt-dlp",
		Long: `ytbatch ` + Version + `

Add a batch of video URLs, run them through a bounded worker pool with
retry and backoff, and watch aggregate progress until the batch settles.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.GetPaths()
			if err != nil {
				return fmt.Errorf("resolve app paths: %w", err)
			}
			paths = p
			if err := paths.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure app directories: %w", err)
			}
			if err := logger.Init(paths.AppData); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}
