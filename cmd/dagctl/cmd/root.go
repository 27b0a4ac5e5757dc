// Package cmd implements dagctl's cobra command tree. It never
// implements engine logic directly: the workflow commands load a
// manifest, build an engine.Engine, and either turn their arguments
// into a single engine.Dispatch call, rendering the returned
// engine.Response, or read the session's position and list it.
package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/argus-sh/argus/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	manifestPath string
	sessionID    string
	repoRoot     string
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:     "dagctl",
	Short:   "Drive a DAG-shaped workflow session stage by stage",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		if repoRoot == "" {
			repoRoot = wd
		}

		loaded, err := config.Load(repoRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s config error: %s\n", "!", err.Error())
			loaded = &config.Config{
				ManifestDirs:  []string{config.DefaultManifestDir},
				SessionsRoot:  config.DefaultSessionsRoot,
				BackendKind:   config.DefaultBackendKind,
				BudgetUSD:     config.DefaultBudgetUSD,
				MaxIterations: config.DefaultMaxIterations,
			}
		}
		cfg = loaded
		return nil
	},
}

// isInteractive reports whether stdout is a TTY, gating every
// bubbletea/shimmer view: a non-interactive host (CI, a pipe) always
// gets the plain text rendering instead.
func isInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Execute runs the command tree.
func Execute() error {
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "path to the workflow manifest")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "", "session id (required by most commands)")
	rootCmd.PersistentFlags().StringVar(&repoRoot, "repo", "", "repository root for local config resolution (default: cwd)")
	return rootCmd.Execute()
}
