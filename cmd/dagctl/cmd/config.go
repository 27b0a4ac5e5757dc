package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/argus-sh/argus/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update the global ~/.argus/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("manifest_dirs:   %v\n", cfg.ManifestDirs)
		fmt.Printf("sessions_root:   %s\n", cfg.SessionsRoot)
		fmt.Printf("backend_kind:    %s\n", cfg.BackendKind)
		fmt.Printf("budget_usd:      %.2f\n", cfg.BudgetUSD)
		fmt.Printf("max_iterations:  %d\n", cfg.MaxIterations)
		fmt.Printf("anthropic_key:   %s\n", config.MaskAPIKey(cfg.AnthropicAPIKey))
		return nil
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key <anthropic-api-key>",
	Short: "Save an Anthropic API key to the global config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.AnthropicAPIKey = args[0]
		if err := cfg.SaveGlobal(); err != nil {
			return err
		}
		fmt.Printf("saved: %s\n", config.MaskAPIKey(cfg.AnthropicAPIKey))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetKeyCmd)
	rootCmd.AddCommand(configCmd)
}
