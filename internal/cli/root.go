// Package cli provides the command-line interface for paraprep.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/paraprep/internal/cli/commands"
	"github.com/JonMunkholm/paraprep/internal/config"
	"github.com/JonMunkholm/paraprep/internal/core"
	"github.com/JonMunkholm/paraprep/internal/logging"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "paraprep",
		Short: "paraprep - Paralympics table preparation",
		Long: `paraprep cleans the Paralympic Games editions table: it prunes columns and
rows, normalizes the event type, coerces counts and dates, derives the
duration of every edition and joins the NPC country codes.

It also describes any CSV or spreadsheet table and serves the same
operations over HTTP.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			if cfg.File != "" {
				slog.Debug("using config file", "path", cfg.File)
			}

			cmd.SetContext(commands.WithConfig(cmd.Context(), cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./paraprep.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory holding recipe input and output files (default: data)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))
	rootCmd.AddCommand(commands.NewPrepareCommand())
	rootCmd.AddCommand(commands.NewRecipesCommand())
	rootCmd.AddCommand(commands.NewDescribeCommand())
	rootCmd.AddCommand(commands.NewMissingCommand())
	rootCmd.AddCommand(commands.NewCategoriesCommand())
	rootCmd.AddCommand(commands.NewServeCommand())

	return rootCmd
}

// Execute runs the root command and prints a failure with its support code.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "%s\n", core.FormatUserError(err))
		return err
	}
	return nil
}
