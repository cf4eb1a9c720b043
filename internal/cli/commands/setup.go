// Package commands implements the paraprep subcommands.
package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/paraprep/internal/config"
	"github.com/JonMunkholm/paraprep/internal/core"
	"github.com/JonMunkholm/paraprep/internal/report"
)

// configKey is used to store the loaded config in the command context.
type configKey struct{}

// WithConfig returns a context carrying cfg for the subcommands.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// ConfigFrom returns the config stored by WithConfig, or nil.
func ConfigFrom(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(configKey{}).(*config.Config)
	return cfg
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *report.Renderer
}

// NewCommandContext builds the context for cmd, rendering to its stdout in mode.
func NewCommandContext(cmd *cobra.Command, mode report.Mode) (*CommandContext, error) {
	cfg := ConfigFrom(cmd.Context())
	if cfg == nil {
		loaded, err := config.Load("", cmd.Flags())
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   slog.Default(),
		Renderer: report.NewRenderer(cmd.OutOrStdout(), mode),
	}, nil
}

// addFormatFlag registers --format on cmd.
func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "Output format (text|markdown|csv|json)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "markdown", "csv", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// formatMode reads --format from cmd.
func formatMode(cmd *cobra.Command) (report.Mode, error) {
	f, _ := cmd.Flags().GetString("format")
	return report.ParseMode(f)
}

// addReadFlags registers the input reading flags on cmd.
func addReadFlags(cmd *cobra.Command) {
	cmd.Flags().String("sheet", "", "Spreadsheet sheet name or 0-based index (default: first sheet)")
	cmd.Flags().String("encoding", "", "Text encoding of delimited input (default: utf-8)")
	cmd.Flags().Bool("ignore-invalid", false, "Drop bytes invalid in the encoding instead of failing")
}

// readOptions builds core.ReadOptions from the read flags of cmd.
func readOptions(cmd *cobra.Command) core.ReadOptions {
	sheet, _ := cmd.Flags().GetString("sheet")
	enc, _ := cmd.Flags().GetString("encoding")
	ignore, _ := cmd.Flags().GetBool("ignore-invalid")
	return core.ReadOptions{Sheet: sheet, Encoding: enc, IgnoreInvalid: ignore}
}
