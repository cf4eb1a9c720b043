package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/paraprep/internal/metrics"
	"github.com/JonMunkholm/paraprep/internal/prepare"
	"github.com/JonMunkholm/paraprep/internal/report"
	"github.com/JonMunkholm/paraprep/internal/web"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve preparation and reports over HTTP",
		Long: `Start the HTTP server. Upload a raw table to /api/prepare/{recipe} to
receive the prepared CSV, or any table to /api/describe, /api/missing or
/api/categories for a JSON report. Prometheus metrics are served on /metrics.`,
		Example: `  paraprep serve --port 9000`,
		Args:    cobra.NoArgs,
		RunE:    runServe,
	}

	cmd.Flags().String("host", "", "Interface to bind to (default: 0.0.0.0)")
	cmd.Flags().Int("port", 0, "Port to listen on (default: 8080)")
	cmd.Flags().Int64("max-upload", 0, "Maximum upload size in bytes (default: 32MB)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd, report.ModeText)
	if err != nil {
		return err
	}
	cfg := cc.Cfg

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"data_dir", cfg.DataDir,
		"rate_limit", cfg.Server.RateLimit,
		"metrics", cfg.Server.Metrics,
	)
	slog.Info("recipes registered", "count", len(prepare.Recipes()))

	var opts []web.Option
	if cfg.Server.Metrics {
		opts = append(opts, web.WithMetrics(metrics.NewManager()))
	}
	server := web.NewServer(cfg, opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Graceful shutdown
	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight preparation runs finish
		if st := server.RunStatus(); st.Active > 0 {
			slog.Info("waiting for runs to complete", "active", st.Active)
			if err := server.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			}
		}
		done <- server.Shutdown(shutdownCtx)
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-done; err != nil {
		slog.Error("shutdown error", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}
