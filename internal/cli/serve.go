package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/thruflo/unidlewatch/internal/config"
	"github.com/thruflo/unidlewatch/internal/demo"
	"github.com/thruflo/unidlewatch/internal/logging"
	"github.com/thruflo/unidlewatch/internal/server"
)

var (
	serveConfigPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the waiting page and its event stream",
	Long: `Serves the waiting page on / and the per-host event stream on /events/.

Loading the page for a host starts a scripted unidle for it (configured in
the demo section of the config file) whose progress is streamed to every
page watching that host.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "path to config file")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config and PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg)
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.Default()
	srv := server.New(cfg.Server,
		server.WithUnidler(demo.FromConfig(cfg.Demo)),
		server.WithLogger(logger),
	)

	logger.Info("starting server", "port", cfg.Server.Port, "redirect_host", cfg.Server.RedirectHost)
	return srv.Start(ctx)
}
