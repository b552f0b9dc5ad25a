package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thruflo/unidlewatch/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "unidlewatch",
	Short: "Waiting page and watcher for apps being woken on demand",
	Long: `unidlewatch serves the page shown while a dormant app is brought back
("unidled"), streams the unidle's progress to it, and redirects to the app
once it is ready. The same watcher can follow a page from the terminal.`,
	SilenceUsage:      true,
	PersistentPreRunE: configureLogging,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("unidlewatch version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logging.FormatText), "log format (text, logfmt, json)")
}

func configureLogging(cmd *cobra.Command, args []string) error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logging.SetLevel(level)

	switch format := logging.Format(strings.ToLower(logFormat)); format {
	case logging.FormatText, logging.FormatLogfmt, logging.FormatJSON:
		logging.SetFormat(format)
	default:
		return fmt.Errorf("unknown log format: %q", logFormat)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
