// Package commands implements the feed CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/Sternrassler/infinite-feed/pkg/config"
	"github.com/Sternrassler/infinite-feed/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"

	// Global flags.
	cfgFile  string
	logLevel string
	pretty   bool

	// Set by the root PersistentPreRunE.
	cfg      *config.Config
	logger   zerolog.Logger
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "feed",
	Short: "Incremental pagination feed",
	Long: `feed serves and browses an infinitely scrolling list of records that is
loaded one fixed-size batch at a time.

Configuration is read from --config (YAML), FEED_* environment variables and
built-in defaults, in that order of precedence below flags.

Use "feed [command] --help" for more information about a command.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = closeLog()
	},
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable console logs")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and initialises the global logger.
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Logging.Level = logLevel
	}
	if pretty {
		loaded.Logging.Pretty = true
	}
	if err := config.Validate(loaded); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg = loaded

	output := cfg.Logging.Output
	// The viewer owns the terminal; its logs go to a file instead.
	if cmd.Name() == "view" && (output == "stderr" || output == "stdout") {
		output = viewLogFile
	}
	return initLogger(output)
}

func initLogger(output string) error {
	w, closeFn, err := logging.OpenOutput(output)
	if err != nil {
		return err
	}
	closeLog = closeFn

	logger = logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: w,
	})
	logger.Debug().Str("config", configSource()).Str("output", output).Msg("Configuration loaded")
	return nil
}

func configSource() string {
	if cfgFile == "" {
		return "defaults"
	}
	if _, err := os.Stat(cfgFile); err != nil {
		return "defaults (" + cfgFile + " not found)"
	}
	return cfgFile
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "feed %s (commit: %s)\n", Version, Commit)
	},
}
