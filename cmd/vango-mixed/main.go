package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vango-mixed/internal/config"
	"github.com/vango-dev/vango-mixed/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ╦┌─┐┌┐┌┌─┐┌─┐  ┌┬┐┬─┐ ┬┌─┐┌┬┐
  ╚╗╔╝├─┤││││ ┬│ │  │││││┌┴┬┘├┤  ││
   ╚╝ ┴ ┴┘└┘└─┘└─┘  ┴ ┴┴┴ └─└─┘─┴┘
`

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "vango-mixed",
		Short: "Mixed server/client root components for Vango",
		Long: `vango-mixed attaches root components owned by one runtime into a page
rendered by the other.

Commands:

  • init    write a starter configuration
  • declare declare which runtime owns a component
  • check   resolve component authority from config and manifests
  • serve   host components owned by this runtime over WebSocket
  • probe   attach a component in the peer runtime and drive it
  • version print build information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to "+config.ConfigFileName+" (default: search upward from the working directory)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "Log as JSON")

	rootCmd.AddCommand(
		initCmd(),
		declareCmd(flags),
		checkCmd(flags),
		serveCmd(flags),
		probeCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads and validates the configuration selected by flags.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logger builds the process logger.
func (f *globalFlags) logger() (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(f.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, errors.New("E280").
			WithDetailf("--log-level %q", f.logLevel).
			WithSuggestion("Use debug, info, warn or error")
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if f.logJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
