package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vango-mixed/internal/config"
	"github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/manifest"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

func initCmd() *cobra.Command {
	var (
		runtime string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter " + config.ConfigFileName,
		Long: `Write a configuration file with the default transport, bridge and
metrics settings for the given runtime.

Examples:
  vango-mixed init
  vango-mixed init ./app --runtime client`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, runtime, force)
		},
	}

	cmd.Flags().StringVarP(&runtime, "runtime", "r", "server", "Runtime this process runs as (server, client)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func runInit(dir, runtime string, force bool) error {
	rt, err := mixed.ParseRuntime(runtime)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return errors.New("E208").
			WithDetail(path).
			WithSuggestion("Pass --force to overwrite it")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	cfg := config.New()
	cfg.Runtime = rt.String()
	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	success("Created %s", path)
	info("Declare components with: vango-mixed declare <marker> --runtime server|client")
	return nil
}

func declareCmd(flags *globalFlags) *cobra.Command {
	var runtime string

	cmd := &cobra.Command{
		Use:   "declare <marker>...",
		Short: "Declare which runtime owns components",
		Long: `Add or replace inline authority declarations in the configuration.
The resulting table is resolved before the file is written, so an
ambiguous or conflicting declaration leaves the file untouched.

Examples:
  vango-mixed declare app.Counter --runtime server
  vango-mixed declare app.Chart app.Map --runtime client`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := mixed.ParseRuntime(runtime); err != nil {
				return err
			}
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			declare(cfg, args, runtime)
			resolver, err := resolve(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			printTable(resolver)
			return nil
		},
	}

	cmd.Flags().StringVarP(&runtime, "runtime", "r", "", "Owning runtime (server, client)")
	cmd.MarkFlagRequired("runtime")

	return cmd
}

// declare sets the inline declaration of each marker to runtime.
func declare(cfg *config.Config, markers []string, runtime string) {
	for _, marker := range markers {
		entry := manifest.Entry{Marker: marker, Runtime: runtime}
		replaced := false
		for i := range cfg.Components {
			if cfg.Components[i].Marker == marker {
				cfg.Components[i] = entry
				replaced = true
			}
		}
		if !replaced {
			cfg.Components = append(cfg.Components, entry)
		}
	}
}
