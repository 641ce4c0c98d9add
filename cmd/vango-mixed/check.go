package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vango-mixed/internal/config"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

func checkCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Resolve component authority",
		Long: `Load the configuration and every configured manifest, build the
authority table and print where each declared component is constructed.

Ambiguous or conflicting declarations fail the check.

Examples:
  vango-mixed check
  vango-mixed check ./app
  vango-mixed check --config deploy/vango-mixed.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && flags.configPath == "" {
				flags.configPath = filepath.Join(args[0], config.ConfigFileName)
			}
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			resolver, err := resolve(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			printTable(resolver)
			return nil
		},
	}
	return cmd
}

// resolve loads every declaration and initializes a resolver for the
// configured runtime.
func resolve(ctx context.Context, cfg *config.Config, registrar mixed.Registrar) (*mixed.Resolver, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	defs, err := cfg.Definitions(ctx)
	if err != nil {
		return nil, err
	}

	resolver := mixed.NewResolver(cfg.RuntimeID(), registrar)
	if err := resolver.Initialize(defs); err != nil {
		return nil, err
	}
	return resolver, nil
}

func printTable(resolver *mixed.Resolver) {
	table := resolver.Table()
	success("%d component(s) declared, resolving as %s", table.Len(), resolver.Current())
	fmt.Println()

	for _, entry := range table.Entries() {
		placement := "local"
		if !resolver.Resolve(entry.Marker).Local {
			placement = "proxied"
		}
		fmt.Printf("  %-40s %-7s %s\n", entry.Marker, entry.Owner, placement)
	}
	if table.Len() == 0 {
		info("No declarations: every component is constructed where it is requested.")
	}
	fmt.Println()
}
