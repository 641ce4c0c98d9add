package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print version, runtime, wire protocol and build information for the vango-mixed CLI.`,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Println(version)
				return
			}

			printBanner()
			fmt.Println()
			writeVersion(os.Stdout)
			fmt.Println()
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	return cmd
}

// writeVersion prints the build details followed by what this binary
// speaks on the wire.
func writeVersion(w io.Writer) {
	v := protocol.CurrentVersion
	ops := make([]string, 0, 4)
	for op := protocol.OpAddRootComponent; op.Valid(); op++ {
		ops = append(ops, op.String())
	}

	fmt.Fprintf(w, "  Version:    %s\n", version)
	fmt.Fprintf(w, "  Commit:     %s\n", commit)
	fmt.Fprintf(w, "  Built:      %s\n", date)
	fmt.Fprintf(w, "  Runtime:    %s\n", mixed.Current())
	fmt.Fprintf(w, "  Protocol:   %s (accepts peers speaking %d.x)\n", v, v.Major)
	fmt.Fprintf(w, "  Operations: %s\n", strings.Join(ops, ", "))
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
