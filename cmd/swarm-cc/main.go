// Command swarm-cc is the compiler driver wrapper: it rewrites a
// compile invocation into a local preprocess plus a remote compile on
// the fleet's least-loaded host, or transparently bypasses anything
// it doesn't recognize as a translation-unit compile.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/xavarteaga/swarm/pkg/swarmbuild"
	"github.com/xavarteaga/swarm/pkg/swarmerrors"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:                "swarm-cc <compiler> [args...]",
		Short:              "distributed compiler driver wrapper",
		DisableFlagParsing: true, // compiler flags are opaque passthrough, never cobra's to parse
		SilenceUsage:       true,
		SilenceErrors:      true,
		Args:               cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			argv := append([]string{"swarm-cc"}, args...)
			status, err := swarmbuild.Run(context.Background(), argv, swarmbuild.DefaultConnector)
			if err != nil {
				return err
			}
			os.Exit(status)
			return nil
		},
	}
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		swarmerrors.Fatal(err)
	}
}
