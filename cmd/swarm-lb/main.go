// Command swarm-lb is the load-balancer daemon: it refreshes fitness
// for the configured fleet and answers placement requests over the
// hostname IPC rendezvous.
package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xavarteaga/swarm/pkg/swarmerrors"
	"github.com/xavarteaga/swarm/pkg/swarmhost"
	"github.com/xavarteaga/swarm/pkg/swarmlb"
	"github.com/xavarteaga/swarm/pkg/swarmssh"
)

func defaultWorkDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".swarm"
	}
	return filepath.Join(home, ".swarm")
}

func newRootCommand() *cobra.Command {
	var count int
	var intervalSeconds int
	var foreground bool

	cmd := &cobra.Command{
		Use:           "swarm-lb",
		Short:         "fleet fitness refresh daemon and placement server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.SetEnvPrefix("SWARM_LB")
			viper.AutomaticEnv()
			if viper.IsSet("interval") {
				intervalSeconds = viper.GetInt("interval")
			}

			interval := time.Duration(intervalSeconds) * time.Second
			hosts := swarmhost.GetAll()
			ctx := context.Background()

			run := func() error {
				server, err := swarmlb.New(ctx, hosts, interval, count, swarmssh.DefaultConfig())
				if err != nil {
					return err
				}
				server.InstallSignalHandlers()
				go server.RefreshLoop(ctx)
				server.RequestLoop()
				return server.Close()
			}

			if foreground {
				return run()
			}
			return swarmlb.RunAsDaemon(defaultWorkDir(), run)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of refresh iterations before exiting (0 = infinite)")
	cmd.Flags().IntVarP(&intervalSeconds, "interval", "i", 1, "refresh interval in seconds (overridable via SWARM_LB_INTERVAL)")
	cmd.Flags().BoolVar(&foreground, "foreground", false, "run in the foreground instead of daemonizing")
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		swarmerrors.Fatal(err)
	}
}
