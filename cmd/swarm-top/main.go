// Command swarm-top is the fleet telemetry viewer: a foreground-only
// live table of per-host CPU load, latency, and fitness, refreshed on
// an interval.
package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xavarteaga/swarm/pkg/swarmerrors"
	"github.com/xavarteaga/swarm/pkg/swarmhost"
	"github.com/xavarteaga/swarm/pkg/swarmssh"
	"github.com/xavarteaga/swarm/pkg/swarmtop"
)

// telemetryProbeWindow is the CPU-sample window swarm-top uses per
// host per refresh, matching swarm_top.cpp's measure_time_s=0.05 (and
// swarmlb.TelemetryProbeWindow) rather than the tighter window used
// during host selection.
const telemetryProbeWindow = 50 * time.Millisecond

func newRootCommand() *cobra.Command {
	var count int
	var intervalSeconds int

	cmd := &cobra.Command{
		Use:           "swarm-top",
		Short:         "live fleet telemetry table",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.SetEnvPrefix("SWARM_TOP")
			viper.AutomaticEnv()
			if viper.IsSet("interval") {
				intervalSeconds = viper.GetInt("interval")
			}

			hosts := swarmhost.GetAll()
			cfg := swarmssh.DefaultConfig()
			ctx := context.Background()
			table := swarmtop.New()

			for iteration := 0; count <= 0 || iteration < count; iteration++ {
				rows := make([]swarmtop.Row, len(hosts))
				for i, host := range hosts {
					sess, err := swarmssh.Connect(ctx, host, cfg)
					if err != nil {
						rows[i] = swarmtop.Row{Hostname: host, Reachable: false}
						continue
					}
					cpuPercent, latencyMs, fitnessScore, err := sess.Fitness(ctx, telemetryProbeWindow)
					_ = sess.Close()
					if err != nil {
						rows[i] = swarmtop.Row{Hostname: host, Reachable: false}
						continue
					}
					rows[i] = swarmtop.Row{
						Hostname:   host,
						CPUPercent: cpuPercent,
						LatencyMs:  latencyMs,
						Fitness:    fitnessScore,
						Reachable:  true,
					}
				}
				table.PrintRefresh(rows)

				if intervalSeconds > 0 {
					time.Sleep(time.Duration(intervalSeconds) * time.Second)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of refresh iterations to print (0 = infinite)")
	cmd.Flags().IntVarP(&intervalSeconds, "interval", "i", 1, "refresh interval in seconds (overridable via SWARM_TOP_INTERVAL)")
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		swarmerrors.Fatal(err)
	}
}
