// Package swarmfitness holds the remote-command recipe used to sample
// a host's CPU utilization and the scalar fitness formula derived from
// it. It depends only on a small Executor capability so it can be
// driven by a real swarmssh.Session or a fake in tests.
package swarmfitness

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xavarteaga/swarm/pkg/swarmerrors"
)

// Executor runs a remote command and returns its captured combined
// output together with its exit status.
type Executor interface {
	ExecuteCapture(ctx context.Context, command string) (output string, exitStatus int, err error)
}

// Unavailable is the sentinel cpu_percent value returned when a
// session cannot be probed (e.g. not connected).
const Unavailable = -1

// cpuProbeScript samples /proc/stat cpu jiffies at t0, sleeps
// measureTimeS seconds, samples again at t1, and prints
// 100*(t1-t0)/(measureTimeS*ncores) as an integer. Grounded on
// swarm_top's remote snippet in the original implementation.
func cpuProbeScript(measureTimeS float64) string {
	return fmt.Sprintf(
		`stat_cpu() { grep "cpu " /proc/stat | grep -o -m 1 "[0-9]*" | head -n 1; }; `+
			`S=%g; C1=$(stat_cpu); sleep $S; C2=$(stat_cpu); `+
			`N=$(grep "processor" /proc/cpuinfo | wc -l); `+
			`echo \(\(100*\($C2-$C1\)\)/\($S*$N\)\) | bc`,
		measureTimeS,
	)
}

// ParseCPUPercent parses the probe script's echoed integer and clamps
// it to [0,100], guarding against counter-wraparound underflow.
func ParseCPUPercent(output string) (int, error) {
	trimmed := strings.TrimSpace(output)
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, swarmerrors.Wrap(err, "parsing cpu probe output", trimmed)
	}
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return n, nil
}

// Sample runs the CPU probe script over measureTime and returns the
// clamped percentage, or Unavailable if exec is nil.
func Sample(ctx context.Context, exec Executor, measureTime time.Duration) (int, error) {
	if exec == nil {
		return Unavailable, nil
	}
	output, status, err := exec.ExecuteCapture(ctx, cpuProbeScript(measureTime.Seconds()))
	if err != nil {
		return Unavailable, err
	}
	if status != 0 {
		return Unavailable, nil
	}
	return ParseCPUPercent(output)
}

// Ping times a trivial remote round trip to estimate latency.
func Ping(ctx context.Context, exec Executor) (int64, error) {
	if exec == nil {
		return 0, nil
	}
	start := time.Now()
	_, _, err := exec.ExecuteCapture(ctx, "true")
	if err != nil {
		return 0, err
	}
	return time.Since(start).Milliseconds(), nil
}

// Formula is the composite, higher-is-better fitness score: it
// decreases monotonically in both cpuPercent and latencyMs. Unavailable
// cpu (negative sentinel) always yields 0.
func Formula(cpuPercent int, latencyMs int64) float64 {
	if cpuPercent < 0 {
		return 0
	}
	return float64(100-cpuPercent) / float64(1+latencyMs)
}

// Measure samples cpu and latency and composes the fitness score.
func Measure(ctx context.Context, exec Executor, measureTime time.Duration) (cpuPercent int, latencyMs int64, fitness float64, err error) {
	cpuPercent, err = Sample(ctx, exec, measureTime)
	if err != nil {
		return Unavailable, 0, 0, err
	}
	if cpuPercent == Unavailable {
		return Unavailable, 0, 0, nil
	}
	latencyMs, err = Ping(ctx, exec)
	if err != nil {
		return cpuPercent, 0, 0, err
	}
	return cpuPercent, latencyMs, Formula(cpuPercent, latencyMs), nil
}
