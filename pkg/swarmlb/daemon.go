// Package swarmlb is the load-balancer daemon: a background loop that
// keeps a per-host fitness score fresh, and a foreground loop that
// answers "which host next" placement requests over the IPC
// rendezvous. Grounded on original_source's swarm_lb main loop shape
// and the teacher's pkg/tasks daemon-reborn pattern.
package swarmlb

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xavarteaga/swarm/pkg/swarmipc"
	"github.com/xavarteaga/swarm/pkg/swarmssh"
)

// FitnessScale is the integer scaling applied before storing a
// fitness score in an atomic.Int64 word; loaded values are divided
// back down by this factor.
const FitnessScale = 1000

// TelemetryProbeWindow is the CPU-sample window used by the refresh
// loop, distinct from the tighter window used during host selection.
const TelemetryProbeWindow = 50 * time.Millisecond

// Server holds the load balancer's full runtime state: the fleet host
// list, one session per host (index-aligned with hosts), one atomic
// fitness slot per host, and the owner side of the hostname
// rendezvous.
type Server struct {
	hosts    []string
	sessions []swarmssh.SessionIface
	fitness  []atomic.Int64
	interval time.Duration
	// count bounds the number of refresh iterations (0 = infinite),
	// matching swarm-lb/swarm-top's shared -n flag.
	count  int
	rendez *swarmipc.Reply[string]
	quit   atomic.Bool
}

// New connects to every host in hosts up front (failures are logged,
// not fatal: an unreachable host keeps fitness 0 until RefreshLoop
// manages to reconnect to it) and opens the
// owner side of the hostname rendezvous. count bounds the number of
// refresh iterations (0 = infinite).
func New(ctx context.Context, hosts []string, interval time.Duration, count int, cfg swarmssh.Config) (*Server, error) {
	s := &Server{
		hosts:    hosts,
		sessions: make([]swarmssh.SessionIface, len(hosts)),
		fitness:  make([]atomic.Int64, len(hosts)),
		interval: interval,
		count:    count,
	}

	for i, host := range hosts {
		sess, err := swarmssh.Connect(ctx, host, cfg)
		if err != nil {
			logrus.WithError(err).WithField("host", host).Warn("host unreachable at startup, will retry on next refresh")
			continue
		}
		s.sessions[i] = sess
	}

	rendez, err := swarmipc.NewHostnameReply(swarmipc.SlotName())
	if err != nil {
		return nil, err
	}
	s.rendez = rendez

	return s, nil
}

// Quit signals both loops to stop at their next check.
func (s *Server) Quit() { s.quit.Store(true) }

// InstallSignalHandlers stops the server on SIGINT, SIGABRT, or
// SIGALRM, mirroring the original's signal-settable quit flag without
// touching non-async-signal-safe state from inside the handler
// itself: the handler only flips an atomic.Bool, the loops observe it.
func (s *Server) InstallSignalHandlers() {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGABRT, syscall.SIGALRM)
	go func() {
		for range sigCh {
			s.Quit()
		}
	}()
}

// RefreshLoop repeatedly measures fitness for every reachable host and
// stores it atomically, sleeping interval between passes (interval=0
// free-runs with no sleep, matching spec's interval_us=0 case).
func (s *Server) RefreshLoop(ctx context.Context) {
	for iteration := 0; !s.quit.Load() && (s.count <= 0 || iteration < s.count); iteration++ {
		for i, host := range s.hosts {
			if s.sessions[i] == nil {
				sess, err := swarmssh.Connect(ctx, host, swarmssh.DefaultConfig())
				if err != nil {
					continue
				}
				s.sessions[i] = sess
			}
			cpuPercent, latencyMs, fitnessScore, err := s.sessions[i].Fitness(ctx, TelemetryProbeWindow)
			if err != nil {
				logrus.WithError(err).WithField("host", host).Warn("fitness probe failed")
				_ = s.sessions[i].Close()
				s.sessions[i] = nil
				s.fitness[i].Store(0)
				continue
			}
			s.fitness[i].Store(int64(fitnessScore * FitnessScale))
			logrus.WithFields(logrus.Fields{
				"host":        host,
				"cpu_percent": cpuPercent,
				"latency_ms":  latencyMs,
				"fitness":     fitnessScore,
			}).Info("telemetry")
		}
		if s.interval > 0 {
			time.Sleep(s.interval)
		}
	}
	s.Quit()
}

// RequestLoop answers placement requests from the rendezvous until
// Quit is called. On every request it scans the fitness slots for the
// strict-argmax host (ties keep the lowest index; an all-zero fleet
// returns index 0, i.e. hosts[0]) and writes that hostname back.
func (s *Server) RequestLoop() {
	for !s.quit.Load() {
		available, err := s.rendez.Available()
		if err != nil {
			logrus.WithError(err).Error("rendezvous wait failed")
			continue
		}
		if !available {
			continue
		}
		best := s.argmaxFitness()
		if err := s.rendez.Write(s.hosts[best]); err != nil {
			logrus.WithError(err).Error("rendezvous write failed")
		}
	}
}

func (s *Server) argmaxFitness() int {
	best := 0
	bestScore := s.fitness[0].Load()
	for i := 1; i < len(s.fitness); i++ {
		score := s.fitness[i].Load()
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// Close tears down every session and the rendezvous slot.
func (s *Server) Close() error {
	for _, sess := range s.sessions {
		if sess != nil {
			_ = sess.Close()
		}
	}
	return s.rendez.Close()
}

// LogStartup prints the pidfile/logfile lines the teacher's daemon
// reborn path prints; RunAsDaemon calls it before forking.
func LogStartup(pidFile, logFile string) {
	fmt.Fprintf(os.Stderr, "PID File: %s\n", pidFile)
	fmt.Fprintf(os.Stderr, "Log File: %s\n", logFile)
}
