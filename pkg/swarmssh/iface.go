package swarmssh

import (
	"context"
	"time"
)

// Channel is the minimal remote-execution capability the build
// orchestrator depends on, letting tests substitute a fake transport
// without dragging in a real SSH connection.
type Channel interface {
	Hostname() string
	Execute(ctx context.Context, command string) (exitStatus int, err error)
	ExecuteCapture(ctx context.Context, command string) (output string, exitStatus int, err error)
}

// FileTransport is the capability the build orchestrator depends on
// for staging translation units out and objects back.
type FileTransport interface {
	CopyLocalToRemote(localPath, localHostname, relativeName string) error
	CopyRemoteToLocal(remotePath, localPath string) error
}

// FitnessProbe is the capability swarmlb depends on to refresh a
// host's score.
type FitnessProbe interface {
	Top(ctx context.Context, measureTime time.Duration) (cpuPercent int, err error)
	Fitness(ctx context.Context, measureTime time.Duration) (cpuPercent int, latencyMs int64, fitness float64, err error)
}

// SessionIface is the full capability surface a connected Session
// exposes; the orchestrator and load balancer depend on this rather
// than *Session so fakes can stand in during tests.
type SessionIface interface {
	Channel
	FileTransport
	FitnessProbe
	Close() error
}

var _ SessionIface = (*Session)(nil)
