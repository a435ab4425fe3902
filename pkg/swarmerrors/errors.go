// Package swarmerrors defines the error taxonomy shared by every swarm
// component: most failures here are fatal by policy, reflecting the
// tool's interactive-build use case where silent corruption would be
// worse than crashing.
package swarmerrors

import (
	"fmt"
	"os"
	"runtime"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SwarmError is implemented by every error kind below; Directive gives
// the operator a next step, the way a failed build tells you what to
// fix.
type SwarmError interface {
	error
	Directive() string
}

// ConfigError covers missing/malformed environment and empty argv.
type ConfigError struct{ Message string }

func (e ConfigError) Error() string     { return "config: " + e.Message }
func (e ConfigError) Directive() string { return "check environment variables and command-line arguments" }

// TransportError covers SSH connect/auth/known-host failures.
type TransportError struct {
	Hostname string
	Message  string
}

func (e TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %s", e.Hostname, e.Message)
}
func (e TransportError) Directive() string { return "verify SSH connectivity and known_hosts entry" }

// RemoteExecError wraps a non-zero exit status from a remote compile.
// It is not fatal to the process: it is surfaced as the orchestrator's
// own exit status.
type RemoteExecError struct {
	Hostname   string
	ExitStatus int
}

func (e RemoteExecError) Error() string {
	return fmt.Sprintf("remote exec on %s exited %d", e.Hostname, e.ExitStatus)
}
func (e RemoteExecError) Directive() string { return "inspect remote compiler output" }

// IOError covers local and SFTP/SCP file failures.
type IOError struct{ Message string }

func (e IOError) Error() string     { return "io: " + e.Message }
func (e IOError) Directive() string { return "check local disk space and remote staging path permissions" }

// IPCError covers semaphore or shared-memory setup failures. Wait
// timeouts are normal control flow, not IPCError.
type IPCError struct{ Message string }

func (e IPCError) Error() string     { return "ipc: " + e.Message }
func (e IPCError) Directive() string { return "check /dev/shm permissions and stale rendezvous files" }

// Wrap annotates err with the caller's file:line, mirroring the
// teacher's WrapAndTrace.
func Wrap(err error, messages ...string) error {
	if err == nil {
		return nil
	}
	message := ""
	for _, m := range messages {
		message += " " + m
	}
	return pkgerrors.Wrap(err, makeMessage(message))
}

func makeMessage(message string) string {
	_, fn, line, _ := runtime.Caller(2)
	return fmt.Sprintf("[error] %s:%d %s", fn, line, message)
}

// Fatal logs err via logrus and terminates the process with status -1,
// the Go-native analogue of the original's SWARM_ASSERT macro.
func Fatal(err error, messages ...string) {
	if err == nil {
		return
	}
	logrus.WithError(err).Error(fmt.Sprint(messagesToAny(messages)...))
	os.Exit(-1)
}

func messagesToAny(messages []string) []any {
	out := make([]any, len(messages))
	for i, m := range messages {
		out[i] = m
	}
	return out
}
