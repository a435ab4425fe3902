// Package swarmssh is the SSH transport facade: connect, authenticate,
// open channels, exec with stdio capture, and SCP-style upload/
// download. Selection of one session from a candidate set by
// least-loaded probe also lives here.
package swarmssh

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/xavarteaga/swarm/pkg/swarmerrors"
	"github.com/xavarteaga/swarm/pkg/swarmfitness"
)

// SelectionProbeWindow is the CPU-sample window used when choosing the
// least-loaded host from a candidate set.
const SelectionProbeWindow = 10 * time.Millisecond

// Config controls how a Session is authenticated and verified.
type Config struct {
	User           string
	KnownHostsFile string
	Policy         HostKeyPolicy
	ConnectTimeout time.Duration
}

// DefaultConfig returns the non-interactive default a daemon should
// use: reject unknown hosts rather than prompt on a controlling
// terminal nobody is watching.
func DefaultConfig() Config {
	return Config{
		KnownHostsFile: defaultKnownHostsFile(),
		Policy:         PolicyRejectNew,
		ConnectTimeout: 5 * time.Second,
	}
}

func defaultKnownHostsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "known_hosts")
}

// Session is a connected, authenticated transport to one hostname.
type Session struct {
	client   *ssh.Client
	hostname string
}

var _ swarmfitness.Executor = (*Session)(nil)

// Connect opens a single-host session. Any failure here is fatal per
// spec's single-host construction policy; callers decide whether to
// call swarmerrors.Fatal on the returned error.
func Connect(ctx context.Context, hostname string, cfg Config) (*Session, error) {
	clientCfg, err := buildClientConfig(hostname, cfg)
	if err != nil {
		return nil, err
	}

	addr := hostname
	if !strings.Contains(addr, ":") {
		addr = net.JoinHostPort(addr, "22")
	}

	dialer := net.Dialer{Timeout: clientCfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, swarmerrors.TransportError{Hostname: hostname, Message: err.Error()}
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		return nil, swarmerrors.TransportError{Hostname: hostname, Message: err.Error()}
	}
	return &Session{client: ssh.NewClient(sshConn, chans, reqs), hostname: hostname}, nil
}

// ConnectBest connects to every hostname (in parallel) and keeps the
// session with the lowest CPU percent, closing the rest. Per-host
// connect/probe failures are skipped; an error is returned only for an
// empty fleet or when no host connects and probes successfully. Ties
// are broken by lowest index via a single deterministic
// left-to-right reduction after all probes complete.
func ConnectBest(ctx context.Context, hostnames []string, cfg Config) (*Session, error) {
	if len(hostnames) == 0 {
		return nil, swarmerrors.TransportError{Message: "empty fleet"}
	}
	if len(hostnames) == 1 {
		return Connect(ctx, hostnames[0], cfg)
	}

	type probeResult struct {
		session    *Session
		cpuPercent int
		err        error
	}
	results := make([]*probeResult, len(hostnames))

	var wg sync.WaitGroup
	for i, hostname := range hostnames {
		wg.Add(1)
		go func(i int, hostname string) {
			defer wg.Done()
			sess, err := Connect(ctx, hostname, cfg)
			if err != nil {
				results[i] = &probeResult{err: err}
				return
			}
			cpuPercent, err := swarmfitness.Sample(ctx, sess, SelectionProbeWindow)
			if err != nil || cpuPercent == swarmfitness.Unavailable {
				_ = sess.Close()
				results[i] = &probeResult{err: err}
				return
			}
			results[i] = &probeResult{session: sess, cpuPercent: cpuPercent}
		}(i, hostname)
	}
	wg.Wait()

	bestIdx := -1
	bestPercent := 200
	var probeErrs *multierror.Error
	for i, r := range results {
		if r == nil || r.session == nil {
			if r != nil && r.err != nil {
				probeErrs = multierror.Append(probeErrs, fmt.Errorf("%s: %w", hostnames[i], r.err))
			}
			continue
		}
		if r.cpuPercent < bestPercent {
			bestPercent = r.cpuPercent
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		if probeErrs.ErrorOrNil() != nil {
			return nil, swarmerrors.TransportError{Message: "no reachable host in fleet: " + probeErrs.Error()}
		}
		return nil, swarmerrors.TransportError{Message: "no reachable host in fleet"}
	}

	for i, r := range results {
		if r == nil || r.session == nil || i == bestIdx {
			continue
		}
		_ = r.session.Close()
	}
	return results[bestIdx].session, nil
}

// Hostname reports the host this session is connected to.
func (s *Session) Hostname() string { return s.hostname }

// Close tears down the underlying transport. Idempotent.
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Execute opens a channel, requests the command, sends EOF, and
// drains stdout and stderr concurrently in 256-byte chunks into the
// local fd 1/2 until remote EOF, returning the remote exit status.
func (s *Session) Execute(ctx context.Context, command string) (int, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return 0, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}
	defer sess.Close()

	stdout, err := sess.StdoutPipe()
	if err != nil {
		return 0, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}
	stderr, err := sess.StderrPipe()
	if err != nil {
		return 0, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}

	if err := sess.Start(command); err != nil {
		return 0, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go drainChunks(stdout, os.Stdout, &wg)
	go drainChunks(stderr, os.Stderr, &wg)
	wg.Wait()

	if err := sess.Wait(); err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return exitErr.ExitStatus(), nil
		}
		return -1, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}
	return 0, nil
}

// ExecuteCapture runs command and returns its combined stdout/stderr
// as a string instead of streaming it locally; used internally by the
// fitness probe, never by the compile-command path.
func (s *Session) ExecuteCapture(ctx context.Context, command string) (string, int, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", 0, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}
	defer sess.Close()

	out, err := sess.CombinedOutput(command)
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return string(out), exitErr.ExitStatus(), nil
		}
		return string(out), -1, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}
	return string(out), 0, nil
}

// Top samples CPU utilization (percent busy) over measureTime; returns
// swarmfitness.Unavailable if the session is not connected.
func (s *Session) Top(ctx context.Context, measureTime time.Duration) (int, error) {
	if s.client == nil {
		return swarmfitness.Unavailable, nil
	}
	return swarmfitness.Sample(ctx, s, measureTime)
}

// Fitness measures RTT and CPU utilization and composes the scalar score.
func (s *Session) Fitness(ctx context.Context, measureTime time.Duration) (cpuPercent int, latencyMs int64, fitness float64, err error) {
	if s.client == nil {
		return swarmfitness.Unavailable, 0, 0, nil
	}
	return swarmfitness.Measure(ctx, s, measureTime)
}

func drainChunks(r interface{ Read([]byte) (int, error) }, w *os.File, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = w.Write(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func buildClientConfig(hostname string, cfg Config) (*ssh.ClientConfig, error) {
	auths, err := authMethods()
	if err != nil {
		return nil, err
	}
	hostKeyCB, err := buildHostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}
	username := cfg.User
	if username == "" {
		if u, err := user.Current(); err == nil {
			username = u.Username
		}
	}
	return &ssh.ClientConfig{
		User:            username,
		Auth:            auths,
		HostKeyCallback: hostKeyCB,
		Timeout:         cfg.ConnectTimeout,
	}, nil
}

// authMethods prefers a running SSH agent, falling back to the
// default identity files in ~/.ssh.
func authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			agentClient := agent.NewClient(conn)
			methods = append(methods, ssh.PublicKeysCallback(agentClient.Signers))
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
			keyPath := filepath.Join(home, ".ssh", name)
			data, err := os.ReadFile(keyPath)
			if err != nil {
				continue
			}
			signer, err := ssh.ParsePrivateKey(data)
			if err != nil {
				continue
			}
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}

	if len(methods) == 0 {
		return nil, swarmerrors.TransportError{Message: "no usable identity: no SSH agent and no default key in ~/.ssh"}
	}
	return methods, nil
}

// remoteBasePath is /tmp/swarm/<local-hostname>/, the per-host staging
// root for uploaded translation units and downloaded objects.
func remoteBasePath(localHostname string) string {
	return fmt.Sprintf("/tmp/swarm/%s/", localHostname)
}

func parseIntOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
