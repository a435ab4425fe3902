package swarmssh

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/xavarteaga/swarm/pkg/swarmerrors"
)

// HostKeyPolicy controls what happens when a host key is not already
// present in the known_hosts file.
type HostKeyPolicy int

const (
	// PolicyRejectNew refuses any host not already recorded. This is
	// the default for daemons, which have no controlling terminal to
	// prompt on.
	PolicyRejectNew HostKeyPolicy = iota
	// PolicyAcceptNew silently appends new host keys.
	PolicyAcceptNew
	// PolicyPrompt asks on stdin before appending a new host key.
	PolicyPrompt
)

// buildHostKeyCallback wraps golang.org/x/crypto/ssh/knownhosts with
// the fleet's verification policy. A changed key (the host presents a
// different key than one already on file) is always refused,
// regardless of policy: that is the compromise-or-reimage case
// knownhosts exists to catch, not a policy decision.
func buildHostKeyCallback(cfg Config) (ssh.HostKeyCallback, error) {
	knownHostsFile := cfg.KnownHostsFile
	if knownHostsFile == "" {
		knownHostsFile = defaultKnownHostsFile()
	}
	if knownHostsFile == "" {
		return nil, swarmerrors.ConfigError{Message: "no known_hosts file configured and no home directory to default from"}
	}

	if _, err := os.Stat(knownHostsFile); err != nil && os.IsNotExist(err) {
		if f, ferr := os.OpenFile(knownHostsFile, os.O_CREATE|os.O_WRONLY, 0o600); ferr == nil {
			_ = f.Close()
		}
	}

	base, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, swarmerrors.Wrap(err, "loading known_hosts", knownHostsFile)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := base(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return swarmerrors.TransportError{Hostname: hostname, Message: err.Error()}
		}

		if len(keyErr.Want) > 0 {
			// The host is known under a different key: always refuse.
			return swarmerrors.TransportError{Hostname: hostname, Message: "host key changed, refusing to connect"}
		}

		// Key genuinely absent from known_hosts (NOT_FOUND/UNKNOWN).
		switch cfg.Policy {
		case PolicyAcceptNew:
			return appendKnownHost(knownHostsFile, hostname, remote, key)
		case PolicyPrompt:
			if !promptYesNo(fmt.Sprintf("unknown host %s, add to %s?", hostname, knownHostsFile)) {
				return swarmerrors.TransportError{Hostname: hostname, Message: "host key not accepted"}
			}
			return appendKnownHost(knownHostsFile, hostname, remote, key)
		default:
			return swarmerrors.TransportError{Hostname: hostname, Message: "unknown host key, rejected by policy"}
		}
	}, nil
}

func appendKnownHost(knownHostsFile, hostname string, remote net.Addr, key ssh.PublicKey) error {
	f, err := os.OpenFile(knownHostsFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return swarmerrors.Wrap(err, "appending known_hosts", knownHostsFile)
	}
	defer f.Close()

	line := knownhosts.Line([]string{knownhosts.Normalize(hostname), knownhosts.Normalize(remote.String())}, key)
	if _, err := f.WriteString(line + "\n"); err != nil {
		return swarmerrors.Wrap(err, "appending known_hosts", knownHostsFile)
	}
	return nil
}

func promptYesNo(question string) bool {
	fmt.Fprintf(os.Stdout, "%s [y/N] ", question)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := scanner.Text()
	return answer == "y" || answer == "Y" || answer == "yes"
}
