// Package swarmhost enumerates the fleet of compile hosts and resolves
// the local machine's own name.
package swarmhost

import (
	"os"
	"strings"

	"github.com/xavarteaga/swarm/pkg/swarmerrors"
)

const (
	// EnvHostnames names the comma-delimited fleet host list.
	EnvHostnames = "SWARM_HOSTNAMES"
	// DefaultHostname is used when EnvHostnames is unset.
	DefaultHostname = "localhost"
	hostnameDelim   = ","
)

// GetAll reads SWARM_HOSTNAMES, splits on commas, drops empty
// fragments, and preserves order so telemetry rows stay stable across
// refreshes. Falls back to a singleton "localhost" when unset.
func GetAll() []string {
	raw := os.Getenv(EnvHostnames)
	if raw == "" {
		raw = DefaultHostname
	}

	var hosts []string
	for _, h := range strings.Split(raw, hostnameDelim) {
		if h == "" {
			continue
		}
		hosts = append(hosts, h)
	}
	if len(hosts) == 0 {
		hosts = []string{DefaultHostname}
	}
	return hosts
}

// GetLocal resolves this machine's hostname, failing if the OS call
// errors.
func GetLocal() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", swarmerrors.Wrap(err, "resolving local hostname")
	}
	return name, nil
}
