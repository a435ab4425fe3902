package swarmipc

import (
	"bytes"
	"os"
)

const (
	// EnvSlotName overrides the rendezvous slot name.
	EnvSlotName = "SWARM_HOSTNAME_IPC_FILENAME"
	// DefaultSlotName is used when EnvSlotName is unset.
	DefaultSlotName = "swarm_lb_hostname"
	// HostnameMaxLength is the fixed buffer size of the hostname
	// rendezvous slot, matching SWARM_HOSTNAME_MAX_LENGTH.
	HostnameMaxLength = 256
)

// SlotName resolves the configured rendezvous slot name.
func SlotName() string {
	if name := os.Getenv(EnvSlotName); name != "" {
		return name
	}
	return DefaultSlotName
}

// MarshalHostname truncates name to HostnameMaxLength-1 bytes and
// NUL-terminates it, matching the original's fixed C-string buffer.
func MarshalHostname(name string) []byte {
	buf := make([]byte, HostnameMaxLength)
	n := copy(buf, name)
	if n >= HostnameMaxLength {
		n = HostnameMaxLength - 1
	}
	buf[n] = 0
	return buf
}

// UnmarshalHostname reads a NUL-terminated string out of a fixed
// HostnameMaxLength buffer.
func UnmarshalHostname(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}

// NewHostnameReply creates the owner-side hostname rendezvous slot.
func NewHostnameReply(name string) (*Reply[string], error) {
	return NewReply[string](name, HostnameMaxLength, MarshalHostname)
}

// NewHostnameRequest opens the client-side hostname rendezvous slot.
func NewHostnameRequest(name string) (*Request[string], error) {
	return NewRequest[string](name, HostnameMaxLength, UnmarshalHostname)
}
