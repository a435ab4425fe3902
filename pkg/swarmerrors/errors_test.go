package swarmerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesCause(t *testing.T) {
	base := errors.New("boom")
	wrapped := Wrap(base, "while doing a thing")

	assert.True(t, errors.Is(wrapped, base))
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil))
}

func TestErrorKindsImplementSwarmError(t *testing.T) {
	var kinds = []SwarmError{
		ConfigError{Message: "missing SWARM_HOSTNAMES"},
		TransportError{Hostname: "h1", Message: "auth failed"},
		RemoteExecError{Hostname: "h1", ExitStatus: 1},
		IOError{Message: "disk full"},
		IPCError{Message: "shm_open failed"},
	}

	for _, k := range kinds {
		assert.NotEmpty(t, k.Error())
		assert.NotEmpty(t, k.Directive())
	}
}
