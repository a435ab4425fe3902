package swarmipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarshalUnmarshalHostnameRoundTrips(t *testing.T) {
	buf := MarshalHostname("build-host-1")
	assert.Len(t, buf, HostnameMaxLength)
	assert.Equal(t, "build-host-1", UnmarshalHostname(buf))
}

func TestMarshalHostnameTruncatesAndNULTerminates(t *testing.T) {
	long := make([]byte, HostnameMaxLength+50)
	for i := range long {
		long[i] = 'x'
	}
	buf := MarshalHostname(string(long))
	assert.Len(t, buf, HostnameMaxLength)
	assert.Equal(t, byte(0), buf[HostnameMaxLength-1])
}

func TestSlotNameDefaultsWhenUnset(t *testing.T) {
	t.Setenv(EnvSlotName, "")
	assert.Equal(t, DefaultSlotName, SlotName())
}

func TestSlotNameHonorsEnv(t *testing.T) {
	t.Setenv(EnvSlotName, "custom_slot")
	assert.Equal(t, "custom_slot", SlotName())
}

func TestFtokKeyIsDeterministicAndDistinctPerSuffix(t *testing.T) {
	k1 := ftokKey("swarm_lb_hostname", "req")
	k2 := ftokKey("swarm_lb_hostname", "req")
	k3 := ftokKey("swarm_lb_hostname", "rep")
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.NotZero(t, k1)
}
