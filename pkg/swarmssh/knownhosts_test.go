package swarmssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/stretchr/testify/require"
)

func generateTestKeys(t *testing.T) (ssh.PublicKey, ssh.PublicKey) {
	t.Helper()
	_, priv1, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer1, err := ssh.NewSignerFromKey(priv1)
	require.NoError(t, err)

	_, priv2, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer2, err := ssh.NewSignerFromKey(priv2)
	require.NoError(t, err)

	return signer1.PublicKey(), signer2.PublicKey()
}

type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }

func TestBuildHostKeyCallbackRejectsUnknownByDefault(t *testing.T) {
	dir := t.TempDir()
	key, _ := generateTestKeys(t)

	cb, err := buildHostKeyCallback(Config{KnownHostsFile: filepath.Join(dir, "known_hosts"), Policy: PolicyRejectNew})
	require.NoError(t, err)

	err = cb("example.test:22", fakeAddr("10.0.0.1:22"), key)
	require.Error(t, err)
}

func TestBuildHostKeyCallbackAcceptsAndPersistsNew(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "known_hosts")
	key, _ := generateTestKeys(t)

	cb, err := buildHostKeyCallback(Config{KnownHostsFile: file, Policy: PolicyAcceptNew})
	require.NoError(t, err)

	require.NoError(t, cb("example.test:22", fakeAddr("10.0.0.1:22"), key))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	// A second callback built from the now-populated file should
	// accept the same key even under the strictest policy.
	cb2, err := buildHostKeyCallback(Config{KnownHostsFile: file, Policy: PolicyRejectNew})
	require.NoError(t, err)
	require.NoError(t, cb2("example.test:22", fakeAddr("10.0.0.1:22"), key))
}

func TestBuildHostKeyCallbackRefusesChangedKeyRegardlessOfPolicy(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "known_hosts")
	key1, key2 := generateTestKeys(t)

	cb, err := buildHostKeyCallback(Config{KnownHostsFile: file, Policy: PolicyAcceptNew})
	require.NoError(t, err)
	require.NoError(t, cb("example.test:22", fakeAddr("10.0.0.1:22"), key1))

	cb2, err := buildHostKeyCallback(Config{KnownHostsFile: file, Policy: PolicyAcceptNew})
	require.NoError(t, err)
	err = cb2("example.test:22", fakeAddr("10.0.0.1:22"), key2)
	require.Error(t, err)
}
