package swarmssh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectBestRejectsEmptyFleet(t *testing.T) {
	_, err := ConnectBest(context.Background(), nil, DefaultConfig())
	require.Error(t, err)
}

func TestShellQuoteEscapesSingleQuotes(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, `'/tmp/swarm/host/'`, shellQuote("/tmp/swarm/host/"))
}

func TestRemoteBasePathIsPerHost(t *testing.T) {
	assert.Equal(t, "/tmp/swarm/host-a/", remoteBasePath("host-a"))
}
