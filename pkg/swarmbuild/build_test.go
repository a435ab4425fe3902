package swarmbuild

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavarteaga/swarm/pkg/swarmhost"
	"github.com/xavarteaga/swarm/pkg/swarmssh"
)

type fakeSession struct {
	hostname         string
	executed         string
	exitStatus       int
	uploadedLocal    string
	uploadedRelative string
	downloadedRemote string
	downloadedLocal  string
}

func (f *fakeSession) Hostname() string { return f.hostname }
func (f *fakeSession) Execute(_ context.Context, command string) (int, error) {
	f.executed = command
	return f.exitStatus, nil
}
func (f *fakeSession) ExecuteCapture(_ context.Context, command string) (string, int, error) {
	return "", 0, nil
}
func (f *fakeSession) CopyLocalToRemote(localPath, localHostname, relativeName string) error {
	f.uploadedLocal = localPath
	f.uploadedRelative = relativeName
	return nil
}
func (f *fakeSession) CopyRemoteToLocal(remotePath, localPath string) error {
	f.downloadedRemote = remotePath
	f.downloadedLocal = localPath
	return nil
}
func (f *fakeSession) Top(context.Context, time.Duration) (int, error)                       { return 0, nil }
func (f *fakeSession) Fitness(context.Context, time.Duration) (int, int64, float64, error) { return 0, 0, 0, nil }
func (f *fakeSession) Close() error { return nil }

var _ swarmssh.SessionIface = (*fakeSession)(nil)

func TestRunBypassesNonCompileInvocations(t *testing.T) {
	status, err := Run(context.Background(), []string{"swarm-cc", "cc", "--version"}, func(ctx context.Context, hostnames []string, cfg swarmssh.Config) (swarmssh.SessionIface, error) {
		t.Fatal("connector should not be called on bypass path")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestRunDrivesCompileThroughFakeSession(t *testing.T) {
	tmp := t.TempDir()
	t.Chdir(tmp)
	require.NoError(t, os.WriteFile("true.c", []byte("int main(void){return 0;}\n"), 0o644))

	fake := &fakeSession{hostname: "worker-1"}
	status, err := Run(context.Background(), []string{"swarm-cc", "true", "-O2", "-c", "true.c", "-o", "true.o"}, func(ctx context.Context, hostnames []string, cfg swarmssh.Config) (swarmssh.SessionIface, error) {
		return fake, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	localHostname, err := swarmhost.GetLocal()
	require.NoError(t, err)
	assert.Contains(t, fake.executed, "/tmp/swarm/"+localHostname+"/true.o")
	assert.Equal(t, "true.c", fake.uploadedRelative)
}
