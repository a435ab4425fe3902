package swarmlb

import (
	"errors"
	"fmt"
	"os"

	daemon "github.com/sevlyar/go-daemon"
	"github.com/sirupsen/logrus"

	"github.com/xavarteaga/swarm/pkg/swarmerrors"
)

// RunAsDaemon reborns the current process into the background via
// github.com/sevlyar/go-daemon, the same mechanism the teacher's
// pkg/tasks.RunTaskAsDaemon uses, then invokes run in the child.
// Returns nil immediately in the parent once the child has forked.
func RunAsDaemon(workDir string, run func() error) error {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return swarmerrors.IOError{Message: "creating daemon work dir: " + err.Error()}
	}
	pidFile := fmt.Sprintf("%s/swarm_lb.pid", workDir)
	logFile := fmt.Sprintf("%s/swarm_lb.log", workDir)
	LogStartup(pidFile, logFile)

	cntxt := &daemon.Context{
		PidFileName: pidFile,
		PidFilePerm: 0o644,
		LogFileName: logFile,
		LogFilePerm: 0o640,
		WorkDir:     workDir,
		Umask:       0o27,
		Args:        []string{},
	}

	child, err := cntxt.Reborn()
	if err != nil {
		if errors.Is(err, daemon.ErrWouldBlock) {
			logrus.Warn("swarm-lb daemon already running")
			return nil
		}
		return swarmerrors.Wrap(err, "daemonizing swarm-lb")
	}
	if child != nil {
		// Parent process: the daemon is now running in the
		// background child, nothing left to do here.
		return nil
	}
	defer cntxt.Release() //nolint:errcheck

	logrus.Info("swarm-lb daemon started")
	return run()
}
