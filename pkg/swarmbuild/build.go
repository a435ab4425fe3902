// Package swarmbuild drives one swarm-cc invocation end to end:
// rewrite the command into preprocess/compile variants, run the
// preprocessor locally while the best remote host is selected in
// parallel, then upload, remote-compile, and download the result.
// Grounded on original_source/swarm_cc.cpp's main().
package swarmbuild

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/xavarteaga/swarm/pkg/swarmerrors"
	"github.com/xavarteaga/swarm/pkg/swarmhost"
	"github.com/xavarteaga/swarm/pkg/swarmrewrite"
	"github.com/xavarteaga/swarm/pkg/swarmssh"
)

// PrecompilerExpectedStatus is the only exit status Run treats as a
// successful local preprocess.
const PrecompilerExpectedStatus = 0

// Connector abstracts fleet connection so tests can substitute a fake
// session without opening a real SSH transport.
type Connector func(ctx context.Context, hostnames []string, cfg swarmssh.Config) (swarmssh.SessionIface, error)

// DefaultConnector wraps swarmssh.ConnectBest behind the Connector
// signature.
func DefaultConnector(ctx context.Context, hostnames []string, cfg swarmssh.Config) (swarmssh.SessionIface, error) {
	return swarmssh.ConnectBest(ctx, hostnames, cfg)
}

// Run executes argv as a (possibly bypassed) swarm compile and returns
// the process exit status to propagate to the caller's os.Exit.
func Run(ctx context.Context, argv []string, connect Connector) (int, error) {
	buildID := uuid.NewString()
	log := logrus.WithField("build_id", buildID)

	localHostname, err := swarmhost.GetLocal()
	if err != nil {
		return 0, err
	}

	plan, err := swarmrewrite.Build(argv, localHostname)
	if err != nil {
		return 0, err
	}
	if plan.Bypass {
		return bypass(argv)
	}

	log.WithField("command", plan.CompileArgs.Join()).Info("processing swarm-cc command")
	fmt.Fprintf(os.Stderr, "-- Processing swarm-cc command -- %s\n", plan.CompileArgs.Join())

	if err := os.MkdirAll(plan.LocalMkdirTarget(), 0o755); err != nil {
		return 0, swarmerrors.IOError{Message: "creating local preprocess directory: " + err.Error()}
	}

	hostnames := swarmhost.GetAll()

	var session swarmssh.SessionIface
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return precompile(plan.PreprocessArgs.Join())
	})
	group.Go(func() error {
		s, err := connect(groupCtx, hostnames, swarmssh.DefaultConfig())
		if err != nil {
			return err
		}
		session = s
		return nil
	})

	if err := group.Wait(); err != nil {
		return 0, err
	}
	defer session.Close()
	log.WithField("host", session.Hostname()).Info("selected remote host")

	if err := session.CopyLocalToRemote(plan.LocalPreprocessTarget, localHostname, plan.SourceFile); err != nil {
		return 0, err
	}

	status, err := session.Execute(ctx, plan.CompileArgs.Join())
	if err != nil {
		return 0, err
	}
	if status != 0 {
		return status, nil
	}

	if err := session.CopyRemoteToLocal(plan.RemoteObjectTarget, plan.ObjectFile); err != nil {
		return 0, err
	}
	return 0, nil
}

// precompile runs the local preprocess command via the shell,
// matching the original's system()-based precompile() helper.
func precompile(command string) error {
	cmd := exec.Command("sh", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if err == nil {
		return nil
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return swarmerrors.IOError{Message: "running precompiler: " + err.Error()}
	}
	if exitErr.ExitCode() != PrecompilerExpectedStatus {
		return swarmerrors.IOError{Message: fmt.Sprintf("precompiler exited with status %d, expected %d", exitErr.ExitCode(), PrecompilerExpectedStatus)}
	}
	return nil
}

// bypass runs argv[1:] unmodified through the shell when swarm-cc does
// not recognize the invocation as a compile of a translation unit into
// an object file. argv[0] is swarm-cc's own program name, dropped the
// same way swarmargs.New drops it for the compile path.
func bypass(argv []string) (int, error) {
	command := shellJoin(argv[1:])
	fmt.Fprintf(os.Stderr, "-- Bypassing swarm-cc command -- %s\n", command)
	cmd := exec.Command("sh", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 0, swarmerrors.IOError{Message: "running bypass command: " + err.Error()}
}
