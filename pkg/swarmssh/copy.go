package swarmssh

import (
	"io"
	"os"
	"path"

	"github.com/xavarteaga/swarm/pkg/swarmerrors"
)

// copyBufferSize is the chunk size used streaming file content through
// the SCP sink/source protocol.
const copyBufferSize = 1 << 20

// CopyLocalToRemote stages localPath onto this host under
// /tmp/swarm/<local-hostname>/<relativeName>, creating any
// intermediate directories named in relativeName.
func (s *Session) CopyLocalToRemote(localPath, localHostname, relativeName string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return swarmerrors.IOError{Message: err.Error()}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return swarmerrors.IOError{Message: err.Error()}
	}

	base := remoteBasePath(localHostname)
	w, err := s.MakeSFTPWriter(base)
	if err != nil {
		return err
	}
	defer w.Close()

	if dir := path.Dir(relativeName); dir != "." {
		if err := w.PushDirectory(dir); err != nil {
			return err
		}
	}
	if err := w.PushFile(path.Base(relativeName), info.Size()); err != nil {
		return err
	}

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(writerFunc(w.Write), f, buf); err != nil {
		return swarmerrors.IOError{Message: err.Error()}
	}
	return nil
}

// CopyRemoteToLocal downloads remotePath on this host to localPath.
func (s *Session) CopyRemoteToLocal(remotePath, localPath string) error {
	r, err := s.MakeSFTPReader(remotePath)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return swarmerrors.IOError{Message: err.Error()}
	}
	defer f.Close()

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(f, readerFunc(r.Read), buf); err != nil && err != io.EOF {
		return swarmerrors.IOError{Message: err.Error()}
	}
	return nil
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
