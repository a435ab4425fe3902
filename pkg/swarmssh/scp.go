package swarmssh

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/xavarteaga/swarm/pkg/swarmerrors"
)

// maxNofTrials bounds how many times a directory header is sent when
// its acknowledgement fails, e.g. a directory create racing another
// upload into the same per-host staging root. The count includes the
// first attempt.
const maxNofTrials = 2

const scpRetryBackoff = time.Millisecond

// SFTPWriter pushes a directory tree and file contents to a remote
// host over the classic SCP sink protocol (`scp -tr`), used in place
// of a dedicated SFTP subsystem since the fleet has none configured.
type SFTPWriter struct {
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout *bufio.Reader
	depth  int
}

// MakeSFTPWriter opens a sink-mode SCP channel rooted at remoteBase.
func (s *Session) MakeSFTPWriter(remoteBase string) (*SFTPWriter, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}
	if err := sess.Start(fmt.Sprintf("scp -tr %s", shellQuote(remoteBase))); err != nil {
		sess.Close()
		return nil, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}
	w := &SFTPWriter{sess: sess, stdin: stdin, stdout: bufio.NewReader(stdout)}
	if err := w.readAck(); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// PushDirectory descends into (creating as needed) each path segment
// of dir, relative to the writer's remote base. Every failed
// acknowledgement is retried, whatever its SCP status code (transient
// 1 and fatal 2 alike), for at most maxNofTrials attempts in total.
func (w *SFTPWriter) PushDirectory(dir string) error {
	dir = strings.Trim(path.Clean(dir), "/")
	if dir == "" || dir == "." {
		return nil
	}
	for _, segment := range strings.Split(dir, "/") {
		if err := w.pushOneDirectory(segment); err != nil {
			return err
		}
	}
	return nil
}

func (w *SFTPWriter) pushOneDirectory(name string) error {
	var lastErr error
	for attempt := 0; attempt < maxNofTrials; attempt++ {
		header := fmt.Sprintf("D0755 0 %s\n", name)
		if _, err := io.WriteString(w.stdin, header); err != nil {
			return swarmerrors.IOError{Message: err.Error()}
		}
		if err := w.readAck(); err != nil {
			lastErr = err
			time.Sleep(scpRetryBackoff)
			continue
		}
		w.depth++
		return nil
	}
	return lastErr
}

// PushFile sends a file header for name (size bytes, mode 0644)
// without its contents; call Write and then Close to complete it, as
// SCP's sink protocol treats a new C-header as terminating the prior
// file's byte stream.
func (w *SFTPWriter) PushFile(name string, size int64) error {
	header := fmt.Sprintf("C0644 %d %s\n", size, name)
	if _, err := io.WriteString(w.stdin, header); err != nil {
		return swarmerrors.IOError{Message: err.Error()}
	}
	return w.readAck()
}

// Write streams file content previously announced by PushFile.
func (w *SFTPWriter) Write(buf []byte) (int, error) {
	n, err := w.stdin.Write(buf)
	if err != nil {
		return n, swarmerrors.IOError{Message: err.Error()}
	}
	return n, nil
}

// Close terminates the current file's content with the protocol's NUL
// terminator, pops back out of every directory pushed, and closes the
// underlying session.
func (w *SFTPWriter) Close() error {
	if _, err := w.stdin.Write([]byte{0}); err == nil {
		_ = w.readAck()
	}
	for i := 0; i < w.depth; i++ {
		if _, err := io.WriteString(w.stdin, "E\n"); err != nil {
			break
		}
		_ = w.readAck()
	}
	w.stdin.Close()
	return w.sess.Wait()
}

// readAck reads the SCP protocol's single-byte status: 0 is ok,
// 1 is a warning/transient error with a trailing message line,
// 2 is fatal.
func (w *SFTPWriter) readAck() error {
	code, err := w.stdout.ReadByte()
	if err != nil {
		return swarmerrors.TransportError{Message: err.Error()}
	}
	if code == 0 {
		return nil
	}
	line, _ := w.stdout.ReadString('\n')
	return swarmerrors.IOError{Message: fmt.Sprintf("scp protocol status %d: %s", code, strings.TrimSpace(line))}
}

// SFTPReader pulls a single file from the remote over the classic SCP
// source protocol (`scp -f`).
type SFTPReader struct {
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout *bufio.Reader
	remain int64
	eof    bool
}

// MakeSFTPReader opens a source-mode SCP channel for remotePath and
// reads its header, learning the file's size up front.
func (s *Session) MakeSFTPReader(remotePath string) (*SFTPReader, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}
	if err := sess.Start(fmt.Sprintf("scp -f %s", shellQuote(remotePath))); err != nil {
		sess.Close()
		return nil, swarmerrors.TransportError{Hostname: s.hostname, Message: err.Error()}
	}

	r := &SFTPReader{sess: sess, stdin: stdin, stdout: bufio.NewReader(stdout)}
	if err := r.ack(); err != nil {
		r.Close()
		return nil, err
	}

	header, err := r.stdout.ReadString('\n')
	if err != nil {
		r.Close()
		return nil, swarmerrors.TransportError{Message: err.Error()}
	}
	fields := strings.Fields(header)
	if len(fields) < 3 || !strings.HasPrefix(fields[0], "C") {
		r.Close()
		return nil, swarmerrors.TransportError{Message: "malformed scp file header: " + header}
	}
	size := parseIntOrZero(fields[1])
	r.remain = int64(size)

	if err := r.ack(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// IsEOF reports whether the announced file length has been fully
// consumed.
func (r *SFTPReader) IsEOF() bool { return r.eof }

// Read copies up to len(buf) remaining file bytes.
func (r *SFTPReader) Read(buf []byte) (int, error) {
	if r.remain <= 0 {
		r.eof = true
		return 0, io.EOF
	}
	want := int64(len(buf))
	if want > r.remain {
		want = r.remain
	}
	n, err := io.ReadFull(r.stdout, buf[:want])
	r.remain -= int64(n)
	if r.remain <= 0 {
		r.eof = true
		// consume the trailing NUL terminator.
		_, _ = r.stdout.ReadByte()
		_ = r.ack()
	}
	if err != nil {
		return n, swarmerrors.IOError{Message: err.Error()}
	}
	return n, nil
}

// Close releases the underlying session.
func (r *SFTPReader) Close() error {
	r.stdin.Close()
	return r.sess.Wait()
}

func (r *SFTPReader) ack() error {
	if _, err := r.stdin.Write([]byte{0}); err != nil {
		return swarmerrors.IOError{Message: err.Error()}
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
