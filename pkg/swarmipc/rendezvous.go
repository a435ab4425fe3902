// Package swarmipc implements the fixed-size shared-buffer rendezvous
// used to hand a placement decision across the process boundary
// between swarm-lb and swarm-cc: a named mmap'd buffer plus a request/
// reply pair of SysV counting semaphores standing in for the POSIX
// named semaphores golang.org/x/sys/unix does not wrap. golang.org/x/sys/unix
// does not export Semget/Semop/Semtimedop/Semctl wrappers either (only
// the SysV shared-memory calls are wrapped), so the semaphore ops below
// go straight through unix.Syscall against the raw Linux syscall
// numbers, with a hand-declared sembuf matching <linux/sem.h>.
package swarmipc

import (
	"fmt"
	"hash/crc32"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/xavarteaga/swarm/pkg/swarmerrors"
)

// RequestWait is how long available() blocks waiting for a client's
// request post before giving up and looping again.
const RequestWait = time.Second

// ReplyWait is the default time Request.Read blocks waiting for the
// owner's reply post; Request.SetReplyWait overrides it per client. It
// is much shorter than RequestWait, which leaves a staleness window: a
// reply posted after the client gave up stays on the reply semaphore
// and is consumed by that client's next Read, so one answer can be
// paired with the following request.
const ReplyWait = time.Millisecond

const bufferPerms = 0o600

// Slot is a named shared-memory buffer of fixed size plus its two
// counting semaphores. Owner and Client both wrap a Slot; which one
// unlinks on close is the only difference between them.
type Slot struct {
	name   string
	size   int
	buf    []byte
	reqSem int
	repSem int
}

func shmPath(name string) string {
	return "/dev/shm/" + name
}

// ftokKey derives a stable SysV IPC key from a rendezvous name and a
// suffix ("req"/"rep"), playing the role ftok(3) plays for the
// original's named POSIX semaphores.
func ftokKey(name, suffix string) int {
	sum := crc32.ChecksumIEEE([]byte(name + "." + suffix))
	// IPC_PRIVATE is 0; avoid colliding with it.
	key := int(sum & 0x7fffffff)
	if key == 0 {
		key = 1
	}
	return key
}

// sembuf mirrors the kernel's struct sembuf (<linux/sem.h>): two bytes
// each of sem_num, sem_op, sem_flg, no padding.
type sembuf struct {
	semNum uint16
	semOp  int16
	semFlg int16
}

// semget, semop, semtimedop and semctlRmid are raw syscalls: there is
// no unix.Semget/Semop/Semtimedop/Semctl in golang.org/x/sys/unix to
// call through.
func semget(key, nsems, semflg int) (int, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(key), uintptr(nsems), uintptr(semflg))
	if errno != 0 {
		return 0, errno
	}
	return int(id), nil
}

func semop(semid int, sops []sembuf) error {
	_, _, errno := unix.Syscall(unix.SYS_SEMOP, uintptr(semid), uintptr(unsafe.Pointer(&sops[0])), uintptr(len(sops)))
	if errno != 0 {
		return errno
	}
	return nil
}

func semtimedop(semid int, sops []sembuf, timeout *unix.Timespec) error {
	_, _, errno := unix.Syscall6(unix.SYS_SEMTIMEDOP, uintptr(semid), uintptr(unsafe.Pointer(&sops[0])), uintptr(len(sops)), uintptr(unsafe.Pointer(timeout)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func semctlRmid(semid int) error {
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(semid), 0, uintptr(unix.IPC_RMID), 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// openSemaphore gets the semaphore set for key, creating it only when
// create is true; a client opening a slot it does not own passes
// create=false so a missing owner surfaces as ENOENT instead of
// silently conjuring an empty set.
func openSemaphore(key int, create bool) (int, error) {
	flags := 0o600
	if create {
		flags |= unix.IPC_CREAT
	}
	id, err := semget(key, 1, flags)
	if err != nil {
		return 0, swarmerrors.IPCError{Message: fmt.Sprintf("semget key %d: %v", key, err)}
	}
	return id, nil
}

func semPost(semid int) error {
	if err := semop(semid, []sembuf{{semNum: 0, semOp: 1, semFlg: 0}}); err != nil {
		return swarmerrors.IPCError{Message: "semop post: " + err.Error()}
	}
	return nil
}

// semWait blocks until the semaphore can be decremented or timeout
// elapses, returning (acquired, error). A timeout is reported as
// (false, nil): per spec, wait timeouts are normal control flow, not
// errors.
func semWait(semid int, timeout time.Duration) (bool, error) {
	ts := unix.Timespec{
		Sec:  int64(timeout / time.Second),
		Nsec: int64(timeout % time.Second),
	}
	err := semtimedop(semid, []sembuf{{semNum: 0, semOp: -1, semFlg: 0}}, &ts)
	if err == nil {
		return true, nil
	}
	if err == unix.EAGAIN {
		return false, nil
	}
	return false, swarmerrors.IPCError{Message: "semop wait: " + err.Error()}
}

// semDrainNonBlocking repeatedly trywaits a semaphore until it would
// block, discarding any stale posts left over from a prior run.
func semDrainNonBlocking(semid int) {
	for {
		if err := semop(semid, []sembuf{{semNum: 0, semOp: -1, semFlg: int16(unix.IPC_NOWAIT)}}); err != nil {
			return
		}
	}
}

// openSlot maps the named shared buffer and its semaphore pair. When
// create is true (the owner/Reply side) the shm file and both
// semaphore sets are created if absent; when false (the client/Request
// side) nothing is created and a missing owner surfaces as an open or
// semget failure, matching spec's "client opens existing" contract.
func openSlot(name string, size int, create bool) (*Slot, error) {
	path := shmPath(name)
	flags := unix.O_RDWR
	if create {
		flags |= unix.O_CREAT
	}
	fd, err := unix.Open(path, flags, bufferPerms)
	if err != nil {
		return nil, swarmerrors.IPCError{Message: "open " + path + ": " + err.Error()}
	}
	defer unix.Close(fd)

	if create {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			return nil, swarmerrors.IPCError{Message: "ftruncate " + path + ": " + err.Error()}
		}
	}

	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, swarmerrors.IPCError{Message: "mmap " + path + ": " + err.Error()}
	}

	reqSem, err := openSemaphore(ftokKey(name, "req"), create)
	if err != nil {
		_ = unix.Munmap(buf)
		return nil, err
	}
	repSem, err := openSemaphore(ftokKey(name, "rep"), create)
	if err != nil {
		_ = unix.Munmap(buf)
		return nil, err
	}

	return &Slot{name: name, size: size, buf: buf, reqSem: reqSem, repSem: repSem}, nil
}

// teardown zeros the buffer, unmaps it, and (when owned) removes the
// backing shm file and both semaphore sets. Best-effort: spec calls
// partial teardown on destruction acceptable.
func (s *Slot) teardown(removeNames bool) {
	for i := range s.buf {
		s.buf[i] = 0
	}
	_ = unix.Munmap(s.buf)
	if !removeNames {
		return
	}
	_ = unix.Unlink(shmPath(s.name))
	_ = semctlRmid(s.reqSem)
	_ = semctlRmid(s.repSem)
}
