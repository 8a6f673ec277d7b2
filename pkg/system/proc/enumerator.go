//go:build linux

package proc

import (
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sys/unix"
)

const (
	initialDirentBuf = 32 << 10
	initialStatBuf   = 1 << 10
	maxBufSize       = 16 << 20
)

// Enumerator lists live processes by walking the proc root with getdents64 and
// reading each /proc/<pid>/stat. All buffers and the returned slice are reused
// across calls and only grow, by doubling, when the kernel reports that they are
// too small.
//
// An Enumerator is not safe for concurrent use.
type Enumerator struct {
	root  string
	limit int

	dirBuf  []byte
	statBuf []byte
	pids    []int
	records []Record
}

// NewEnumerator returns an Enumerator over root (normally "/proc").
func NewEnumerator(root string) *Enumerator {
	if root == "" {
		root = DefaultRoot
	}
	return &Enumerator{
		root:    root,
		limit:   maxBufSize,
		dirBuf:  make([]byte, initialDirentBuf),
		statBuf: make([]byte, initialStatBuf),
	}
}

// Snapshot returns one Record per process that was still alive when its stat
// file was read. The slice is owned by the Enumerator and is overwritten by the
// next call.
func (e *Enumerator) Snapshot() ([]Record, error) {
	dfd, err := unix.Open(e.root, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrEnumerate, e.root, err)
	}
	defer func() {
		_ = unix.Close(dfd)
	}()

	if err := e.listPIDs(dfd); err != nil {
		return nil, err
	}

	e.records = e.records[:0]
	for _, pid := range e.pids {
		e.records = append(e.records, Record{})
		ok, err := e.readStat(dfd, pid, &e.records[len(e.records)-1])
		if err != nil {
			e.records = e.records[:0]
			return nil, err
		}
		if !ok {
			e.records = e.records[:len(e.records)-1]
		}
	}
	return e.records, nil
}

func (e *Enumerator) listPIDs(dfd int) error {
	e.pids = e.pids[:0]
	for {
		n, err := unix.Getdents(dfd, e.dirBuf)
		switch {
		case errors.Is(err, unix.EINVAL):
			// the next entry does not fit
			buf, gerr := grow(e.dirBuf, e.limit)
			if gerr != nil {
				return gerr
			}
			e.dirBuf = buf
			continue
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return fmt.Errorf("%w: getdents %s: %w", ErrEnumerate, e.root, err)
		}
		if n == 0 {
			return nil
		}
		e.pids = appendDirentPIDs(e.dirBuf[:n], e.pids)
	}
}

// readStat reports false when the process vanished or its stat file is unreadable.
func (e *Enumerator) readStat(dfd, pid int, r *Record) (bool, error) {
	fd, err := unix.Openat(dfd, strconv.Itoa(pid)+"/stat", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return false, nil
	}
	defer func() {
		_ = unix.Close(fd)
	}()

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return false, nil
	}

	for {
		n, err := unix.Pread(fd, e.statBuf, 0)
		if err != nil {
			return false, nil
		}
		if n < len(e.statBuf) {
			*r = Record{}
			if decodeStat(e.statBuf[:n], r) != nil {
				return false, nil
			}
			r.UID = st.Uid
			return true, nil
		}
		buf, gerr := grow(e.statBuf, e.limit)
		if gerr != nil {
			return false, gerr
		}
		e.statBuf = buf
	}
}

func grow(buf []byte, limit int) ([]byte, error) {
	n := 2 * len(buf)
	if n == 0 {
		n = 512
	}
	if n > limit {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrBufferLimit, n, limit)
	}
	return make([]byte, n), nil
}
