//go:build linux

package proc

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/ja7ad/procmetrics/pkg/system/cgroup"
	"github.com/ja7ad/procmetrics/pkg/usage"
)

// Introspector answers per-process queries through procfs. Errors are wrapped
// with ErrPermission or ErrNoProcess when the kernel's answer allows it.
type Introspector struct {
	fs procfs.FS
}

// NewIntrospector opens procfs at root.
func NewIntrospector(root string) (*Introspector, error) {
	if root == "" {
		root = DefaultRoot
	}
	pfs, err := procfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", root, err)
	}
	return &Introspector{fs: pfs}, nil
}

func (in *Introspector) TaskInfo(pid int) (TaskInfo, error) {
	p, err := in.fs.Proc(pid)
	if err != nil {
		return TaskInfo{}, classify(pid, "task", err)
	}
	sched, err := p.Schedstat()
	if err != nil {
		return TaskInfo{}, classify(pid, "schedstat", err)
	}
	st, err := p.Stat()
	if err != nil {
		return TaskInfo{}, classify(pid, "stat", err)
	}
	return TaskInfo{
		CPUTimeNs:     sched.RunningNanoseconds,
		ResidentBytes: uint64(max(st.ResidentMemory(), 0)),
		Threads:       st.NumThreads,
	}, nil
}

// ResourceUsage reads /proc/<pid>/io. The file is mode 0400, so for processes
// owned by other users this fails with ErrPermission unless running privileged.
func (in *Introspector) ResourceUsage(pid int) (usage.IOCounters, error) {
	p, err := in.fs.Proc(pid)
	if err != nil {
		return usage.IOCounters{}, classify(pid, "io", err)
	}
	pio, err := p.IO()
	if err != nil {
		return usage.IOCounters{}, classify(pid, "io", err)
	}
	return usage.IOCounters{
		ReadBytes:         pio.ReadBytes,
		WriteBytes:        pio.WriteBytes,
		LogicalWriteBytes: pio.WChar,
	}, nil
}

// Identity resolves the executable, argument vector and cgroup. Any part that
// fails is left empty and the first error is returned alongside the partial
// result.
func (in *Introspector) Identity(pid int) (Identity, error) {
	p, err := in.fs.Proc(pid)
	if err != nil {
		return Identity{}, classify(pid, "identity", err)
	}

	var (
		id    Identity
		first error
	)
	if exe, err := p.Executable(); err != nil {
		first = classify(pid, "exe", err)
	} else {
		id.Executable = exe
	}
	if args, err := p.CmdLine(); err != nil {
		if first == nil {
			first = classify(pid, "cmdline", err)
		}
	} else {
		id.Args = args
	}
	if groups, err := p.Cgroups(); err != nil {
		if first == nil {
			first = classify(pid, "cgroup", err)
		}
	} else {
		id.Cgroup = cgroup.Pick(groups)
	}
	return id, first
}

func classify(pid int, what string, err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission), errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: pid %d %s: %w", ErrPermission, pid, what, err)
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: pid %d %s: %w", ErrNoProcess, pid, what, err)
	default:
		return fmt.Errorf("pid %d %s: %w", pid, what, err)
	}
}
