package proc

// Record is one process as reported by its stat file. Records returned by
// Enumerator.Snapshot live in a reused slice and are only valid until the next call.
type Record struct {
	PID  int
	PPID int
	UID  uint32

	// Comm is the kernel's short name, truncated to 16 bytes.
	Comm    [16]byte
	CommLen uint8
	State   byte

	// UTime and STime are scheduler ticks (CLK_TCK).
	UTime uint64
	STime uint64
	// StartTicks is the start time in ticks since boot.
	StartTicks uint64
	Threads    int
	RSSPages   uint64
}

// Name returns the short name as a string.
func (r *Record) Name() string { return string(r.Comm[:r.CommLen]) }

// Ticks returns utime+stime.
func (r *Record) Ticks() uint64 { return r.UTime + r.STime }

// TaskInfo is the high-fidelity per-process view: on-CPU time in nanoseconds
// from schedstat, resident size and thread count from stat.
type TaskInfo struct {
	CPUTimeNs     uint64
	ResidentBytes uint64
	Threads       int
}

// Identity is what a process calls itself.
type Identity struct {
	// Executable is the resolved /proc/<pid>/exe target; empty for kernel threads.
	Executable string
	Args       []string
	Cgroup     string
}
