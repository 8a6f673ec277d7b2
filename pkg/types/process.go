package types

import (
	"fmt"
	"strings"
	"time"
)

// Flags describes which parts of a ProcessInfo were derived from degraded data.
type Flags uint8

const (
	// CPURestricted means the high-fidelity CPU counters were unavailable and the
	// CPU percent comes from the coarse scheduler ticks or the last known-good value.
	CPURestricted Flags = 1 << iota
	// NetworkUnavailable means the process had no entry in the latest network totals.
	NetworkUnavailable
	// PermissionDenied means at least one per-process introspection query failed and
	// cached values were used in its place.
	PermissionDenied
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

func (f Flags) String() string {
	if f == 0 {
		return "-"
	}
	var parts []string
	if f.Has(CPURestricted) {
		parts = append(parts, "cpu-restricted")
	}
	if f.Has(NetworkUnavailable) {
		parts = append(parts, "network-unavailable")
	}
	if f.Has(PermissionDenied) {
		parts = append(parts, "permission-denied")
	}
	return strings.Join(parts, "|")
}

// MarshalText encodes the flags as their String form, so JSON output stays readable.
func (f Flags) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText parses the String form.
func (f *Flags) UnmarshalText(b []byte) error {
	*f = 0
	s := string(b)
	if s == "-" || s == "" {
		return nil
	}
	for _, part := range strings.Split(s, "|") {
		switch part {
		case "cpu-restricted":
			*f |= CPURestricted
		case "network-unavailable":
			*f |= NetworkUnavailable
		case "permission-denied":
			*f |= PermissionDenied
		default:
			return fmt.Errorf("unknown flag %q", part)
		}
	}
	return nil
}

// ProcessInfo is the public per-process result of one sampling cycle.
// Values are created fresh on every cycle and never mutated afterwards.
type ProcessInfo struct {
	PID       int       `json:"pid"`
	PPID      int       `json:"ppid"`
	Name      string    `json:"name"`
	CmdLine   string    `json:"cmdline"`
	Username  string    `json:"username"`
	Cgroup    string    `json:"cgroup,omitempty"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`

	CPUPercent           float64 `json:"cpu_percent"`
	CumulativeCPUPercent float64 `json:"cumulative_cpu_percent"`
	ResidentBytes        Bytes   `json:"resident_bytes"`
	MemoryPercent        float64 `json:"memory_percent"`
	Threads              int     `json:"threads"`

	NetInRate            Rate `json:"net_in_bps"`
	NetOutRate           Rate `json:"net_out_bps"`
	DiskReadRate         Rate `json:"disk_read_bps"`
	DiskWriteRate        Rate `json:"disk_write_bps"`
	DiskLogicalWriteRate Rate `json:"disk_logical_write_bps"`

	Flags Flags `json:"flags"`
}

// Snapshot is the output of one collection cycle: the capture time and the processes
// observed in it.
type Snapshot struct {
	At        time.Time     `json:"at"`
	Processes []ProcessInfo `json:"processes"`
}
