//go:build linux

package proc

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/tklauser/go-sysconf"
)

// DefaultRoot is where procfs is normally mounted.
const DefaultRoot = "/proc"

// ClockTicks returns the number of scheduler ticks per second (CLK_TCK).
// The CLK_TCK env var overrides the value, which is handy in tests; otherwise
// sysconf(_SC_CLK_TCK) is used, falling back to 100.
func ClockTicks() int {
	if v, _ := strconv.Atoi(os.Getenv("CLK_TCK")); v > 0 {
		return v
	}
	if v, err := sysconf.Sysconf(sysconf.SC_CLK_TCK); err == nil && v > 0 {
		return int(v)
	}
	return 100
}

// PageSize returns the system memory page size in bytes.
// Like ClockTicks, it first checks an env override (PAGE_SIZE).
func PageSize() int {
	if v, _ := strconv.Atoi(os.Getenv("PAGE_SIZE")); v > 0 {
		return v
	}
	return os.Getpagesize()
}

// Exists reports whether <root>/<pid> is present.
func Exists(root string, pid int) bool {
	if root == "" {
		root = DefaultRoot
	}
	_, err := os.Stat(filepath.Join(root, strconv.Itoa(pid)))
	return err == nil
}
