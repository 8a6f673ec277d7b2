package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// maxRange bounds a single PID..PID argument.
const maxRange = 1 << 16

// ParsePIDs parses "PID" and "PID..PID" arguments into sorted, unique PIDs.
func ParsePIDs(args []string) ([]int, error) {
	var out []int
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(arg, "..")
		if !isRange {
			hi = lo
		}
		from, err := parsePID(lo)
		if err != nil {
			return nil, err
		}
		to, err := parsePID(hi)
		if err != nil {
			return nil, err
		}
		if to < from {
			return nil, fmt.Errorf("invalid PID range %q", arg)
		}
		if to-from >= maxRange {
			return nil, fmt.Errorf("PID range %q is wider than %d", arg, maxRange)
		}
		for pid := from; pid <= to; pid++ {
			out = append(out, pid)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func parsePID(s string) (int, error) {
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID %q", s)
	}
	return pid, nil
}

// pidFilter keeps everything when pids is empty.
func pidFilter(pids []int) func(int) bool {
	if len(pids) == 0 {
		return func(int) bool { return true }
	}
	return func(pid int) bool {
		_, ok := slices.BinarySearch(pids, pid)
		return ok
	}
}
