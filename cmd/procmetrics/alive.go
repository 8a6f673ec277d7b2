//go:build linux

package main

import "github.com/ja7ad/procmetrics/pkg/system/proc"

// anyAlive reports whether at least one of pids still has a procfs entry
// under root. An empty snapshot alone doesn't prove the PIDs exited, since a
// failed enumeration also yields one.
func anyAlive(root string, pids []int) bool {
	for _, pid := range pids {
		if proc.Exists(root, pid) {
			return true
		}
	}
	return false
}
