//go:build linux

// Package cgroup reports the host's cgroup mode and picks the cgroup path a
// process belongs to.
package cgroup

import (
	"fmt"
	"slices"
	"strings"

	"github.com/prometheus/procfs"
)

type Version int

const (
	Unsupported Version = iota // no cgroup mounts
	V1                         // legacy multi-hierarchy cgroup v1
	V2                         // unified cgroup v2
	Hybrid                     // both v1 and v2 present
)

func (v Version) String() string {
	switch v {
	case V1:
		return "cgroup v1"
	case V2:
		return "cgroup v2"
	case Hybrid:
		return "cgroup hybrid"
	default:
		return "unsupported"
	}
}

// Detect returns the host cgroup version and a human-readable detail string,
// read from <root>/self/mountinfo.
func Detect(root string) (Version, string, error) {
	fs, err := procfs.NewFS(root)
	if err != nil {
		return Unsupported, "", fmt.Errorf("open procfs %s: %w", root, err)
	}
	self, err := fs.Self()
	if err != nil {
		return Unsupported, "", fmt.Errorf("resolve self: %w", err)
	}
	mounts, err := self.MountInfo()
	if err != nil {
		return Unsupported, "", fmt.Errorf("read mountinfo: %w", err)
	}
	v, detail := Classify(mounts)
	return v, detail, nil
}

// Classify derives the cgroup version from parsed mountinfo entries.
func Classify(mounts []*procfs.MountInfo) (Version, string) {
	var v1Pts, v2Pts []string
	for _, m := range mounts {
		switch m.FSType {
		case "cgroup2":
			v2Pts = append(v2Pts, m.MountPoint)
		case "cgroup":
			v1Pts = append(v1Pts, m.MountPoint)
		}
	}

	switch {
	case len(v1Pts) > 0 && len(v2Pts) > 0:
		return Hybrid, fmt.Sprintf("cgroup2 on %s; cgroup v1 on %s",
			strings.Join(v2Pts, ","), strings.Join(v1Pts, ","))
	case len(v2Pts) > 0:
		return V2, "cgroup2 on " + strings.Join(v2Pts, ",")
	case len(v1Pts) > 0:
		return V1, "cgroup v1 on " + strings.Join(v1Pts, ",")
	default:
		return Unsupported, "no cgroup mounts found"
	}
}

// Pick returns the cgroup path to attribute a process to. The unified (v2)
// hierarchy wins, then the v1 hierarchy carrying the cpu controller, then the
// first entry.
func Pick(groups []procfs.Cgroup) string {
	if len(groups) == 0 {
		return ""
	}
	for _, g := range groups {
		if g.HierarchyID == 0 && len(g.Controllers) == 0 {
			return g.Path
		}
	}
	for _, g := range groups {
		if slices.Contains(g.Controllers, "cpu") {
			return g.Path
		}
	}
	return groups[0].Path
}
