// Package history keeps past snapshots: an in-memory per-PID store, a running
// per-PID summary and a parquet file sink. All of them are collector recorders.
package history

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ja7ad/procmetrics/pkg/types"
)

// Point is one observation of a process.
type Point struct {
	At      time.Time         `json:"at"`
	Process types.ProcessInfo `json:"process"`
}

// Store keeps points per PID in time order.
type Store struct {
	mu        sync.RWMutex
	retention time.Duration
	maxPoints int
	byPID     map[int][]Point
}

// NewStore returns a Store. Points older than retention are pruned on every
// Record; zero keeps everything. maxPoints bounds the points kept per PID,
// dropping the oldest; zero means unbounded.
func NewStore(retention time.Duration, maxPoints int) *Store {
	return &Store{
		retention: retention,
		maxPoints: maxPoints,
		byPID:     make(map[int][]Point),
	}
}

// Append adds every process of snap. Snapshots must be appended in time order.
func (s *Store) Append(snap types.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range snap.Processes {
		pts := append(s.byPID[p.PID], Point{At: snap.At, Process: p})
		if s.maxPoints > 0 && len(pts) > s.maxPoints {
			pts = slices.Delete(pts, 0, len(pts)-s.maxPoints)
		}
		s.byPID[p.PID] = pts
	}
}

// Record appends snap and applies the retention.
func (s *Store) Record(_ context.Context, snap types.Snapshot) error {
	s.Append(snap)
	if s.retention > 0 {
		s.Prune(snap.At.Add(-s.retention))
	}
	return nil
}

// Fetch returns a copy of the points of pid taken at or after since.
func (s *Store) Fetch(pid int, since time.Time) []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pts := s.byPID[pid]
	i, _ := slices.BinarySearchFunc(pts, since, func(p Point, t time.Time) int {
		return p.At.Compare(t)
	})
	return slices.Clone(pts[i:])
}

// Prune drops every point taken before the given time and forgets PIDs left
// without points. It returns how many points went.
func (s *Store) Prune(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for pid, pts := range s.byPID {
		i := 0
		for i < len(pts) && pts[i].At.Before(before) {
			i++
		}
		n += i
		switch {
		case i == len(pts):
			delete(s.byPID, pid)
		case i > 0:
			s.byPID[pid] = slices.Delete(pts, 0, i)
		}
	}
	return n
}

// PIDs returns the PIDs with at least one point, ascending.
func (s *Store) PIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0, len(s.byPID))
	for pid := range s.byPID {
		out = append(out, pid)
	}
	slices.Sort(out)
	return out
}
