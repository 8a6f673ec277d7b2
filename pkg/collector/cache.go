package collector

import (
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/ja7ad/procmetrics/pkg/system/clock"
	"github.com/ja7ad/procmetrics/pkg/usage"
)

// cachedProcess is everything remembered about a PID between cycles.
type cachedProcess struct {
	// startTicks identifies this incarnation of the PID.
	startTicks uint64
	// cycle is the last collection cycle that observed the PID.
	cycle uint64

	at    clock.Instant
	ticks uint64

	cpuNs  uint64
	hasCPU bool

	io    usage.IOCounters
	ioAt  clock.Instant
	hasIO bool
	disk  usage.DiskRates

	net      usage.Traffic
	netAt    clock.Instant
	netRates usage.NetRates
	hasNet   bool

	lastGood    float64
	lastGoodAt  clock.Instant
	hasLastGood bool

	resident uint64
	threads  int
	hasTask  bool

	identityResolved bool
	name             string
	cmdline          string
	cgroup           string
	username         string
}

// pidCache owns the cached entries. Entries are purged explicitly after every
// cycle, so the LRU is unbounded.
type pidCache struct {
	lru *simplelru.LRU[int, *cachedProcess]
}

func newPIDCache() *pidCache {
	lru, _ := simplelru.NewLRU[int, *cachedProcess](math.MaxInt, nil)
	return &pidCache{lru: lru}
}

// acquire returns the entry for pid, creating a fresh one when the PID is new or
// was reused by a process with a different start time. fresh reports the latter
// two cases.
func (c *pidCache) acquire(pid int, startTicks uint64, cycle uint64) (entry *cachedProcess, fresh bool) {
	entry, ok := c.lru.Get(pid)
	if !ok || entry.startTicks != startTicks {
		entry = &cachedProcess{startTicks: startTicks}
		c.lru.Add(pid, entry)
		fresh = true
	}
	entry.cycle = cycle
	return entry, fresh
}

// evict drops every PID not observed in cycle and returns how many went.
func (c *pidCache) evict(cycle uint64) int {
	n := 0
	for _, pid := range c.lru.Keys() {
		if e, ok := c.lru.Peek(pid); ok && e.cycle != cycle {
			c.lru.Remove(pid)
			n++
		}
	}
	return n
}

func (c *pidCache) len() int { return c.lru.Len() }

func (c *pidCache) peek(pid int) (*cachedProcess, bool) { return c.lru.Peek(pid) }
