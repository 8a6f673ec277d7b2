// Package collector runs the per-cycle process sampling algorithm: host CPU
// delta, process enumeration, network totals, per-process metrics against the
// cached previous sample, cache eviction and truncation.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/ja7ad/procmetrics/pkg/netusage"
	"github.com/ja7ad/procmetrics/pkg/system/clock"
	"github.com/ja7ad/procmetrics/pkg/system/proc"
	"github.com/ja7ad/procmetrics/pkg/types"
	"github.com/ja7ad/procmetrics/pkg/usage"
)

// Enumerator lists live processes. The returned slice may be reused by the
// next call.
type Enumerator interface {
	Snapshot() ([]proc.Record, error)
}

// Introspector answers per-process queries that may fail for privilege
// reasons or because the process exited.
type Introspector interface {
	TaskInfo(pid int) (proc.TaskInfo, error)
	ResourceUsage(pid int) (usage.IOCounters, error)
	Identity(pid int) (proc.Identity, error)
}

// HostSampler reports seconds elapsed per core since its previous call.
type HostSampler interface {
	DeltaSeconds() (float64, bool)
	Cores() int
}

// NetworkSampler yields throttled per-PID network totals.
type NetworkSampler interface {
	SampleIfNeeded(ctx context.Context, now clock.Instant) netusage.Totals
}

// UserResolver maps uids to names.
type UserResolver interface {
	Name(ctx context.Context, uid uint32) string
}

// Deps are the collaborators of a Collector. Network may be nil, in which case
// every process is reported with NetworkUnavailable.
type Deps struct {
	Enumerator   Enumerator
	Introspector Introspector
	Host         HostSampler
	Network      NetworkSampler
	Users        UserResolver
	// Clock instants must count from boot; process age is derived from them.
	Clock clock.Source
	// Wall stamps snapshots; time.Now when nil.
	Wall func() time.Time
}

// Config holds host facts and policy.
type Config struct {
	TicksPerSecond int
	PageSize       int
	TotalMemory    uint64
	BootTime       time.Time
	// FallbackTTL bounds how long a last known-good CPU value may stand in for
	// missing data. Zero keeps it indefinitely.
	FallbackTTL time.Duration
}

// Collector is not safe for concurrent use; see Service.
type Collector struct {
	log  *slog.Logger
	cfg  Config
	deps Deps
	tb   clock.Timebase

	cache *pidCache
	cycle uint64
	// hostGap is set when a cycle advanced the host sampler without updating
	// the cached process counters.
	hostGap bool
}

func New(cfg Config, deps Deps) *Collector {
	if cfg.TicksPerSecond <= 0 {
		cfg.TicksPerSecond = 100
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 4096
	}
	if deps.Wall == nil {
		deps.Wall = time.Now
	}
	return &Collector{
		log:   slog.With("component", "collector.Collector"),
		cfg:   cfg,
		deps:  deps,
		tb:    deps.Clock.Timebase(),
		cache: newPIDCache(),
	}
}

// cycleState is shared by every process of one cycle.
type cycleState struct {
	now        clock.Instant
	hostDelta  float64
	hostOK     bool
	cores      int
	totals     netusage.Totals
	netEnabled bool
}

// Collect runs one sampling cycle. It never fails: enumeration failure yields
// an empty snapshot and leaves the cache untouched; per-process failures only
// degrade that process. When limit > 0 at most limit processes are returned,
// the busiest first.
func (c *Collector) Collect(ctx context.Context, limit int) types.Snapshot {
	now := c.deps.Clock.Now()
	hostDelta, hostOK := c.deps.Host.DeltaSeconds()

	records, err := c.deps.Enumerator.Snapshot()
	if err != nil {
		c.log.Warn("can't enumerate processes", "error", err)
		c.hostGap = true
		return types.Snapshot{At: c.deps.Wall()}
	}

	st := cycleState{
		now:       now,
		hostDelta: hostDelta,
		hostOK:    hostOK && !c.hostGap,
		cores:     max(c.deps.Host.Cores(), 1),
	}
	c.hostGap = false
	if c.deps.Network != nil {
		st.netEnabled = true
		st.totals = c.deps.Network.SampleIfNeeded(ctx, st.now)
	}

	c.cycle++
	out := make([]types.ProcessInfo, 0, len(records))
	for i := range records {
		r := &records[i]
		if r.PID <= 0 {
			continue
		}
		out = append(out, c.sample(ctx, r, &st))
	}

	if n := c.cache.evict(c.cycle); n > 0 {
		c.log.Debug("evicted exited processes", "count", n)
	}
	return types.Snapshot{At: c.deps.Wall(), Processes: Top(out, limit)}
}

func (c *Collector) sample(ctx context.Context, r *proc.Record, st *cycleState) types.ProcessInfo {
	pid := r.PID
	entry, fresh := c.cache.acquire(pid, r.StartTicks, c.cycle)

	elapsed := 0.0
	if !fresh {
		elapsed = c.tb.Elapsed(entry.at, st.now)
	}

	var flags types.Flags
	c.resolveIdentity(ctx, r, entry)

	// CPU time and memory
	task, taskErr := c.deps.Introspector.TaskInfo(pid)
	if taskErr != nil {
		flags |= types.PermissionDenied
		c.log.Debug("task info unavailable, using fallback", "pid", pid, "error", taskErr)
		task = c.fallbackTask(r, entry)
	}

	hifiOK := taskErr == nil && !fresh && entry.hasCPU && st.hostOK
	var hifi, coarse float64
	if hifiOK {
		hifi = usage.InstantCPUPercent(entry.cpuNs, task.CPUTimeNs, st.hostDelta, st.cores)
	}
	if !fresh {
		coarse = usage.CoarseCPUPercent(entry.ticks, r.Ticks(), c.cfg.TicksPerSecond, elapsed, st.cores)
	}
	cpu, src := usage.ResolveCPU(hifi, hifiOK, coarse, entry.lastGood, c.lastGoodValid(entry, st.now))
	if src != usage.SourceHiFi && (!fresh || taskErr != nil) {
		flags |= types.CPURestricted
	}
	if src == usage.SourceHiFi || src == usage.SourceCoarse {
		entry.lastGood, entry.lastGoodAt, entry.hasLastGood = cpu, st.now, true
	}

	cpuSeconds := float64(r.Ticks()) / float64(c.cfg.TicksPerSecond)
	if taskErr == nil {
		cpuSeconds = float64(task.CPUTimeNs) / 1e9
	}
	startSec := float64(r.StartTicks) / float64(c.cfg.TicksPerSecond)
	age := c.tb.Seconds(uint64(st.now)) - startSec

	// disk
	var disk usage.DiskRates
	ioCur, ioErr := c.deps.Introspector.ResourceUsage(pid)
	if ioErr != nil {
		flags |= types.PermissionDenied
		c.log.Debug("resource usage unavailable, using last rates", "pid", pid, "error", ioErr)
		disk = entry.disk
	} else {
		var prev *usage.IOCounters
		if entry.hasIO {
			prev = &entry.io
		}
		disk = usage.ComputeDiskRates(prev, ioCur, c.tb.Elapsed(entry.ioAt, st.now))
		entry.io, entry.ioAt, entry.hasIO, entry.disk = ioCur, st.now, true, disk
	}

	net, netUnavailable := c.networkRates(pid, entry, st)
	if netUnavailable {
		flags |= types.NetworkUnavailable
	}

	info := types.ProcessInfo{
		PID:                  pid,
		PPID:                 r.PPID,
		Name:                 entry.name,
		CmdLine:              entry.cmdline,
		Username:             entry.username,
		Cgroup:               entry.cgroup,
		State:                proc.StateName(r.State),
		CPUPercent:           cpu,
		CumulativeCPUPercent: usage.CumulativeCPUPercent(cpuSeconds, age),
		ResidentBytes:        types.ToBytes(task.ResidentBytes),
		MemoryPercent:        usage.MemoryPercent(task.ResidentBytes, c.cfg.TotalMemory),
		Threads:              task.Threads,
		NetInRate:            types.Rate(net.In),
		NetOutRate:           types.Rate(net.Out),
		DiskReadRate:         types.Rate(disk.Read),
		DiskWriteRate:        types.Rate(disk.Write),
		DiskLogicalWriteRate: types.Rate(disk.LogicalWrite),
		Flags:                flags,
	}
	if !c.cfg.BootTime.IsZero() {
		info.StartedAt = c.cfg.BootTime.Add(time.Duration(startSec * float64(time.Second)))
	}

	entry.at = st.now
	entry.ticks = r.Ticks()
	if taskErr == nil {
		entry.cpuNs, entry.hasCPU = task.CPUTimeNs, true
		entry.resident, entry.threads, entry.hasTask = task.ResidentBytes, task.Threads, true
	} else {
		// the next hi-fi delta would span more than one host delta
		entry.hasCPU = false
	}
	return info
}

// fallbackTask stands in for a failed TaskInfo: the last values the cache saw,
// or the record's own counters for a process never read successfully.
func (c *Collector) fallbackTask(r *proc.Record, entry *cachedProcess) proc.TaskInfo {
	if entry.hasTask {
		return proc.TaskInfo{ResidentBytes: entry.resident, Threads: entry.threads}
	}
	return proc.TaskInfo{
		ResidentBytes: r.RSSPages * uint64(c.cfg.PageSize),
		Threads:       r.Threads,
	}
}

func (c *Collector) lastGoodValid(entry *cachedProcess, now clock.Instant) bool {
	if !entry.hasLastGood {
		return false
	}
	if c.cfg.FallbackTTL <= 0 {
		return true
	}
	return c.tb.Elapsed(entry.lastGoodAt, now) <= c.cfg.FallbackTTL.Seconds()
}

// networkRates computes rates over the tool's own sampling interval. While the
// tool is throttled the totals keep their instant and the previous rates are
// carried forward. Stale totals carry the rates too but report unavailable.
func (c *Collector) networkRates(pid int, entry *cachedProcess, st *cycleState) (usage.NetRates, bool) {
	if !st.netEnabled {
		return usage.NetRates{}, true
	}
	cur := st.totals.Lookup(pid)
	if cur == nil {
		entry.hasNet = false
		return usage.NetRates{}, true
	}
	if entry.hasNet && entry.netAt == st.totals.At {
		return entry.netRates, st.totals.Stale
	}

	var prev *usage.Traffic
	if entry.hasNet {
		prev = &entry.net
	}
	rates, _ := usage.ComputeNetRates(prev, cur, c.tb.Elapsed(entry.netAt, st.totals.At))
	entry.net, entry.netAt, entry.netRates, entry.hasNet = *cur, st.totals.At, rates, true
	return rates, st.totals.Stale
}

// resolveIdentity fills name, command line, cgroup and username once per PID.
// Failures other than permission errors are retried next cycle; until then
// placeholders are used.
func (c *Collector) resolveIdentity(ctx context.Context, r *proc.Record, entry *cachedProcess) {
	if entry.username == "" {
		entry.username = c.deps.Users.Name(ctx, r.UID)
	}
	if entry.identityResolved {
		return
	}

	id, err := c.deps.Introspector.Identity(r.PID)
	if err == nil || errors.Is(err, proc.ErrPermission) {
		entry.identityResolved = true
	}
	if err != nil {
		c.log.Debug("identity incomplete", "pid", r.PID, "error", err)
	}

	comm := r.Name()
	entry.name = proc.ExecutableName(id.Executable)
	if entry.name == "" || entry.name == "." || entry.name == "/" {
		entry.name = comm
	}
	fallback := "[" + comm + "]"
	if id.Executable != "" {
		fallback = id.Executable
	}
	entry.cmdline = proc.JoinArgs(id.Args, fallback)
	entry.cgroup = id.Cgroup
}

// Top keeps the limit busiest processes, ties broken by PID. A limit of zero
// or one not below len(ps) returns ps unchanged. ps is reordered in place.
func Top(ps []types.ProcessInfo, limit int) []types.ProcessInfo {
	if limit <= 0 || len(ps) <= limit {
		return ps
	}
	slices.SortFunc(ps, func(a, b types.ProcessInfo) int {
		switch {
		case a.CPUPercent > b.CPUPercent:
			return -1
		case a.CPUPercent < b.CPUPercent:
			return 1
		default:
			return a.PID - b.PID
		}
	})
	return ps[:limit]
}
