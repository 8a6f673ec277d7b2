package collector

import (
	"context"
	"time"

	"github.com/ja7ad/procmetrics/pkg/netusage"
	"github.com/ja7ad/procmetrics/pkg/system/clock"
	"github.com/ja7ad/procmetrics/pkg/system/proc"
	"github.com/ja7ad/procmetrics/pkg/types"
	"github.com/ja7ad/procmetrics/pkg/usage"
)

const sec = clock.Instant(time.Second)

func record(pid, ppid int, comm string, ticks, start uint64) proc.Record {
	r := proc.Record{PID: pid, PPID: ppid, State: 'S', UTime: ticks, StartTicks: start, Threads: 1, RSSPages: 10, UID: 1000}
	r.CommLen = uint8(copy(r.Comm[:], comm))
	return r
}

type fakeEnum struct {
	records []proc.Record
	err     error
	// during runs inside Snapshot, e.g. to let the clock move.
	during  func()
}

func (f *fakeEnum) Snapshot() ([]proc.Record, error) {
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeIntro struct {
	tasks   map[int]proc.TaskInfo
	taskErr map[int]error
	io      map[int]usage.IOCounters
	ioErr   map[int]error
	ids     map[int]proc.Identity
	idErr   map[int]error
	idCalls map[int]int
}

func newFakeIntro() *fakeIntro {
	return &fakeIntro{
		tasks:   map[int]proc.TaskInfo{},
		taskErr: map[int]error{},
		io:      map[int]usage.IOCounters{},
		ioErr:   map[int]error{},
		ids:     map[int]proc.Identity{},
		idErr:   map[int]error{},
		idCalls: map[int]int{},
	}
}

func (f *fakeIntro) TaskInfo(pid int) (proc.TaskInfo, error) {
	if err := f.taskErr[pid]; err != nil {
		return proc.TaskInfo{}, err
	}
	t, ok := f.tasks[pid]
	if !ok {
		return proc.TaskInfo{}, proc.ErrNoProcess
	}
	return t, nil
}

func (f *fakeIntro) ResourceUsage(pid int) (usage.IOCounters, error) {
	if err := f.ioErr[pid]; err != nil {
		return usage.IOCounters{}, err
	}
	io, ok := f.io[pid]
	if !ok {
		return usage.IOCounters{}, proc.ErrNoProcess
	}
	return io, nil
}

func (f *fakeIntro) Identity(pid int) (proc.Identity, error) {
	f.idCalls[pid]++
	return f.ids[pid], f.idErr[pid]
}

type hostReading struct {
	delta float64
	ok    bool
}

type fakeHost struct {
	readings []hostReading
	cores    int
}

func (f *fakeHost) DeltaSeconds() (float64, bool) {
	if len(f.readings) == 0 {
		return 0, false
	}
	r := f.readings[0]
	if len(f.readings) > 1 {
		f.readings = f.readings[1:]
	}
	return r.delta, r.ok
}

func (f *fakeHost) Cores() int { return f.cores }

type fakeNet struct {
	totals netusage.Totals
	calls  int
}

func (f *fakeNet) SampleIfNeeded(context.Context, clock.Instant) netusage.Totals {
	f.calls++
	return f.totals
}

type fakeUsers struct {
	calls int
}

func (f *fakeUsers) Name(_ context.Context, uid uint32) string {
	f.calls++
	if uid == 1000 {
		return "alice"
	}
	return "root"
}

type harness struct {
	now   clock.Instant
	enum  *fakeEnum
	intro *fakeIntro
	host  *fakeHost
	net   *fakeNet
	users *fakeUsers
	cfg   Config
	deps  Deps
	c     *Collector
}

var bootTime = time.Unix(1_700_000_000, 0)

func newHarness(cfg Config, withNet bool) *harness {
	h := &harness{
		now:   100 * sec,
		enum:  &fakeEnum{},
		intro: newFakeIntro(),
		host:  &fakeHost{cores: 1},
		users: &fakeUsers{},
	}
	if cfg.TicksPerSecond == 0 {
		cfg.TicksPerSecond = 100
	}
	if cfg.BootTime.IsZero() {
		cfg.BootTime = bootTime
	}
	deps := Deps{
		Enumerator:   h.enum,
		Introspector: h.intro,
		Host:         h.host,
		Users:        h.users,
		Clock:        clock.Func(func() clock.Instant { return h.now }),
		Wall:         func() time.Time { return bootTime.Add(time.Duration(h.now)) },
	}
	if withNet {
		h.net = &fakeNet{}
		deps.Network = h.net
	}
	h.cfg, h.deps = cfg, deps
	h.c = New(cfg, deps)
	return h
}

// useNetwork rebuilds the collector around n, dropping the cache.
func (h *harness) useNetwork(n NetworkSampler) {
	h.deps.Network = n
	h.c = New(h.cfg, h.deps)
}

func (h *harness) collect(limit int) map[int]types.ProcessInfo {
	snap := h.c.Collect(context.Background(), limit)
	out := make(map[int]types.ProcessInfo, len(snap.Processes))
	for _, p := range snap.Processes {
		out[p.PID] = p
	}
	return out
}
