//go:build linux

package collector

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ja7ad/procmetrics/pkg/netusage"
	"github.com/ja7ad/procmetrics/pkg/system/clock"
	"github.com/ja7ad/procmetrics/pkg/system/command"
	"github.com/ja7ad/procmetrics/pkg/system/hostcpu"
	"github.com/ja7ad/procmetrics/pkg/system/proc"
)

// SystemOptions configure a Collector over the live host.
type SystemOptions struct {
	ProcRoot     string
	DefaultCores int
	FallbackTTL  time.Duration
	// Network enables per-process network accounting when non-nil.
	Network *netusage.Config
	// Run executes helper tools; command.Run when nil.
	Run command.Runner
}

// NewSystem wires a Collector to procfs, the boot clock and the host facts
// reported by gopsutil.
func NewSystem(opts SystemOptions) (*Collector, error) {
	root := opts.ProcRoot
	if root == "" {
		root = proc.DefaultRoot
	}
	if opts.Run == nil {
		opts.Run = command.Run
	}
	log := slog.With("component", "collector.Collector")

	intro, err := proc.NewIntrospector(root)
	if err != nil {
		return nil, fmt.Errorf("collector: %w", err)
	}

	var total uint64
	if vm, err := mem.VirtualMemory(); err != nil {
		log.Warn("can't read total memory, memory percent disabled", "error", err)
	} else {
		total = vm.Total
	}
	boot, err := clock.BootTime()
	if err != nil {
		log.Warn("can't read boot time, start times disabled", "error", err)
	}

	src := clock.Boot{}
	tps := proc.ClockTicks()
	deps := Deps{
		Enumerator:   proc.NewEnumerator(root),
		Introspector: intro,
		Host:         hostcpu.NewSampler(root, tps, opts.DefaultCores),
		Users:        proc.NewUserResolver(0, opts.Run),
		Clock:        src,
	}
	if opts.Network != nil {
		deps.Network = netusage.New(*opts.Network, opts.Run, src.Timebase())
	}

	return New(Config{
		TicksPerSecond: tps,
		PageSize:       proc.PageSize(),
		TotalMemory:    total,
		BootTime:       boot,
		FallbackTTL:    opts.FallbackTTL,
	}, deps), nil
}
