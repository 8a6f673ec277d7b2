// Package usage turns raw per-process counters into normalized metrics.
// Every function is pure; callers supply the previous and current counters and
// the elapsed monotonic time between them.
package usage

import (
	"github.com/ja7ad/procmetrics/pkg/system/util"
)

// IOCounters are cumulative per-process storage counters in bytes.
type IOCounters struct {
	ReadBytes         uint64
	WriteBytes        uint64
	LogicalWriteBytes uint64
}

// Traffic is cumulative per-process network byte counts.
type Traffic struct {
	BytesIn  uint64
	BytesOut uint64
}

// DiskRates are bytes per second.
type DiskRates struct {
	Read         float64
	Write        float64
	LogicalWrite float64
}

// NetRates are bytes per second.
type NetRates struct {
	In  float64
	Out float64
}

// CPUSource tells where a resolved CPU percent came from.
type CPUSource uint8

const (
	SourceNone CPUSource = iota
	SourceHiFi
	SourceCoarse
	SourceLastGood
)

// InstantCPUPercent returns the share of one core used between two on-CPU
// nanosecond readings, given the host delta in seconds per core. The result is
// clamped to [0, 100*cores] and is 0 for non-finite inputs or a counter regression.
func InstantCPUPercent(prevNs, curNs uint64, hostDelta float64, cores int) float64 {
	if cores < 1 {
		cores = 1
	}
	if !(hostDelta > 0) || curNs < prevNs {
		return 0
	}
	sec := float64(curNs-prevNs) / 1e9
	return util.Clamp(sec/hostDelta*100, 0, 100*float64(cores))
}

// CoarseCPUPercent is the low-resolution fallback computed from scheduler ticks.
func CoarseCPUPercent(prevTicks, curTicks uint64, ticksPerSecond int, elapsed float64, cores int) float64 {
	if cores < 1 {
		cores = 1
	}
	if ticksPerSecond <= 0 || !(elapsed > 0) || curTicks < prevTicks {
		return 0
	}
	sec := float64(curTicks-prevTicks) / float64(ticksPerSecond)
	return util.Clamp(sec/elapsed*100, 0, 100*float64(cores))
}

// ResolveCPU picks the CPU percent to report. High-fidelity wins when available;
// otherwise the coarse value is used, and when that is not positive the last
// known-good value is reused rather than reporting a spurious zero.
func ResolveCPU(hifi float64, hifiOK bool, coarse, lastGood float64, hasLastGood bool) (float64, CPUSource) {
	switch {
	case hifiOK:
		return util.Finite(hifi), SourceHiFi
	case coarse > 0:
		return util.Finite(coarse), SourceCoarse
	case hasLastGood:
		return util.Finite(lastGood), SourceLastGood
	default:
		return 0, SourceNone
	}
}

// CumulativeCPUPercent is total CPU time over the process lifetime, as a percent
// of one core. It is 0 when age is not positive.
func CumulativeCPUPercent(totalCPUSeconds, ageSeconds float64) float64 {
	if !(ageSeconds > 0) || totalCPUSeconds < 0 {
		return 0
	}
	return util.Finite(totalCPUSeconds / ageSeconds * 100)
}

// MemoryPercent is resident over total, in percent.
func MemoryPercent(resident, total uint64) float64 {
	return util.Clamp(util.SafeDiv(float64(resident), float64(total))*100, 0, 100)
}

// ComputeDiskRates returns per-field max(0, cur-prev)/elapsed. Without a previous sample
// or a positive elapsed time every rate is 0.
func ComputeDiskRates(prev *IOCounters, cur IOCounters, elapsed float64) DiskRates {
	if prev == nil || !(elapsed > 0) {
		return DiskRates{}
	}
	return DiskRates{
		Read:         rate(prev.ReadBytes, cur.ReadBytes, elapsed),
		Write:        rate(prev.WriteBytes, cur.WriteBytes, elapsed),
		LogicalWrite: rate(prev.LogicalWriteBytes, cur.LogicalWriteBytes, elapsed),
	}
}

// ComputeNetRates is the network twin of ComputeDiskRates. A nil cur means the
// process had no network entry, reported through unavailable.
func ComputeNetRates(prev, cur *Traffic, elapsed float64) (rates NetRates, unavailable bool) {
	if cur == nil {
		return NetRates{}, true
	}
	if prev == nil || !(elapsed > 0) {
		return NetRates{}, false
	}
	return NetRates{
		In:  rate(prev.BytesIn, cur.BytesIn, elapsed),
		Out: rate(prev.BytesOut, cur.BytesOut, elapsed),
	}, false
}

func rate(prev, cur uint64, elapsed float64) float64 {
	return util.Finite(util.SafeDiv(float64(util.DeltaU64(cur, prev)), elapsed))
}
