package history

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ja7ad/procmetrics/pkg/types"
)

// Totals summarises every observation of one process.
type Totals struct {
	PID     int
	Name    string
	Samples int

	AvgCPUPercent  float64
	PeakCPUPercent float64
	PeakResident   types.Bytes

	// Byte counts integrated from the rates over the observed intervals.
	DiskRead    types.Bytes
	DiskWritten types.Bytes
	NetIn       types.Bytes
	NetOut      types.Bytes
}

type running struct {
	name    string
	count   int
	sumCPU  float64
	peakCPU float64
	peakRSS types.Bytes

	read, written, in, out float64
}

// Accumulator keeps running averages and integrated byte counts per PID.
type Accumulator struct {
	mu    sync.Mutex
	last  time.Time
	byPID map[int]*running
}

func NewAccumulator() *Accumulator {
	return &Accumulator{byPID: make(map[int]*running)}
}

// Apply folds one snapshot in. Rates are integrated over the time since the
// previous snapshot, so the first snapshot contributes no bytes.
func (a *Accumulator) Apply(snap types.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var dt float64
	if !a.last.IsZero() && snap.At.After(a.last) {
		dt = snap.At.Sub(a.last).Seconds()
	}
	a.last = snap.At

	for _, p := range snap.Processes {
		r, ok := a.byPID[p.PID]
		if !ok {
			r = &running{}
			a.byPID[p.PID] = r
		}
		r.name = p.Name
		r.count++
		r.sumCPU += p.CPUPercent
		r.peakCPU = max(r.peakCPU, p.CPUPercent)
		r.peakRSS = max(r.peakRSS, p.ResidentBytes)

		r.read += float64(p.DiskReadRate) * dt
		r.written += float64(p.DiskWriteRate) * dt
		r.in += float64(p.NetInRate) * dt
		r.out += float64(p.NetOutRate) * dt
	}
}

// Record implements the collector recorder contract.
func (a *Accumulator) Record(_ context.Context, snap types.Snapshot) error {
	a.Apply(snap)
	return nil
}

// Totals returns one entry per PID seen, busiest on average first.
func (a *Accumulator) Totals() []Totals {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Totals, 0, len(a.byPID))
	for pid, r := range a.byPID {
		out = append(out, Totals{
			PID:            pid,
			Name:           r.name,
			Samples:        r.count,
			AvgCPUPercent:  r.sumCPU / float64(r.count),
			PeakCPUPercent: r.peakCPU,
			PeakResident:   r.peakRSS,
			DiskRead:       types.Bytes(r.read),
			DiskWritten:    types.Bytes(r.written),
			NetIn:          types.Bytes(r.in),
			NetOut:         types.Bytes(r.out),
		})
	}
	slices.SortFunc(out, func(x, y Totals) int {
		switch {
		case x.AvgCPUPercent > y.AvgCPUPercent:
			return -1
		case x.AvgCPUPercent < y.AvgCPUPercent:
			return 1
		default:
			return x.PID - y.PID
		}
	})
	return out
}
