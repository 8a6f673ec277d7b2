// Package prom exposes the latest collected snapshot as Prometheus metrics.
package prom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ja7ad/procmetrics/pkg/types"
)

const namespace = "procmetrics"

var processLabels = []string{"pid", "name", "username"}

type gauge struct {
	desc  *prometheus.Desc
	value func(p *types.ProcessInfo) float64
}

// Exporter is a prometheus.Collector over the most recent snapshot handed to
// Record. Exited processes disappear from the output on the next snapshot.
type Exporter struct {
	log *slog.Logger

	gauges    []gauge
	flagDesc  *prometheus.Desc
	procsDesc *prometheus.Desc
	atDesc    *prometheus.Desc
	totalDesc *prometheus.Desc

	mu     sync.RWMutex
	latest types.Snapshot
	total  uint64
}

func processDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "process", name), help, processLabels, nil)
}

func NewExporter() *Exporter {
	rate := func(r types.Rate) float64 { return float64(r) }
	return &Exporter{
		log: slog.With("component", "prom.Exporter"),
		gauges: []gauge{
			{processDesc("cpu_percent", "CPU usage over the last cycle, percent of one core."),
				func(p *types.ProcessInfo) float64 { return p.CPUPercent }},
			{processDesc("cumulative_cpu_percent", "CPU time over the process lifetime, percent of one core."),
				func(p *types.ProcessInfo) float64 { return p.CumulativeCPUPercent }},
			{processDesc("resident_bytes", "Resident memory size in bytes."),
				func(p *types.ProcessInfo) float64 { return float64(p.ResidentBytes) }},
			{processDesc("memory_percent", "Resident memory as percent of host memory."),
				func(p *types.ProcessInfo) float64 { return p.MemoryPercent }},
			{processDesc("threads", "Number of threads."),
				func(p *types.ProcessInfo) float64 { return float64(p.Threads) }},
			{processDesc("disk_read_bytes_per_second", "Bytes read from storage per second."),
				func(p *types.ProcessInfo) float64 { return rate(p.DiskReadRate) }},
			{processDesc("disk_write_bytes_per_second", "Bytes written to storage per second."),
				func(p *types.ProcessInfo) float64 { return rate(p.DiskWriteRate) }},
			{processDesc("disk_logical_write_bytes_per_second", "Bytes passed to write calls per second."),
				func(p *types.ProcessInfo) float64 { return rate(p.DiskLogicalWriteRate) }},
			{processDesc("network_receive_bytes_per_second", "Network bytes received per second."),
				func(p *types.ProcessInfo) float64 { return rate(p.NetInRate) }},
			{processDesc("network_transmit_bytes_per_second", "Network bytes sent per second."),
				func(p *types.ProcessInfo) float64 { return rate(p.NetOutRate) }},
		},
		flagDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "degraded"),
			"Set to 1 for every degradation flag raised on the process.",
			append(processLabels[:len(processLabels):len(processLabels)], "flag"),
			nil,
		),
		procsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "snapshot", "processes"),
			"Processes in the latest snapshot.", nil, nil,
		),
		atDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "snapshot", "timestamp_seconds"),
			"Capture time of the latest snapshot.", nil, nil,
		),
		totalDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "snapshots", "total"),
			"Snapshots recorded since start.", nil, nil,
		),
	}
}

// Record replaces the exported snapshot.
func (e *Exporter) Record(_ context.Context, snap types.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latest = snap
	e.total++
	return nil
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, g := range e.gauges {
		ch <- g.desc
	}
	ch <- e.flagDesc
	ch <- e.procsDesc
	ch <- e.atDesc
	ch <- e.totalDesc
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ch <- prometheus.MustNewConstMetric(e.totalDesc, prometheus.CounterValue, float64(e.total))
	if e.total == 0 {
		return
	}
	ch <- prometheus.MustNewConstMetric(e.procsDesc, prometheus.GaugeValue, float64(len(e.latest.Processes)))
	ch <- prometheus.MustNewConstMetric(e.atDesc, prometheus.GaugeValue, float64(e.latest.At.UnixNano())/1e9)

	for i := range e.latest.Processes {
		p := &e.latest.Processes[i]
		labels := []string{strconv.Itoa(p.PID), strings.ToValidUTF8(p.Name, "?"), strings.ToValidUTF8(p.Username, "?")}
		for _, g := range e.gauges {
			ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, g.value(p), labels...)
		}
		for _, f := range []types.Flags{types.CPURestricted, types.NetworkUnavailable, types.PermissionDenied} {
			if p.Flags.Has(f) {
				ch <- prometheus.MustNewConstMetric(e.flagDesc, prometheus.GaugeValue, 1, append(labels, f.String())...)
			}
		}
	}
}

// Handler serves the metrics gathered from reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Route is an extra handler served next to the metrics endpoint.
type Route struct {
	Path    string
	Handler http.Handler
}

// Serve exposes reg on port at path, plus any extra routes, until ctx is done.
func Serve(ctx context.Context, port int, path string, reg *prometheus.Registry, routes ...Route) error {
	log := slog.With("component", "prom.Serve", "port", port, "path", path)
	mux := http.NewServeMux()
	mux.Handle(path, Handler(reg))
	for _, r := range routes {
		mux.Handle(r.Path, r.Handler)
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("opening prometheus scrape endpoint")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("prometheus endpoint: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("error closing HTTP server", "error", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
