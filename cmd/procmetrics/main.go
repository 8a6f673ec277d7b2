//go:build linux

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ja7ad/procmetrics/pkg/collector"
	"github.com/ja7ad/procmetrics/pkg/config"
	"github.com/ja7ad/procmetrics/pkg/export/prom"
	"github.com/ja7ad/procmetrics/pkg/history"
	"github.com/ja7ad/procmetrics/pkg/system/cgroup"
	"github.com/ja7ad/procmetrics/pkg/types"
)

type opts struct {
	configPath string
	logLevel   string
	interval   time.Duration
	limit      int
	procRoot   string
	network    bool

	// sampling
	samples int
	warmup  int
	pretty  bool

	// outputs
	csvPath  string
	jsonPath string
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "procmetrics [PID|PID..PID]...",
		Short: "Per-process resource metrics for Linux",
		Long: `procmetrics samples every process on the host and reports CPU, memory,
disk and network usage per process, computed between consecutive cycles.
Rates are zero the first time a process is seen.

Examples:
  procmetrics -s 10 -i 1s -n 20
  procmetrics --csv out.csv --json out.json 1 12345 30000..30032
  procmetrics serve --config /etc/procmetrics.yaml`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, o, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.DurationVarP(&o.interval, "interval", "i", 0, "sampling interval (e.g. 1s, 500ms)")
	pf.IntVarP(&o.limit, "limit", "n", 0, "show at most this many processes, busiest first (0 = all)")
	pf.StringVar(&o.procRoot, "proc-root", "", "procfs mount point")
	pf.BoolVar(&o.network, "network", false, "enable per-process network accounting (requires network.command or PROCMETRICS_NETWORK_COMMAND)")

	root.Flags().IntVarP(&o.samples, "samples", "s", 5, "number of samples to show (0 = run until Ctrl-C)")
	root.Flags().IntVar(&o.warmup, "warmup", 1, "number of initial samples to skip, their rates are zero")
	root.Flags().BoolVar(&o.pretty, "pretty", true, "print a table for every sample")
	root.Flags().StringVar(&o.csvPath, "csv", "", "write per-process rows to CSV file")
	root.Flags().StringVar(&o.jsonPath, "json", "", "write snapshots to JSON file")

	root.AddCommand(&cobra.Command{
		Use:          "serve",
		Short:        "Collect periodically, expose Prometheus metrics and record history",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, o)
		},
	})

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the flags the user set.
func loadConfig(cmd *cobra.Command, o opts) (*config.Config, error) {
	var file io.Reader
	if o.configPath != "" {
		f, err := os.Open(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("opening configuration: %w", err)
		}
		defer f.Close()
		file = f
	}
	cfg, err := config.LoadConfig(file)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("interval") {
		cfg.Interval = o.interval
	}
	if flags.Changed("limit") {
		cfg.Limit = o.limit
	}
	if flags.Changed("proc-root") {
		cfg.ProcRoot = o.procRoot
	}
	if flags.Changed("network") {
		cfg.Network.Enabled = o.network
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lvl, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return cfg, nil
}

func newCollector(cfg *config.Config) (*collector.Collector, error) {
	return collector.NewSystem(collector.SystemOptions{
		ProcRoot:     cfg.ProcRoot,
		DefaultCores: cfg.DefaultCores,
		FallbackTTL:  cfg.FallbackTTL,
		Network:      cfg.Network.Sampler(),
	})
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func run(cmd *cobra.Command, o opts, args []string) error {
	pids, err := ParsePIDs(args)
	if err != nil {
		return err
	}
	if o.samples < 0 || o.warmup < 0 {
		return errors.New("samples and warmup can't be negative")
	}
	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}
	printHeader(os.Stdout, cfg)

	col, err := newCollector(cfg)
	if err != nil {
		return err
	}

	var (
		tbl  *table
		csvW *csvSink
		js   *jsonSink
	)
	if o.pretty {
		tbl = newTable(os.Stdout)
	}
	if o.csvPath != "" {
		f, err := createFile(o.csvPath)
		if err != nil {
			return fmt.Errorf("csv: %w", err)
		}
		defer f.Close()
		if csvW, err = newCSVSink(f); err != nil {
			return fmt.Errorf("csv: %w", err)
		}
	}
	if o.jsonPath != "" {
		f, err := createFile(o.jsonPath)
		if err != nil {
			return fmt.Errorf("json: %w", err)
		}
		defer f.Close()
		if js, err = newJSONSink(f); err != nil {
			return fmt.Errorf("json: %w", err)
		}
		defer func() {
			if err := js.close(); err != nil {
				slog.Warn("can't finish json output", "error", err)
			}
		}()
	}

	keep := pidFilter(pids)
	acc := history.NewAccumulator()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	cycles, shown := 0, 0
loop:
	for {
		snap := filterSnapshot(col.Collect(ctx, 0), keep)
		cycles++
		if len(pids) > 0 && len(snap.Processes) == 0 && !anyAlive(cfg.ProcRoot, pids) {
			fmt.Println("# All PIDs exited")
			break
		}

		// warmup cycles only prime the cache, their rates are zero
		if cycles > o.warmup {
			snap.Processes = collector.Top(snap.Processes, cfg.Limit)
			acc.Apply(snap)
			shown++

			if tbl != nil {
				if err := tbl.write(snap); err != nil {
					return err
				}
			}
			if csvW != nil {
				if err := csvW.write(snap); err != nil {
					slog.Warn("can't write csv", "error", err)
				}
			}
			if js != nil {
				if err := js.write(snap); err != nil {
					slog.Warn("can't write json", "error", err)
				}
			}
			if o.samples > 0 && shown >= o.samples {
				break
			}
		}

		select {
		case <-ctx.Done():
			slog.Info("interrupted")
			break loop
		case <-ticker.C:
		}
	}

	if shown == 0 {
		return nil
	}
	return newTable(os.Stdout).summary(acc.Totals(), shown, cfg.Interval)
}

func serve(cmd *cobra.Command, o opts) error {
	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}
	col, err := newCollector(cfg)
	if err != nil {
		return err
	}

	var (
		recorders []collector.Recorder
		routes    []prom.Route
	)
	reg := prometheus.NewRegistry()
	if cfg.Prometheus.Port > 0 {
		exp := prom.NewExporter()
		reg.MustRegister(exp)
		store := history.NewStore(cfg.History.Retention, cfg.History.MaxPoints)
		recorders = append(recorders, exp, store)
		routes = append(routes, prom.Route{Path: cfg.History.Path, Handler: history.Handler(store)})
	}
	if cfg.History.ParquetPath != "" {
		pq, err := history.NewParquetRecorder(cfg.History.ParquetPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := pq.Close(); err != nil {
				slog.Warn("can't close parquet history", "error", err)
			}
		}()
		recorders = append(recorders, pq)
		slog.Info("recording parquet history", "path", cfg.History.ParquetPath, "session", pq.Session())
	}

	svc := collector.NewService(col, collector.ServiceConfig{
		Interval:  cfg.Interval,
		Limit:     cfg.Limit,
		Recorders: recorders,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	if cfg.Prometheus.Port > 0 {
		g.Go(func() error { return prom.Serve(ctx, cfg.Prometheus.Port, cfg.Prometheus.Path, reg, routes...) })
	}
	slog.Info("procmetrics started", "interval", cfg.Interval, "limit", cfg.Limit,
		"network", cfg.Network.Enabled, "prometheus_port", cfg.Prometheus.Port)
	return g.Wait()
}

const _console = `procmetrics - Per-Process Resource Metrics

       Host: %s
       Kernel: %s
       CPUs: %d
       Mem: %s
       Cgroup: %s

Process report as of %s:

`

func printHeader(w io.Writer, cfg *config.Config) {
	hostname, kernel := "unknown", "unknown"
	if info, err := host.Info(); err == nil {
		hostname, kernel = info.Hostname, info.KernelVersion
	}
	cpus, _ := cpu.Counts(true)
	memory := "unknown"
	if vm, err := mem.VirtualMemory(); err == nil {
		memory = types.Bytes(vm.Total).Humanized()
	}
	cg := "unknown"
	if v, desc, err := cgroup.Detect(cfg.ProcRoot); err == nil {
		cg = v.String()
		if desc != "" {
			cg += " (" + desc + ")"
		}
	}
	fmt.Fprintf(w, _console, hostname, kernel, cpus, memory, cg, time.Now().Format("2006-01-02 15:04:05"))
}
