package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/ja7ad/procmetrics/pkg/history"
	"github.com/ja7ad/procmetrics/pkg/types"
)

func filterSnapshot(snap types.Snapshot, keep func(int) bool) types.Snapshot {
	out := types.Snapshot{At: snap.At, Processes: make([]types.ProcessInfo, 0, len(snap.Processes))}
	for _, p := range snap.Processes {
		if keep(p.PID) {
			out.Processes = append(out.Processes, p)
		}
	}
	return out
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

type table struct {
	tw *tabwriter.Writer
}

func newTable(w io.Writer) *table {
	return &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (t *table) write(snap types.Snapshot) error {
	fmt.Fprintf(t.tw, "# %s, %d processes\n", snap.At.Format("2006-01-02 15:04:05"), len(snap.Processes))
	fmt.Fprintln(t.tw, "PID\tPPID\tUSER\tNAME\tCPU%\tCUM%\tRSS\tMEM%\tTHR\tREAD/s\tWRITE/s\tNET-IN/s\tNET-OUT/s\tFLAGS")
	for _, p := range snap.Processes {
		fmt.Fprintf(t.tw, "%d\t%d\t%s\t%s\t%.1f\t%.1f\t%s\t%.1f\t%d\t%s\t%s\t%s\t%s\t%s\n",
			p.PID, p.PPID, truncateText(p.Username, 12), truncateText(p.Name, 24),
			p.CPUPercent, p.CumulativeCPUPercent, p.ResidentBytes.Humanized(), p.MemoryPercent, p.Threads,
			p.DiskReadRate.Humanized(), p.DiskWriteRate.Humanized(),
			p.NetInRate.Humanized(), p.NetOutRate.Humanized(), p.Flags,
		)
	}
	fmt.Fprintln(t.tw)
	return t.tw.Flush()
}

func (t *table) summary(totals []history.Totals, samples int, interval time.Duration) error {
	fmt.Fprintf(t.tw, "procmetrics summary (over %d samples of ~%s):\n", samples, interval)
	fmt.Fprintln(t.tw, "PID\tNAME\tSAMPLES\tAVG CPU%\tPEAK CPU%\tPEAK RSS\tREAD\tWRITTEN\tNET IN\tNET OUT")
	for _, s := range totals {
		fmt.Fprintf(t.tw, "%d\t%s\t%d\t%.2f\t%.2f\t%s\t%s\t%s\t%s\t%s\n",
			s.PID, truncateText(s.Name, 24), s.Samples, s.AvgCPUPercent, s.PeakCPUPercent,
			s.PeakResident.Humanized(), s.DiskRead.Humanized(), s.DiskWritten.Humanized(),
			s.NetIn.Humanized(), s.NetOut.Humanized(),
		)
	}
	return t.tw.Flush()
}

var csvHeader = []string{
	"time", "pid", "ppid", "name", "username", "cgroup", "state", "cpu_percent",
	"cumulative_cpu_percent", "resident_bytes", "memory_percent", "threads",
	"disk_read_bps", "disk_write_bps", "disk_logical_write_bps", "net_in_bps", "net_out_bps", "flags",
}

type csvSink struct {
	w *csv.Writer
}

func newCSVSink(w io.Writer) (*csvSink, error) {
	s := &csvSink{w: csv.NewWriter(w)}
	if err := s.w.Write(csvHeader); err != nil {
		return nil, err
	}
	s.w.Flush()
	return s, s.w.Error()
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'f', 3, 64) }

func (s *csvSink) write(snap types.Snapshot) error {
	at := snap.At.Format(time.RFC3339)
	for _, p := range snap.Processes {
		err := s.w.Write([]string{
			at,
			strconv.Itoa(p.PID), strconv.Itoa(p.PPID), p.Name, p.Username, p.Cgroup, p.State,
			fmtFloat(p.CPUPercent), fmtFloat(p.CumulativeCPUPercent),
			strconv.FormatUint(p.ResidentBytes.Uint64(), 10), fmtFloat(p.MemoryPercent),
			strconv.Itoa(p.Threads),
			fmtFloat(float64(p.DiskReadRate)), fmtFloat(float64(p.DiskWriteRate)),
			fmtFloat(float64(p.DiskLogicalWriteRate)),
			fmtFloat(float64(p.NetInRate)), fmtFloat(float64(p.NetOutRate)),
			p.Flags.String(),
		})
		if err != nil {
			return err
		}
	}
	s.w.Flush()
	return s.w.Error()
}

// jsonSink streams snapshots as one JSON array.
type jsonSink struct {
	w io.Writer
	n int
}

func newJSONSink(w io.Writer) (*jsonSink, error) {
	_, err := io.WriteString(w, "[\n")
	return &jsonSink{w: w}, err
}

func (s *jsonSink) write(snap types.Snapshot) error {
	b, err := json.MarshalIndent(snap, "  ", "  ")
	if err != nil {
		return err
	}
	if s.n > 0 {
		if _, err := io.WriteString(s.w, ",\n"); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(s.w, "  "); err != nil {
		return err
	}
	s.n++
	_, err = s.w.Write(b)
	return err
}

func (s *jsonSink) close() error {
	_, err := io.WriteString(s.w, "\n]\n")
	return err
}
