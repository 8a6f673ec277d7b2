// Package hostcpu turns the host's aggregate CPU tick counters into elapsed
// seconds of available CPU time per core.
package hostcpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
)

// ErrNoCores indicates that the tick source had no cpu lines at all.
var ErrNoCores = errors.New("hostcpu: no per-core cpu lines")

// Sampler keeps the previous tick total between calls. It is not safe for
// concurrent use.
type Sampler struct {
	log          *slog.Logger
	path         string
	ticksPerSec  int
	defaultCores int

	prev    uint64
	hasPrev bool
	cores   int
}

// NewSampler reads <root>/stat. ticksPerSec is CLK_TCK; defaultCores is used
// when the source reports no per-core lines.
func NewSampler(root string, ticksPerSec, defaultCores int) *Sampler {
	if ticksPerSec <= 0 {
		ticksPerSec = 100
	}
	if defaultCores <= 0 {
		defaultCores = DefaultCores()
	}
	return &Sampler{
		log:          slog.With("component", "hostcpu.Sampler"),
		path:         filepath.Join(root, "stat"),
		ticksPerSec:  ticksPerSec,
		defaultCores: defaultCores,
		cores:        defaultCores,
	}
}

// DeltaSeconds returns the seconds elapsed per core since the previous call.
// It is not ok on the first call, when the counters went backwards, when
// nothing elapsed, or when the tick source could not be read.
func (s *Sampler) DeltaSeconds() (float64, bool) {
	total, cores, err := s.read()
	if err != nil {
		s.log.Warn("can't read host cpu ticks", "path", s.path, "error", err)
		return 0, false
	}
	return s.observe(total, cores)
}

// Cores is the core count seen on the last successful read.
func (s *Sampler) Cores() int { return s.cores }

// TicksPerSecond is the CLK_TCK the sampler divides by.
func (s *Sampler) TicksPerSecond() int { return s.ticksPerSec }

func (s *Sampler) observe(total uint64, cores int) (float64, bool) {
	if cores <= 0 {
		cores = s.defaultCores
	}
	s.cores = cores

	prev, had := s.prev, s.hasPrev
	s.prev, s.hasPrev = total, true

	if !had || total <= prev {
		return 0, false
	}
	return float64(total-prev) / (float64(s.ticksPerSec) * float64(cores)), true
}

func (s *Sampler) read() (uint64, int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		_ = f.Close()
	}()
	return ParseCoreTicks(f)
}

// ParseCoreTicks sums user+nice+system+idle over every "cpuN" line and
// returns the total and the number of such lines. When there are no per-core
// lines the aggregate "cpu" line is used and cores is 0.
func ParseCoreTicks(r io.Reader) (total uint64, cores int, err error) {
	var (
		aggregate    uint64
		hasAggregate bool
		sc           = bufio.NewScanner(r)
	)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "cpu") || len(line) < 4 {
			continue
		}
		perCore := line[3] >= '0' && line[3] <= '9'
		if !perCore && line[3] != ' ' {
			continue
		}
		sum, perr := sumTicks(line)
		if perr != nil {
			return 0, 0, perr
		}
		if perCore {
			total += sum
			cores++
		} else {
			aggregate, hasAggregate = sum, true
		}
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}
	switch {
	case cores > 0:
		return total, cores, nil
	case hasAggregate:
		return aggregate, 0, nil
	default:
		return 0, 0, ErrNoCores
	}
}

// sumTicks adds the user, nice, system and idle columns of a cpu line.
func sumTicks(line string) (uint64, error) {
	fs := strings.Fields(line)
	if len(fs) < 5 {
		return 0, fmt.Errorf("hostcpu: short line %q", line)
	}
	var sum uint64
	for _, f := range fs[1:5] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("hostcpu: parse %q: %w", line, err)
		}
		sum += v
	}
	return sum, nil
}

// DefaultCores is the logical core count, used when the tick source does not
// say.
func DefaultCores() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
