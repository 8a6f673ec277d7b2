// Package netusage samples per-process network byte totals from an external
// accounting tool. Invocations are throttled and bounded by a timeout; on any
// failure the previous totals stay in effect.
package netusage

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/ja7ad/procmetrics/pkg/system/clock"
	"github.com/ja7ad/procmetrics/pkg/system/command"
	"github.com/ja7ad/procmetrics/pkg/usage"
)

// Totals are the cumulative byte counts of one successful invocation.
// ByPID is shared between callers until the next successful invocation and
// must not be modified.
type Totals struct {
	ByPID map[int]usage.Traffic
	// At is the monotonic instant of the invocation that produced ByPID.
	At    clock.Instant
	Valid bool
	// Stale is set while the most recent invocation failed; ByPID and At still
	// describe the last successful one.
	Stale bool
}

// Lookup returns the traffic for pid, or nil when the totals have no entry.
func (t Totals) Lookup(pid int) *usage.Traffic {
	if !t.Valid {
		return nil
	}
	tr, ok := t.ByPID[pid]
	if !ok {
		return nil
	}
	return &tr
}

// Sampler is not safe for concurrent use.
type Sampler struct {
	log *slog.Logger
	cfg Config
	run command.Runner
	tb  clock.Timebase

	attempted   bool
	lastAttempt clock.Instant
	totals      Totals
}

// New returns a Sampler. A nil run uses command.Run.
func New(cfg Config, run command.Runner, tb clock.Timebase) *Sampler {
	if run == nil {
		run = command.Run
	}
	return &Sampler{
		log: slog.With("component", "netusage.Sampler"),
		cfg: normalizeConfig(cfg),
		run: run,
		tb:  tb,
	}
}

// SampleIfNeeded runs the tool when at least Interval has passed since the
// last attempt, successful or not, and returns the current totals. Within the
// interval it returns the previous totals unchanged. A failed invocation keeps
// the previous totals but marks them Stale until the next success.
func (s *Sampler) SampleIfNeeded(ctx context.Context, now clock.Instant) Totals {
	if s.attempted && s.tb.Elapsed(s.lastAttempt, now) < s.cfg.Interval.Seconds() {
		return s.totals
	}
	s.attempted = true
	s.lastAttempt = now

	byPID, err := s.invoke(ctx)
	if err != nil {
		s.log.Warn("network accounting failed, keeping previous totals",
			"command", s.cfg.Command, "error", err)
		s.totals.Stale = true
		return s.totals
	}
	s.totals = Totals{ByPID: byPID, At: now, Valid: true}
	return s.totals
}

func (s *Sampler) invoke(ctx context.Context) (map[int]usage.Traffic, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	out, err := s.run(ctx, s.cfg.Command, s.cfg.Args...)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(out) {
		return nil, ErrNotUTF8
	}
	return Parse(out)
}
