package netusage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/procmetrics/pkg/system/clock"
	"github.com/ja7ad/procmetrics/pkg/usage"
)

const sec = clock.Instant(time.Second)

type fakeRunner struct {
	calls   int
	outputs []string
	errs    []error
	name    string
	args    []string
	ctxErr  error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	i := f.calls
	f.calls++
	f.name, f.args = name, args
	if _, ok := ctx.Deadline(); !ok {
		f.ctxErr = errors.New("no deadline")
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.outputs) {
		return []byte(f.outputs[i]), nil
	}
	return nil, errors.New("no more outputs")
}

func TestNormalizeConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := normalizeConfig(Config{})
		assert.Equal(t, "nettop", cfg.Command)
		assert.Equal(t, defaultArgs, cfg.Args)
		assert.Equal(t, 5*time.Second, cfg.Interval)
		assert.Equal(t, 3*time.Second, cfg.Timeout)
	})
	t.Run("custom_command_keeps_args", func(t *testing.T) {
		args := []string{"--csv"}
		cfg := normalizeConfig(Config{Command: "/usr/local/bin/netacct", Args: args, Interval: time.Second})
		assert.Equal(t, "/usr/local/bin/netacct", cfg.Command)
		assert.Equal(t, []string{"--csv"}, cfg.Args)
		args[0] = "mutated"
		assert.Equal(t, "--csv", cfg.Args[0])
		assert.Equal(t, time.Second, cfg.Interval)
	})
}

func TestSampler_Throttle(t *testing.T) {
	r := &fakeRunner{outputs: []string{
		"pid,bytes_in,bytes_out\n10,100,200\n",
		"pid,bytes_in,bytes_out\n10,600,700\n",
	}}
	s := New(Config{Command: "acct", Interval: 5 * time.Second}, r.run, clock.Nanosecond)
	ctx := context.Background()

	first := s.SampleIfNeeded(ctx, 10*sec)
	require.True(t, first.Valid)
	assert.Equal(t, 10*sec, first.At)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, "acct", r.name)
	assert.NoError(t, r.ctxErr)

	t.Run("within_interval_same_map", func(t *testing.T) {
		again := s.SampleIfNeeded(ctx, 14*sec)
		assert.Equal(t, 1, r.calls)
		assert.Equal(t, first.At, again.At)
		again.ByPID[99] = usage.Traffic{}
		assert.Contains(t, first.ByPID, 99, "throttled calls return the same map")
		delete(first.ByPID, 99)
	})
	t.Run("after_interval", func(t *testing.T) {
		next := s.SampleIfNeeded(ctx, 15*sec)
		assert.Equal(t, 2, r.calls)
		assert.Equal(t, 15*sec, next.At)
		assert.Equal(t, usage.Traffic{BytesIn: 600, BytesOut: 700}, next.ByPID[10])
	})
	t.Run("clock_going_backwards_is_throttled", func(t *testing.T) {
		s.SampleIfNeeded(ctx, 1*sec)
		assert.Equal(t, 2, r.calls)
	})
}

func TestSampler_FailureKeepsPrevious(t *testing.T) {
	r := &fakeRunner{
		outputs: []string{"pid,bytes_in,bytes_out\n10,1,2\n", "", "garbage without columns\n", "\xff\xfe,bytes_in\n"},
		errs:    []error{nil, context.DeadlineExceeded},
	}
	s := New(Config{Command: "acct", Interval: time.Second}, r.run, clock.Nanosecond)
	ctx := context.Background()

	good := s.SampleIfNeeded(ctx, 1*sec)
	require.True(t, good.Valid)
	assert.False(t, good.Stale)

	for i, at := range []clock.Instant{3 * sec, 5 * sec, 7 * sec} {
		got := s.SampleIfNeeded(ctx, at)
		assert.Equal(t, good.At, got.At, "attempt %d", i)
		assert.Equal(t, good.ByPID, got.ByPID, "attempt %d", i)
		assert.True(t, got.Stale, "attempt %d", i)
	}
	assert.Equal(t, 4, r.calls)

	t.Run("failed_attempt_still_throttles", func(t *testing.T) {
		got := s.SampleIfNeeded(ctx, 7*sec+clock.Instant(500*time.Millisecond))
		assert.Equal(t, 4, r.calls)
		assert.True(t, got.Stale)
	})
}

func TestSampler_RecoversFromFailure(t *testing.T) {
	r := &fakeRunner{
		outputs: []string{"pid,bytes_in,bytes_out\n10,1,2\n", "", "pid,bytes_in,bytes_out\n10,5,6\n"},
		errs:    []error{nil, errors.New("tool crashed")},
	}
	s := New(Config{Command: "acct", Interval: time.Second}, r.run, clock.Nanosecond)
	ctx := context.Background()

	s.SampleIfNeeded(ctx, 1*sec)
	require.True(t, s.SampleIfNeeded(ctx, 2*sec).Stale)

	got := s.SampleIfNeeded(ctx, 3*sec)
	assert.False(t, got.Stale)
	assert.Equal(t, 3*sec, got.At)
	assert.Equal(t, usage.Traffic{BytesIn: 5, BytesOut: 6}, got.ByPID[10])
}

func TestSampler_NeverSucceeded(t *testing.T) {
	r := &fakeRunner{errs: []error{errors.New("exec: not found")}}
	s := New(Config{Command: "missing"}, r.run, clock.Nanosecond)
	got := s.SampleIfNeeded(context.Background(), sec)
	assert.False(t, got.Valid)
	assert.Nil(t, got.Lookup(10))
}

func TestTotals_Lookup(t *testing.T) {
	tot := Totals{ByPID: map[int]usage.Traffic{5: {BytesIn: 1, BytesOut: 2}}, Valid: true}
	require.NotNil(t, tot.Lookup(5))
	assert.Equal(t, uint64(2), tot.Lookup(5).BytesOut)
	assert.Nil(t, tot.Lookup(6))
}
