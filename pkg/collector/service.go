package collector

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ja7ad/procmetrics/pkg/types"
)

// Recorder consumes the snapshots of periodic cycles.
type Recorder interface {
	Record(ctx context.Context, snap types.Snapshot) error
}

// ServiceConfig drives the periodic cycles of a Service.
type ServiceConfig struct {
	// Interval between periodic cycles; zero disables them and the service only
	// answers Snapshot calls.
	Interval time.Duration
	// Limit applied to periodic cycles.
	Limit     int
	Recorders []Recorder
}

type request struct {
	limit int
	reply chan types.Snapshot
}

// Service serializes every cycle of a Collector on the goroutine running Run.
// Concurrent callers use Snapshot; periodic snapshots go to the recorders.
type Service struct {
	log  *slog.Logger
	c    *Collector
	cfg  ServiceConfig
	reqs chan request

	running atomic.Bool
	done    chan struct{}
}

func NewService(c *Collector, cfg ServiceConfig) *Service {
	return &Service{
		log:  slog.With("component", "collector.Service"),
		c:    c,
		cfg:  cfg,
		reqs: make(chan request),
		done: make(chan struct{}),
	}
}

// Run serves cycles until ctx is done. It may only be called once.
func (s *Service) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("collector: service already running")
	}
	defer close(s.done)

	var tick <-chan time.Time
	if s.cfg.Interval > 0 {
		t := time.NewTicker(s.cfg.Interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("exiting collector service")
			return nil
		case req := <-s.reqs:
			req.reply <- s.c.Collect(ctx, req.limit)
		case <-tick:
			s.publish(ctx, s.c.Collect(ctx, s.cfg.Limit))
		}
	}
}

// Snapshot runs one cycle on the service goroutine and returns its result. It
// blocks until the cycle completes, ctx is done, or the service has stopped.
func (s *Service) Snapshot(ctx context.Context, limit int) (types.Snapshot, error) {
	req := request{limit: limit, reply: make(chan types.Snapshot, 1)}
	select {
	case s.reqs <- req:
	case <-s.done:
		return types.Snapshot{}, ErrStopped
	case <-ctx.Done():
		return types.Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-ctx.Done():
		return types.Snapshot{}, ctx.Err()
	}
}

func (s *Service) publish(ctx context.Context, snap types.Snapshot) {
	for _, r := range s.cfg.Recorders {
		if err := r.Record(ctx, snap); err != nil {
			s.log.Warn("recorder failed", "error", err)
		}
	}
}
