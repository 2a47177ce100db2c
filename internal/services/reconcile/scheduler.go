package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/trackrecon/internal/metrics"
	"github.com/pkg/errors"
)

type Runner interface {
	RunSync(ctx context.Context, mode Mode) (SyncResult, error)
}

// Scheduler repeats sync passes on a fixed interval. A tick that lands while a pass
// is still running is skipped, never queued.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	mode     Mode
	runFirst bool

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastRunUnixNano     atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalRuns           atomic.Int64
	totalSkipped        atomic.Int64
	totalErrors         atomic.Int64
	totalUpdated        atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func NewScheduler(runner Runner, interval time.Duration, mode Mode) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		runner:            runner,
		interval:          interval,
		mode:              mode,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

// WithRunOnStart makes Run start a pass immediately instead of waiting one interval.
func (s *Scheduler) WithRunOnStart(v bool) *Scheduler {
	s.runFirst = v
	return s
}

func (s *Scheduler) Interval() time.Duration { return s.interval }
func (s *Scheduler) Mode() Mode              { return s.mode }

// Trigger forces an immediate pass (best-effort, non-blocking).
func (s *Scheduler) Trigger() {
	s.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	Interval      string     `json:"interval"`
	Mode          string     `json:"mode"`
	LastRunAt     *time.Time `json:"lastRunAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	TotalRuns     int64      `json:"totalRuns"`
	TotalSkipped  int64      `json:"totalSkipped"`
	TotalErrors   int64      `json:"totalErrors"`
	TotalUpdated  int64      `json:"totalUpdated"`
	LastError     string     `json:"lastError,omitempty"`
}

func (s *Scheduler) Stats() Stats {
	st := Stats{
		StartedAt:    time.Unix(0, s.startedAtUnixNano).UTC(),
		Interval:     s.interval.String(),
		Mode:         s.mode.String(),
		TotalRuns:    s.totalRuns.Load(),
		TotalSkipped: s.totalSkipped.Load(),
		TotalErrors:  s.totalErrors.Load(),
		TotalUpdated: s.totalUpdated.Load(),
	}
	if n := s.lastRunUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastRunAt = &t
	}
	if n := s.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	s.lastErrorMu.Lock()
	st.LastError = s.lastError
	s.lastErrorMu.Unlock()
	return st
}

func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	if s.runFirst {
		s.runOnce(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.runOnce(ctx)
		case <-s.triggerCh:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.lastRunUnixNano.Store(time.Now().UTC().UnixNano())

	res, err := s.runner.RunSync(ctx, s.mode)
	if errors.Is(err, ErrSyncInProgress) {
		s.totalSkipped.Add(1)
		metrics.SyncSkippedTotal.Inc()
		slog.Info("scheduled sync skipped: previous run still in progress")
		return
	}
	s.totalRuns.Add(1)
	s.totalUpdated.Add(int64(res.UpdatedCount))
	if err != nil {
		s.totalErrors.Add(1)
		s.lastErrorMu.Lock()
		s.lastError = err.Error()
		s.lastErrorMu.Unlock()
		if ctx.Err() == nil {
			slog.Error("scheduled sync failed", "run_id", res.RunID, "error", err.Error())
		}
	}
}
