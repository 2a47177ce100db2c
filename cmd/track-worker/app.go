package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/trackrecon/config"
	"github.com/BearBump/trackrecon/internal/app"
	"github.com/BearBump/trackrecon/internal/models"
	"github.com/BearBump/trackrecon/internal/services/reconcile"
	"golang.org/x/sync/errgroup"
)

type syncRunner interface {
	reconcile.Runner
	State() (string, *reconcile.SyncResult)
}

type runLister interface {
	ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type workerDeps struct {
	runner syncRunner
	runs   runLister
	db     pinger
	close  func()
}

type workerFactories struct {
	newDeps func(ctx context.Context, cfg *config.Config) (workerDeps, error)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newDeps: func(ctx context.Context, cfg *config.Config) (workerDeps, error) {
			d, err := app.Build(ctx, cfg)
			if err != nil {
				return workerDeps{}, err
			}
			return workerDeps{
				runner: d.Orchestrator,
				runs:   d.Store,
				db:     d.Store,
				close:  d.Close,
			}, nil
		},
	}
}

// RunTrackWorker runs the sync scheduler next to the worker HTTP surface until ctx is done.
func RunTrackWorker(ctx context.Context, cfg *config.Config, f workerFactories, httpOpts workerHTTPOpts) error {
	deps, err := f.newDeps(ctx, cfg)
	if err != nil {
		return err
	}
	if deps.close != nil {
		defer deps.close()
	}

	live := cfg.Sync.Live == nil || *cfg.Sync.Live
	sched := reconcile.NewScheduler(deps.runner, time.Duration(cfg.Sync.IntervalSeconds)*time.Second, reconcile.Mode{Live: live}).
		WithRunOnStart(cfg.Sync.RunOnStart)

	httpOpts.scheduler = sched
	httpOpts.runner = deps.runner
	httpOpts.runs = deps.runs
	httpOpts.db = deps.db
	httpOpts.cfg = cfg

	slog.Info("track-worker started",
		"interval", sched.Interval().String(),
		"mode", sched.Mode().String(),
		"run_on_start", cfg.Sync.RunOnStart,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		return runWorkerHTTPServer(gctx, httpOpts)
	})
	return g.Wait()
}
