package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/BearBump/trackrecon/config"
	"github.com/BearBump/trackrecon/internal/services/reconcile"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type workerHTTPOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)

	scheduler *reconcile.Scheduler
	runner    syncRunner
	runs      runLister
	db        pinger
	cfg       *config.Config
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func newWorkerRouter(opts workerHTTPOpts) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.db.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		if opts.scheduler == nil || opts.runner == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scheduler not wired"})
			return
		}
		state, last := opts.runner.State()
		writeJSON(w, http.StatusOK, map[string]any{
			"scheduler": opts.scheduler.Stats(),
			"state":     state,
			"lastRun":   last,
		})
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		if opts.cfg == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "config not wired"})
			return
		}
		// Секреты не отдаём, только операционные настройки.
		s := opts.cfg.Sync
		codes := make([]string, 0, len(opts.cfg.Carriers))
		for _, c := range opts.cfg.Carriers {
			if !c.Disabled {
				codes = append(codes, c.Code)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"intervalSeconds":     s.IntervalSeconds,
			"batchSize":           s.BatchSize,
			"pageSize":            s.PageSize,
			"stalenessSeconds":    s.StalenessSeconds,
			"failureThreshold":    s.FailureThreshold,
			"fetchTimeoutSeconds": s.FetchTimeoutSeconds,
			"apiConcurrency":      s.APIConcurrency,
			"scrapeConcurrency":   s.ScrapeConcurrency,
			"live":                s.Live == nil || *s.Live,
			"fakeCarriers":        opts.cfg.Service.FakeCarriers,
			"carriers":            codes,
		})
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		if opts.scheduler == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scheduler not wired"})
			return
		}
		opts.scheduler.Trigger()
		writeJSON(w, http.StatusAccepted, map[string]bool{"triggered": true})
	})

	// POST /sync runs a pass synchronously; ?live=false selects the local heuristic.
	r.Post("/sync", func(w http.ResponseWriter, r *http.Request) {
		if opts.runner == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "runner not wired"})
			return
		}
		live := true
		if v := r.URL.Query().Get("live"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "live must be a boolean"})
				return
			}
			live = b
		}
		res, err := opts.runner.RunSync(r.Context(), reconcile.Mode{Live: live})
		switch {
		case errors.Is(err, reconcile.ErrSyncInProgress):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "result": res})
		default:
			writeJSON(w, http.StatusOK, res)
		}
	})

	r.Get("/runs", func(w http.ResponseWriter, r *http.Request) {
		if opts.runs == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store not wired"})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		runs, err := opts.runs.ListSyncRuns(r.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	})

	r.Handle("/metrics", promhttp.Handler())

	// no-cache + cachebuster, чтобы UI не держал старую схему
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, opts.swaggerPath)
	})
	swaggerURL := "/swagger.json"
	if fi, err := os.Stat(opts.swaggerPath); err == nil {
		swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	return r
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}
	if opts.swaggerPath == "" {
		return fmt.Errorf("worker swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("worker swagger file not found: %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newWorkerRouter(opts), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	err = srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
