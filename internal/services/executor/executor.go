package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/trackrecon/internal/cache"
	"github.com/BearBump/trackrecon/internal/integrations/carrier"
	"github.com/BearBump/trackrecon/internal/metrics"
	"github.com/BearBump/trackrecon/internal/models"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one shipment lookup. Exactly one of Payload/Err is
// meaningful; a nil Payload with nil Err never leaves the executor.
type Outcome struct {
	ShipmentID string
	Carrier    carrier.Code
	Strategy   carrier.Strategy
	Payload    *models.RawStatusPayload
	Err        *carrier.FetchError
	CheckedAt  time.Time

	classify func(*models.RawStatusPayload, models.OwnerType) string
}

func (o Outcome) OK() bool { return o.Err == nil }

// Canonical classifies the payload for the given owner; empty on failure.
func (o Outcome) Canonical(owner models.OwnerType) string {
	if o.Err != nil {
		return ""
	}
	if o.classify != nil {
		return o.classify(o.Payload, owner)
	}
	return carrier.Classify(o.Payload, owner)
}

type Executor struct {
	rl           cache.RateLimiter
	fetchTimeout time.Duration
	rlPause      time.Duration
	now          func() time.Time
}

func New(rl cache.RateLimiter, fetchTimeout time.Duration) *Executor {
	if fetchTimeout <= 0 {
		fetchTimeout = 15 * time.Second
	}
	return &Executor{
		rl:           rl,
		fetchTimeout: fetchTimeout,
		rlPause:      500 * time.Millisecond,
		// timestamptz хранит микросекунды, сверка повторов идёт по ним же.
		now:          func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// RunBatch fetches every id through the adapter with at most limit calls in flight.
// Outcomes are index-aligned with ids. One item's failure never touches another;
// items already started run to completion even if ctx is cancelled.
func (e *Executor) RunBatch(ctx context.Context, ids []string, a carrier.Adapter, limit int) []Outcome {
	out := make([]Outcome, len(ids))
	if len(ids) == 0 {
		return out
	}
	if limit <= 0 {
		limit = a.Limits().Concurrency
	}
	if limit <= 0 {
		limit = 1
	}

	fetchCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			out[i] = e.fetchOne(fetchCtx, a, id)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Executor) fetchOne(ctx context.Context, a carrier.Adapter, id string) Outcome {
	code, strategy := a.Code(), a.Strategy()
	e.throttle(ctx, a)

	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	started := time.Now()
	p, err := fetchSafe(ctx, a, id)
	metrics.FetchDuration.WithLabelValues(string(code), string(strategy)).Observe(time.Since(started).Seconds())

	o := Outcome{
		ShipmentID: id,
		Carrier:    code,
		Strategy:   strategy,
		CheckedAt:  e.now(),
		classify:   a.Classify,
	}
	switch {
	case err != nil:
		o.Err = carrier.AsFetchError(code, id, err)
	case p == nil:
		o.Err = carrier.NewNotFoundError(code, id)
	default:
		o.Payload = p
	}

	if o.Err == nil {
		metrics.FetchTotal.WithLabelValues(string(code), string(strategy), metrics.ResultOK).Inc()
		return o
	}

	metrics.FetchTotal.WithLabelValues(string(code), string(strategy), string(o.Err.Kind)).Inc()
	attrs := []any{"carrier", code, "shipment_id", id, "kind", o.Err.Kind, "error", o.Err.Error()}
	if o.Err.Kind == carrier.KindParse {
		attrs = append(attrs, "snippet", o.Err.Snippet)
	}
	slog.Warn("carrier fetch failed", attrs...)
	return o
}

// fetchSafe keeps a panicking adapter from taking down the whole batch.
func fetchSafe(ctx context.Context, a carrier.Adapter, id string) (p *models.RawStatusPayload, err error) {
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = carrier.NewParseError(a.Code(), id, nil, panicError{r})
		}
	}()
	return a.Fetch(ctx, id)
}

func (e *Executor) throttle(ctx context.Context, a carrier.Adapter) {
	limit := a.Limits().RateLimitPerMinute
	if e.rl == nil || limit <= 0 {
		return
	}
	key := cache.CarrierWindowKey(string(a.Code()), e.now())
	allowed, n, err := e.rl.Allow(ctx, key, limit, 70*time.Second)
	if err != nil {
		slog.Warn("rate limiter unavailable", "carrier", a.Code(), "error", err.Error())
		return
	}
	if !allowed {
		// Слишком много запросов в минуту: подождём немного, чтобы разгрузить источник.
		metrics.FetchTotal.WithLabelValues(string(a.Code()), string(a.Strategy()), metrics.ResultRateLimited).Inc()
		slog.Warn("rate limit exceeded", "carrier", a.Code(), "count", n)
		select {
		case <-time.After(e.rlPause):
		case <-ctx.Done():
		}
	}
}
