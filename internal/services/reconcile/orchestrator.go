package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/trackrecon/internal/cache"
	"github.com/BearBump/trackrecon/internal/integrations/carrier"
	"github.com/BearBump/trackrecon/internal/metrics"
	"github.com/BearBump/trackrecon/internal/models"
	"github.com/BearBump/trackrecon/internal/services/executor"
	"github.com/BearBump/trackrecon/internal/services/updater"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrSyncInProgress = errors.New("sync already in progress")

const lockKey = "lock:reconcile:sync"

type Store interface {
	ListShipmentPage(ctx context.Context, owner models.OwnerType, afterID string, f models.ShipmentFilter) ([]models.ShipmentRecord, error)
	FindByShipment(ctx context.Context, shipmentID string) ([]*models.TrackingState, error)
	CreateSyncRun(ctx context.Context, run models.SyncRun) error
	FinishSyncRun(ctx context.Context, run models.SyncRun) error
}

type Resolver interface {
	Resolve(text string) (carrier.Adapter, bool)
}

type Fetcher interface {
	RunBatch(ctx context.Context, ids []string, a carrier.Adapter, limit int) []executor.Outcome
}

type Applier interface {
	Apply(ctx context.Context, owner models.OwnerRef, o executor.Outcome) (updater.Result, error)
	ApplyUnresolved(ctx context.Context, ref models.ShipmentRef) (updater.Result, error)
	ApplyLocal(ctx context.Context, st *models.TrackingState, status string) (updater.Result, error)
	RecordPartner(ctx context.Context, owner models.OwnerRef, o executor.Outcome) (*models.TrackingState, error)
}

type Config struct {
	BatchSize int
	PageSize  int
	Staleness time.Duration
	LockTTL   time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.PageSize <= 0 {
		c.PageSize = 500
	}
	if c.Staleness <= 0 {
		c.Staleness = time.Hour
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Minute
	}
	return c
}

type Mode struct {
	Live bool
}

func (m Mode) String() string {
	if m.Live {
		return "live"
	}
	return "local"
}

type SyncResult struct {
	RunID        string `json:"runId"`
	Mode         string `json:"mode"`
	UpdatedCount int    `json:"updatedCount"`
	Processed    int    `json:"processed"`
	Failed       int    `json:"failed"`
	Unresolved   int    `json:"unresolved"`
}

type VerifyResult struct {
	ShipmentID       string                  `json:"shipmentId"`
	Carrier          string                  `json:"carrier"`
	SystemStatus     string                  `json:"systemStatus"`
	PartnerStatus    string                  `json:"partnerStatus"`
	PartnerStatusRaw string                  `json:"partnerStatusRaw"`
	Matched          bool                    `json:"matched"`
	Records          []*models.TrackingState `json:"records"`
}

// Orchestrator runs reconciliation passes over orders and returns. At most one pass
// runs at a time per process, and across processes when a Locker is configured.
type Orchestrator struct {
	store    Store
	resolver Resolver
	exec     Fetcher
	upd      Applier
	locker   cache.Locker
	cfg      Config
	now      func() time.Time

	running atomic.Bool
	mu      sync.Mutex
	state   string
	last    *SyncResult
}

func New(store Store, resolver Resolver, exec Fetcher, upd Applier, locker cache.Locker, cfg Config) *Orchestrator {
	return &Orchestrator{
		store:    store,
		resolver: resolver,
		exec:     exec,
		upd:      upd,
		locker:   locker,
		cfg:      cfg.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
		state:    models.SyncStateIdle,
	}
}

// State reports Idle/Running/Completed/Failed of the latest pass.
func (o *Orchestrator) State() (string, *SyncResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.last
}

func (o *Orchestrator) setState(state string, res *SyncResult) {
	o.mu.Lock()
	o.state = state
	if res != nil {
		r := *res
		o.last = &r
	}
	o.mu.Unlock()
}

// RunSync streams every eligible record once. Per-item failures are recorded on the
// records; only store failures and cancellation fail the run.
func (o *Orchestrator) RunSync(ctx context.Context, mode Mode) (SyncResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		return SyncResult{}, ErrSyncInProgress
	}
	defer o.running.Store(false)

	runID := uuid.NewString()
	if o.locker != nil {
		ok, err := o.locker.TryLock(ctx, lockKey, runID, o.cfg.LockTTL)
		if err != nil {
			return SyncResult{}, errors.Wrap(err, "acquire sync lock")
		}
		if !ok {
			return SyncResult{}, ErrSyncInProgress
		}
		defer func() {
			if err := o.locker.Release(context.WithoutCancel(ctx), lockKey, runID); err != nil {
				slog.Warn("release sync lock", "run_id", runID, "error", err.Error())
			}
		}()
	}

	run := models.SyncRun{ID: runID, Mode: mode.String(), State: models.SyncStateRunning, StartedAt: o.now()}
	res := SyncResult{RunID: runID, Mode: run.Mode}
	o.setState(models.SyncStateRunning, nil)
	if err := o.store.CreateSyncRun(ctx, run); err != nil {
		o.setState(models.SyncStateFailed, &res)
		metrics.SyncRunsTotal.WithLabelValues(run.Mode, models.SyncStateFailed).Inc()
		return res, errors.Wrap(err, "create sync run")
	}
	slog.Info("sync started", "run_id", runID, "mode", run.Mode)

	p := &pass{o: o, mode: mode, res: &res, groups: map[carrier.Code]*group{}}
	runErr := p.run(ctx)

	finished := o.now()
	run.FinishedAt = &finished
	run.Processed, run.Updated, run.Failed, run.Unresolved = res.Processed, res.UpdatedCount, res.Failed, res.Unresolved
	run.State = models.SyncStateCompleted
	if runErr != nil {
		run.State = models.SyncStateFailed
		e := runErr.Error()
		run.Error = &e
	}
	if err := o.store.FinishSyncRun(context.WithoutCancel(ctx), run); err != nil {
		slog.Error("finish sync run", "run_id", runID, "error", err.Error())
	}

	o.setState(run.State, &res)
	metrics.SyncRunsTotal.WithLabelValues(run.Mode, run.State).Inc()
	metrics.SyncUpdatedTotal.Add(float64(res.UpdatedCount))
	slog.Info("sync finished",
		"run_id", runID,
		"mode", run.Mode,
		"state", run.State,
		"processed", res.Processed,
		"updated", res.UpdatedCount,
		"failed", res.Failed,
		"unresolved", res.Unresolved,
	)
	return res, runErr
}

// group collects AWBs of one carrier until a batch is full.
type group struct {
	adapter carrier.Adapter
	ids     []string
	owners  map[string][]models.OwnerRef
}

type pass struct {
	o      *Orchestrator
	mode   Mode
	res    *SyncResult
	groups map[carrier.Code]*group
}

func (p *pass) run(ctx context.Context) error {
	now := p.o.now()
	filter := models.ShipmentFilter{
		Limit:       p.o.cfg.PageSize,
		DueOnly:     p.mode.Live,
		Now:         now,
		StaleBefore: now.Add(-p.o.cfg.Staleness),
	}

	for _, owner := range []models.OwnerType{models.OwnerOrder, models.OwnerReturn} {
		after := ""
		for {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "sync cancelled")
			}
			page, err := p.o.store.ListShipmentPage(ctx, owner, after, filter)
			if err != nil {
				return errors.Wrapf(err, "list %s page", owner)
			}
			if len(page) == 0 {
				break
			}
			for i := range page {
				if err := p.handle(ctx, page[i]); err != nil {
					return err
				}
			}
			after = page[len(page)-1].State.Owner.ID
			if len(page) < filter.Limit {
				break
			}
		}
	}

	// хвосты неполных батчей
	for _, g := range p.groups {
		if len(g.ids) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "sync cancelled")
		}
		if err := p.flush(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) handle(ctx context.Context, rec models.ShipmentRecord) error {
	if rec.State.ShipmentID == "" {
		return nil
	}
	p.res.Processed++

	if !p.mode.Live {
		res, err := p.o.upd.ApplyLocal(ctx, &rec.State, LocalStatus(rec))
		if err != nil {
			p.res.Failed++
			slog.Error("apply local status", "owner", rec.State.Owner.String(), "error", err.Error())
			return nil
		}
		if res.StatusChanged {
			p.res.UpdatedCount++
		}
		return nil
	}

	adapter, ok := p.o.resolver.Resolve(rec.State.CarrierText)
	if !ok {
		p.res.Unresolved++
		slog.Warn("carrier unresolved", "owner", rec.State.Owner.String(), "carrier_text", rec.State.CarrierText)
		if _, err := p.o.upd.ApplyUnresolved(ctx, rec.Ref()); err != nil {
			slog.Error("apply unresolved", "owner", rec.State.Owner.String(), "error", err.Error())
		}
		return nil
	}

	code := adapter.Code()
	g, ok := p.groups[code]
	if !ok {
		g = &group{adapter: adapter, owners: map[string][]models.OwnerRef{}}
		p.groups[code] = g
	}
	awb := rec.State.ShipmentID
	if _, seen := g.owners[awb]; !seen {
		g.ids = append(g.ids, awb)
	}
	g.owners[awb] = append(g.owners[awb], rec.State.Owner)

	if len(g.ids) >= p.o.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "sync cancelled")
		}
		if err := p.flush(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

// flush fetches one batch and applies every outcome. Fetches that started finish
// after cancellation, so their results are persisted under a detached context and
// the cancellation is reported afterwards.
func (p *pass) flush(ctx context.Context, g *group) error {
	outcomes := p.o.exec.RunBatch(ctx, g.ids, g.adapter, g.adapter.Limits().Concurrency)
	applyCtx := context.WithoutCancel(ctx)
	for _, out := range outcomes {
		for _, owner := range g.owners[out.ShipmentID] {
			res, err := p.o.upd.Apply(applyCtx, owner, out)
			switch {
			case err != nil:
				p.res.Failed++
				slog.Error("apply outcome", "owner", owner.String(), "shipment_id", out.ShipmentID, "error", err.Error())
			case !out.OK():
				p.res.Failed++
			case res.StatusChanged:
				p.res.UpdatedCount++
			}
		}
	}
	g.ids = g.ids[:0]
	clear(g.owners)
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "sync cancelled")
	}
	return nil
}

// ManualVerify fetches the carrier's current view and stores it next to the system
// status of every record carrying the AWB.
func (o *Orchestrator) ManualVerify(ctx context.Context, shipmentID string) (VerifyResult, error) {
	states, err := o.store.FindByShipment(ctx, shipmentID)
	if err != nil {
		return VerifyResult{}, errors.Wrap(err, "find by shipment")
	}
	if len(states) == 0 {
		return VerifyResult{}, errors.Wrapf(models.ErrNotFound, "shipment %s", shipmentID)
	}

	first := states[0]
	adapter, ok := o.resolver.Resolve(first.CarrierText)
	if !ok {
		return VerifyResult{}, errors.Wrapf(carrier.ErrUnresolved, "%q", first.CarrierText)
	}

	outcomes := o.exec.RunBatch(ctx, []string{shipmentID}, adapter, 1)
	out := outcomes[0]

	res := VerifyResult{
		ShipmentID:   shipmentID,
		Carrier:      string(adapter.Code()),
		SystemStatus: first.Status,
	}
	// аудит пишется по каждой записи, даже если перевозчик не ответил
	var fetchErr error
	for _, st := range states {
		updated, err := o.upd.RecordPartner(ctx, st.Owner, out)
		if err != nil {
			var fe *carrier.FetchError
			if !errors.As(err, &fe) {
				return res, errors.Wrapf(err, "record partner %s", st.Owner)
			}
			if fetchErr == nil {
				fetchErr = err
			}
			continue
		}
		res.Records = append(res.Records, updated)
	}
	if fetchErr != nil {
		return res, fetchErr
	}

	if p := res.Records[0].Partner; p != nil {
		res.PartnerStatus = p.Status
		res.PartnerStatusRaw = p.StatusRaw
		res.Matched = !p.Mismatch
	}
	return res, nil
}
