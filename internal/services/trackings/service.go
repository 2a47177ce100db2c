package trackings

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/trackrecon/internal/broker/messages"
	"github.com/BearBump/trackrecon/internal/cache"
	"github.com/BearBump/trackrecon/internal/integrations/carrier"
	"github.com/BearBump/trackrecon/internal/models"
	"github.com/BearBump/trackrecon/internal/services/executor"
	"github.com/BearBump/trackrecon/internal/services/reconcile"
	"github.com/BearBump/trackrecon/internal/services/updater"
	"github.com/pkg/errors"
)

const maxIngestItems = 10_000

var (
	ErrTooManyShipments = errors.New("too many shipments in one request")
	ErrInvalidArgument  = errors.New("invalid argument")
)

type Repository interface {
	UpsertShipments(ctx context.Context, seeds []models.ShipmentSeed) (int, error)
	FindByShipment(ctx context.Context, shipmentID string) ([]*models.TrackingState, error)
	FindByShipments(ctx context.Context, shipmentIDs []string) (map[string][]*models.TrackingState, error)
	ListHistory(ctx context.Context, owner models.OwnerRef, limit, offset int) ([]models.HistoryEntry, error)
	ListAudit(ctx context.Context, shipmentID string, limit int) ([]models.AuditLogEntry, error)
}

type Resolver interface {
	Resolve(text string) (carrier.Adapter, bool)
}

type Fetcher interface {
	RunBatch(ctx context.Context, ids []string, a carrier.Adapter, limit int) []executor.Outcome
}

type Updater interface {
	Apply(ctx context.Context, owner models.OwnerRef, o executor.Outcome) (updater.Result, error)
	ApplyUnresolved(ctx context.Context, ref models.ShipmentRef) (updater.Result, error)
	ApplyWebhook(ctx context.Context, msg messages.WebhookStatus) ([]*models.TrackingState, error)
	Reactivate(ctx context.Context, owner models.OwnerRef) (*models.TrackingState, error)
}

type Reconciler interface {
	RunSync(ctx context.Context, mode reconcile.Mode) (reconcile.SyncResult, error)
	ManualVerify(ctx context.Context, shipmentID string) (reconcile.VerifyResult, error)
}

type Service struct {
	repo     Repository
	resolver Resolver
	exec     Fetcher
	upd      Updater
	recon    Reconciler

	cache      cache.BytesCache
	currentTTL time.Duration
	maxBatch   int
}

func New(repo Repository, resolver Resolver, exec Fetcher, upd Updater, recon Reconciler, c cache.BytesCache, currentTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		resolver:   resolver,
		exec:       exec,
		upd:        upd,
		recon:      recon,
		cache:      c,
		currentTTL: currentTTL,
		maxBatch:   50,
	}
}

func (s *Service) WithMaxBatch(n int) *Service {
	if n > 0 {
		s.maxBatch = n
	}
	return s
}

// Ingest seeds AWB/carrier pairs onto orders and returns. Later rows for the same
// owner win.
func (s *Service) Ingest(ctx context.Context, items []models.ShipmentSeed) (int, error) {
	if len(items) == 0 {
		return 0, errors.Wrap(ErrInvalidArgument, "items is empty")
	}
	if len(items) > maxIngestItems {
		return 0, errors.Wrapf(ErrInvalidArgument, "too many items (max %d)", maxIngestItems)
	}

	pos := make(map[models.OwnerRef]int, len(items))
	clean := make([]models.ShipmentSeed, 0, len(items))
	for _, it := range items {
		it.Owner.ID = strings.TrimSpace(it.Owner.ID)
		it.ShipmentID = strings.TrimSpace(it.ShipmentID)
		it.CarrierText = strings.TrimSpace(it.CarrierText)
		if !it.Owner.Type.Valid() {
			return 0, errors.Wrapf(ErrInvalidArgument, "unknown owner type %q", it.Owner.Type)
		}
		if it.Owner.ID == "" {
			return 0, errors.Wrap(ErrInvalidArgument, "owner id is required")
		}
		if it.ShipmentID != "" && it.CarrierText == "" {
			return 0, errors.Wrapf(ErrInvalidArgument, "carrier is required for %s", it.Owner)
		}
		if i, ok := pos[it.Owner]; ok {
			clean[i] = it
			continue
		}
		pos[it.Owner] = len(clean)
		clean = append(clean, it)
	}

	n, err := s.repo.UpsertShipments(ctx, clean)
	if err != nil {
		return 0, err
	}
	for _, it := range clean {
		if it.ShipmentID != "" {
			s.dropCached(ctx, it.ShipmentID)
		}
	}
	return n, nil
}

// TrackSingle returns every record carrying the AWB, refreshed from the carrier
// unless a fresh cached copy exists.
func (s *Service) TrackSingle(ctx context.Context, shipmentID string) ([]*models.TrackingState, error) {
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "shipmentId is required")
	}
	if states, ok := s.cached(ctx, shipmentID); ok {
		return states, nil
	}

	states, err := s.repo.FindByShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, errors.Wrapf(models.ErrNotFound, "shipment %s", shipmentID)
	}

	out := s.refresh(ctx, map[string][]*models.TrackingState{shipmentID: states})
	s.store(ctx, shipmentID, out[shipmentID])
	return out[shipmentID], nil
}

// TrackBatch is TrackSingle for up to maxBatch AWBs; results keep request order.
// Unknown AWBs are reported in Missing instead of failing the whole batch.
func (s *Service) TrackBatch(ctx context.Context, shipmentIDs []string) (models.TrackBatchResult, error) {
	ids := make([]string, 0, len(shipmentIDs))
	seen := make(map[string]struct{}, len(shipmentIDs))
	for _, id := range shipmentIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	res := models.TrackBatchResult{Trackings: []*models.TrackingState{}, Missing: []string{}}
	if len(ids) == 0 {
		return res, nil
	}
	if len(ids) > s.maxBatch {
		return models.TrackBatchResult{}, errors.Wrapf(ErrTooManyShipments, "%d > %d", len(ids), s.maxBatch)
	}

	got := make(map[string][]*models.TrackingState, len(ids))
	miss := make([]string, 0, len(ids))
	for _, id := range ids {
		if states, ok := s.cached(ctx, id); ok {
			got[id] = states
			continue
		}
		miss = append(miss, id)
	}

	if len(miss) > 0 {
		fromDB, err := s.repo.FindByShipments(ctx, miss)
		if err != nil {
			return models.TrackBatchResult{}, err
		}
		for id, states := range s.refresh(ctx, fromDB) {
			got[id] = states
			s.store(ctx, id, states)
		}
	}

	// Собираем ответ в том же порядке, что ids.
	for _, id := range ids {
		if len(got[id]) == 0 {
			res.Missing = append(res.Missing, id)
			continue
		}
		res.Trackings = append(res.Trackings, got[id]...)
	}
	return res, nil
}

// refresh fetches each AWB once per carrier and applies the outcome to every owner.
func (s *Service) refresh(ctx context.Context, byAWB map[string][]*models.TrackingState) map[string][]*models.TrackingState {
	type batch struct {
		adapter carrier.Adapter
		ids     []string
	}
	batches := map[carrier.Code]*batch{}
	out := make(map[string][]*models.TrackingState, len(byAWB))

	for awb, states := range byAWB {
		if len(states) == 0 {
			continue
		}
		adapter, ok := s.resolver.Resolve(states[0].CarrierText)
		if !ok {
			for _, st := range states {
				res, err := s.upd.ApplyUnresolved(ctx, models.ShipmentRef{
					ShipmentID: awb, CarrierText: st.CarrierText, Owner: st.Owner,
				})
				out[awb] = append(out[awb], resultState(st, res, err))
			}
			continue
		}
		b, ok := batches[adapter.Code()]
		if !ok {
			b = &batch{adapter: adapter}
			batches[adapter.Code()] = b
		}
		b.ids = append(b.ids, awb)
	}

	for _, b := range batches {
		for _, o := range s.exec.RunBatch(ctx, b.ids, b.adapter, 0) {
			for _, st := range byAWB[o.ShipmentID] {
				res, err := s.upd.Apply(ctx, st.Owner, o)
				out[o.ShipmentID] = append(out[o.ShipmentID], resultState(st, res, err))
			}
		}
	}
	return out
}

// resultState falls back to the stored state when the update could not be persisted.
func resultState(st *models.TrackingState, res updater.Result, err error) *models.TrackingState {
	if err != nil {
		slog.Error("apply tracking outcome", "owner", st.Owner.String(), "shipment_id", st.ShipmentID, "error", err.Error())
		return st
	}
	if res.State == nil {
		return st
	}
	return res.State
}

func (s *Service) ListHistory(ctx context.Context, owner models.OwnerRef, limit, offset int) ([]models.HistoryEntry, error) {
	if !owner.Type.Valid() || strings.TrimSpace(owner.ID) == "" {
		return nil, errors.Wrapf(ErrInvalidArgument, "bad owner %s", owner)
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListHistory(ctx, owner, limit, offset)
}

func (s *Service) ListAudit(ctx context.Context, shipmentID string, limit int) ([]models.AuditLogEntry, error) {
	if strings.TrimSpace(shipmentID) == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "shipmentId is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.ListAudit(ctx, shipmentID, limit)
}

func (s *Service) ManualVerify(ctx context.Context, shipmentID string) (reconcile.VerifyResult, error) {
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return reconcile.VerifyResult{}, errors.Wrap(ErrInvalidArgument, "shipmentId is required")
	}
	return s.recon.ManualVerify(ctx, shipmentID)
}

func (s *Service) RunReconciliation(ctx context.Context, live bool) (reconcile.SyncResult, error) {
	return s.recon.RunSync(ctx, reconcile.Mode{Live: live})
}

func (s *Service) Reactivate(ctx context.Context, owner models.OwnerRef) (*models.TrackingState, error) {
	if !owner.Type.Valid() || strings.TrimSpace(owner.ID) == "" {
		return nil, errors.Wrapf(ErrInvalidArgument, "bad owner %s", owner)
	}
	return s.upd.Reactivate(ctx, owner)
}

// ApplyWebhook is the consumer side of the carrier push topic.
func (s *Service) ApplyWebhook(ctx context.Context, msg messages.WebhookStatus) error {
	if strings.TrimSpace(msg.ShipmentID) == "" {
		return errors.Wrap(ErrInvalidArgument, "shipment_id is required")
	}
	_, err := s.upd.ApplyWebhook(ctx, msg)
	return err
}

func (s *Service) cached(ctx context.Context, shipmentID string) ([]*models.TrackingState, bool) {
	if s.cache == nil || s.currentTTL <= 0 {
		return nil, false
	}
	b, ok, err := s.cache.Get(ctx, cache.ShipmentKey(shipmentID))
	if err != nil || !ok {
		return nil, false
	}
	var states []*models.TrackingState
	if json.Unmarshal(b, &states) != nil || len(states) == 0 {
		return nil, false
	}
	return states, true
}

func (s *Service) store(ctx context.Context, shipmentID string, states []*models.TrackingState) {
	if s.cache == nil || s.currentTTL <= 0 || len(states) == 0 {
		return
	}
	b, err := json.Marshal(states)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.ShipmentKey(shipmentID), b, s.currentTTL); err != nil {
		slog.Warn("cache set", "shipment_id", shipmentID, "error", err.Error())
	}
}

func (s *Service) dropCached(ctx context.Context, shipmentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cache.ShipmentKey(shipmentID)); err != nil {
		slog.Warn("cache del", "shipment_id", shipmentID, "error", err.Error())
	}
}
