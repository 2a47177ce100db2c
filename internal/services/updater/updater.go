package updater

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/trackrecon/internal/broker/messages"
	"github.com/BearBump/trackrecon/internal/cache"
	"github.com/BearBump/trackrecon/internal/models"
	"github.com/BearBump/trackrecon/internal/services/executor"
	"github.com/pkg/errors"
)

type Store interface {
	GetState(ctx context.Context, owner models.OwnerRef) (*models.TrackingState, error)
	FindByShipment(ctx context.Context, shipmentID string) ([]*models.TrackingState, error)
	UpdateTrackingFields(ctx context.Context, st *models.TrackingState) error
	AppendHistory(ctx context.Context, owner models.OwnerRef, e models.HistoryEntry) error
	AppendAudit(ctx context.Context, e models.AuditLogEntry) error
	SavePartnerSnapshot(ctx context.Context, owner models.OwnerRef, snap models.PartnerSnapshot) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Updater is the only writer of tracking fields on order/return records.
type Updater struct {
	store     Store
	cache     cache.BytesCache
	pub       Publisher
	topic     string
	planner   *Planner
	threshold int32
	now       func() time.Time
}

func New(store Store, c cache.BytesCache, pub Publisher, topic string, failureThreshold int) *Updater {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	return &Updater{
		store:     store,
		cache:     c,
		pub:       pub,
		topic:     topic,
		planner:   NewPlanner(DefaultPlannerConfig(), nil),
		threshold: int32(failureThreshold),
		now:       func() time.Time { return StoredTime(time.Now().UTC()) },
	}
}

func (u *Updater) WithPlanner(p *Planner) *Updater {
	if p != nil {
		u.planner = p
	}
	return u
}

type Result struct {
	State *models.TrackingState
	// Applied is false for replays and stale observations.
	Applied       bool
	StatusChanged bool
}

// Apply persists a fetch outcome onto one owning record and writes its audit entry.
// Applying the same outcome twice leaves the record unchanged.
func (u *Updater) Apply(ctx context.Context, owner models.OwnerRef, o executor.Outcome) (Result, error) {
	st, err := u.store.GetState(ctx, owner)
	if err != nil {
		return Result{}, errors.Wrapf(err, "get state %s", owner)
	}
	if st.ShipmentID != o.ShipmentID {
		// AWB поменяли, пока шла проверка: результат относится к старой накладной.
		slog.Info("outcome for replaced shipment dropped", "owner", owner.String(), "shipment_id", o.ShipmentID)
		return Result{State: st}, nil
	}
	if st.CarrierCode == "" && o.Carrier != "" {
		st.CarrierCode = string(o.Carrier)
	}

	res, err := u.apply(ctx, st, observationFromOutcome(owner.Type, o))
	if err != nil {
		return Result{}, err
	}
	if err := u.store.AppendAudit(ctx, auditEntry(owner, o)); err != nil {
		return Result{}, errors.Wrap(err, "append audit")
	}
	return res, nil
}

// ApplyUnresolved records that no adapter matches the carrier text. The failure
// counter is left alone: nothing was asked of any carrier.
func (u *Updater) ApplyUnresolved(ctx context.Context, ref models.ShipmentRef) (Result, error) {
	st, err := u.store.GetState(ctx, ref.Owner)
	if err != nil {
		return Result{}, errors.Wrapf(err, "get state %s", ref.Owner)
	}
	return u.apply(ctx, st, Observation{
		CheckedAt: u.now(),
		Source:    models.SourceLocal,
		Err:       "carrier unresolved: " + ref.CarrierText,
	})
}

// ApplyWebhook feeds a carrier push through the same transition as a fetch.
// Every record carrying the AWB is updated independently.
func (u *Updater) ApplyWebhook(ctx context.Context, msg messages.WebhookStatus) ([]*models.TrackingState, error) {
	if strings.TrimSpace(msg.ShipmentID) == "" {
		return nil, errors.New("shipment_id is required")
	}
	states, err := u.store.FindByShipment(ctx, msg.ShipmentID)
	if err != nil {
		return nil, errors.Wrap(err, "find by shipment")
	}
	if len(states) == 0 {
		return nil, errors.Wrapf(models.ErrNotFound, "shipment %s", msg.ShipmentID)
	}

	checked := u.now()
	if msg.Timestamp != nil && !msg.Timestamp.IsZero() {
		checked = StoredTime(msg.Timestamp.UTC())
	}
	payload := &models.RawStatusPayload{
		Source:     models.SourceWebhook,
		FetchedAt:  checked,
		StatusText: msg.RawStatus,
		Location:   msg.Location,
		Remarks:    msg.Remarks,
		StatusAt:   msg.Timestamp,
		Matcher:    "webhook",
		ByteLength: len(msg.RawStatus),
	}

	out := make([]*models.TrackingState, 0, len(states))
	var firstErr error
	for _, st := range states {
		canonical := st.Owner.Type.Classify(msg.RawStatus)
		res, err := u.apply(ctx, st, Observation{
			CheckedAt: checked,
			Source:    models.SourceWebhook,
			Status:    canonical,
			StatusRaw: msg.RawStatus,
			StatusAt:  msg.Timestamp,
			Location:  msg.Location,
			Remarks:   msg.Remarks,
		})
		if err == nil {
			err = u.store.AppendAudit(ctx, models.AuditLogEntry{
				ShipmentID:        msg.ShipmentID,
				CarrierCode:       firstNonEmpty(st.CarrierCode, strings.ToLower(msg.Carrier)),
				CanonicalStatus:   canonical,
				RawPayloadSummary: payload.Summary(),
				Source:            models.SourceWebhook,
				Owner:             st.Owner,
				CreatedAt:         checked,
			})
		}
		if err != nil {
			slog.Error("apply webhook", "owner", st.Owner.String(), "shipment_id", msg.ShipmentID, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = append(out, res.State)
	}
	return out, firstErr
}

// ApplyLocal sets a status derived from the record itself. No fetch happened, so
// check timestamps and failure counters stay as they are and no audit entry is written.
func (u *Updater) ApplyLocal(ctx context.Context, st *models.TrackingState, status string) (Result, error) {
	if status == "" || status == st.Status {
		return Result{State: st}, nil
	}
	now := u.now()
	prev := st.Status
	next := *st
	next.Status = status
	next.UpdatedAt = now

	if err := u.store.UpdateTrackingFields(ctx, &next); err != nil {
		return Result{}, errors.Wrap(err, "update tracking fields")
	}
	if err := u.store.AppendHistory(ctx, next.Owner, models.HistoryEntry{
		Timestamp: now,
		Status:    status,
		Source:    models.SourceLocal,
		Remarks:   "derived from record fields",
	}); err != nil {
		return Result{}, errors.Wrap(err, "append history")
	}
	u.invalidate(ctx, next.ShipmentID)
	u.publish(ctx, prev, &next, models.SourceLocal, nil)
	return Result{State: &next, Applied: true, StatusChanged: true}, nil
}

// RecordPartner stores what the carrier reports next to the system status without
// touching the system status itself.
func (u *Updater) RecordPartner(ctx context.Context, owner models.OwnerRef, o executor.Outcome) (*models.TrackingState, error) {
	st, err := u.store.GetState(ctx, owner)
	if err != nil {
		return nil, errors.Wrapf(err, "get state %s", owner)
	}
	if err := u.store.AppendAudit(ctx, auditEntry(owner, o)); err != nil {
		return nil, errors.Wrap(err, "append audit")
	}
	if !o.OK() {
		return st, o.Err
	}

	checked := o.CheckedAt
	snap := models.PartnerSnapshot{
		StatusRaw: o.Payload.StatusText,
		Status:    o.Canonical(owner.Type),
		CheckedAt: &checked,
		// Сравнение канонического статуса с сырым текстом перевозчика, как в исходной сверке.
		Mismatch: !strings.EqualFold(strings.TrimSpace(st.Status), strings.TrimSpace(o.Payload.StatusText)),
	}
	if err := u.store.SavePartnerSnapshot(ctx, owner, snap); err != nil {
		return nil, errors.Wrap(err, "save partner snapshot")
	}
	u.invalidate(ctx, st.ShipmentID)
	st.Partner = &snap
	return st, nil
}

// Reactivate puts a record deactivated by repeated failures back into automatic sync.
func (u *Updater) Reactivate(ctx context.Context, owner models.OwnerRef) (*models.TrackingState, error) {
	st, err := u.store.GetState(ctx, owner)
	if err != nil {
		return nil, errors.Wrapf(err, "get state %s", owner)
	}
	now := u.now()
	st.IsActive = true
	st.FailCount = 0
	st.NextCheckAt = &now
	st.UpdatedAt = now
	if err := u.store.UpdateTrackingFields(ctx, st); err != nil {
		return nil, errors.Wrap(err, "update tracking fields")
	}
	u.invalidate(ctx, st.ShipmentID)
	return st, nil
}

func (u *Updater) apply(ctx context.Context, st *models.TrackingState, obs Observation) (Result, error) {
	prev := st.Status
	next, hist, ok := Next(*st, obs, u.threshold)
	if !ok {
		return Result{State: st}, nil
	}

	var delay time.Duration
	switch {
	case !obs.Failed():
		delay = u.planner.NextCheckDelay(next.Owner.Type, next.Status)
	case obs.CountsFailure:
		delay = u.planner.BackoffDelay(next.FailCount)
	default:
		delay = u.planner.BackoffDelay(4)
	}
	nc := obs.CheckedAt.Add(delay)
	next.NextCheckAt = &nc

	if err := u.store.UpdateTrackingFields(ctx, &next); err != nil {
		return Result{}, errors.Wrap(err, "update tracking fields")
	}
	if hist != nil {
		if err := u.store.AppendHistory(ctx, next.Owner, *hist); err != nil {
			return Result{}, errors.Wrap(err, "append history")
		}
	}
	u.invalidate(ctx, next.ShipmentID)

	var errText *string
	if obs.Failed() {
		errText = &obs.Err
	}
	u.publish(ctx, prev, &next, obs.Source, errText)

	if !next.IsActive && st.IsActive {
		slog.Warn("tracking deactivated after repeated failures",
			"owner", next.Owner.String(), "shipment_id", next.ShipmentID, "fail_count", next.FailCount)
	}
	return Result{State: &next, Applied: true, StatusChanged: next.Status != prev}, nil
}

func (u *Updater) invalidate(ctx context.Context, shipmentID string) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Del(ctx, cache.ShipmentKey(shipmentID)); err != nil {
		slog.Warn("cache invalidate", "shipment_id", shipmentID, "error", err.Error())
	}
}

func (u *Updater) publish(ctx context.Context, prev string, st *models.TrackingState, src models.Source, errText *string) {
	if u.pub == nil || u.topic == "" {
		return
	}
	msg := messages.TrackingUpdated{
		OwnerType:      string(st.Owner.Type),
		OwnerID:        st.Owner.ID,
		ShipmentID:     st.ShipmentID,
		Carrier:        st.CarrierCode,
		Source:         string(src),
		Status:         st.Status,
		PreviousStatus: prev,
		Location:       st.Location,
		IsActive:       st.IsActive,
		NextCheckAt:    st.NextCheckAt,
		Error:          errText,
	}
	if st.LastCheckedAt != nil {
		msg.CheckedAt = *st.LastCheckedAt
	} else {
		msg.CheckedAt = st.UpdatedAt
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal tracking updated", "error", err.Error())
		return
	}
	// Событие — побочный канал: его потеря не откатывает запись.
	if err := u.pub.Publish(ctx, u.topic, []byte(st.ShipmentID), b); err != nil {
		slog.Warn("publish tracking updated", "shipment_id", st.ShipmentID, "error", err.Error())
	}
}

func observationFromOutcome(owner models.OwnerType, o executor.Outcome) Observation {
	obs := Observation{
		CheckedAt: o.CheckedAt,
		Source:    models.Source(o.Strategy),
	}
	if !o.OK() {
		obs.Err = o.Err.Error()
		obs.CountsFailure = true
		return obs
	}
	p := o.Payload
	obs.Source = p.Source
	obs.Status = o.Canonical(owner)
	obs.StatusRaw = p.StatusText
	obs.StatusAt = p.StatusAt
	obs.Location = p.Location
	obs.Remarks = p.Remarks
	return obs
}

func auditEntry(owner models.OwnerRef, o executor.Outcome) models.AuditLogEntry {
	e := models.AuditLogEntry{
		ShipmentID:  o.ShipmentID,
		CarrierCode: string(o.Carrier),
		Source:      models.Source(o.Strategy),
		Owner:       owner,
		CreatedAt:   o.CheckedAt,
	}
	if o.OK() {
		e.Source = o.Payload.Source
		e.CanonicalStatus = o.Canonical(owner.Type)
		e.RawPayloadSummary = o.Payload.Summary()
		return e
	}
	msg := o.Err.Error()
	e.Error = &msg
	if o.Err.Snippet != "" {
		e.RawPayloadSummary = models.Truncate(o.Err.Snippet, 512)
	}
	return e
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
