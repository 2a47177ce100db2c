package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/BearBump/trackrecon/internal/models"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const (
	tableOrders  = "orders"
	tableReturns = "returns"
)

var recordColumns = []string{
	"id", "awb", "carrier_text", "carrier_code",
	"tracking_status", "tracking_location",
	"last_checked_at", "last_success_at", "last_error",
	"fail_count", "is_active", "next_check_at",
	"partner_status_raw", "partner_status", "partner_checked_at", "partner_mismatch",
	"updated_at",
	"report_status", "dispatched_at", "delivered_at", "received_at", "refunded_at",
}

func tableFor(owner models.OwnerType) (string, error) {
	switch owner {
	case models.OwnerOrder:
		return tableOrders, nil
	case models.OwnerReturn:
		return tableReturns, nil
	default:
		return "", errors.Errorf("unknown owner type %q", owner)
	}
}

func scanRecord(row pgx.Row, owner models.OwnerType) (*models.ShipmentRecord, error) {
	var (
		r               models.ShipmentRecord
		partnerRaw      *string
		partnerStatus   *string
		partnerChecked  *time.Time
		partnerMismatch bool
	)
	st := &r.State
	st.Owner.Type = owner
	if err := row.Scan(
		&st.Owner.ID, &st.ShipmentID, &st.CarrierText, &st.CarrierCode,
		&st.Status, &st.Location,
		&st.LastCheckedAt, &st.LastSuccessAt, &st.LastError,
		&st.FailCount, &st.IsActive, &st.NextCheckAt,
		&partnerRaw, &partnerStatus, &partnerChecked, &partnerMismatch,
		&st.UpdatedAt,
		&r.ReportStatus, &r.DispatchedAt, &r.DeliveredAt, &r.ReceivedAt, &r.RefundedAt,
	); err != nil {
		return nil, err
	}
	if partnerRaw != nil {
		st.Partner = &models.PartnerSnapshot{
			StatusRaw: *partnerRaw,
			CheckedAt: partnerChecked,
			Mismatch:  partnerMismatch,
		}
		if partnerStatus != nil {
			st.Partner.Status = *partnerStatus
		}
	}
	return &r, nil
}

func (s *Storage) queryRecords(ctx context.Context, owner models.OwnerType, b sq.SelectBuilder) ([]models.ShipmentRecord, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build select")
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select records")
	}
	defer rows.Close()

	var out []models.ShipmentRecord
	for rows.Next() {
		r, err := scanRecord(rows, owner)
		if err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		out = append(out, *r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) GetRecord(ctx context.Context, owner models.OwnerRef) (*models.ShipmentRecord, error) {
	table, err := tableFor(owner.Type)
	if err != nil {
		return nil, err
	}
	query, args, err := qb.Select(recordColumns...).From(table).Where(sq.Eq{"id": owner.ID}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build select")
	}
	r, err := scanRecord(s.db.QueryRow(ctx, query, args...), owner.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(models.ErrNotFound, "%s", owner)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select record")
	}
	return r, nil
}

func (s *Storage) GetState(ctx context.Context, owner models.OwnerRef) (*models.TrackingState, error) {
	r, err := s.GetRecord(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &r.State, nil
}

// FindByShipment returns every order and return carrying the AWB.
func (s *Storage) FindByShipment(ctx context.Context, shipmentID string) ([]*models.TrackingState, error) {
	m, err := s.FindByShipments(ctx, []string{shipmentID})
	if err != nil {
		return nil, err
	}
	return m[shipmentID], nil
}

func (s *Storage) FindByShipments(ctx context.Context, shipmentIDs []string) (map[string][]*models.TrackingState, error) {
	out := make(map[string][]*models.TrackingState, len(shipmentIDs))
	if len(shipmentIDs) == 0 {
		return out, nil
	}
	for _, owner := range []models.OwnerType{models.OwnerOrder, models.OwnerReturn} {
		table, _ := tableFor(owner)
		recs, err := s.queryRecords(ctx, owner, qb.Select(recordColumns...).From(table).
			Where(sq.Eq{"awb": shipmentIDs}).
			OrderBy("id"))
		if err != nil {
			return nil, err
		}
		for i := range recs {
			st := recs[i].State
			out[st.ShipmentID] = append(out[st.ShipmentID], &st)
		}
	}
	return out, nil
}

// ListShipmentPage is one keyset page ordered by id, strictly after afterID.
func (s *Storage) ListShipmentPage(ctx context.Context, owner models.OwnerType, afterID string, f models.ShipmentFilter) ([]models.ShipmentRecord, error) {
	table, err := tableFor(owner)
	if err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}
	b := qb.Select(recordColumns...).From(table).
		Where(sq.NotEq{"awb": ""}).
		Where(sq.Gt{"id": afterID}).
		OrderBy("id").
		Limit(uint64(limit))
	if f.DueOnly {
		b = b.Where(sq.Eq{"is_active": true}).
			Where(sq.Or{sq.Eq{"next_check_at": nil}, sq.LtOrEq{"next_check_at": f.Now}}).
			Where(sq.Or{sq.Eq{"last_checked_at": nil}, sq.Lt{"last_checked_at": f.StaleBefore}})
	}
	return s.queryRecords(ctx, owner, b)
}

func (s *Storage) UpdateTrackingFields(ctx context.Context, st *models.TrackingState) error {
	table, err := tableFor(st.Owner.Type)
	if err != nil {
		return err
	}
	updatedAt := st.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	query, args, err := qb.Update(table).
		Set("carrier_code", st.CarrierCode).
		Set("tracking_status", st.Status).
		Set("tracking_location", st.Location).
		Set("last_checked_at", st.LastCheckedAt).
		Set("last_success_at", st.LastSuccessAt).
		Set("last_error", st.LastError).
		Set("fail_count", st.FailCount).
		Set("is_active", st.IsActive).
		Set("next_check_at", st.NextCheckAt).
		Set("updated_at", updatedAt).
		Where(sq.Eq{"id": st.Owner.ID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build update")
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "update tracking fields")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(models.ErrNotFound, "%s", st.Owner)
	}
	return nil
}

func (s *Storage) SavePartnerSnapshot(ctx context.Context, owner models.OwnerRef, snap models.PartnerSnapshot) error {
	table, err := tableFor(owner.Type)
	if err != nil {
		return err
	}
	query, args, err := qb.Update(table).
		Set("partner_status_raw", snap.StatusRaw).
		Set("partner_status", snap.Status).
		Set("partner_checked_at", snap.CheckedAt).
		Set("partner_mismatch", snap.Mismatch).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": owner.ID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build update")
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "save partner snapshot")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(models.ErrNotFound, "%s", owner)
	}
	return nil
}

// upsertSQL keeps tracking state while the AWB stays the same and resets it when
// the record is pointed at a different shipment.
const upsertSQL = `
INSERT INTO %[1]s (
  id, awb, carrier_text, report_status,
  dispatched_at, delivered_at, received_at, refunded_at,
  tracking_status, next_check_at, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10,$10)
ON CONFLICT (id) DO UPDATE SET
  carrier_text = EXCLUDED.carrier_text,
  report_status = CASE WHEN EXCLUDED.report_status <> '' THEN EXCLUDED.report_status ELSE %[1]s.report_status END,
  dispatched_at = COALESCE(EXCLUDED.dispatched_at, %[1]s.dispatched_at),
  delivered_at = COALESCE(EXCLUDED.delivered_at, %[1]s.delivered_at),
  received_at = COALESCE(EXCLUDED.received_at, %[1]s.received_at),
  refunded_at = COALESCE(EXCLUDED.refunded_at, %[1]s.refunded_at),
  carrier_code = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb OR %[1]s.carrier_text IS DISTINCT FROM EXCLUDED.carrier_text THEN '' ELSE %[1]s.carrier_code END,
  tracking_status = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb THEN EXCLUDED.tracking_status ELSE %[1]s.tracking_status END,
  tracking_location = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb THEN '' ELSE %[1]s.tracking_location END,
  last_checked_at = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb THEN NULL ELSE %[1]s.last_checked_at END,
  last_success_at = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb THEN NULL ELSE %[1]s.last_success_at END,
  last_error = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb THEN NULL ELSE %[1]s.last_error END,
  fail_count = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb THEN 0 ELSE %[1]s.fail_count END,
  is_active = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb THEN true ELSE %[1]s.is_active END,
  next_check_at = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb THEN EXCLUDED.next_check_at ELSE %[1]s.next_check_at END,
  partner_status_raw = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb THEN NULL ELSE %[1]s.partner_status_raw END,
  partner_status = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb THEN NULL ELSE %[1]s.partner_status END,
  partner_checked_at = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb THEN NULL ELSE %[1]s.partner_checked_at END,
  partner_mismatch = CASE WHEN %[1]s.awb IS DISTINCT FROM EXCLUDED.awb THEN false ELSE %[1]s.partner_mismatch END,
  awb = EXCLUDED.awb,
  updated_at = EXCLUDED.updated_at
`

// UpsertShipments seeds AWB/carrier fields onto the owning records, creating missing ones.
func (s *Storage) UpsertShipments(ctx context.Context, seeds []models.ShipmentSeed) (int, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n := 0
	for _, sd := range seeds {
		table, err := tableFor(sd.Owner.Type)
		if err != nil {
			return 0, err
		}
		_, err = tx.Exec(ctx, fmt.Sprintf(upsertSQL, table),
			sd.Owner.ID, sd.ShipmentID, sd.CarrierText, sd.ReportStatus,
			sd.DispatchedAt, sd.DeliveredAt, sd.ReceivedAt, sd.RefundedAt,
			sd.Owner.Type.DefaultStatus(), now,
		)
		if err != nil {
			return 0, errors.Wrapf(err, "upsert %s", sd.Owner)
		}
		n++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit tx")
	}
	return n, nil
}
