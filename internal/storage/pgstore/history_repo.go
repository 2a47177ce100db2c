package pgstore

import (
	"context"

	"github.com/BearBump/trackrecon/internal/models"
	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// AppendHistory is idempotent on (owner, timestamp, source).
func (s *Storage) AppendHistory(ctx context.Context, owner models.OwnerRef, e models.HistoryEntry) error {
	query, args, err := qb.Insert("tracking_history").
		Columns("owner_type", "owner_id", "ts", "status", "location", "remarks", "source").
		Values(owner.Type, owner.ID, e.Timestamp, e.Status, e.Location, e.Remarks, e.Source).
		Suffix("ON CONFLICT (owner_type, owner_id, ts, source) DO NOTHING").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build insert")
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "insert history")
	}
	return nil
}

// ListHistory returns newest entries first.
func (s *Storage) ListHistory(ctx context.Context, owner models.OwnerRef, limit, offset int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query, args, err := qb.Select("ts", "status", "location", "remarks", "source").
		From("tracking_history").
		Where(sq.Eq{"owner_type": owner.Type, "owner_id": owner.ID}).
		OrderBy("ts DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(max(offset, 0))).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build select")
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select history")
	}
	defer rows.Close()

	out := make([]models.HistoryEntry, 0, limit)
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.Timestamp, &e.Status, &e.Location, &e.Remarks, &e.Source); err != nil {
			return nil, errors.Wrap(err, "scan history")
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// AppendAudit пишет одну запись на попытку; повтор той же попытки игнорируется.
func (s *Storage) AppendAudit(ctx context.Context, e models.AuditLogEntry) error {
	query, args, err := qb.Insert("tracking_audit_log").
		Columns("owner_type", "owner_id", "shipment_id", "carrier_code", "canonical_status",
			"raw_payload_summary", "source", "error", "created_at").
		Values(e.Owner.Type, e.Owner.ID, e.ShipmentID, e.CarrierCode, e.CanonicalStatus,
			e.RawPayloadSummary, e.Source, e.Error, e.CreatedAt).
		Suffix("ON CONFLICT (owner_type, owner_id, shipment_id, source, created_at) DO NOTHING").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build insert")
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "insert audit")
	}
	return nil
}

func (s *Storage) ListAudit(ctx context.Context, shipmentID string, limit int) ([]models.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query, args, err := qb.Select("id", "owner_type", "owner_id", "shipment_id", "carrier_code",
		"canonical_status", "raw_payload_summary", "source", "error", "created_at").
		From("tracking_audit_log").
		Where(sq.Eq{"shipment_id": shipmentID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build select")
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select audit")
	}
	defer rows.Close()

	var out []models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.Owner.Type, &e.Owner.ID, &e.ShipmentID, &e.CarrierCode,
			&e.CanonicalStatus, &e.RawPayloadSummary, &e.Source, &e.Error, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan audit")
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
