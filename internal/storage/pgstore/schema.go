package pgstore

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Orders and returns share the tracking column set; the status default differs.
const recordTableDDL = `
CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  awb TEXT NOT NULL DEFAULT '',
  carrier_text TEXT NOT NULL DEFAULT '',
  carrier_code TEXT NOT NULL DEFAULT '',
  report_status TEXT NOT NULL DEFAULT '',
  dispatched_at TIMESTAMPTZ NULL,
  delivered_at TIMESTAMPTZ NULL,
  received_at TIMESTAMPTZ NULL,
  refunded_at TIMESTAMPTZ NULL,
  tracking_status TEXT NOT NULL DEFAULT '%s',
  tracking_location TEXT NOT NULL DEFAULT '',
  last_checked_at TIMESTAMPTZ NULL,
  last_success_at TIMESTAMPTZ NULL,
  last_error TEXT NULL,
  fail_count INT NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT true,
  next_check_at TIMESTAMPTZ NULL,
  partner_status_raw TEXT NULL,
  partner_status TEXT NULL,
  partner_checked_at TIMESTAMPTZ NULL,
  partner_mismatch BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(recordTableDDL, tableOrders, "pending"),
		fmt.Sprintf(recordTableDDL, tableReturns, "initiated"),
		`CREATE INDEX IF NOT EXISTS idx_orders_awb ON orders(awb)`,
		`CREATE INDEX IF NOT EXISTS idx_returns_awb ON returns(awb)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_due ON orders(next_check_at) WHERE is_active AND awb <> ''`,
		`CREATE INDEX IF NOT EXISTS idx_returns_due ON returns(next_check_at) WHERE is_active AND awb <> ''`,
		`
CREATE TABLE IF NOT EXISTS tracking_history (
  id BIGSERIAL PRIMARY KEY,
  owner_type TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  ts TIMESTAMPTZ NOT NULL,
  status TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  remarks TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL,
  UNIQUE (owner_type, owner_id, ts, source)
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_history_owner_ts ON tracking_history(owner_type, owner_id, ts DESC)`,
		`
CREATE TABLE IF NOT EXISTS tracking_audit_log (
  id BIGSERIAL PRIMARY KEY,
  owner_type TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  shipment_id TEXT NOT NULL,
  carrier_code TEXT NOT NULL DEFAULT '',
  canonical_status TEXT NOT NULL DEFAULT '',
  raw_payload_summary TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL,
  error TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  UNIQUE (owner_type, owner_id, shipment_id, source, created_at)
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_audit_log_shipment ON tracking_audit_log(shipment_id, created_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS sync_runs (
  id UUID PRIMARY KEY,
  mode TEXT NOT NULL,
  state TEXT NOT NULL,
  processed INT NOT NULL DEFAULT 0,
  updated INT NOT NULL DEFAULT 0,
  failed INT NOT NULL DEFAULT 0,
  unresolved INT NOT NULL DEFAULT 0,
  error TEXT NULL,
  started_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
