package pgstore

import (
	"context"

	"github.com/BearBump/trackrecon/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) CreateSyncRun(ctx context.Context, run models.SyncRun) error {
	query, args, err := qb.Insert("sync_runs").
		Columns("id", "mode", "state", "started_at").
		Values(run.ID, run.Mode, run.State, run.StartedAt).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build insert")
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "insert sync run")
	}
	return nil
}

func (s *Storage) FinishSyncRun(ctx context.Context, run models.SyncRun) error {
	query, args, err := qb.Update("sync_runs").
		Set("state", run.State).
		Set("processed", run.Processed).
		Set("updated", run.Updated).
		Set("failed", run.Failed).
		Set("unresolved", run.Unresolved).
		Set("error", run.Error).
		Set("finished_at", run.FinishedAt).
		Where("id = ?", run.ID).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build update")
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "update sync run")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(models.ErrNotFound, "sync run %s", run.ID)
	}
	return nil
}

func (s *Storage) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query, args, err := qb.Select("id::text", "mode", "state", "processed", "updated", "failed",
		"unresolved", "error", "started_at", "finished_at").
		From("sync_runs").
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build select")
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select sync runs")
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SyncRun, error) {
		var r models.SyncRun
		err := row.Scan(&r.ID, &r.Mode, &r.State, &r.Processed, &r.Updated, &r.Failed,
			&r.Unresolved, &r.Error, &r.StartedAt, &r.FinishedAt)
		return r, err
	})
}
