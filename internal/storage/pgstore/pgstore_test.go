package pgstore

import (
	"context"
	"testing"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/BearBump/trackrecon/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "trackrecon_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/trackrecon_test?sslmode=disable"
	st, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPGStore_RecordsFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	st := startPostgres(t)
	ctx := context.Background()

	order := models.OwnerRef{Type: models.OwnerOrder, ID: "o-1"}
	ret := models.OwnerRef{Type: models.OwnerReturn, ID: "r-1"}
	n, err := st.UpsertShipments(ctx, []models.ShipmentSeed{
		{Owner: order, CarrierText: "Ecom Express", ShipmentID: "AWB1", ReportStatus: "Shipped"},
		{Owner: ret, CarrierText: "ecom", ShipmentID: "AWB1"},
		{Owner: models.OwnerRef{Type: models.OwnerOrder, ID: "o-2"}, CarrierText: "Delhivery", ShipmentID: "AWB2"},
		{Owner: models.OwnerRef{Type: models.OwnerOrder, ID: "o-3"}, CarrierText: "Delhivery", ShipmentID: ""},
	})
	require.NoError(t, err)
	require.Equal(t, 4, n)

	// defaults differ per owner
	o, err := st.GetState(ctx, order)
	require.NoError(t, err)
	require.Equal(t, "pending", o.Status)
	require.True(t, o.IsActive)
	r, err := st.GetState(ctx, ret)
	require.NoError(t, err)
	require.Equal(t, "initiated", r.Status)

	byAWB, err := st.FindByShipment(ctx, "AWB1")
	require.NoError(t, err)
	require.Len(t, byAWB, 2)

	_, err = st.GetState(ctx, models.OwnerRef{Type: models.OwnerOrder, ID: "missing"})
	require.ErrorIs(t, err, models.ErrNotFound)

	now := time.Now().UTC().Truncate(time.Microsecond)
	o.Status = "in_transit"
	o.Location = "Pune"
	o.CarrierCode = "ecom"
	o.LastCheckedAt = pointer.ToTime(now)
	o.LastSuccessAt = pointer.ToTime(now)
	o.NextCheckAt = pointer.ToTime(now.Add(time.Hour))
	require.NoError(t, st.UpdateTrackingFields(ctx, o))

	got, err := st.GetState(ctx, order)
	require.NoError(t, err)
	require.Equal(t, "in_transit", got.Status)
	require.Equal(t, "ecom", got.CarrierCode)
	require.WithinDuration(t, now, *got.LastCheckedAt, time.Millisecond)

	require.NoError(t, st.SavePartnerSnapshot(ctx, order, models.PartnerSnapshot{
		StatusRaw: "Delivered", Status: "delivered", CheckedAt: pointer.ToTime(now), Mismatch: true,
	}))
	got, err = st.GetState(ctx, order)
	require.NoError(t, err)
	require.NotNil(t, got.Partner)
	require.True(t, got.Partner.Mismatch)
	require.Equal(t, "in_transit", got.Status)

	// same AWB keeps state, report_status survives an empty re-ingest
	_, err = st.UpsertShipments(ctx, []models.ShipmentSeed{{Owner: order, CarrierText: "Ecom Express", ShipmentID: "AWB1"}})
	require.NoError(t, err)
	rec, err := st.GetRecord(ctx, order)
	require.NoError(t, err)
	require.Equal(t, "in_transit", rec.State.Status)
	require.Equal(t, "Shipped", rec.ReportStatus)

	// new AWB resets tracking fields
	_, err = st.UpsertShipments(ctx, []models.ShipmentSeed{{Owner: order, CarrierText: "Ecom Express", ShipmentID: "AWB9"}})
	require.NoError(t, err)
	rec, err = st.GetRecord(ctx, order)
	require.NoError(t, err)
	require.Equal(t, "pending", rec.State.Status)
	require.Nil(t, rec.State.LastCheckedAt)
	require.Nil(t, rec.State.Partner)
	require.Empty(t, rec.State.CarrierCode)
}

func TestPGStore_ShipmentPages(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	st := startPostgres(t)
	ctx := context.Background()

	var seeds []models.ShipmentSeed
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		seeds = append(seeds, models.ShipmentSeed{
			Owner: models.OwnerRef{Type: models.OwnerOrder, ID: id}, CarrierText: "dtdc", ShipmentID: "AWB-" + id,
		})
	}
	seeds = append(seeds, models.ShipmentSeed{Owner: models.OwnerRef{Type: models.OwnerOrder, ID: "f"}, CarrierText: "dtdc"})
	_, err := st.UpsertShipments(ctx, seeds)
	require.NoError(t, err)

	now := time.Now().UTC()
	// b проверен недавно, c неактивен
	_, err = st.db.Exec(ctx, `UPDATE orders SET last_checked_at = $1, next_check_at = $2 WHERE id = 'b'`, now, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = st.db.Exec(ctx, `UPDATE orders SET is_active = false WHERE id = 'c'`)
	require.NoError(t, err)

	var ids []string
	after := ""
	for {
		page, err := st.ListShipmentPage(ctx, models.OwnerOrder, after, models.ShipmentFilter{
			Limit: 2, DueOnly: true, Now: now, StaleBefore: now.Add(-time.Hour),
		})
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, r := range page {
			ids = append(ids, r.State.Owner.ID)
		}
		after = page[len(page)-1].State.Owner.ID
	}
	require.Equal(t, []string{"a", "d", "e"}, ids)

	all, err := st.ListShipmentPage(ctx, models.OwnerOrder, "", models.ShipmentFilter{Limit: 100})
	require.NoError(t, err)
	require.Len(t, all, 5)
}

func TestPGStore_HistoryAuditAndRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	st := startPostgres(t)
	ctx := context.Background()

	owner := models.OwnerRef{Type: models.OwnerReturn, ID: "r-7"}
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, status := range []string{"picked_up", "in_transit", "delivered"} {
		e := models.HistoryEntry{Timestamp: t0.Add(time.Duration(i) * time.Hour), Status: status, Source: models.SourceAPI}
		require.NoError(t, st.AppendHistory(ctx, owner, e))
		// replay is a no-op
		require.NoError(t, st.AppendHistory(ctx, owner, e))
	}
	hist, err := st.ListHistory(ctx, owner, 10, 0)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	require.Equal(t, "delivered", hist[0].Status)

	hist, err = st.ListHistory(ctx, owner, 1, 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.Equal(t, "in_transit", hist[0].Status)

	a := models.AuditLogEntry{
		ShipmentID: "AWB7", CarrierCode: "dtdc", CanonicalStatus: "delivered",
		RawPayloadSummary: "source=html-scrape", Source: models.SourceHTMLScrape, Owner: owner, CreatedAt: t0,
	}
	require.NoError(t, st.AppendAudit(ctx, a))
	require.NoError(t, st.AppendAudit(ctx, a))
	a.CreatedAt = t0.Add(time.Minute)
	a.Error = pointer.ToString("network: timeout")
	require.NoError(t, st.AppendAudit(ctx, a))

	audit, err := st.ListAudit(ctx, "AWB7", 10)
	require.NoError(t, err)
	require.Len(t, audit, 2)
	require.NotNil(t, audit[0].Error)

	run := models.SyncRun{ID: uuid.NewString(), Mode: "live", State: models.SyncStateRunning, StartedAt: t0}
	require.NoError(t, st.CreateSyncRun(ctx, run))
	run.State = models.SyncStateCompleted
	run.Processed, run.Updated = 10, 4
	run.FinishedAt = pointer.ToTime(t0.Add(time.Minute))
	require.NoError(t, st.FinishSyncRun(ctx, run))

	runs, err := st.ListSyncRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, run.ID, runs[0].ID)
	require.Equal(t, 4, runs[0].Updated)
	require.Equal(t, models.SyncStateCompleted, runs[0].State)
}
