package trackings_api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/BearBump/trackrecon/internal/models"
	"github.com/BearBump/trackrecon/internal/services/reconcile"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/pkg/errors"
)

const maxBodyBytes = 8 << 20

type Service interface {
	Ingest(ctx context.Context, items []models.ShipmentSeed) (int, error)
	TrackSingle(ctx context.Context, shipmentID string) ([]*models.TrackingState, error)
	TrackBatch(ctx context.Context, shipmentIDs []string) (models.TrackBatchResult, error)
	ManualVerify(ctx context.Context, shipmentID string) (reconcile.VerifyResult, error)
	Reactivate(ctx context.Context, owner models.OwnerRef) (*models.TrackingState, error)
	ListHistory(ctx context.Context, owner models.OwnerRef, limit, offset int) ([]models.HistoryEntry, error)
	ListAudit(ctx context.Context, shipmentID string, limit int) ([]models.AuditLogEntry, error)
	RunReconciliation(ctx context.Context, live bool) (reconcile.SyncResult, error)
}

type TrackingsAPI struct {
	svc Service
}

func New(svc Service) *TrackingsAPI {
	return &TrackingsAPI{svc: svc}
}

// Register mounts the REST surface on a gateway mux.
func (a *TrackingsAPI) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method, pattern string
		h               runtime.HandlerFunc
	}{
		{http.MethodGet, "/v1/shipments/{awb}", a.trackSingle},
		{http.MethodPost, "/v1/shipments/batch", a.trackBatch},
		{http.MethodPost, "/v1/shipments/{awb}/verify", a.manualVerify},
		{http.MethodGet, "/v1/shipments/{awb}/audit", a.listAudit},
		{http.MethodPost, "/v1/owners/{type}/{id}/reactivate", a.reactivate},
		{http.MethodGet, "/v1/owners/{type}/{id}/history", a.listHistory},
		{http.MethodPost, "/v1/ingest", a.ingest},
		{http.MethodPost, "/v1/reconciliation", a.runReconciliation},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.h); err != nil {
			return errors.Wrapf(err, "register %s %s", rt.method, rt.pattern)
		}
	}
	return nil
}

type trackingsResponse struct {
	Trackings []*models.TrackingState `json:"trackings"`
}

func (a *TrackingsAPI) trackSingle(w http.ResponseWriter, r *http.Request, p map[string]string) {
	ts, err := a.svc.TrackSingle(r.Context(), p["awb"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trackingsResponse{Trackings: ts})
}

type trackBatchRequest struct {
	ShipmentIDs []string `json:"shipmentIds"`
}

func (a *TrackingsAPI) trackBatch(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req trackBatchRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := a.svc.TrackBatch(r.Context(), req.ShipmentIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *TrackingsAPI) manualVerify(w http.ResponseWriter, r *http.Request, p map[string]string) {
	res, err := a.svc.ManualVerify(r.Context(), p["awb"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *TrackingsAPI) listAudit(w http.ResponseWriter, r *http.Request, p map[string]string) {
	entries, err := a.svc.ListAudit(r.Context(), p["awb"], queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *TrackingsAPI) reactivate(w http.ResponseWriter, r *http.Request, p map[string]string) {
	st, err := a.svc.Reactivate(r.Context(), ownerFromPath(p))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *TrackingsAPI) listHistory(w http.ResponseWriter, r *http.Request, p map[string]string) {
	entries, err := a.svc.ListHistory(r.Context(), ownerFromPath(p), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

type ingestRequest struct {
	Items []models.ShipmentSeed `json:"items"`
}

func (a *TrackingsAPI) ingest(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req ingestRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := a.svc.Ingest(r.Context(), req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"upserted": n})
}

type reconciliationRequest struct {
	// Live defaults to true when omitted.
	Live *bool `json:"live"`
}

func (a *TrackingsAPI) runReconciliation(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req reconciliationRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	live := req.Live == nil || *req.Live
	res, err := a.svc.RunReconciliation(r.Context(), live)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func ownerFromPath(p map[string]string) models.OwnerRef {
	return models.OwnerRef{Type: models.OwnerType(p["type"]), ID: p["id"]}
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
