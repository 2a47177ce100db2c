package reconcile_test

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/trackrecon/internal/integrations/carrier"
	"github.com/BearBump/trackrecon/internal/models"
	"github.com/BearBump/trackrecon/internal/services/executor"
	"github.com/pkg/errors"
)

type fakeStore struct {
	mu      sync.Mutex
	records map[models.OwnerType][]models.ShipmentRecord
	pages   int
	listErr error
	runs    map[string]models.SyncRun
}

func newFakeStore(recs ...models.ShipmentRecord) *fakeStore {
	s := &fakeStore{records: map[models.OwnerType][]models.ShipmentRecord{}, runs: map[string]models.SyncRun{}}
	for _, r := range recs {
		s.records[r.State.Owner.Type] = append(s.records[r.State.Owner.Type], r)
	}
	for _, list := range s.records {
		sort.Slice(list, func(i, j int) bool { return list[i].State.Owner.ID < list[j].State.Owner.ID })
	}
	return s
}

func (s *fakeStore) ListShipmentPage(_ context.Context, owner models.OwnerType, afterID string, f models.ShipmentFilter) ([]models.ShipmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.pages++
	var out []models.ShipmentRecord
	for _, r := range s.records[owner] {
		if r.State.Owner.ID <= afterID || r.State.ShipmentID == "" {
			continue
		}
		if f.DueOnly && !r.State.IsActive {
			continue
		}
		out = append(out, r)
		if len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) FindByShipment(_ context.Context, shipmentID string) ([]*models.TrackingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.TrackingState
	for _, owner := range []models.OwnerType{models.OwnerOrder, models.OwnerReturn} {
		for _, r := range s.records[owner] {
			if r.State.ShipmentID == shipmentID {
				st := r.State
				out = append(out, &st)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) CreateSyncRun(_ context.Context, run models.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *fakeStore) FinishSyncRun(_ context.Context, run models.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return models.ErrNotFound
	}
	s.runs[run.ID] = run
	return nil
}

func (s *fakeStore) run(id string) models.SyncRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// stubAdapter answers from a fixed table; ids missing from it time out.
type stubAdapter struct {
	code    carrier.Code
	answers map[string]string
	calls   atomic.Int64
	block   chan struct{}
	started chan struct{}
}

func newStub(code carrier.Code, answers map[string]string) *stubAdapter {
	return &stubAdapter{code: code, answers: answers}
}

func (a *stubAdapter) Code() carrier.Code         { return a.code }
func (a *stubAdapter) Strategy() carrier.Strategy { return carrier.StrategyAPI }
func (a *stubAdapter) Limits() carrier.Limits     { return carrier.Limits{Concurrency: 4} }

func (a *stubAdapter) Fetch(ctx context.Context, id string) (*models.RawStatusPayload, error) {
	a.calls.Add(1)
	if a.started != nil {
		select {
		case a.started <- struct{}{}:
		default:
		}
	}
	if a.block != nil {
		<-a.block
	}
	text, ok := a.answers[id]
	if !ok {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &models.RawStatusPayload{Source: models.SourceAPI, StatusText: text, FetchedAt: time.Now().UTC()}, nil
}

func (a *stubAdapter) Classify(p *models.RawStatusPayload, owner models.OwnerType) string {
	return carrier.Classify(p, owner)
}

// recordingFetcher wraps the real executor and remembers batch sizes.
type recordingFetcher struct {
	inner   *executor.Executor
	mu      sync.Mutex
	batches [][]string
}

func (f *recordingFetcher) RunBatch(ctx context.Context, ids []string, a carrier.Adapter, limit int) []executor.Outcome {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), ids...))
	f.mu.Unlock()
	return f.inner.RunBatch(ctx, ids, a, limit)
}

func (f *recordingFetcher) sizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, 0, len(f.batches))
	for _, b := range f.batches {
		out = append(out, len(b))
	}
	return out
}

func order(id, carrierText, awb string) models.ShipmentRecord {
	return models.ShipmentRecord{State: models.TrackingState{
		Owner: models.OwnerRef{Type: models.OwnerOrder, ID: id}, ShipmentID: awb, CarrierText: carrierText,
		Status: "pending", IsActive: true,
	}}
}

func ret(id, carrierText, awb string) models.ShipmentRecord {
	return models.ShipmentRecord{State: models.TrackingState{
		Owner: models.OwnerRef{Type: models.OwnerReturn, ID: id}, ShipmentID: awb, CarrierText: carrierText,
		Status: "initiated", IsActive: true,
	}}
}

var errBoom = errors.New("boom")
