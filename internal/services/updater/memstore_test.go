package updater

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BearBump/trackrecon/internal/models"
)

// memStore повторяет семантику pgstore: история и аудит дедуплицируются по ключу.
type memStore struct {
	mu      sync.Mutex
	states  map[models.OwnerRef]models.TrackingState
	history map[models.OwnerRef][]models.HistoryEntry
	audit   map[string]models.AuditLogEntry

	// micros обрезает время до микросекунд, как timestamptz.
	micros bool
}

func newMemStore(states ...models.TrackingState) *memStore {
	s := &memStore{
		states:  map[models.OwnerRef]models.TrackingState{},
		history: map[models.OwnerRef][]models.HistoryEntry{},
		audit:   map[string]models.AuditLogEntry{},
	}
	for _, st := range states {
		s.states[st.Owner] = st
	}
	return s
}

func (s *memStore) GetState(_ context.Context, owner models.OwnerRef) (*models.TrackingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[owner]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &st, nil
}

func (s *memStore) FindByShipment(_ context.Context, shipmentID string) ([]*models.TrackingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.TrackingState
	for _, st := range s.states {
		if st.ShipmentID == shipmentID {
			cp := st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner.String() < out[j].Owner.String() })
	return out, nil
}

func (s *memStore) UpdateTrackingFields(_ context.Context, st *models.TrackingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	if s.micros {
		cp.LastCheckedAt = truncMicros(cp.LastCheckedAt)
		cp.LastSuccessAt = truncMicros(cp.LastSuccessAt)
		cp.NextCheckAt = truncMicros(cp.NextCheckAt)
		cp.UpdatedAt = cp.UpdatedAt.Truncate(time.Microsecond)
	}
	s.states[st.Owner] = cp
	return nil
}

func (s *memStore) AppendHistory(_ context.Context, owner models.OwnerRef, e models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.history[owner] {
		if h.Timestamp.Equal(e.Timestamp) && h.Source == e.Source {
			return nil
		}
	}
	s.history[owner] = append(s.history[owner], e)
	return nil
}

func (s *memStore) AppendAudit(_ context.Context, e models.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := fmt.Sprintf("%s|%s|%s|%d", e.Owner, e.ShipmentID, e.Source, e.CreatedAt.UnixNano())
	if _, ok := s.audit[k]; !ok {
		s.audit[k] = e
	}
	return nil
}

func (s *memStore) SavePartnerSnapshot(_ context.Context, owner models.OwnerRef, snap models.PartnerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[owner]
	st.Partner = &snap
	s.states[owner] = st
	return nil
}

func truncMicros(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Truncate(time.Microsecond)
	return &v
}

func (s *memStore) state(owner models.OwnerRef) models.TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[owner]
}
