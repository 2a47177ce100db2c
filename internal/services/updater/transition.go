package updater

import (
	"time"

	"github.com/BearBump/trackrecon/internal/models"
)

// Observation is one normalized status reading, whatever produced it.
type Observation struct {
	CheckedAt time.Time
	Source    models.Source

	// Status is canonical and empty on failure.
	Status    string
	StatusRaw string
	StatusAt  *time.Time
	Location  string
	Remarks   string

	Err string
	// CountsFailure is false for errors that say nothing about the carrier (unresolved carrier).
	CountsFailure bool
}

func (o Observation) Failed() bool { return o.Err != "" }

// StoredTime rounds t down to the precision timestamptz keeps.
func StoredTime(t time.Time) time.Time { return t.Truncate(time.Microsecond) }

// Next is the pure state transition for one observation. It returns ok=false when
// the observation is not newer than the last check, which makes re-applying the
// same outcome a no-op. Both sides are compared at storage precision.
func Next(st models.TrackingState, obs Observation, threshold int32) (next models.TrackingState, hist *models.HistoryEntry, ok bool) {
	checked := StoredTime(obs.CheckedAt)
	if st.LastCheckedAt != nil && !checked.After(StoredTime(*st.LastCheckedAt)) {
		return st, nil, false
	}

	next = st
	next.LastCheckedAt = &checked
	next.UpdatedAt = checked

	if obs.Failed() {
		e := obs.Err
		next.LastError = &e
		if obs.CountsFailure {
			next.FailCount++
			if threshold > 0 && next.FailCount >= threshold {
				next.IsActive = false
			}
		}
		return next, nil, true
	}

	next.Status = obs.Status
	if obs.Location != "" {
		next.Location = obs.Location
	}
	next.LastSuccessAt = &checked
	next.LastError = nil
	next.FailCount = 0
	next.IsActive = true

	remarks := obs.Remarks
	if remarks == "" && obs.StatusRaw != obs.Status {
		remarks = obs.StatusRaw
	}
	hist = &models.HistoryEntry{
		Timestamp: checked,
		Status:    obs.Status,
		Location:  obs.Location,
		Remarks:   models.Truncate(remarks, 500),
		Source:    obs.Source,
	}
	return next, hist, true
}
