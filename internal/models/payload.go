package models

import (
	"fmt"
	"strings"
	"time"
)

const summaryLimit = 512

// RawStatusPayload is what an adapter got from a carrier before classification.
// Either Document (decoded API object) or Markup (scraped page) is set.
type RawStatusPayload struct {
	Source    Source
	FetchedAt time.Time

	StatusText string
	Location   string
	StatusAt   *time.Time
	Remarks    string

	// Matcher names the JSON shape, selector or regex that produced StatusText.
	Matcher string

	Document   map[string]any
	Markup     []byte
	ByteLength int
}

// Summary is a short, bounded description stored in the audit log.
func (p *RawStatusPayload) Summary() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "source=%s matcher=%s status=%q", p.Source, p.Matcher, p.StatusText)
	if p.Location != "" {
		fmt.Fprintf(&b, " location=%q", p.Location)
	}
	if p.ByteLength > 0 {
		fmt.Fprintf(&b, " bytes=%d", p.ByteLength)
	}
	return Truncate(b.String(), summaryLimit)
}

func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// AuditLogEntry is immutable: one per fetch attempt.
type AuditLogEntry struct {
	ID                uint64    `json:"id"`
	ShipmentID        string    `json:"shipmentId"`
	CarrierCode       string    `json:"carrierCode"`
	CanonicalStatus   string    `json:"canonicalStatus,omitempty"`
	RawPayloadSummary string    `json:"rawPayloadSummary,omitempty"`
	Source            Source    `json:"source"`
	Owner             OwnerRef  `json:"owner"`
	Error             *string   `json:"error,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

const (
	SyncStateIdle      = "idle"
	SyncStateRunning   = "running"
	SyncStateCompleted = "completed"
	SyncStateFailed    = "failed"
)

type SyncRun struct {
	ID         string     `json:"id"`
	Mode       string     `json:"mode"`
	State      string     `json:"state"`
	Processed  int        `json:"processed"`
	Updated    int        `json:"updated"`
	Failed     int        `json:"failed"`
	Unresolved int        `json:"unresolved"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}
