package messages

import (
	"time"
)

// TrackingUpdated публикуется после каждого применённого результата проверки.
type TrackingUpdated struct {
	OwnerType  string    `json:"owner_type"`
	OwnerID    string    `json:"owner_id"`
	ShipmentID string    `json:"shipment_id"`
	Carrier    string    `json:"carrier,omitempty"`
	Source     string    `json:"source"`
	CheckedAt  time.Time `json:"checked_at"`

	Status         string     `json:"status"`
	PreviousStatus string     `json:"previous_status,omitempty"`
	StatusRaw      string     `json:"status_raw,omitempty"`
	StatusAt       *time.Time `json:"status_at,omitempty"`
	Location       string     `json:"location,omitempty"`

	IsActive    bool       `json:"is_active"`
	NextCheckAt *time.Time `json:"next_check_at,omitempty"`

	Error *string `json:"error,omitempty"`
}

// WebhookStatus is a carrier push relayed onto the webhook topic.
type WebhookStatus struct {
	ShipmentID string     `json:"shipment_id"`
	Carrier    string     `json:"carrier,omitempty"`
	RawStatus  string     `json:"raw_status"`
	Location   string     `json:"location,omitempty"`
	Remarks    string     `json:"remarks,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}
