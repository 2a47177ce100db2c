package models

import (
	"fmt"
	"time"

	"github.com/BearBump/trackrecon/internal/taxonomy"
)

// OwnerType — какая бизнес-сущность владеет AWB.
type OwnerType string

const (
	OwnerOrder  OwnerType = "order"
	OwnerReturn OwnerType = "return"
)

func (o OwnerType) Valid() bool {
	return o == OwnerOrder || o == OwnerReturn
}

// DefaultStatus returns the default value of the owner's status enumeration.
func (o OwnerType) DefaultStatus() string {
	if o == OwnerReturn {
		return string(taxonomy.DefaultReturnStatus)
	}
	return string(taxonomy.DefaultOrderStatus)
}

// Classify routes carrier text to the enumeration that applies to the owner.
func (o OwnerType) Classify(text string) string {
	if o == OwnerReturn {
		return string(taxonomy.ClassifyReturnStatus(text))
	}
	return string(taxonomy.ClassifyOrderStatus(text))
}

func (o OwnerType) IsTerminal(status string) bool {
	if o == OwnerReturn {
		return taxonomy.ReturnStatus(status).Terminal()
	}
	return taxonomy.OrderStatus(status).Terminal()
}

type OwnerRef struct {
	Type OwnerType `json:"type"`
	ID   string    `json:"id"`
}

func (r OwnerRef) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

// Source tags where a status observation came from.
type Source string

const (
	SourceAPI        Source = "api"
	SourceHTMLScrape Source = "html-scrape"
	SourceWebhook    Source = "webhook"
	SourceLocal      Source = "local"
)

// ShipmentRef is a derived view over an order/return record with a non-empty AWB.
type ShipmentRef struct {
	ShipmentID  string
	CarrierText string
	CarrierCode string
	Owner       OwnerRef
}

type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Location  string    `json:"location,omitempty"`
	Remarks   string    `json:"remarks,omitempty"`
	Source    Source    `json:"source"`
}

// PartnerSnapshot is what a manual verification saw at the carrier.
// It lives next to the system status and never overwrites it.
type PartnerSnapshot struct {
	StatusRaw string     `json:"statusRaw"`
	Status    string     `json:"status"`
	CheckedAt *time.Time `json:"checkedAt,omitempty"`
	Mismatch  bool       `json:"mismatch"`
}

// TrackingState — поля трекинга, которыми владеет запись заказа/возврата.
// Меняется только через updater.
type TrackingState struct {
	Owner         OwnerRef         `json:"owner"`
	ShipmentID    string           `json:"shipmentId"`
	CarrierText   string           `json:"carrierText,omitempty"`
	CarrierCode   string           `json:"carrierCode,omitempty"`
	Status        string           `json:"status"`
	Location      string           `json:"location,omitempty"`
	LastCheckedAt *time.Time       `json:"lastCheckedAt,omitempty"`
	LastSuccessAt *time.Time       `json:"lastSuccessAt,omitempty"`
	LastError     *string          `json:"lastError,omitempty"`
	FailCount     int32            `json:"failCount"`
	IsActive      bool             `json:"isActive"`
	NextCheckAt   *time.Time       `json:"nextCheckAt,omitempty"`
	Partner       *PartnerSnapshot `json:"partner,omitempty"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// ShipmentRecord is one row streamed by the reconciliation cursor: the tracking
// state plus the fields the local heuristic works from.
type ShipmentRecord struct {
	State        TrackingState
	ReportStatus string
	DispatchedAt *time.Time
	DeliveredAt  *time.Time
	ReceivedAt   *time.Time
	RefundedAt   *time.Time
}

func (r ShipmentRecord) Ref() ShipmentRef {
	return ShipmentRef{
		ShipmentID:  r.State.ShipmentID,
		CarrierText: r.State.CarrierText,
		CarrierCode: r.State.CarrierCode,
		Owner:       r.State.Owner,
	}
}

// TrackBatchResult keeps request order; Missing lists AWBs no record carries.
type TrackBatchResult struct {
	Trackings []*TrackingState `json:"trackings"`
	Missing   []string         `json:"missing"`
}

// ShipmentSeed comes from report/upload ingestion.
type ShipmentSeed struct {
	Owner        OwnerRef   `json:"owner"`
	CarrierText  string     `json:"carrierText"`
	ShipmentID   string     `json:"shipmentId"`
	ReportStatus string     `json:"reportStatus,omitempty"`
	DispatchedAt *time.Time `json:"dispatchedAt,omitempty"`
	DeliveredAt  *time.Time `json:"deliveredAt,omitempty"`
	ReceivedAt   *time.Time `json:"receivedAt,omitempty"`
	RefundedAt   *time.Time `json:"refundedAt,omitempty"`
}

// ShipmentFilter narrows the reconciliation cursor. DueOnly applies the automatic-sync
// eligibility rules; without it every record with an AWB is returned.
type ShipmentFilter struct {
	Limit       int
	DueOnly     bool
	Now         time.Time
	StaleBefore time.Time
}
