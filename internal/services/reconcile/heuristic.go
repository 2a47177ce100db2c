package reconcile

import (
	"strings"

	"github.com/BearBump/trackrecon/internal/models"
	"github.com/BearBump/trackrecon/internal/taxonomy"
)

// LocalStatus derives a status from fields already on the record. Empty means keep current.
func LocalStatus(r models.ShipmentRecord) string {
	owner := r.State.Owner.Type
	if owner == models.OwnerReturn {
		switch {
		case r.RefundedAt != nil:
			return string(taxonomy.ReturnRefunded)
		case r.ReceivedAt != nil:
			return string(taxonomy.ReturnDeliveredToWarehouse)
		}
		return fromReport(owner, r.ReportStatus)
	}

	if r.DeliveredAt != nil {
		return string(taxonomy.OrderDelivered)
	}
	if s := fromReport(owner, r.ReportStatus); s != "" {
		return s
	}
	if r.DispatchedAt != nil {
		return string(taxonomy.OrderInTransit)
	}
	return ""
}

// fromReport не откатывает статус к дефолту из-за нераспознанного текста отчёта.
func fromReport(owner models.OwnerType, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	s := owner.Classify(text)
	if s == owner.DefaultStatus() {
		return ""
	}
	return s
}
