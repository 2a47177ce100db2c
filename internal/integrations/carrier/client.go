package carrier

import (
	"context"

	"github.com/BearBump/trackrecon/internal/models"
)

// Code is the canonical identifier of a logistics carrier.
type Code string

// Strategy — способ получения статуса у перевозчика.
type Strategy string

const (
	StrategyAPI    Strategy = "api"
	StrategyScrape Strategy = "html-scrape"
)

// Limits are carrier-specific fan-out settings.
type Limits struct {
	Concurrency        int
	RateLimitPerMinute int64
}

// Adapter fetches and classifies statuses for one carrier.
type Adapter interface {
	Code() Code
	Strategy() Strategy
	Limits() Limits

	// Fetch returns (nil, nil) when the carrier confirms it has no data for the
	// shipment. Failures are *FetchError.
	Fetch(ctx context.Context, shipmentID string) (*models.RawStatusPayload, error)

	Classify(p *models.RawStatusPayload, owner models.OwnerType) string
}

// Classify is the shared classification used by every adapter.
func Classify(p *models.RawStatusPayload, owner models.OwnerType) string {
	if p == nil {
		return owner.DefaultStatus()
	}
	return owner.Classify(p.StatusText)
}
