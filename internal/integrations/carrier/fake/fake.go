package fake

import (
	"context"
	"hash/fnv"
	"strings"
	"time"

	"github.com/BearBump/trackrecon/internal/integrations/carrier"
	"github.com/BearBump/trackrecon/internal/models"
)

// Префикс, по которому фейк отвечает "нет данных".
const NotFoundPrefix = "NOTFOUND"

var statusTexts = []string{
	"Shipment Manifested",
	"Picked Up",
	"In Transit",
	"Out for Delivery",
	"Delivered",
}

// Client — детерминированный "перевозчик" для локальных стендов и тестов.
// Статус зависит только от (carrier, AWB), так что повторный прогон даёт тот же результат.
type Client struct {
	code   carrier.Code
	limits carrier.Limits
}

func New(code carrier.Code) *Client {
	return &Client{code: code, limits: carrier.Limits{Concurrency: 10}}
}

func (f *Client) Code() carrier.Code         { return f.code }
func (f *Client) Strategy() carrier.Strategy { return carrier.StrategyAPI }
func (f *Client) Limits() carrier.Limits     { return f.limits }

func (f *Client) Classify(p *models.RawStatusPayload, owner models.OwnerType) string {
	return carrier.Classify(p, owner)
}

func (f *Client) Fetch(ctx context.Context, shipmentID string) (*models.RawStatusPayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, carrier.AsFetchError(f.code, shipmentID, err)
	}
	if strings.HasPrefix(strings.ToUpper(shipmentID), NotFoundPrefix) {
		return nil, nil
	}

	now := time.Now().UTC()
	return &models.RawStatusPayload{
		Source:     models.SourceAPI,
		FetchedAt:  now,
		StatusText: StatusFor(f.code, shipmentID),
		StatusAt:   &now,
		Remarks:    "fake carrier update",
		Matcher:    "fake",
	}, nil
}

// StatusFor returns the raw status text the fake reports for a shipment.
func StatusFor(code carrier.Code, shipmentID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(code))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(shipmentID))
	return statusTexts[h.Sum32()%uint32(len(statusTexts))]
}
