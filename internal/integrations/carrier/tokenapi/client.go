package tokenapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/trackrecon/internal/integrations/carrier"
	"github.com/BearBump/trackrecon/internal/models"
	"github.com/pkg/errors"
)

const maxBodyBytes = 4 << 20

type Config struct {
	Code    carrier.Code
	BaseURL string
	// TrackPath may contain {awb}; otherwise the AWB goes into the "awb" query param.
	TrackPath  string
	Token      string
	AuthHeader string // default: Authorization
	AuthScheme string // default: Bearer; "-" sends the bare token
	Timeout    time.Duration
	Limits     carrier.Limits
}

type Client struct {
	cfg   Config
	httpc *http.Client
}

func New(cfg Config) *Client {
	if cfg.TrackPath == "" {
		cfg.TrackPath = "/track/{awb}"
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "Authorization"
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Limits.Concurrency <= 0 {
		cfg.Limits.Concurrency = 10
	}
	return &Client{
		cfg: cfg,
		httpc: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *Client) Code() carrier.Code         { return c.cfg.Code }
func (c *Client) Strategy() carrier.Strategy { return carrier.StrategyAPI }
func (c *Client) Limits() carrier.Limits     { return c.cfg.Limits }

func (c *Client) Classify(p *models.RawStatusPayload, owner models.OwnerType) string {
	return carrier.Classify(p, owner)
}

func (c *Client) trackURL(shipmentID string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", errors.Wrap(err, "parse base url")
	}
	path := c.cfg.TrackPath
	q := u.Query()
	if strings.Contains(path, "{awb}") {
		path = strings.ReplaceAll(path, "{awb}", url.PathEscape(shipmentID))
	} else {
		q.Set("awb", shipmentID)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) Fetch(ctx context.Context, shipmentID string) (*models.RawStatusPayload, error) {
	code := c.cfg.Code
	u, err := c.trackURL(shipmentID)
	if err != nil {
		return nil, carrier.NewNetworkError(code, shipmentID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, carrier.NewNetworkError(code, shipmentID, errors.Wrap(err, "new request"))
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		v := c.cfg.Token
		if c.cfg.AuthScheme != "-" {
			v = c.cfg.AuthScheme + " " + c.cfg.Token
		}
		req.Header.Set(c.cfg.AuthHeader, v)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, carrier.AsFetchError(code, shipmentID, errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// перевозчик не знает такой AWB: это отсутствие данных, а не сбой
		return nil, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, carrier.NewNetworkError(code, shipmentID, fmt.Errorf("%s api auth failed (%d)", code, resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, carrier.NewNetworkError(code, shipmentID, fmt.Errorf("%s api rate limit (429)", code))
	case resp.StatusCode/100 != 2:
		return nil, carrier.NewNetworkError(code, shipmentID, fmt.Errorf("%s api http %d", code, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, carrier.AsFetchError(code, shipmentID, errors.Wrap(err, "read body"))
	}

	p, err := parse(body)
	if err != nil {
		return nil, carrier.NewParseError(code, shipmentID, body, err)
	}
	if p == nil {
		return nil, nil
	}
	p.FetchedAt = time.Now().UTC()
	p.ByteLength = len(body)
	return p, nil
}

// parse returns (nil, nil) for a recognized "no data" response.
func parse(body []byte) (*models.RawStatusPayload, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	res, ok := probeShapes(root)
	if !ok {
		if noDataHint(root) {
			return nil, nil
		}
		return nil, errors.New("unrecognized response shape")
	}

	doc := firstObject(res.items)
	if doc == nil {
		return nil, nil
	}
	if inner, ok := lookup(doc, "shipment"); ok {
		if m, ok := inner.(map[string]any); ok {
			doc = m
		}
	}

	p := &models.RawStatusPayload{
		Source:   models.SourceAPI,
		Matcher:  res.matcher,
		Document: doc,
	}
	fillFromDoc(p, doc)
	if p.StatusText == "" {
		return nil, errors.Errorf("shape %q has no status field", res.matcher)
	}
	return p, nil
}

func firstObject(items []any) map[string]any {
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			return m
		}
	}
	return nil
}

var (
	statusKeys   = []string{"status", "current_status", "status_description", "shipment_status", "tracking_status"}
	locationKeys = []string{"location", "current_location", "status_location", "city"}
	timeKeys     = []string{"status_time", "status_date_time", "updated_at", "timestamp", "event_time", "scan_date_time"}
	remarkKeys   = []string{"remarks", "instructions", "reason", "message"}
	scanKeys     = []string{"scans", "events", "history", "scan_details"}
)

func fillFromDoc(p *models.RawStatusPayload, doc map[string]any) {
	// Status может быть объектом (Delhivery: {"Status": {"Status": "...", "StatusLocation": "..."}}).
	if v, ok := lookup(doc, statusKeys...); ok {
		if m, ok := v.(map[string]any); ok {
			fillFromDoc(p, m)
			return
		}
	}

	p.StatusText = lookupString(doc, statusKeys...)
	p.Location = lookupString(doc, locationKeys...)
	p.Remarks = lookupString(doc, remarkKeys...)
	p.StatusAt = carrier.ParseTime(lookupString(doc, timeKeys...))

	if p.StatusText != "" {
		return
	}
	// Нет статуса на верхнем уровне, берём последний скан.
	if v, ok := lookup(doc, scanKeys...); ok {
		if scans, ok := v.([]any); ok && len(scans) > 0 {
			if last, ok := scans[len(scans)-1].(map[string]any); ok {
				p.StatusText = lookupString(last, statusKeys...)
				if p.Location == "" {
					p.Location = lookupString(last, locationKeys...)
				}
				if p.StatusAt == nil {
					p.StatusAt = carrier.ParseTime(lookupString(last, timeKeys...))
				}
			}
		}
	}
}
