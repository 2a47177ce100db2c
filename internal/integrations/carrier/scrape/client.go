package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/BearBump/trackrecon/internal/integrations/carrier"
	"github.com/BearBump/trackrecon/internal/models"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

const (
	maxPageBytes     = 2 << 20
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

var (
	DefaultStatusSelectors = []string{
		"[data-status]", "#current-status", ".current-status", ".shipment-status",
		".tracking-status", ".status-text", "td.status", ".status",
	}
	DefaultLocationSelectors = []string{
		"#current-location", ".current-location", ".tracking-location", "td.location", ".location",
	}
	DefaultTimeSelectors = []string{
		".status-date", ".tracking-date", "td.date", ".date", "time",
	}
)

var (
	statusLabelRe = regexp.MustCompile(`(?is)(?:current\s+status|shipment\s+status|status)\s*[:\-]\s*(?:<[^>]+>\s*)*([^<\r\n]{3,80})`)
	statusWordRe  = regexp.MustCompile(`(?i)\b(rto delivered|out for delivery|undelivered|delivered|in[\s-]transit|picked up|dispatched|shipped|manifested|pickup scheduled|received at warehouse|returned to origin)\b`)
	locationRe    = regexp.MustCompile(`(?is)(?:current\s+)?location\s*[:\-]\s*(?:<[^>]+>\s*)*([^<\r\n]{2,60})`)
	dateRe        = regexp.MustCompile(`\d{2}[-./]\d{2}[-./]\d{4}[ ,]+\d{2}:\d{2}(?::\d{2})?|\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}(?::\d{2})?`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

type Config struct {
	Code carrier.Code
	// PageURL is the public tracking page; {awb} is substituted, otherwise the AWB is appended as "awb" param.
	PageURL           string
	UserAgent         string
	Timeout           time.Duration
	Limits            carrier.Limits
	StatusSelectors   []string
	LocationSelectors []string
	TimeSelectors     []string
}

type Client struct {
	cfg   Config
	httpc *http.Client
}

func New(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Limits.Concurrency <= 0 {
		cfg.Limits.Concurrency = 3
	}
	if len(cfg.StatusSelectors) == 0 {
		cfg.StatusSelectors = DefaultStatusSelectors
	}
	if len(cfg.LocationSelectors) == 0 {
		cfg.LocationSelectors = DefaultLocationSelectors
	}
	if len(cfg.TimeSelectors) == 0 {
		cfg.TimeSelectors = DefaultTimeSelectors
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Code() carrier.Code         { return c.cfg.Code }
func (c *Client) Strategy() carrier.Strategy { return carrier.StrategyScrape }
func (c *Client) Limits() carrier.Limits     { return c.cfg.Limits }

func (c *Client) Classify(p *models.RawStatusPayload, owner models.OwnerType) string {
	return carrier.Classify(p, owner)
}

func (c *Client) pageURL(shipmentID string) string {
	if strings.Contains(c.cfg.PageURL, "{awb}") {
		return strings.ReplaceAll(c.cfg.PageURL, "{awb}", url.QueryEscape(shipmentID))
	}
	sep := "?"
	if strings.Contains(c.cfg.PageURL, "?") {
		sep = "&"
	}
	return c.cfg.PageURL + sep + "awb=" + url.QueryEscape(shipmentID)
}

// Fetch fails only on transport problems. A page without a recognizable status
// yields a payload with empty StatusText, which classifies to the default state.
func (c *Client) Fetch(ctx context.Context, shipmentID string) (*models.RawStatusPayload, error) {
	code := c.cfg.Code
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(shipmentID), nil)
	if err != nil {
		return nil, carrier.NewNetworkError(code, shipmentID, errors.Wrap(err, "new request"))
	}
	// Браузерная сигнатура запроса, иначе часть страниц отдаёт заглушку.
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, carrier.AsFetchError(code, shipmentID, errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden || resp.StatusCode >= 500 {
		return nil, carrier.NewNetworkError(code, shipmentID, fmt.Errorf("%s page http %d", code, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, carrier.AsFetchError(code, shipmentID, errors.Wrap(err, "read body"))
	}

	p := c.extract(body)
	p.FetchedAt = time.Now().UTC()
	return p, nil
}

// extract runs the fallback chain: selectors -> regex -> unknown.
func (c *Client) extract(body []byte) *models.RawStatusPayload {
	p := &models.RawStatusPayload{
		Source:     models.SourceHTMLScrape,
		Markup:     body,
		ByteLength: len(body),
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		if text, sel := trySelectors(doc, c.cfg.StatusSelectors, "data-status"); text != "" {
			p.StatusText = text
			p.Matcher = "selector:" + sel
		}
		p.Location, _ = trySelectors(doc, c.cfg.LocationSelectors, "")
		if ts, _ := trySelectors(doc, c.cfg.TimeSelectors, "datetime"); ts != "" {
			p.StatusAt = carrier.ParseTime(ts)
			if p.StatusAt == nil {
				p.StatusAt = carrier.ParseTime(dateRe.FindString(ts))
			}
		}
	}

	page := string(body)
	if p.StatusText == "" {
		if text, name := tryRegex(page); text != "" {
			p.StatusText = text
			p.Matcher = name
		}
	}
	if p.Location == "" {
		if m := locationRe.FindStringSubmatch(page); m != nil {
			p.Location = clean(m[1])
		}
	}
	if p.StatusAt == nil {
		p.StatusAt = carrier.ParseTime(dateRe.FindString(page))
	}
	if p.StatusText == "" {
		p.Matcher = "unknown"
	}
	return p
}

func trySelectors(doc *goquery.Document, selectors []string, attr string) (string, string) {
	for _, s := range selectors {
		sel := doc.Find(s).First()
		if sel.Length() == 0 {
			continue
		}
		if attr != "" {
			if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" {
				return clean(v), s
			}
		}
		if text := clean(sel.Text()); text != "" {
			return text, s
		}
	}
	return "", ""
}

func tryRegex(page string) (string, string) {
	if m := statusLabelRe.FindStringSubmatch(page); m != nil {
		if text := clean(m[1]); text != "" {
			return text, "regex:label"
		}
	}
	if m := statusWordRe.FindString(page); m != "" {
		return clean(m), "regex:keyword"
	}
	return "", ""
}

func clean(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
