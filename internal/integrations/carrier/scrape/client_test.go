package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BearBump/trackrecon/internal/integrations/carrier"
	"github.com/BearBump/trackrecon/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newPageClient(t *testing.T, status int, page string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "AWB7", r.URL.Query().Get("awb"))
		require.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/5.0"))
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return New(Config{Code: "dtdc", PageURL: srv.URL + "/track", Timeout: time.Second})
}

func TestClient_Fetch_Selector(t *testing.T) {
	c := newPageClient(t, 200, `<html><body>
<div class="shipment-status">  Shipment
   Delivered to Consignee </div>
<span class="location">Mumbai</span>
<span class="status-date">12-03-2025 14:20</span>
</body></html>`)

	p, err := c.Fetch(context.Background(), "AWB7")
	require.NoError(t, err)
	require.Equal(t, models.SourceHTMLScrape, p.Source)
	require.Equal(t, "selector:.shipment-status", p.Matcher)
	require.Equal(t, "Shipment Delivered to Consignee", p.StatusText)
	require.Equal(t, "Mumbai", p.Location)
	require.NotNil(t, p.StatusAt)
	require.Greater(t, p.ByteLength, 0)
	require.Equal(t, "delivered", c.Classify(p, models.OwnerOrder))
}

func TestClient_Fetch_DataAttributeWins(t *testing.T) {
	c := newPageClient(t, 200, `<div data-status="Out for Delivery">OFD</div>`)
	p, err := c.Fetch(context.Background(), "AWB7")
	require.NoError(t, err)
	require.Equal(t, "Out for Delivery", p.StatusText)
}

func TestClient_Fetch_RegexFallback(t *testing.T) {
	c := newPageClient(t, 200, `<table><tr><th>Status:</th><td><b>In Transit</b></td></tr>
<tr><th>Location -</th><td>Bhiwandi Hub</td></tr></table>`)
	p, err := c.Fetch(context.Background(), "AWB7")
	require.NoError(t, err)
	require.Equal(t, "regex:label", p.Matcher)
	require.Equal(t, "In Transit", p.StatusText)
	require.Equal(t, "Bhiwandi Hub", p.Location)
}

func TestClient_Fetch_KeywordFallback(t *testing.T) {
	c := newPageClient(t, 200, `<p>Your parcel is out for delivery today</p>`)
	p, err := c.Fetch(context.Background(), "AWB7")
	require.NoError(t, err)
	require.Equal(t, "regex:keyword", p.Matcher)
	require.Equal(t, "out_for_delivery", c.Classify(p, models.OwnerOrder))
}

func TestClient_Fetch_NothingMatchedIsUnknown(t *testing.T) {
	for _, status := range []int{200, 404} {
		c := newPageClient(t, status, `<html><body>Sorry, try again later</body></html>`)
		p, err := c.Fetch(context.Background(), "AWB7")
		require.NoError(t, err)
		require.Equal(t, "unknown", p.Matcher)
		require.Empty(t, p.StatusText)
		require.Equal(t, "pending", c.Classify(p, models.OwnerOrder))
		require.Equal(t, "initiated", c.Classify(p, models.OwnerReturn))
	}
}

func TestClient_Fetch_BlockedIsNetworkError(t *testing.T) {
	c := newPageClient(t, http.StatusForbidden, `captcha`)
	_, err := c.Fetch(context.Background(), "AWB7")
	var fe *carrier.FetchError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, carrier.KindNetwork, fe.Kind)
}

func TestClient_pageURL(t *testing.T) {
	c := New(Config{PageURL: "https://x.test/track?lang=en"})
	require.Equal(t, "https://x.test/track?lang=en&awb=A1", c.pageURL("A1"))

	c = New(Config{PageURL: "https://x.test/track/{awb}/details"})
	require.Equal(t, "https://x.test/track/A1/details", c.pageURL("A1"))
}
