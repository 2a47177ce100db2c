package tokenapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/trackrecon/internal/integrations/carrier"
	"github.com/BearBump/trackrecon/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{
		Code:      "xpressbees",
		BaseURL:   srv.URL,
		TrackPath: "/api/track/{awb}",
		Token:     "tok",
		Timeout:   time.Second,
	})
}

func TestClient_Fetch_ArrayRoot(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/track/AWB1", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"awb":"AWB1","status":"Out for Delivery","location":"Pune","status_time":"2025-01-01 10:00:00"}]`))
	})

	p, err := c.Fetch(context.Background(), "AWB1")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, models.SourceAPI, p.Source)
	require.Equal(t, "array", p.Matcher)
	require.Equal(t, "Out for Delivery", p.StatusText)
	require.Equal(t, "Pune", p.Location)
	require.NotNil(t, p.StatusAt)
	require.Equal(t, "out_for_delivery", c.Classify(p, models.OwnerOrder))
}

func TestClient_Fetch_NestedShapes(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		matcher string
		status  string
	}{
		{"shipments", `{"shipments":[{"current_status":"In Transit"}]}`, "shipments", "In Transit"},
		{"data object", `{"status":true,"data":{"status":"Delivered","city":"Delhi"}}`, "data", "Delivered"},
		{"data.shipments", `{"data":{"shipments":[{"status":"RTO"}]}}`, "data.shipments", "RTO"},
		{"packages", `{"packages":[{"Shipment":{"Status":{"Status":"Dispatched","StatusLocation":"Hub"}}}]}`, "packages", "Dispatched"},
		{"scans fallback", `{"data":[{"awb":"X","scans":[{"status":"Picked"},{"status":"Bagged"}]}]}`, "data", "Bagged"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := parse([]byte(tc.body))
			require.NoError(t, err)
			require.NotNil(t, p)
			require.Equal(t, tc.matcher, p.Matcher)
			require.Equal(t, tc.status, p.StatusText)
		})
	}
}

func TestParse_FirstValidShapeWins(t *testing.T) {
	// и shipments, и data присутствуют — shipments стоит раньше
	p, err := parse([]byte(`{"data":[{"status":"Delivered"}],"shipments":[{"status":"In Transit"}]}`))
	require.NoError(t, err)
	require.Equal(t, "shipments", p.Matcher)
	require.Equal(t, "In Transit", p.StatusText)
}

func TestClient_Fetch_NoDataIsNotAnError(t *testing.T) {
	for _, body := range []string{`[]`, `{"data":null}`, `{"shipments":[]}`, `{"error":"No data found for AWB"}`} {
		p, err := parse([]byte(body))
		require.NoError(t, err, body)
		require.Nil(t, p, body)
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	p, err := c.Fetch(context.Background(), "AWB404")
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestClient_Fetch_ParseError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":{"foo":1}}`))
	})
	_, err := c.Fetch(context.Background(), "AWB1")
	require.Error(t, err)

	var fe *carrier.FetchError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, carrier.KindParse, fe.Kind)
	require.Contains(t, fe.Snippet, "unexpected")
}

func TestClient_Fetch_AuthAndServerErrorsAreNetwork(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusBadGateway} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		})
		_, err := c.Fetch(context.Background(), "AWB1")
		var fe *carrier.FetchError
		require.True(t, errors.As(err, &fe))
		require.Equal(t, carrier.KindNetwork, fe.Kind)
	}
}

func TestClient_Fetch_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	c.httpc.Timeout = 20 * time.Millisecond

	_, err := c.Fetch(context.Background(), "AWB1")
	var fe *carrier.FetchError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, carrier.KindNetwork, fe.Kind)
}

func TestClient_trackURL_QueryParam(t *testing.T) {
	c := New(Config{Code: "delhivery", BaseURL: "https://example.test/api/v1/", TrackPath: "/packages/json"})
	u, err := c.trackURL("A B")
	require.NoError(t, err)
	require.Equal(t, "https://example.test/api/v1/packages/json?awb=A+B", u)
}
