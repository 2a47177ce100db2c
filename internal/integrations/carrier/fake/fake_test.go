package fake

import (
	"context"
	"testing"

	"github.com/BearBump/trackrecon/internal/models"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	c := New("delhivery")
	p, err := c.Fetch(context.Background(), "A1")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.StatusAt)
	require.Equal(t, StatusFor("delhivery", "A1"), p.StatusText)

	again, err := c.Fetch(context.Background(), "A1")
	require.NoError(t, err)
	require.Equal(t, p.StatusText, again.StatusText)
	require.Contains(t, []string{"pending", "picked_up", "in_transit", "out_for_delivery", "delivered"}, c.Classify(p, models.OwnerOrder))
}

func TestClient_Fetch_NotFound(t *testing.T) {
	c := New("delhivery")
	p, err := c.Fetch(context.Background(), "notfound-1")
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestClient_Fetch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("dtdc").Fetch(ctx, "A1")
	require.Error(t, err)
}
