package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyOrderStatus(t *testing.T) {
	cases := []struct {
		in   string
		want OrderStatus
	}{
		{"Package Out for Delivery", OrderOutForDelivery},
		{"Shipment Delivered to Consignee", OrderDelivered},
		{"", OrderPending},
		{"   ", OrderPending},
		{"something nobody has ever written", OrderPending},
		{"Manifested", OrderPending},
		{"Pickup Scheduled", OrderPending},
		{"Not Picked - Seller closed", OrderPending},
		{"Picked Up", OrderPickedUp},
		{"Shipment Dispatched from Origin", OrderDispatched},
		{"In-Transit", OrderInTransit},
		{"Arrived at Destination Hub", OrderInTransit},
		{"Undelivered - Customer not available", OrderUndelivered},
		{"Delivery Attempted", OrderUndelivered},
		{"RTO Initiated", OrderRTO},
		{"Returned to Origin", OrderRTO},
		{"RTO Delivered", OrderRTODelivered},
		{"rto-delivered", OrderRTODelivered},
		{"Shipment Lost", OrderException},
		{"OFD", OrderOutForDelivery},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ClassifyOrderStatus(c.in), "input %q", c.in)
	}
}

func TestClassifyOrderStatus_CancelBeatsDeliver(t *testing.T) {
	// cancel и deliver в одной фразе: правило exception стоит раньше.
	require.Equal(t, OrderException, ClassifyOrderStatus("cancelled after delivery attempt"))
	require.Equal(t, OrderException, ClassifyOrderStatus("Delivered? no - CANCELLED by seller"))
}

func TestClassifyOrderStatus_OutForDeliveryBeforeTransit(t *testing.T) {
	require.Equal(t, OrderOutForDelivery, ClassifyOrderStatus("In transit - out for delivery"))
	require.Equal(t, OrderDelivered, ClassifyOrderStatus("delivered after transit"))
}

func TestClassifyOrderStatus_CanonicalValuesRoundTrip(t *testing.T) {
	for _, s := range OrderStatuses {
		require.Equal(t, s, ClassifyOrderStatus(string(s)))
	}
}

func TestClassifyReturnStatus(t *testing.T) {
	cases := []struct {
		in   string
		want ReturnStatus
	}{
		{"Received at Warehouse", ReturnDeliveredToWarehouse},
		{"", ReturnInitiated},
		{"return requested", ReturnInitiated},
		{"Pickup Scheduled for tomorrow", ReturnPickupScheduled},
		{"Out for Pickup", ReturnPickupScheduled},
		{"Picked up from customer", ReturnInTransit},
		{"In Transit", ReturnInTransit},
		{"QC in progress", ReturnQualityCheck},
		{"Quality check failed", ReturnRejected},
		{"Refund processed", ReturnRefunded},
		{"Exchange shipped", ReturnReplaced},
		{"Return cancelled", ReturnRejected},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ClassifyReturnStatus(c.in), "input %q", c.in)
	}
}

func TestClassifyReturnStatus_CanonicalValuesRoundTrip(t *testing.T) {
	for _, s := range ReturnStatuses {
		require.Equal(t, s, ClassifyReturnStatus(string(s)))
	}
}

func TestClassify_TotalOverKeywordSet(t *testing.T) {
	words := []string{
		"delivered", "undelivered", "transit", "out for delivery", "rto", "cancel", "picked",
		"dispatch", "warehouse", "qc", "refund", "replace", "reject", "pickup", "lost", "hold",
	}
	for _, a := range words {
		for _, b := range words {
			in := a + " " + b
			o := ClassifyOrderStatus(in)
			r := ClassifyReturnStatus(in)
			require.True(t, o.Valid(), "order %q -> %q", in, o)
			require.True(t, r.Valid(), "return %q -> %q", in, r)
			require.Equal(t, o, ClassifyOrderStatus(in))
			require.Equal(t, r, ClassifyReturnStatus(in))
		}
	}
}

func TestTerminal(t *testing.T) {
	require.True(t, OrderDelivered.Terminal())
	require.True(t, OrderRTODelivered.Terminal())
	require.False(t, OrderInTransit.Terminal())
	require.True(t, ReturnRefunded.Terminal())
	require.False(t, ReturnQualityCheck.Terminal())
}
