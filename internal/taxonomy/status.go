// Package taxonomy нормализует свободный текст перевозчиков в канонические статусы.
package taxonomy

// OrderStatus is a canonical delivery state of an order shipment.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderPickedUp       OrderStatus = "picked_up"
	OrderDispatched     OrderStatus = "dispatched"
	OrderInTransit      OrderStatus = "in_transit"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderException      OrderStatus = "exception"
	OrderUndelivered    OrderStatus = "undelivered"
	OrderRTO            OrderStatus = "rto"
	OrderRTODelivered   OrderStatus = "rto_delivered"
)

// DefaultOrderStatus is returned for empty or unrecognized text.
const DefaultOrderStatus = OrderPending

// OrderStatuses lists every value of the order enumeration.
var OrderStatuses = []OrderStatus{
	OrderPending, OrderPickedUp, OrderDispatched, OrderInTransit, OrderOutForDelivery,
	OrderDelivered, OrderException, OrderUndelivered, OrderRTO, OrderRTODelivered,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the shipment will not move any more.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderRTODelivered
}

// ReturnStatus is a canonical state of a return shipment.
type ReturnStatus string

const (
	ReturnInitiated            ReturnStatus = "initiated"
	ReturnPickupScheduled      ReturnStatus = "pickup_scheduled"
	ReturnInTransit            ReturnStatus = "in_transit"
	ReturnDeliveredToWarehouse ReturnStatus = "delivered_to_warehouse"
	ReturnQualityCheck         ReturnStatus = "quality_check"
	ReturnRefunded             ReturnStatus = "refunded"
	ReturnReplaced             ReturnStatus = "replaced"
	ReturnRejected             ReturnStatus = "rejected"
)

const DefaultReturnStatus = ReturnInitiated

var ReturnStatuses = []ReturnStatus{
	ReturnInitiated, ReturnPickupScheduled, ReturnInTransit, ReturnDeliveredToWarehouse,
	ReturnQualityCheck, ReturnRefunded, ReturnReplaced, ReturnRejected,
}

func (s ReturnStatus) Valid() bool {
	for _, v := range ReturnStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s ReturnStatus) Terminal() bool {
	return s == ReturnRefunded || s == ReturnReplaced || s == ReturnRejected
}
