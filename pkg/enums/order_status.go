package enums

// OrderStatus is the fulfillment state of an order. Stock is deducted when
// an order leaves pending for confirmed.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusDispatched OrderStatus = "dispatched"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRejected   OrderStatus = "rejected"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusDispatched,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRejected,
}

func (s OrderStatus) String() string { return string(s) }
func (s OrderStatus) IsValid() bool  { return member(orderStatuses, s) }

// IsTerminal is true for delivered, cancelled and rejected orders.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	return lookup(orderStatuses, raw, "order status", false)
}
