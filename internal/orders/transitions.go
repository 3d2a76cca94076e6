package orders

import "github.com/angelmondragon/storefront-backend/pkg/enums"

// fulfillment is the forward path an approved order travels.
var fulfillment = []enums.OrderStatus{
	enums.OrderStatusConfirmed,
	enums.OrderStatusProcessing,
	enums.OrderStatusDispatched,
	enums.OrderStatusShipped,
	enums.OrderStatusDelivered,
}

func fulfillmentRank(status enums.OrderStatus) int {
	for i, candidate := range fulfillment {
		if candidate == status {
			return i
		}
	}
	return -1
}

// canAdvance reports whether an admin status update may move from -> to.
// Pending orders leave through approve/reject only, and terminal states never move.
func canAdvance(from, to enums.OrderStatus) bool {
	if from == enums.OrderStatusPending || from.IsTerminal() {
		return false
	}
	if to == enums.OrderStatusCancelled {
		return true
	}
	fromRank, toRank := fulfillmentRank(from), fulfillmentRank(to)
	return fromRank >= 0 && toRank > fromRank
}

// paymentSources lists the payment statuses a target may be reached from.
var paymentSources = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending:   {enums.PaymentStatusPending, enums.PaymentStatusFailed},
	enums.PaymentStatusCompleted: {enums.PaymentStatusPending, enums.PaymentStatusFailed},
	enums.PaymentStatusFailed:    {enums.PaymentStatusPending, enums.PaymentStatusFailed},
	enums.PaymentStatusRefunded:  {enums.PaymentStatusCompleted},
}
