package enums

// PaymentMethod is how the shopper settles: online through the gateway, or
// cash on delivery.
type PaymentMethod string

const (
	PaymentMethodGateway PaymentMethod = "gateway"
	PaymentMethodCOD     PaymentMethod = "cod"
)

// PaymentStatus is the money side of an order, tracked separately from
// fulfillment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

var (
	paymentMethods  = []PaymentMethod{PaymentMethodGateway, PaymentMethodCOD}
	paymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded}
)

func (m PaymentMethod) String() string { return string(m) }
func (m PaymentMethod) IsValid() bool  { return member(paymentMethods, m) }

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	return lookup(paymentMethods, raw, "payment method", true)
}

func (s PaymentStatus) String() string { return string(s) }
func (s PaymentStatus) IsValid() bool  { return member(paymentStatuses, s) }

// IsSettled reports whether money has moved in either direction.
func (s PaymentStatus) IsSettled() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusRefunded
}

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	return lookup(paymentStatuses, raw, "payment status", false)
}
