package payments

import "github.com/angelmondragon/storefront-backend/pkg/enums"

// Settlement is how an order gets paid. The concrete types are GatewayPayment
// and CashOnDelivery; Settle switches on them.
type Settlement interface {
	Method() enums.PaymentMethod
}

// GatewayPayment is the callback payload from a hosted checkout.
type GatewayPayment struct {
	IntentRef  string
	PaymentRef string
	Signature  string
}

// Method implements Settlement.
func (GatewayPayment) Method() enums.PaymentMethod { return enums.PaymentMethodGateway }

// CashOnDelivery defers collection until the parcel arrives.
type CashOnDelivery struct{}

// Method implements Settlement.
func (CashOnDelivery) Method() enums.PaymentMethod { return enums.PaymentMethodCOD }
