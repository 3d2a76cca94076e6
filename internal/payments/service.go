package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/razorpay"
)

// Gateway is the subset of the processor client used for hosted checkout.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// OrderStore is the order lifecycle surface payments depend on.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	AttachPaymentRef(ctx context.Context, orderID uuid.UUID, ref string) error
	SetPaymentStatus(ctx context.Context, orderID uuid.UUID, update orders.PaymentUpdate) (*models.Order, error)
}

// SettlementRecorder counts settlement outcomes.
type SettlementRecorder interface {
	Settlement(method string, ok bool)
}

// Intent is returned to the client to open the hosted checkout.
type Intent struct {
	OrderID   uuid.UUID `json:"orderId"`
	IntentRef string    `json:"intentRef"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	KeyID     string    `json:"keyId"`
}

// StatusView summarizes both dimensions of an order for polling clients.
type StatusView struct {
	OrderID       uuid.UUID           `json:"orderId"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	PaymentMethod *string             `json:"paymentMethod,omitempty"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
}

// Payer is the caller acting on an order's payment. The zero value is a guest.
type Payer struct {
	UserID  *uuid.UUID
	IsAdmin bool
}

// owns reports whether the payer may see or settle order. Guest orders are
// addressed by id alone; account orders belong to their owner and admins.
func (p Payer) owns(order *models.Order) bool {
	if order.UserID == nil || p.IsAdmin {
		return true
	}
	return p.UserID != nil && *p.UserID == *order.UserID
}

// Service settles orders through the gateway or cash on delivery.
type Service interface {
	CreatePaymentIntent(ctx context.Context, payer Payer, orderID uuid.UUID) (*Intent, error)
	VerifyPayment(ctx context.Context, payer Payer, orderID uuid.UUID, intentRef, paymentRef, signature string) (*models.Order, error)
	ProcessCashOnDelivery(ctx context.Context, payer Payer, orderID uuid.UUID) (*models.Order, error)
	Settle(ctx context.Context, payer Payer, orderID uuid.UUID, settlement Settlement) (*models.Order, error)
	PaymentStatus(ctx context.Context, payer Payer, orderID uuid.UUID) (*StatusView, error)
}

// ServiceParams wires the payment service.
type ServiceParams struct {
	Orders   OrderStore
	Gateway  Gateway
	Currency string
	Recorder SettlementRecorder
	Logger   *logger.Logger
}

type service struct {
	orders   OrderStore
	gateway  Gateway
	currency string
	recorder SettlementRecorder
	logg     *logger.Logger
}

var minorUnits = decimal.NewFromInt(100)

// NewService builds the payment service. Gateway may be nil, in which case only
// cash on delivery is available.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "INR"
	}
	return &service{
		orders:   params.Orders,
		gateway:  params.Gateway,
		currency: currency,
		recorder: params.Recorder,
		logg:     params.Logger,
	}, nil
}

func (s *service) CreatePaymentIntent(ctx context.Context, payer Payer, orderID uuid.UUID) (*Intent, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	order, err := s.orderFor(ctx, payer, orderID)
	if err != nil {
		return nil, err
	}
	if err := ensurePayable(order); err != nil {
		return nil, err
	}

	amount := order.TotalAmount.Mul(minorUnits).Round(0).IntPart()
	gwOrder, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:   amount,
		Currency: s.currency,
		Receipt:  order.ID.String(),
		Notes: map[string]string{
			"customer_email": order.CustomerEmail,
			"customer_name":  order.CustomerName,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.orders.AttachPaymentRef(ctx, orderID, gwOrder.ID); err != nil {
		return nil, err
	}

	return &Intent{
		OrderID:   orderID,
		IntentRef: gwOrder.ID,
		Amount:    amount,
		Currency:  s.currency,
		KeyID:     s.gateway.KeyID(),
	}, nil
}

func (s *service) VerifyPayment(ctx context.Context, payer Payer, orderID uuid.UUID, intentRef, paymentRef, signature string) (*models.Order, error) {
	return s.Settle(ctx, payer, orderID, GatewayPayment{
		IntentRef:  intentRef,
		PaymentRef: paymentRef,
		Signature:  signature,
	})
}

func (s *service) ProcessCashOnDelivery(ctx context.Context, payer Payer, orderID uuid.UUID) (*models.Order, error) {
	return s.Settle(ctx, payer, orderID, CashOnDelivery{})
}

// Settle applies a settlement to the payment dimension of the order. It never
// changes the order status.
func (s *service) Settle(ctx context.Context, payer Payer, orderID uuid.UUID, settlement Settlement) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	switch v := settlement.(type) {
	case GatewayPayment:
		order, err = s.settleGateway(ctx, payer, orderID, v)
	case CashOnDelivery:
		order, err = s.settleCOD(ctx, payer, orderID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported settlement")
	}
	if s.recorder != nil {
		s.recorder.Settlement(settlement.Method().String(), err == nil)
	}
	return order, err
}

func (s *service) settleGateway(ctx context.Context, payer Payer, orderID uuid.UUID, payment GatewayPayment) (*models.Order, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	intentRef := strings.TrimSpace(payment.IntentRef)
	paymentRef := strings.TrimSpace(payment.PaymentRef)
	signature := strings.TrimSpace(payment.Signature)
	if intentRef == "" || paymentRef == "" || signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intentRef, paymentRef and signature are required")
	}

	order, err := s.orderFor(ctx, payer, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == enums.PaymentStatusCompleted &&
		order.GatewayPaymentID != nil && *order.GatewayPaymentID == paymentRef {
		return order, nil
	}
	if err := ensurePayable(order); err != nil {
		return nil, err
	}

	if order.PaymentRef != nil && *order.PaymentRef != intentRef {
		s.warn(ctx, orderID, "payment.verify.intent_mismatch")
		return nil, pkgerrors.New(pkgerrors.CodePayment, "payment does not belong to this order")
	}
	if !s.gateway.VerifySignature(intentRef, paymentRef, signature) {
		s.warn(ctx, orderID, "payment.verify.bad_signature")
		return nil, pkgerrors.New(pkgerrors.CodePayment, "payment verification failed")
	}

	method := enums.PaymentMethodGateway
	return s.orders.SetPaymentStatus(ctx, orderID, orders.PaymentUpdate{
		Status:           enums.PaymentStatusCompleted,
		Method:           &method,
		Ref:              &intentRef,
		GatewayPaymentID: &paymentRef,
	})
}

func (s *service) settleCOD(ctx context.Context, payer Payer, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orderFor(ctx, payer, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cash on delivery requires a pending order")
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is already settled")
	}

	method := enums.PaymentMethodCOD
	return s.orders.SetPaymentStatus(ctx, orderID, orders.PaymentUpdate{
		Status: enums.PaymentStatusPending,
		Method: &method,
	})
}

func (s *service) PaymentStatus(ctx context.Context, payer Payer, orderID uuid.UUID) (*StatusView, error) {
	order, err := s.orderFor(ctx, payer, orderID)
	if err != nil {
		return nil, err
	}
	return &StatusView{
		OrderID:       order.ID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		TotalAmount:   order.TotalAmount,
	}, nil
}

// orderFor loads an order the payer may act on. Orders owned by someone else
// read as missing.
func (s *service) orderFor(ctx context.Context, payer Payer, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !payer.owns(order) {
		s.warn(ctx, orderID, "payment.foreign_order")
		return nil, pkgerrors.NotFound("order")
	}
	return order, nil
}

func (s *service) warn(ctx context.Context, orderID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithOrderID(ctx, orderID.String()), msg)
}

func ensurePayable(order *models.Order) error {
	switch order.Status {
	case enums.OrderStatusCancelled, enums.OrderStatusRejected:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed")
	}
	if order.PaymentStatus.IsSettled() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is already settled")
	}
	return nil
}
