package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// TotalTolerance is the largest accepted gap between a submitted total and the
// total recomputed from catalog prices.
var TotalTolerance = decimal.RequireFromString("0.01")

// ItemInput is one requested line. Price and name are taken from the catalog.
type ItemInput struct {
	ProductID int64
	Quantity  int
	Size      string
	Color     string
}

// CustomerInput carries the denormalized contact details stored on the order.
type CustomerInput struct {
	Name  string
	Email string
	Phone string
}

// CreateOrderInput is the checkout submission.
type CreateOrderInput struct {
	UserID          *uuid.UUID
	Items           []ItemInput
	Customer        CustomerInput
	ShippingAddress types.Address
	// TotalAmount is the client's view of the total; nil skips the comparison.
	TotalAmount *decimal.Decimal
	Notes       string
}

// UpdateStatusInput carries the optional fields that accompany a status change.
type UpdateStatusInput struct {
	TrackingNumber *string
	Notes          *string
}

// PaymentUpdate moves the payment dimension of an order.
type PaymentUpdate struct {
	Status           enums.PaymentStatus
	Method           *enums.PaymentMethod
	Ref              *string
	GatewayPaymentID *string
}

// ListOrdersInput filters the admin and customer order listings.
type ListOrdersInput struct {
	Status     *enums.OrderStatus
	Email      string
	UserID     *uuid.UUID
	Pagination pagination.Params
}

// OrderList is one page of orders, newest first.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// StockFailure describes one line item that blocked an approval.
type StockFailure struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available *int   `json:"available,omitempty"`
	Reason    string `json:"reason"`
}

const (
	FailureProductMissing    = "product not found"
	FailureInsufficientStock = "insufficient stock"
)
