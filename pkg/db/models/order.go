package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderItem is the snapshot of a product at purchase time.
type OrderItem struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
}

// Subtotal returns price x quantity for the line.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderItems is persisted as a JSONB array.
type OrderItems []OrderItem

func (o OrderItems) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	return types.JSONValue(o)
}

func (o *OrderItems) Scan(src any) error {
	var items OrderItems
	empty, err := types.ScanJSON(src, &items, "order items")
	if err != nil {
		return err
	}
	if empty {
		items = nil
	}
	*o = items
	return nil
}

// Total sums every line subtotal.
func (o OrderItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ProductIDs returns the distinct product ids referenced by the items.
func (o OrderItems) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(o))
	ids := make([]int64, 0, len(o))
	for _, item := range o {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Order is a customer purchase. Status and PaymentStatus move independently.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID           *uuid.UUID          `gorm:"column:user_id;type:uuid" json:"userId,omitempty"`
	Items            OrderItems          `gorm:"column:items;type:jsonb;not null" json:"items"`
	CustomerName     string              `gorm:"column:customer_name;not null" json:"customerName"`
	CustomerEmail    string              `gorm:"column:customer_email;not null" json:"customerEmail"`
	CustomerPhone    *string             `gorm:"column:customer_phone" json:"customerPhone,omitempty"`
	ShippingAddress  types.Address       `gorm:"column:shipping_address;type:jsonb;not null" json:"shippingAddress"`
	TotalAmount      decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null" json:"totalAmount"`
	Status           enums.OrderStatus   `gorm:"column:status;type:text;not null" json:"status"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:text;not null" json:"paymentStatus"`
	PaymentMethod    *string             `gorm:"column:payment_method" json:"paymentMethod,omitempty"`
	PaymentRef       *string             `gorm:"column:payment_ref" json:"paymentRef,omitempty"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id" json:"gatewayPaymentId,omitempty"`
	TrackingNumber   *string             `gorm:"column:tracking_number" json:"trackingNumber,omitempty"`
	Notes            *string             `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Order) TableName() string { return "orders" }
