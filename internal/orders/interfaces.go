package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository defines persistence operations for orders and the stock they consume.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, query listQuery) ([]models.Order, error)
	// CompareAndSetStatus applies updates only while the order still has status
	// from. It reports whether the row was changed.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	// CompareAndSetPayment applies updates only while the payment status is one of from.
	CompareAndSetPayment(ctx context.Context, id uuid.UUID, from []enums.PaymentStatus, updates map[string]any) (bool, error)
	FindProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error)
	// DeductStock decrements the counter when at least qty units remain.
	DeductStock(ctx context.Context, productID int64, qty int) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TransitionRecorder observes committed status changes.
type TransitionRecorder interface {
	OrderTransition(from, to string)
}
