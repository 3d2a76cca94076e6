package wishlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ItemDTO wraps the product included in a wishlist row.
type ItemDTO struct {
	ID        uuid.UUID      `json:"id"`
	Product   models.Product `json:"product"`
	CreatedAt time.Time      `json:"createdAt"`
}
