package product

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ListInput captures the browse filters and cursor.
type ListInput struct {
	Category   *enums.ProductCategory
	Search     string
	Pagination pagination.Params
}

// ListResult is a single page of products ordered by id.
type ListResult struct {
	Products   []models.Product `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// CreateInput holds the validated payload to create a product.
type CreateInput struct {
	Name            string
	Price           decimal.Decimal
	Category        enums.ProductCategory
	Colors          []string
	Sizes           []string
	Stock           int
	Features        []string
	Description     *string
	FullDescription *string
	Image           *string
}

// UpdateInput holds optional mutation values for a product. Stock is not editable here.
type UpdateInput struct {
	Name            *string
	Price           *decimal.Decimal
	Category        *enums.ProductCategory
	Colors          *[]string
	Sizes           *[]string
	Features        *[]string
	Description     *string
	FullDescription *string
	Image           *string
}
