package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Product is a catalog listing. Stock is only ever changed through conditional
// SQL updates so it can never drop below zero.
type Product struct {
	ID              int64                 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name            string                `gorm:"column:name;not null;uniqueIndex:products_name_key" json:"name"`
	Price           decimal.Decimal       `gorm:"column:price;type:numeric(10,2);not null" json:"price"`
	Category        enums.ProductCategory `gorm:"column:category;type:text;not null" json:"category"`
	Colors          pq.StringArray        `gorm:"column:colors;type:text[];not null" json:"colors"`
	Sizes           pq.StringArray        `gorm:"column:sizes;type:text[];not null" json:"sizes"`
	Stock           int                   `gorm:"column:stock;not null;default:0" json:"stock"`
	Rating          decimal.Decimal       `gorm:"column:rating;type:numeric(3,2);not null;default:0" json:"rating"`
	ReviewCount     int                   `gorm:"column:review_count;not null;default:0" json:"reviews"`
	Features        pq.StringArray        `gorm:"column:features;type:text[];not null" json:"features"`
	Description     *string               `gorm:"column:description" json:"description,omitempty"`
	FullDescription *string               `gorm:"column:full_description" json:"fullDescription,omitempty"`
	Image           *string               `gorm:"column:image" json:"image,omitempty"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Product) TableName() string { return "products" }
