package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is a rating left by a user on a product.
type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:reviews_user_id_idx"`
	ProductID int64     `gorm:"column:product_id;not null;index:reviews_product_id_idx"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   *string   `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Review) TableName() string { return "reviews" }
